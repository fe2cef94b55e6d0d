package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/tenantry/internal/domain"
)

const administratorColumns = `id, email, password_hash, organization_id, role, created_at, updated_at`

type AdministratorRepo struct {
	pool *pgxpool.Pool
}

func NewAdministratorRepo(pool *pgxpool.Pool) *AdministratorRepo {
	return &AdministratorRepo{pool: pool}
}

func scanAdministrator(row pgx.Row) (*domain.Administrator, error) {
	var a domain.Administrator
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.OrganizationID, &a.Role, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AdministratorRepo) Create(ctx context.Context, email, passwordHash string, orgID *uuid.UUID) (*domain.Administrator, error) {
	now := time.Now().UTC()

	a, err := scanAdministrator(r.pool.QueryRow(ctx,
		`INSERT INTO administrators (id, email, password_hash, organization_id, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 RETURNING `+administratorColumns,
		uuid.New(), email, passwordHash, orgID, domain.RoleAdmin, now,
	))
	if err != nil {
		return nil, fmt.Errorf("administratorRepo.Create: %w", mapPostgresError(err))
	}

	return a, nil
}

func (r *AdministratorRepo) FindByEmail(ctx context.Context, email string) (*domain.Administrator, error) {
	a, err := scanAdministrator(r.pool.QueryRow(ctx,
		`SELECT `+administratorColumns+` FROM administrators WHERE email = $1`, email,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("administratorRepo.FindByEmail: %w", mapPostgresError(err))
	}

	return a, nil
}

func (r *AdministratorRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Administrator, error) {
	a, err := scanAdministrator(r.pool.QueryRow(ctx,
		`SELECT `+administratorColumns+` FROM administrators WHERE id = $1`, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("administratorRepo.GetByID: %w", mapPostgresError(err))
	}

	return a, nil
}

func (r *AdministratorRepo) Update(ctx context.Context, id uuid.UUID, upd domain.AdministratorUpdate) (*domain.Administrator, error) {
	a, err := scanAdministrator(r.pool.QueryRow(ctx,
		`UPDATE administrators SET
		     email = COALESCE($1, email),
		     password_hash = COALESCE($2, password_hash),
		     organization_id = COALESCE($3, organization_id),
		     updated_at = now()
		 WHERE id = $4
		 RETURNING `+administratorColumns,
		upd.Email, upd.PasswordHash, upd.OrganizationID, id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("administratorRepo.Update: %w", mapPostgresError(err))
	}

	return a, nil
}

func (r *AdministratorRepo) DeleteByOrganization(ctx context.Context, orgID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM administrators WHERE organization_id = $1`, orgID)
	if err != nil {
		return 0, fmt.Errorf("administratorRepo.DeleteByOrganization: %w", mapPostgresError(err))
	}

	return tag.RowsAffected(), nil
}

// ListDangling returns administrators created before cutoff whose
// organization reference is unset or points at no organization. An
// administrator some organization names as owner is never dangling, even
// before its back-link is written.
func (r *AdministratorRepo) ListDangling(ctx context.Context, cutoff time.Time) ([]*domain.Administrator, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.email, a.password_hash, a.organization_id, a.role, a.created_at, a.updated_at
		 FROM administrators a
		 WHERE a.created_at < $1
		   AND (a.organization_id IS NULL
		        OR NOT EXISTS (SELECT 1 FROM organizations o WHERE o.id = a.organization_id))
		   AND NOT EXISTS (SELECT 1 FROM organizations o WHERE o.admin_id = a.id)
		 ORDER BY a.created_at`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("administratorRepo.ListDangling: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var admins []*domain.Administrator
	for rows.Next() {
		a, err := scanAdministrator(rows)
		if err != nil {
			return nil, fmt.Errorf("administratorRepo.ListDangling: scan: %w", err)
		}
		admins = append(admins, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("administratorRepo.ListDangling: rows: %w", mapPostgresError(err))
	}

	return admins, nil
}

func (r *AdministratorRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM administrators WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("administratorRepo.Delete: %w", mapPostgresError(err))
	}

	return tag.RowsAffected() > 0, nil
}
