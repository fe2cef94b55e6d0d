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

const organizationColumns = `id, name, collection_name, admin_id, created_at, updated_at`

type OrganizationRepo struct {
	pool *pgxpool.Pool
}

func NewOrganizationRepo(pool *pgxpool.Pool) *OrganizationRepo {
	return &OrganizationRepo{pool: pool}
}

func scanOrganization(row pgx.Row) (*domain.Organization, error) {
	var o domain.Organization
	err := row.Scan(&o.ID, &o.Name, &o.CollectionName, &o.AdminID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrganizationRepo) FindByName(ctx context.Context, name string) (*domain.Organization, error) {
	o, err := scanOrganization(r.pool.QueryRow(ctx,
		`SELECT `+organizationColumns+` FROM organizations WHERE name = $1`, name,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("organizationRepo.FindByName: %w", mapPostgresError(err))
	}

	return o, nil
}

func (r *OrganizationRepo) FindByCollection(ctx context.Context, collection string) (*domain.Organization, error) {
	o, err := scanOrganization(r.pool.QueryRow(ctx,
		`SELECT `+organizationColumns+` FROM organizations WHERE collection_name = $1`, collection,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("organizationRepo.FindByCollection: %w", mapPostgresError(err))
	}

	return o, nil
}

func (r *OrganizationRepo) Create(ctx context.Context, name, collection string, adminID uuid.UUID) (*domain.Organization, error) {
	now := time.Now().UTC()

	o, err := scanOrganization(r.pool.QueryRow(ctx,
		`INSERT INTO organizations (id, name, collection_name, admin_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 RETURNING `+organizationColumns,
		uuid.New(), name, collection, adminID, now,
	))
	if err != nil {
		return nil, fmt.Errorf("organizationRepo.Create: %w", mapPostgresError(err))
	}

	return o, nil
}

func (r *OrganizationRepo) Update(ctx context.Context, name string, upd domain.OrganizationUpdate) (*domain.Organization, error) {
	o, err := scanOrganization(r.pool.QueryRow(ctx,
		`UPDATE organizations SET
		     name = COALESCE($1, name),
		     collection_name = COALESCE($2, collection_name),
		     admin_id = COALESCE($3, admin_id),
		     updated_at = now()
		 WHERE name = $4
		 RETURNING `+organizationColumns,
		upd.Name, upd.CollectionName, upd.AdminID, name,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("organizationRepo.Update: %w", mapPostgresError(err))
	}

	return o, nil
}

func (r *OrganizationRepo) Delete(ctx context.Context, name string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM organizations WHERE name = $1`, name)
	if err != nil {
		return false, fmt.Errorf("organizationRepo.Delete: %w", mapPostgresError(err))
	}

	return tag.RowsAffected() > 0, nil
}

func (r *OrganizationRepo) List(ctx context.Context) ([]*domain.Organization, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+organizationColumns+` FROM organizations ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("organizationRepo.List: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var orgs []*domain.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("organizationRepo.List: scan: %w", err)
		}
		orgs = append(orgs, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("organizationRepo.List: rows: %w", mapPostgresError(err))
	}

	return orgs, nil
}
