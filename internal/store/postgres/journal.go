package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/tenantry/internal/domain"
)

type JournalRepo struct {
	pool *pgxpool.Pool
}

func NewJournalRepo(pool *pgxpool.Pool) *JournalRepo {
	return &JournalRepo{pool: pool}
}

func (r *JournalRepo) Begin(ctx context.Context, op *domain.PendingOperation) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO pending_operations
		     (id, kind, organization_name, target_name, source_collection, target_collection, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		op.ID, string(op.Kind), op.OrganizationName, op.TargetName,
		op.SourceCollection, op.TargetCollection, op.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("journalRepo.Begin: %w", mapPostgresError(err))
	}

	return nil
}

func (r *JournalRepo) Complete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM pending_operations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("journalRepo.Complete: %w", mapPostgresError(err))
	}

	return nil
}

func (r *JournalRepo) ListPending(ctx context.Context, startedBefore time.Time) ([]*domain.PendingOperation, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, kind, organization_name, target_name, source_collection, target_collection, started_at
		 FROM pending_operations WHERE started_at < $1
		 ORDER BY started_at`,
		startedBefore,
	)
	if err != nil {
		return nil, fmt.Errorf("journalRepo.ListPending: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var ops []*domain.PendingOperation
	for rows.Next() {
		var op domain.PendingOperation
		var kind string

		if err := rows.Scan(
			&op.ID, &kind, &op.OrganizationName, &op.TargetName,
			&op.SourceCollection, &op.TargetCollection, &op.StartedAt,
		); err != nil {
			return nil, fmt.Errorf("journalRepo.ListPending: scan: %w", err)
		}
		op.Kind = domain.OperationKind(kind)
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journalRepo.ListPending: rows: %w", mapPostgresError(err))
	}

	return ops, nil
}
