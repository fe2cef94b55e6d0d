package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/tenantry/internal/domain"
)

// DefaultSchema holds tenant collections when no schema is configured.
const DefaultSchema = "tenant_data"

type Store struct {
	pool    *pgxpool.Pool
	schema  string
	orgs    *OrganizationRepo
	admins  *AdministratorRepo
	journal *JournalRepo
	docs    *DocumentStore
}

func New(ctx context.Context, dsn string, maxConns int32, schema string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", mapPostgresError(err))
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", mapPostgresError(err))
	}

	if schema == "" {
		schema = DefaultSchema
	}

	return &Store{
		pool:    pool,
		schema:  schema,
		orgs:    NewOrganizationRepo(pool),
		admins:  NewAdministratorRepo(pool),
		journal: NewJournalRepo(pool),
		docs:    NewDocumentStore(pool, schema),
	}, nil
}

// Migrate applies pending master directory migrations and ensures the tenant
// schema exists.
func (s *Store) Migrate(ctx context.Context) error {
	if err := runMigrations(ctx, s.pool); err != nil {
		return fmt.Errorf("postgres.Store.Migrate: %w", err)
	}
	if err := s.docs.ensureSchema(ctx); err != nil {
		return fmt.Errorf("postgres.Store.Migrate: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres.Store.Ping: %w", mapPostgresError(err))
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Organizations() domain.OrganizationRepository   { return s.orgs }
func (s *Store) Administrators() domain.AdministratorRepository { return s.admins }
func (s *Store) Journal() domain.OperationJournal               { return s.journal }
func (s *Store) Documents() domain.DocumentStore                { return s.docs }
