package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/tenantry/internal/domain"
)

// DocumentStore keeps each tenant collection as a table of JSONB documents
// inside a dedicated schema. The table name is the collection name.
type DocumentStore struct {
	pool   *pgxpool.Pool
	schema string
}

func NewDocumentStore(pool *pgxpool.Pool, schema string) *DocumentStore {
	return &DocumentStore{pool: pool, schema: schema}
}

func (s *DocumentStore) table(name string) string {
	return pgx.Identifier{s.schema, name}.Sanitize()
}

func (s *DocumentStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `CREATE SCHEMA IF NOT EXISTS `+pgx.Identifier{s.schema}.Sanitize())
	if err != nil {
		return fmt.Errorf("documentStore.ensureSchema: %w", mapPostgresError(err))
	}
	return nil
}

func (s *DocumentStore) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		 ORDER BY table_name`,
		s.schema,
	)
	if err != nil {
		return nil, fmt.Errorf("documentStore.ListCollections: %w", mapPostgresError(err))
	}

	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("documentStore.ListCollections: %w", mapPostgresError(err))
	}

	return names, nil
}

func (s *DocumentStore) CreateCollection(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (
		     id  UUID PRIMARY KEY,
		     seq BIGINT GENERATED ALWAYS AS IDENTITY,
		     doc JSONB NOT NULL
		 )`, s.table(name)))
	if err != nil {
		return fmt.Errorf("documentStore.CreateCollection: %s: %w", name, mapPostgresError(err))
	}

	return nil
}

func (s *DocumentStore) DropCollection(ctx context.Context, name string) error {
	_, err := s.pool.Exec(ctx, `DROP TABLE IF EXISTS `+s.table(name))
	if err != nil {
		return fmt.Errorf("documentStore.DropCollection: %s: %w", name, mapPostgresError(err))
	}

	return nil
}

// RenameCollection runs the optional target drop and the rename in one
// transaction, so the rename itself is atomic.
func (s *DocumentStore) RenameCollection(ctx context.Context, oldName, newName string, dropTarget bool) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("documentStore.RenameCollection: begin: %w", mapPostgresError(err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	if dropTarget {
		if _, err := tx.Exec(ctx, `DROP TABLE IF EXISTS `+s.table(newName)); err != nil {
			return fmt.Errorf("documentStore.RenameCollection: drop target: %w", mapPostgresError(err))
		}
	}

	_, err = tx.Exec(ctx, fmt.Sprintf(`ALTER TABLE %s RENAME TO %s`,
		s.table(oldName), pgx.Identifier{newName}.Sanitize()))
	if err != nil {
		return fmt.Errorf("documentStore.RenameCollection: %s -> %s: %w", oldName, newName, mapPostgresError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("documentStore.RenameCollection: commit: %w", mapPostgresError(err))
	}

	return nil
}

func (s *DocumentStore) InsertMany(ctx context.Context, name string, docs []domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	rows := make([][]any, 0, len(docs))
	for _, d := range docs {
		body, err := json.Marshal(d.Clone(true))
		if err != nil {
			return fmt.Errorf("documentStore.InsertMany: marshal: %w", err)
		}
		rows = append(rows, []any{uuid.New(), body})
	}

	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{s.schema, name},
		[]string{"id", "doc"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("documentStore.InsertMany: %s: %w", name, mapPostgresError(err))
	}

	return nil
}

func (s *DocumentStore) Find(ctx context.Context, name string, fn func(domain.Document) error) error {
	rows, err := s.pool.Query(ctx, `SELECT id, doc FROM `+s.table(name)+` ORDER BY seq`)
	if err != nil {
		if err = mapPostgresError(err); errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("documentStore.Find: %s: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var body []byte

		if err := rows.Scan(&id, &body); err != nil {
			return fmt.Errorf("documentStore.Find: %s: scan: %w", name, err)
		}

		doc, err := decodeDocument(body)
		if err != nil {
			return fmt.Errorf("documentStore.Find: %s: unmarshal: %w", name, err)
		}
		doc[domain.DocumentIDField] = id.String()

		if err := fn(doc); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		if err = mapPostgresError(err); errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("documentStore.Find: %s: rows: %w", name, err)
	}

	return nil
}

func (s *DocumentStore) Count(ctx context.Context, name string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM `+s.table(name)).Scan(&n)
	if err != nil {
		if err = mapPostgresError(err); errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("documentStore.Count: %s: %w", name, err)
	}

	return n, nil
}

// decodeDocument keeps numbers as json.Number so integers beyond float64
// precision survive a copy unchanged.
func decodeDocument(body []byte) (domain.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	doc := domain.Document{}
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}
