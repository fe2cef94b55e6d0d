// Package tenant manages the physical collections that hold each
// organization's isolated data.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/tenantry/internal/domain"
)

// DefaultBatchSize bounds the number of documents held in memory and sent per
// insert while copying a collection.
const DefaultBatchSize = 500

// InitMarker is the sentinel document seeded into every new collection.
func InitMarker() domain.Document {
	return domain.Document{"initialized": true}
}

// Manager creates, copies, renames and drops tenant collections.
type Manager struct {
	docs      domain.DocumentStore
	batchSize int
}

// NewManager returns a Manager over docs. batchSize <= 0 selects DefaultBatchSize.
func NewManager(docs domain.DocumentStore, batchSize int) *Manager {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Manager{docs: docs, batchSize: batchSize}
}

// Exists reports whether the collection is present.
func (m *Manager) Exists(ctx context.Context, name string) (bool, error) {
	names, err := m.docs.ListCollections(ctx)
	if err != nil {
		return false, fmt.Errorf("tenant.Manager.Exists: %w", err)
	}
	return slices.Contains(names, name), nil
}

// TenantCollections lists the collections in the tenant namespace.
func (m *Manager) TenantCollections(ctx context.Context) ([]string, error) {
	names, err := m.docs.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("tenant.Manager.TenantCollections: %w", err)
	}
	return slices.DeleteFunc(names, func(name string) bool {
		return !domain.IsTenantCollection(name)
	}), nil
}

// CreateCollection creates an empty collection unless it already exists.
func (m *Manager) CreateCollection(ctx context.Context, name string) error {
	exists, err := m.Exists(ctx, name)
	if err != nil {
		return fmt.Errorf("tenant.Manager.CreateCollection: %w", err)
	}
	if exists {
		return nil
	}

	if err := m.docs.CreateCollection(ctx, name); err != nil {
		return fmt.Errorf("tenant.Manager.CreateCollection: %w", err)
	}

	log.Debug().Str("collection", name).Msg("created tenant collection")
	return nil
}

// DropCollection deletes the collection and all of its documents. Absent
// collections are ignored.
func (m *Manager) DropCollection(ctx context.Context, name string) error {
	exists, err := m.Exists(ctx, name)
	if err != nil {
		return fmt.Errorf("tenant.Manager.DropCollection: %w", err)
	}
	if !exists {
		return nil
	}

	if err := m.docs.DropCollection(ctx, name); err != nil {
		return fmt.Errorf("tenant.Manager.DropCollection: %w", err)
	}

	log.Debug().Str("collection", name).Msg("dropped tenant collection")
	return nil
}

// Seed writes the initialization marker into the collection.
func (m *Manager) Seed(ctx context.Context, name string) error {
	if err := m.docs.InsertMany(ctx, name, []domain.Document{InitMarker()}); err != nil {
		return fmt.Errorf("tenant.Manager.Seed: %w", err)
	}
	return nil
}

// Count returns the number of documents in the collection.
func (m *Manager) Count(ctx context.Context, name string) (int64, error) {
	n, err := m.docs.Count(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("tenant.Manager.Count: %w", err)
	}
	return n, nil
}

// CopyCollection streams every document from src into dst in batches of at
// most batchSize, dropping each document's identity so dst assigns new ones.
// batchSize <= 0 uses the manager's configured size. No ordering guarantee.
func (m *Manager) CopyCollection(ctx context.Context, src, dst string, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = m.batchSize
	}

	batch := make([]domain.Document, 0, batchSize)
	copied := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := m.docs.InsertMany(ctx, dst, batch); err != nil {
			return err
		}
		copied += len(batch)
		batch = make([]domain.Document, 0, batchSize)
		return nil
	}

	err := m.docs.Find(ctx, src, func(doc domain.Document) error {
		batch = append(batch, doc.Clone(true))
		if len(batch) >= batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return copied, fmt.Errorf("tenant.Manager.CopyCollection: %s -> %s: %w", src, dst, err)
	}

	if err := flush(); err != nil {
		return copied, fmt.Errorf("tenant.Manager.CopyCollection: %s -> %s: %w", src, dst, err)
	}

	log.Debug().Str("source", src).Str("target", dst).Int("documents", copied).Msg("copied tenant collection")
	return copied, nil
}

// RenameCollection moves oldName to newName, replacing any existing newName.
// When the store cannot rename natively, or the rename fails for any reason,
// it falls back to MigrateCollection.
func (m *Manager) RenameCollection(ctx context.Context, oldName, newName string) error {
	err := m.docs.RenameCollection(ctx, oldName, newName, true)
	if err == nil {
		log.Debug().Str("source", oldName).Str("target", newName).Msg("renamed tenant collection")
		return nil
	}

	if !errors.Is(err, domain.ErrRenameUnsupported) {
		log.Warn().Err(err).Str("source", oldName).Str("target", newName).Msg("native rename failed, falling back to copy")
	}

	if err := m.MigrateCollection(ctx, oldName, newName); err != nil {
		return fmt.Errorf("tenant.Manager.RenameCollection: %w", err)
	}
	return nil
}

// MigrateCollection replaces newName with a fresh collection, copies every
// document of oldName into it and drops oldName. It is not atomic: a crash
// before the final drop leaves both collections present, with oldName intact.
func (m *Manager) MigrateCollection(ctx context.Context, oldName, newName string) error {
	if err := m.DropCollection(ctx, newName); err != nil {
		return fmt.Errorf("tenant.Manager.MigrateCollection: clear target: %w", err)
	}
	if err := m.CreateCollection(ctx, newName); err != nil {
		return fmt.Errorf("tenant.Manager.MigrateCollection: %w", err)
	}
	if _, err := m.CopyCollection(ctx, oldName, newName, 0); err != nil {
		return fmt.Errorf("tenant.Manager.MigrateCollection: %w", err)
	}
	if err := m.DropCollection(ctx, oldName); err != nil {
		return fmt.Errorf("tenant.Manager.MigrateCollection: %w", err)
	}
	return nil
}
