package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/gosuda/tenantry/internal/domain"
)

// Operation names passed to a FaultHook.
const (
	OpCreate = "create"
	OpDrop   = "drop"
	OpRename = "rename"
	OpInsert = "insert"
	OpFind   = "find"
)

// FaultHook is consulted before every mutating or reading operation; a non-nil
// return aborts the operation with that error. Tests use it to simulate
// storage failures and crashes between steps.
type FaultHook func(op, collection string) error

// DocumentStore is an in-memory domain.DocumentStore.
type DocumentStore struct {
	mu            sync.RWMutex
	collections   map[string][]domain.Document
	nativeRename  bool
	hook          FaultHook
	insertBatches []int
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		collections:  make(map[string][]domain.Document),
		nativeRename: true,
	}
}

// SetNativeRename toggles support for RenameCollection.
func (s *DocumentStore) SetNativeRename(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nativeRename = enabled
}

// SetFaultHook installs hook; nil removes it.
func (s *DocumentStore) SetFaultHook(hook FaultHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = hook
}

// InsertBatchSizes returns the size of every InsertMany call so far.
func (s *DocumentStore) InsertBatchSizes() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]int(nil), s.insertBatches...)
}

func (s *DocumentStore) fault(op, name string) error {
	if s.hook == nil {
		return nil
	}
	if err := s.hook(op, name); err != nil {
		return fmt.Errorf("memory.DocumentStore: %s %s: %w", op, name, err)
	}
	return nil
}

func (s *DocumentStore) ListCollections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *DocumentStore) CreateCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(OpCreate, name); err != nil {
		return err
	}
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = nil
	}
	return nil
}

func (s *DocumentStore) DropCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(OpDrop, name); err != nil {
		return err
	}
	delete(s.collections, name)
	return nil
}

func (s *DocumentStore) RenameCollection(_ context.Context, oldName, newName string, dropTarget bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.nativeRename {
		return domain.ErrRenameUnsupported
	}
	if err := s.fault(OpRename, oldName); err != nil {
		return err
	}

	docs, ok := s.collections[oldName]
	if !ok {
		return fmt.Errorf("memory.DocumentStore.RenameCollection: source %q: %w", oldName, domain.ErrNotFound)
	}
	if _, exists := s.collections[newName]; exists && !dropTarget {
		return fmt.Errorf("memory.DocumentStore.RenameCollection: target %q: %w", newName, domain.ErrAlreadyExists)
	}

	s.collections[newName] = docs
	delete(s.collections, oldName)
	return nil
}

func (s *DocumentStore) InsertMany(_ context.Context, name string, docs []domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(OpInsert, name); err != nil {
		return err
	}

	for _, d := range docs {
		stored := d.Clone(true)
		stored[domain.DocumentIDField] = uuid.NewString()
		s.collections[name] = append(s.collections[name], stored)
	}
	s.insertBatches = append(s.insertBatches, len(docs))
	return nil
}

func (s *DocumentStore) Find(ctx context.Context, name string, fn func(domain.Document) error) error {
	s.mu.RLock()
	if err := s.fault(OpFind, name); err != nil {
		s.mu.RUnlock()
		return err
	}
	snapshot := make([]domain.Document, len(s.collections[name]))
	for i, d := range s.collections[name] {
		snapshot[i] = d.Clone(false)
	}
	s.mu.RUnlock()

	for _, d := range snapshot {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("memory.DocumentStore.Find: %w", err)
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

func (s *DocumentStore) Count(_ context.Context, name string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.collections[name])), nil
}
