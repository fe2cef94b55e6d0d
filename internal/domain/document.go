package domain

import (
	"context"
	"time"
)

// DocumentIDField is the identity field a document store assigns on insert.
const DocumentIDField = "_id"

// Document is an opaque tenant record.
type Document map[string]any

// Clone returns a shallow copy, optionally without the identity field.
func (d Document) Clone(stripID bool) Document {
	out := make(Document, len(d))
	for k, v := range d {
		if stripID && k == DocumentIDField {
			continue
		}
		out[k] = v
	}
	return out
}

// DocumentStore is a namespace-oriented store holding one collection per tenant.
type DocumentStore interface {
	ListCollections(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, name string) error
	DropCollection(ctx context.Context, name string) error

	// RenameCollection renames oldName to newName, replacing an existing
	// newName when dropTarget is set. Stores without a native rename return
	// ErrRenameUnsupported.
	RenameCollection(ctx context.Context, oldName, newName string, dropTarget bool) error

	// InsertMany stores docs, assigning a fresh DocumentIDField to each.
	InsertMany(ctx context.Context, name string, docs []Document) error

	// Find streams every document of the collection to fn in insertion
	// order. Iteration stops at the first error returned by fn. Find and
	// Count treat a missing collection as empty.
	Find(ctx context.Context, name string, fn func(Document) error) error
	Count(ctx context.Context, name string) (int64, error)
}

// Locker grants short-lived exclusive leases on a key. Acquire returns
// ErrLocked while another holder owns an unexpired lease.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Lease is one held key. Renew pushes the expiry ttl into the future and
// returns ErrLocked once the lease has expired or passed to another holder.
// Release is a no-op for a lease that is no longer held.
type Lease interface {
	Renew(ctx context.Context, ttl time.Duration) error
	Release(ctx context.Context) error
}
