package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/tenantry/internal/domain"
)

// Journal is an in-memory domain.OperationJournal.
type Journal struct {
	mu  sync.RWMutex
	ops map[uuid.UUID]*domain.PendingOperation
}

func NewJournal() *Journal {
	return &Journal{ops: make(map[uuid.UUID]*domain.PendingOperation)}
}

func (j *Journal) Begin(_ context.Context, op *domain.PendingOperation) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	cp := *op
	j.ops[op.ID] = &cp
	return nil
}

func (j *Journal) Complete(_ context.Context, id uuid.UUID) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	delete(j.ops, id)
	return nil
}

func (j *Journal) ListPending(_ context.Context, startedBefore time.Time) ([]*domain.PendingOperation, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []*domain.PendingOperation
	for _, op := range j.ops {
		if op.StartedAt.Before(startedBefore) {
			cp := *op
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].StartedAt.Before(out[k].StartedAt) })
	return out, nil
}

// Locker is an in-process domain.Locker with lease expiry.
type Locker struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

type lease struct {
	token     uuid.UUID
	expiresAt time.Time
}

func NewLocker() *Locker {
	return &Locker{leases: make(map[string]lease), now: time.Now}
}

func (l *Locker) Acquire(_ context.Context, key string, ttl time.Duration) (domain.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if held, ok := l.leases[key]; ok && now.Before(held.expiresAt) {
		return nil, domain.ErrLocked
	}

	token := uuid.New()
	l.leases[key] = lease{token: token, expiresAt: now.Add(ttl)}

	return &heldLease{locker: l, key: key, token: token}, nil
}

// Expire ends the lease on key as if its ttl had run out.
func (l *Locker) Expire(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.leases, key)
}

type heldLease struct {
	locker *Locker
	key    string
	token  uuid.UUID
}

func (h *heldLease) Renew(_ context.Context, ttl time.Duration) error {
	l := h.locker
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	held, ok := l.leases[h.key]
	if !ok || held.token != h.token || !now.Before(held.expiresAt) {
		return domain.ErrLocked
	}
	l.leases[h.key] = lease{token: h.token, expiresAt: now.Add(ttl)}
	return nil
}

func (h *heldLease) Release(context.Context) error {
	l := h.locker
	l.mu.Lock()
	defer l.mu.Unlock()

	if held, ok := l.leases[h.key]; ok && held.token == h.token {
		delete(l.leases, h.key)
	}
	return nil
}
