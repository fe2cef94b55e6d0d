package orgs

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/tenantry/internal/domain"
)

// LeaseKey names the lease guarding every organization whose name resolves to
// collection. Names that collapse to the same collection share a lease.
func LeaseKey(collection string) string {
	return "lease:" + collection
}

// lease acquires the leases guarding names. The returned context is
// cancelled if any of them is lost before release is called.
func (s *Service) lease(ctx context.Context, names ...string) (context.Context, func(), error) {
	keys := make([]string, 0, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		keys = append(keys, LeaseKey(domain.ResolveCollectionName(name)))
	}
	return s.acquire(ctx, keys...)
}

// acquire takes the leases for keys in a stable order and renews them every
// third of the lease TTL until the returned release runs. Nothing is held
// when it fails.
func (s *Service) acquire(ctx context.Context, keys ...string) (context.Context, func(), error) {
	keys = slices.Clone(keys)
	slices.Sort(keys)
	keys = slices.Compact(keys)

	held := make([]domain.Lease, 0, len(keys))
	releaseHeld := func() {
		rctx := context.WithoutCancel(ctx)
		for i, l := range held {
			if err := l.Release(rctx); err != nil {
				log.Warn().Err(err).Str("lease", keys[i]).Msg("failed to release lease")
			}
		}
	}

	for _, key := range keys {
		l, err := s.locker.Acquire(ctx, key, s.leaseTTL)
		if err != nil {
			releaseHeld()
			if errors.Is(err, domain.ErrLocked) {
				return nil, nil, fmt.Errorf("lease %s: %w", key, domain.ErrLocked)
			}
			return nil, nil, fmt.Errorf("lease %s: %w", key, classify(err))
		}
		held = append(held, l)
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.keepAlive(leaseCtx, stop, keys, held, cancel)
	}()

	release := func() {
		close(stop)
		wg.Wait()
		cancel(nil)
		releaseHeld()
	}
	return leaseCtx, release, nil
}

// keepAlive renews held until stop is closed. A failed renewal cancels ctx
// with the lease error as its cause.
func (s *Service) keepAlive(ctx context.Context, stop <-chan struct{}, keys []string, held []domain.Lease, cancel context.CancelCauseFunc) {
	ticker := time.NewTicker(max(s.leaseTTL/3, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			for i, l := range held {
				if err := l.Renew(ctx, s.leaseTTL); err != nil {
					if !errors.Is(err, domain.ErrLocked) {
						err = classify(err)
					}
					log.Error().Err(err).Str("lease", keys[i]).Msg("lost lease, aborting operation")
					cancel(fmt.Errorf("lease %s lost: %w", keys[i], err))
					return
				}
			}
		}
	}
}

// withLeaseCause attaches the reason a lease context was cancelled to err.
func withLeaseCause(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return fmt.Errorf("%w: %w", err, cause)
	}
	return err
}
