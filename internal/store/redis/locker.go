package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gosuda/tenantry/internal/domain"
)

// releaseScript deletes the key only while it still holds the caller's token,
// so an expired lease re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the expiry only while the key holds the caller's token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Locker grants leases with SET NX PX. It implements domain.Locker.
type Locker struct {
	client *redis.Client
}

func (c *Client) Locker() *Locker {
	return &Locker{client: c.client}
}

func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (domain.Lease, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis.Locker.Acquire: %w: %w", domain.ErrStoreUnavailable, err)
	}
	if !ok {
		return nil, fmt.Errorf("redis.Locker.Acquire: %s: %w", key, domain.ErrLocked)
	}

	return &lease{client: l.client, key: key, token: token}, nil
}

type lease struct {
	client *redis.Client
	key    string
	token  string
}

func (l *lease) Renew(ctx context.Context, ttl time.Duration) error {
	n, err := renewScript.Run(ctx, l.client, []string{l.key}, l.token, ttl.Milliseconds()).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis.lease.Renew: %w: %w", domain.ErrStoreUnavailable, err)
	}
	if n == 0 {
		return fmt.Errorf("redis.lease.Renew: %s: %w", l.key, domain.ErrLocked)
	}
	return nil
}

func (l *lease) Release(ctx context.Context) error {
	err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis.lease.Release: %w", err)
	}
	return nil
}
