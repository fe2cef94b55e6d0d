//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gosuda/tenantry/internal/domain"
	redisstore "github.com/gosuda/tenantry/internal/store/redis"
)

func setupRedisContainer(t *testing.T, ctx context.Context) (*redisstore.Client, func()) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	client, err := redisstore.New(ctx, endpoint, "", 0)
	require.NoError(t, err)

	cleanup := func() {
		_ = client.Close()
		_ = container.Terminate(ctx)
	}

	return client, cleanup
}

func TestIntegration_Locker(t *testing.T) {
	ctx := context.Background()
	client, cleanup := setupRedisContainer(t, ctx)
	defer cleanup()

	locker := client.Locker()

	held, err := locker.Acquire(ctx, "lease:org:acme", time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "lease:org:acme", time.Minute)
	assert.ErrorIs(t, err, domain.ErrLocked)

	other, err := locker.Acquire(ctx, "lease:org:globex", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, held.Release(ctx))

	again, err := locker.Acquire(ctx, "lease:org:acme", time.Minute)
	require.NoError(t, err)

	// A stale release must not remove the new holder's lease.
	require.NoError(t, held.Release(ctx))
	_, err = locker.Acquire(ctx, "lease:org:acme", time.Minute)
	assert.ErrorIs(t, err, domain.ErrLocked)

	require.NoError(t, again.Release(ctx))
}

func TestIntegration_LockerRenew(t *testing.T) {
	ctx := context.Background()
	client, cleanup := setupRedisContainer(t, ctx)
	defer cleanup()

	locker := client.Locker()

	held, err := locker.Acquire(ctx, "lease:org_renew", 300*time.Millisecond)
	require.NoError(t, err)

	for range 3 {
		time.Sleep(150 * time.Millisecond)
		require.NoError(t, held.Renew(ctx, 300*time.Millisecond))
	}
	_, err = locker.Acquire(ctx, "lease:org_renew", time.Minute)
	require.ErrorIs(t, err, domain.ErrLocked)

	require.NoError(t, held.Release(ctx))
	assert.ErrorIs(t, held.Renew(ctx, time.Minute), domain.ErrLocked)
}

func TestIntegration_LockerExpiry(t *testing.T) {
	ctx := context.Background()
	client, cleanup := setupRedisContainer(t, ctx)
	defer cleanup()

	locker := client.Locker()

	_, err := locker.Acquire(ctx, "lease:org:short", 100*time.Millisecond)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		held, err := locker.Acquire(ctx, "lease:org:short", time.Minute)
		if err != nil {
			return false
		}
		_ = held.Release(ctx)
		return true
	}, 2*time.Second, 50*time.Millisecond)
}

func TestIntegration_PublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, cleanup := setupRedisContainer(t, ctx)
	defer cleanup()

	ch, unsubscribe, err := client.Subscribe(ctx, redisstore.OrgEventsChannel)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, client.Publish(ctx, redisstore.OrgEventsChannel, []byte(`{"type":"organization.created"}`)))

	select {
	case msg := <-ch:
		assert.JSONEq(t, `{"type":"organization.created"}`, string(msg))
	case <-ctx.Done():
		t.Fatal("no message received")
	}
}
