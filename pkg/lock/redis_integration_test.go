package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sorrel/internal/testenv"
	"github.com/Ramsey-B/sorrel/pkg/lock"
	"github.com/Ramsey-B/sorrel/pkg/redis"
)

func TestRedisLock_ExcludesSecondHolder(t *testing.T) {
	testenv.RequireIntegration(t)
	ctx := context.Background()
	r := testenv.StartRedis(ctx, t)

	client, err := redis.NewClient(ctx, redis.Config{Host: r.Host, Port: r.Port}, testenv.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	locker := redis.NewLocker(client, "sorrel:test:")
	first := lock.NewRedisLock(locker, "catalog", 200*time.Millisecond, 0, testenv.NopLogger())
	second := lock.NewRedisLock(locker, "catalog", 200*time.Millisecond, 100*time.Millisecond, testenv.NopLogger())

	release, err := first.Acquire(ctx)
	require.NoError(t, err)

	// held past its TTL: the refresher keeps it alive
	time.Sleep(500 * time.Millisecond)
	_, err = second.Acquire(ctx)
	assert.ErrorIs(t, err, redis.ErrLockNotAcquired)

	require.NoError(t, release(ctx))
	require.NoError(t, release(ctx), "second release is a no-op")

	release2, err := second.Acquire(ctx)
	require.NoError(t, err)
	require.NoError(t, release2(ctx))
}
