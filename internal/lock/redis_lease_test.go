package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, "club:sweep:"), srv
}

func TestLeaseIsExclusive(t *testing.T) {
	locker, srv := newLocker(t)
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "expiration", time.Minute)
	require.NoError(t, err)
	assert.True(t, srv.Exists("club:sweep:expiration"))

	_, err = locker.Acquire(ctx, "expiration", time.Minute)
	require.ErrorIs(t, err, ErrNotAcquired)

	other, err := locker.Acquire(ctx, "auto-confirm", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lease.Release(ctx))
	assert.False(t, srv.Exists("club:sweep:expiration"))

	_, err = locker.Acquire(ctx, "expiration", time.Minute)
	require.NoError(t, err)
}

func TestExpiredLeaseIsNotReleasedByOldOwner(t *testing.T) {
	locker, srv := newLocker(t)
	ctx := context.Background()

	stale, err := locker.Acquire(ctx, "expiration", time.Second)
	require.NoError(t, err)
	srv.FastForward(2 * time.Second)

	fresh, err := locker.Acquire(ctx, "expiration", time.Minute)
	require.NoError(t, err)

	require.NoError(t, stale.Release(ctx))
	assert.True(t, srv.Exists("club:sweep:expiration"), "old owner must not drop the new lease")

	require.NoError(t, fresh.Release(ctx))
	assert.False(t, srv.Exists("club:sweep:expiration"))
}
