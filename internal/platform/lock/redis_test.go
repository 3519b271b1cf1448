package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-admins/internal/shared"
)

func newTestLocker(t *testing.T, wait time.Duration) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, time.Second, wait), mr
}

func TestAcquireAndRelease(t *testing.T) {
	locker, mr := newTestLocker(t, 0)
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "b", "a", "a", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, lease.Keys())
	assert.True(t, mr.Exists("a"))
	assert.True(t, mr.Exists("b"))

	require.NoError(t, lease.Release(ctx))
	assert.False(t, mr.Exists("a"))
	assert.False(t, mr.Exists("b"))
}

func TestAcquireBusyReturnsErrLockBusy(t *testing.T) {
	locker, mr := newTestLocker(t, 60*time.Millisecond)
	ctx := context.Background()

	first, err := locker.Acquire(ctx, "a", "b")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "b", "c")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrLockBusy))
	assert.False(t, mr.Exists("c"), "partial acquisition must be undone")

	require.NoError(t, first.Release(ctx))

	second, err := locker.Acquire(ctx, "b", "c")
	require.NoError(t, err)
	require.NoError(t, second.Release(ctx))
}

func TestReleaseDoesNotDropForeignLock(t *testing.T) {
	locker, mr := newTestLocker(t, 0)
	ctx := context.Background()

	lease, err := locker.Acquire(ctx, "a")
	require.NoError(t, err)

	// Simulate TTL expiry followed by another holder.
	mr.Del("a")
	require.NoError(t, mr.Set("a", "someone-else"))

	require.NoError(t, lease.Release(ctx))
	got, err := mr.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestAcquireWaitsForRelease(t *testing.T) {
	locker, _ := newTestLocker(t, time.Second)
	ctx := context.Background()

	first, err := locker.Acquire(ctx, "a")
	require.NoError(t, err)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = first.Release(context.Background())
	}()

	second, err := locker.Acquire(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, second.Release(ctx))
}
