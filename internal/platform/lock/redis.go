// Package lock provides short-lived Redis locks that serialize writers
// touching the same records.
package lock

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-admins/internal/shared"
)

const retryInterval = 25 * time.Millisecond

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker acquires a set of keys as one unit.
type Locker interface {
	Acquire(ctx context.Context, keys ...string) (*Lease, error)
}

// Lease is a held set of keys.
type Lease struct {
	client *redis.Client
	token  string
	keys   []string
}

// Keys returns the locked keys in acquisition order.
func (l *Lease) Keys() []string {
	if l == nil {
		return nil
	}
	return slices.Clone(l.keys)
}

// Release frees every key still owned by this lease.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.client == nil {
		return nil
	}
	var errs []error
	for i := len(l.keys) - 1; i >= 0; i-- {
		if err := releaseScript.Run(ctx, l.client, []string{l.keys[i]}, l.token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			errs = append(errs, fmt.Errorf("release %s: %w", l.keys[i], err))
		}
	}
	l.keys = nil
	return errors.Join(errs...)
}

// RedisLocker implements Locker with SET NX PX.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisLocker constructs a locker. ttl bounds how long a crashed holder
// can block others; wait bounds how long Acquire retries.
func NewRedisLocker(client *redis.Client, ttl, wait time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	if wait < 0 {
		wait = 0
	}
	return &RedisLocker{client: client, ttl: ttl, wait: wait}
}

// Acquire locks all keys or none. Keys are taken in sorted order so two
// callers locking overlapping sets cannot deadlock. It returns
// shared.ErrLockBusy once the wait budget is spent.
func (l *RedisLocker) Acquire(ctx context.Context, keys ...string) (*Lease, error) {
	ordered := normalizeKeys(keys)
	lease := &Lease{client: l.client, token: uuid.NewString()}
	if len(ordered) == 0 {
		return lease, nil
	}

	deadline := time.Now().Add(l.wait)
	for {
		held, err := l.tryAll(ctx, lease.token, ordered)
		if err != nil {
			return nil, err
		}
		if held {
			lease.keys = ordered
			return lease, nil
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("platform/lock: %v: %w", ordered, shared.ErrLockBusy)
		}
		timer := time.NewTimer(retryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *RedisLocker) tryAll(ctx context.Context, token string, keys []string) (bool, error) {
	taken := make([]string, 0, len(keys))
	for _, key := range keys {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			l.undo(ctx, token, taken)
			return false, fmt.Errorf("platform/lock: set %s: %w", key, err)
		}
		if !ok {
			l.undo(ctx, token, taken)
			return false, nil
		}
		taken = append(taken, key)
	}
	return true, nil
}

func (l *RedisLocker) undo(ctx context.Context, token string, keys []string) {
	partial := Lease{client: l.client, token: token, keys: keys}
	_ = partial.Release(ctx)
}

func normalizeKeys(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

var _ Locker = (*RedisLocker)(nil)
