package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld indicates another process holds the lock.
var ErrLockHeld = errors.New("platform/cache: lock held")

// Locker hands out short-lived, non-blocking Redis locks.
type Locker struct {
	client *redislock.Client
	ttl    time.Duration
}

// NewLocker builds a Locker on top of a Redis client.
func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Locker{client: redislock.New(client), ttl: ttl}
}

// Obtain acquires key without waiting. The returned func releases the lock.
func (l *Locker) Obtain(ctx context.Context, key string) (func(context.Context) error, error) {
	if l == nil || l.client == nil {
		return func(context.Context) error { return nil }, nil
	}
	lock, err := l.client.Obtain(ctx, key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: %s", ErrLockHeld, key)
	}
	if err != nil {
		return nil, fmt.Errorf("platform/cache: obtain %s: %w", key, err)
	}
	return func(ctx context.Context) error {
		if err := lock.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			return err
		}
		return nil
	}, nil
}
