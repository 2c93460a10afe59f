package redis

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
)

var (
	// ErrLockNotAcquired is returned when a lock cannot be acquired
	ErrLockNotAcquired = errors.New("lock not acquired")
	// ErrLockNotHeld is returned when trying to release a lock not held
	ErrLockNotHeld = errors.New("lock not held")
)

// Locker provides distributed locking operations
type Locker struct {
	client    *redislock.Client
	owner     *Client
	keyPrefix string
}

// NewLocker creates a new Locker
func NewLocker(client *Client, keyPrefix string) *Locker {
	if keyPrefix == "" {
		keyPrefix = "lock:"
	}
	return &Locker{
		client:    redislock.New(client.rdb),
		owner:     client,
		keyPrefix: keyPrefix,
	}
}

// Lock is a held distributed lock
type Lock struct {
	lock   *redislock.Lock
	locker *Locker
}

// Acquire tries to take the lock once, retrying for up to wait before
// giving up with ErrLockNotAcquired.
func (l *Locker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (*Lock, error) {
	opts := &redislock.Options{}
	if wait > 0 {
		retries := int(wait / (100 * time.Millisecond))
		opts.RetryStrategy = redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), retries)
	}

	lock, err := l.client.Obtain(ctx, l.keyPrefix+key, ttl, opts)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotAcquired
	}
	if err != nil {
		return nil, err
	}

	l.owner.logger.WithContext(ctx).Debugf("Acquired lock: %s", key)
	return &Lock{lock: lock, locker: l}, nil
}

// Release releases the lock
func (lock *Lock) Release(ctx context.Context) error {
	err := lock.lock.Release(ctx)
	if errors.Is(err, redislock.ErrLockNotHeld) {
		return ErrLockNotHeld
	}
	if err != nil {
		return err
	}
	lock.locker.owner.logger.WithContext(ctx).Debugf("Released lock: %s", lock.lock.Key())
	return nil
}

// WithLock executes fn while holding the lock for key
func (l *Locker) WithLock(ctx context.Context, key string, ttl, wait time.Duration, fn func(ctx context.Context) error) error {
	lock, err := l.Acquire(ctx, key, ttl, wait)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			l.owner.logger.WithContext(ctx).WithError(err).Warnf("Failed to release lock: %s", key)
		}
	}()

	return fn(ctx)
}
