package kv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// MutexLocker serializes keys inside one process.
type MutexLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMutexLocker() *MutexLocker {
	return &MutexLocker{locks: map[string]*sync.Mutex{}}
}

func (l *MutexLocker) Lock(_ context.Context, key string) (func(context.Context) error, error) {
	l.mu.Lock()
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return func(context.Context) error {
		lock.Unlock()
		return nil
	}, nil
}

// RedisLocker serializes keys across processes with a redsync mutex. The
// expiry bounds how long a crashed holder can block a key.
type RedisLocker struct {
	rs     *redsync.Redsync
	prefix string
	expiry time.Duration
}

func NewRedisLocker(client redis.UniversalClient, prefix string, expiry time.Duration) *RedisLocker {
	if expiry <= 0 {
		expiry = 8 * time.Second
	}
	if prefix == "" {
		prefix = "electionledger:lock"
	}
	return &RedisLocker{
		rs:     redsync.New(goredis.NewPool(client)),
		prefix: prefix,
		expiry: expiry,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	mutex := l.rs.NewMutex(l.prefix+":"+key,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(32),
		redsync.WithRetryDelay(50*time.Millisecond),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return func(ctx context.Context) error {
		if _, err := mutex.UnlockContext(ctx); err != nil {
			return fmt.Errorf("release lock %s: %w", key, err)
		}
		return nil
	}, nil
}
