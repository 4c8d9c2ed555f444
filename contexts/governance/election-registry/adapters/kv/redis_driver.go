package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisDriver stores every key under a namespace prefix in one Redis
// database. Batches run inside MULTI/EXEC.
type RedisDriver struct {
	client    redis.UniversalClient
	namespace string
}

func NewRedisDriver(client redis.UniversalClient, namespace string) *RedisDriver {
	if namespace == "" {
		namespace = "electionledger"
	}
	return &RedisDriver{client: client, namespace: namespace}
}

func (d *RedisDriver) GetKey(ctx context.Context, key string) ([]byte, error) {
	value, err := d.client.Get(ctx, d.fullKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return value, nil
}

func (d *RedisDriver) WriteBatch(ctx context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := d.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range entries {
			if value == nil {
				pipe.Del(ctx, d.fullKey(key))
				continue
			}
			pipe.Set(ctx, d.fullKey(key), value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis write batch: %w", err)
	}
	return nil
}

func (d *RedisDriver) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	keys := make([]string, 0)
	trim := len(d.namespace) + 1
	iter := d.client.Scan(ctx, 0, d.fullKey(prefix)+"*", 256).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val()[trim:])
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (d *RedisDriver) fullKey(key string) string {
	return d.namespace + ":" + key
}
