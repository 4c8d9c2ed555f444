package kv

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

var ErrKeyNotFound = errors.New("key not found")

// Driver is the storage layer under Store. Implementations must apply a
// WriteBatch atomically: either every key is written or none is. A nil value
// deletes its key.
type Driver interface {
	GetKey(ctx context.Context, key string) ([]byte, error)
	WriteBatch(ctx context.Context, entries map[string][]byte) error
	// ScanPrefix returns every key with the given prefix in lexical order.
	ScanPrefix(ctx context.Context, prefix string) ([]string, error)
}

// MemDriver is a map-backed Driver for tests and single-process runs.
type MemDriver struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemDriver() *MemDriver {
	return &MemDriver{data: map[string][]byte{}}
}

func (d *MemDriver) GetKey(_ context.Context, key string) ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	value, ok := d.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), value...), nil
}

func (d *MemDriver) WriteBatch(_ context.Context, entries map[string][]byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, value := range entries {
		if value == nil {
			delete(d.data, key)
			continue
		}
		d.data[key] = append([]byte(nil), value...)
	}
	return nil
}

func (d *MemDriver) ScanPrefix(_ context.Context, prefix string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	keys := make([]string, 0)
	for key := range d.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
