// Package cache provides a small byte-value TTL cache with an in-memory and a Redis backend.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache stores opaque values with a time-to-live.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// MemorySize bounds the number of keys a Memory cache holds before evicting the least recently used.
const MemorySize = 1024

type entry struct {
	val     []byte
	expires time.Time
}

// Memory is a process-local Cache on a size-bounded LRU. Per-key TTLs are checked on read;
// stale entries are left for Set to overwrite or the LRU to evict.
type Memory struct {
	lru *expirable.LRU[string, entry]
	now func() time.Time
}

// NewMemory returns an empty in-memory cache holding up to MemorySize keys.
func NewMemory() *Memory {
	return &Memory{lru: expirable.NewLRU[string, entry](MemorySize, nil, 0), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	e, ok := m.lru.Get(key)
	if !ok {
		return nil, ErrMiss
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		return nil, ErrMiss
	}
	return e.val, nil
}

// Set stores val; ttl <= 0 keeps it until deleted or evicted.
func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	e := entry{val: append([]byte(nil), val...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.lru.Add(key, e)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.lru.Remove(key)
	return nil
}
