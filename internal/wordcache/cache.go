// Package wordcache memoizes dictionary lookups. Entries are opaque bytes
// with a fixed time to live.
package wordcache

import (
	"context"
	"sync"
	"time"
)

// Cache stores values by key.
type Cache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// DefaultTTL applies when a backend is created with a zero TTL.
const DefaultTTL = 10 * time.Minute

type memEntry struct {
	value   []byte
	expires time.Time
}

// Memory is an in-process Cache.
type Memory struct {
	mu    sync.Mutex
	items map[string]memEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewMemory creates an in-process cache. A nil now uses time.Now.
func NewMemory(ttl time.Duration, now func() time.Time) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Memory{items: make(map[string]memEntry), ttl: ttl, now: now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expires) {
		delete(m.items, key)
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = memEntry{value: append([]byte(nil), value...), expires: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Memory) Close() error { return nil }
