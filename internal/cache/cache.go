// Package cache stores raw backend response bodies for a short TTL so that
// repeated page loads do not hit the event API on every request.
package cache

import (
	"context"
	"sync"
	"time"
)

// Provider is a byte cache keyed by request URL.
type Provider interface {
	// Get returns the cached value and true on a hit. A miss is not an
	// error.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory bounds.
const (
	// DefaultMaxEntries caps a Memory cache. Keys carry free-text queries,
	// so the key space is unbounded.
	DefaultMaxEntries = 4096
	// sweepInterval is how often Set drops expired entries.
	sweepInterval = time.Minute
)

// Memory is an in-process TTL cache guarded by an RWMutex. Expired entries
// are reclaimed by Set at most once per sweepInterval; when the cache is
// full the entry closest to expiry is evicted.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]memoryEntry
	maxEntries int
	lastSweep  time.Time
	now        func() time.Time
}

func NewMemory() *Memory {
	return NewMemoryWithLimit(DefaultMaxEntries)
}

// NewMemoryWithLimit is NewMemory with a custom entry cap. A non-positive
// max means DefaultMaxEntries.
func NewMemoryWithLimit(maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{
		entries:    make(map[string]memoryEntry),
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		m.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the entry.
		if cur, ok := m.entries[key]; ok && !m.now().Before(cur.expiresAt) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

// Set stores a copy of value. A non-positive ttl deletes the key.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ttl <= 0 {
		delete(m.entries, key)
		return nil
	}
	now := m.now()
	if now.Sub(m.lastSweep) >= sweepInterval {
		m.sweep(now)
	}
	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		m.sweep(now)
		if len(m.entries) >= m.maxEntries {
			m.evictOldest()
		}
	}

	v := make([]byte, len(value))
	copy(v, value)
	m.entries[key] = memoryEntry{value: v, expiresAt: now.Add(ttl)}
	return nil
}

// sweep drops expired entries. Must be called with mu held.
func (m *Memory) sweep(now time.Time) {
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
	m.lastSweep = now
}

// evictOldest drops the entry that expires first. Must be called with mu
// held.
func (m *Memory) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for k, e := range m.entries {
		if !found || e.expiresAt.Before(oldest) {
			oldestKey, oldest, found = k, e.expiresAt, true
		}
	}
	if found {
		delete(m.entries, oldestKey)
	}
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
