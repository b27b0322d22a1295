package cache

import (
	"sync"
	"time"

	"github.com/nichescan/nichescan/internal/serp"
)

// entry wraps cached signals with their fetch time for TTL checks
type entry struct {
	signals  serp.Signals
	storedAt time.Time
}

// Memory is a bounded in-memory signal cache. Writes are once-per-key;
// when the entry count reaches maxEntries the oldest key is evicted.
// A zero TTL disables staleness checks (session-lifetime semantics).
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]entry
	order      []string
	maxEntries int
	ttl        time.Duration
}

// NewMemory creates a Memory cache holding at most maxEntries entries,
// each valid for ttl after being stored.
func NewMemory(maxEntries int, ttl time.Duration) *Memory {
	return &Memory{
		entries:    make(map[string]entry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

// Get returns the cached signals for key, if present and fresh
func (m *Memory) Get(key string) (serp.Signals, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok {
		return serp.Signals{}, false
	}
	if m.ttl > 0 && time.Since(e.storedAt) > m.ttl {
		return serp.Signals{}, false
	}
	return e.signals, true
}

// Put stores signals under key, evicting the oldest entry when full
func (m *Memory) Put(key string, sig serp.Signals) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; exists {
		m.entries[key] = entry{signals: sig, storedAt: time.Now()}
		return
	}

	if m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.entries, oldest)
	}

	m.entries[key] = entry{signals: sig, storedAt: time.Now()}
	m.order = append(m.order, key)
}

// Len returns the number of cached entries, including stale ones
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
