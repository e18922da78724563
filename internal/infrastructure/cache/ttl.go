// Package cache provides a clock-injected TTL map used wherever the
// process needs short-lived mutable state: the in-memory session history
// cache and downstream API token caches. Constructed once and passed by
// reference, never held as package-level state, so tests can drive pruning
// with a fake clock.
package cache

import (
	"sync"
	"time"
)

// Clock abstracts time.Now for deterministic pruning tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the real wall clock.
func SystemClock() Clock { return systemClock{} }

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLMap holds values that expire a fixed duration after their last Put.
type TTLMap[V any] struct {
	ttl   time.Duration
	clock Clock

	mu      sync.Mutex
	entries map[string]entry[V]
}

func NewTTLMap[V any](ttl time.Duration, clock Clock) *TTLMap[V] {
	if clock == nil {
		clock = SystemClock()
	}
	return &TTLMap[V]{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]entry[V]),
	}
}

func (m *TTLMap[V]) Get(key string) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	e, ok := m.entries[key]
	if !ok {
		return zero, false
	}
	if !m.clock.Now().Before(e.expiresAt) {
		delete(m.entries, key)
		return zero, false
	}
	return e.value, true
}

func (m *TTLMap[V]) Put(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry[V]{
		value:     value,
		expiresAt: m.clock.Now().Add(m.ttl),
	}
}

func (m *TTLMap[V]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Prune removes every entry expired at the given instant and reports how
// many were dropped.
func (m *TTLMap[V]) Prune(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	pruned := 0
	for key, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, key)
			pruned++
		}
	}
	return pruned
}

func (m *TTLMap[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
