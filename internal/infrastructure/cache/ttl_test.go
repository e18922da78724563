package cache

import (
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

func TestTTLMapExpiresOnGet(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)}
	m := NewTTLMap[string](10*time.Minute, clock)

	m.Put("a", "value")
	if got, ok := m.Get("a"); !ok || got != "value" {
		t.Fatalf("expected fresh entry, got %q ok=%v", got, ok)
	}

	clock.advance(10 * time.Minute)
	if _, ok := m.Get("a"); ok {
		t.Fatalf("expected entry expired exactly at TTL")
	}
}

func TestTTLMapPutRefreshesExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)}
	m := NewTTLMap[int](10*time.Minute, clock)

	m.Put("a", 1)
	clock.advance(9 * time.Minute)
	m.Put("a", 2)
	clock.advance(9 * time.Minute)

	if got, ok := m.Get("a"); !ok || got != 2 {
		t.Fatalf("expected refreshed entry 2, got %d ok=%v", got, ok)
	}
}

func TestTTLMapPruneCountsDropped(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)}
	m := NewTTLMap[int](5*time.Minute, clock)

	m.Put("a", 1)
	m.Put("b", 2)
	clock.advance(3 * time.Minute)
	m.Put("c", 3)
	clock.advance(2 * time.Minute)

	if pruned := m.Prune(clock.Now()); pruned != 2 {
		t.Fatalf("expected 2 pruned, got %d", pruned)
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 surviving entry, got %d", m.Len())
	}
	if _, ok := m.Get("c"); !ok {
		t.Fatalf("expected entry c to survive prune")
	}
}

func TestTTLMapDelete(t *testing.T) {
	m := NewTTLMap[int](time.Minute, nil)
	m.Put("a", 1)
	m.Delete("a")
	if _, ok := m.Get("a"); ok {
		t.Fatalf("expected deleted entry to be gone")
	}
}
