package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryCounterStore is an in-process CounterStore for tests and local
// development.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters map[string]*memoryCounter
}

type memoryCounter struct {
	value     int64
	expiresAt time.Time
}

// NewMemoryCounterStore creates an in-memory counter store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counters: make(map[string]*memoryCounter)}
}

// Increment atomically increments a counter, creating it with the TTL.
func (s *MemoryCounterStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()

	c, ok := s.counters[key]
	if !ok {
		c = &memoryCounter{expiresAt: time.Now().Add(ttl)}
		s.counters[key] = c
	}
	c.value++
	return c.value, nil
}

// Get returns a counter's value, zero when absent or expired.
func (s *MemoryCounterStore) Get(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || time.Now().After(c.expiresAt) {
		return 0, nil
	}
	return c.value, nil
}

// sweep drops expired counters. Called with the lock held.
func (s *MemoryCounterStore) sweep() {
	now := time.Now()
	for key, c := range s.counters {
		if now.After(c.expiresAt) {
			delete(s.counters, key)
		}
	}
}
