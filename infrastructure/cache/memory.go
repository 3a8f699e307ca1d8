package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process KeyValueStore. It backs tests and local
// development; deployments use the DynamoDB store.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory store with a background sweep for
// expired entries.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{items: make(map[string]memoryItem)}
	go s.cleanupExpired()
	return s
}

// Get retrieves a value. Expired entries are treated as absent.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[key]
	if !ok || time.Now().After(item.expiresAt) {
		return nil, ErrNotFound
	}

	value := make([]byte, len(item.value))
	copy(value, item.value)
	return value, nil
}

// Set stores a value with a TTL.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = memoryItem{value: stored, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Delete removes keys. Missing keys are not an error.
func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.items, key)
	}
	return nil
}

// Keys returns live keys matching a glob pattern.
func (s *MemoryStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	var keys []string
	for key, item := range s.items {
		if now.After(item.expiresAt) {
			continue
		}
		if MatchPattern(pattern, key) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *MemoryStore) cleanupExpired() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		s.mu.Lock()
		for key, item := range s.items {
			if now.After(item.expiresAt) {
				delete(s.items, key)
			}
		}
		s.mu.Unlock()
	}
}
