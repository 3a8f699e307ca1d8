// Package cache provides the read-through cache in front of the comment and
// site stores. Caching is a performance optimization, never a correctness
// dependency: every store failure falls back to computing the value directly.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound is returned by a KeyValueStore when a key is absent or expired.
var ErrNotFound = errors.New("cache: key not found")

// KeyValueStore is the shared remote key-value store behind the cache.
// Implementations must be safe for concurrent use.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	// Keys returns all stored keys matching a glob pattern ('*' wildcard).
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// Cache is a read-through cache with exact and pattern invalidation.
// A nil store disables caching entirely.
type Cache struct {
	store  KeyValueStore
	logger *zap.Logger
}

// New creates a cache over a key-value store.
func New(store KeyValueStore, logger *zap.Logger) *Cache {
	return &Cache{store: store, logger: logger}
}

// GetOrCompute returns the cached value for key, unmarshaled into dest.
// On a miss it calls compute exactly once, stores the JSON-encoded result
// with the given TTL, and fills dest. Null results are returned but not
// stored. Unreachable store and undecodable entries both degrade to a direct
// compute.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, dest interface{}, compute func(ctx context.Context) (interface{}, error)) error {
	if c.store != nil {
		cached, err := c.store.Get(ctx, key)
		if err == nil {
			if jsonErr := json.Unmarshal(cached, dest); jsonErr == nil {
				return nil
			}
			// A corrupt entry is dropped so the next read repopulates it.
			c.logger.Warn("dropping undecodable cache entry", zap.String("key", key))
			if delErr := c.store.Delete(ctx, key); delErr != nil {
				c.logger.Warn("failed to drop cache entry", zap.String("key", key), zap.Error(delErr))
			}
		} else if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("cache read failed, computing directly", zap.String("key", key), zap.Error(err))
		}
	}

	value, err := compute(ctx)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if c.store != nil && value != nil && string(encoded) != "null" {
		if setErr := c.store.Set(ctx, key, encoded, ttl); setErr != nil {
			c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(setErr))
		}
	}

	return json.Unmarshal(encoded, dest)
}

// Invalidate removes exact keys. Failures are logged, never surfaced: a
// missed invalidation must not fail the mutation that triggered it.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c.store == nil || len(keys) == 0 {
		return
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.logger.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

// InvalidatePattern removes every key matching a glob pattern as a batch.
// An empty match set is a no-op.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) {
	if c.store == nil {
		return
	}
	keys, err := c.store.Keys(ctx, pattern)
	if err != nil {
		c.logger.Warn("cache pattern enumeration failed", zap.String("pattern", pattern), zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.logger.Warn("cache pattern invalidation failed",
			zap.String("pattern", pattern),
			zap.Int("keys", len(keys)),
			zap.Error(err),
		)
	}
}

// MatchPattern reports whether s matches a glob pattern where '*' matches
// any run of characters. Keys may contain '/' so path-style matching does
// not apply.
func MatchPattern(pattern, s string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return pattern == s
	}

	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]

	last := len(parts) - 1
	for i := 1; i < last; i++ {
		idx := strings.Index(s, parts[i])
		if idx < 0 {
			return false
		}
		s = s[idx+len(parts[i]):]
	}

	return strings.HasSuffix(s, parts[last])
}
