package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCache() *Cache {
	return New(NewMemoryStore(), zap.NewNop())
}

func TestGetOrComputeCallsComputeOnce(t *testing.T) {
	ctx := context.Background()
	c := newTestCache()

	calls := 0
	compute := func(ctx context.Context) (interface{}, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	var got []string
	require.NoError(t, c.GetOrCompute(ctx, "k", time.Minute, &got, compute))
	require.NoError(t, c.GetOrCompute(ctx, "k", time.Minute, &got, compute))
	assert.Equal(t, 1, calls, "second read must be served from cache")
	assert.Equal(t, []string{"a", "b"}, got)

	c.Invalidate(ctx, "k")
	require.NoError(t, c.GetOrCompute(ctx, "k", time.Minute, &got, compute))
	assert.Equal(t, 2, calls, "invalidation must force a recompute")
}

func TestGetOrComputeDoesNotStoreNil(t *testing.T) {
	ctx := context.Background()
	c := newTestCache()

	calls := 0
	var got *string
	compute := func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, nil
	}

	require.NoError(t, c.GetOrCompute(ctx, "k", time.Minute, &got, compute))
	require.NoError(t, c.GetOrCompute(ctx, "k", time.Minute, &got, compute))
	assert.Equal(t, 2, calls, "nil results are never cached")
	assert.Nil(t, got)
}

func TestGetOrComputePropagatesComputeError(t *testing.T) {
	c := newTestCache()
	wantErr := errors.New("store down")

	var got []string
	err := c.GetOrCompute(context.Background(), "k", time.Minute, &got, func(ctx context.Context) (interface{}, error) {
		return nil, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}

func TestGetOrComputeWithoutStore(t *testing.T) {
	c := New(nil, zap.NewNop())

	calls := 0
	var got int
	compute := func(ctx context.Context) (interface{}, error) {
		calls++
		return 42, nil
	}
	require.NoError(t, c.GetOrCompute(context.Background(), "k", time.Minute, &got, compute))
	require.NoError(t, c.GetOrCompute(context.Background(), "k", time.Minute, &got, compute))
	assert.Equal(t, 2, calls, "nil store disables caching but not correctness")
	assert.Equal(t, 42, got)
}

func TestGetOrComputeRecoversFromCorruptEntry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c := New(store, zap.NewNop())

	require.NoError(t, store.Set(ctx, "k", []byte("{not json"), time.Minute))

	var got []string
	err := c.GetOrCompute(ctx, "k", time.Minute, &got, func(ctx context.Context) (interface{}, error) {
		return []string{"fresh"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, got)
}

func TestInvalidatePattern(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c := New(store, zap.NewNop())

	require.NoError(t, store.Set(ctx, CommentListKey("U", ""), []byte(`1`), time.Minute))
	require.NoError(t, store.Set(ctx, CommentListKey("U", "s1"), []byte(`2`), time.Minute))
	require.NoError(t, store.Set(ctx, CommentListKey("other", "s1"), []byte(`3`), time.Minute))

	c.InvalidatePattern(ctx, CommentListPattern("U"))

	_, err := store.Get(ctx, CommentListKey("U", ""))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, CommentListKey("U", "s1"))
	assert.ErrorIs(t, err, ErrNotFound)

	kept, err := store.Get(ctx, CommentListKey("other", "s1"))
	require.NoError(t, err)
	assert.Equal(t, []byte(`3`), kept)

	// Empty match set is a no-op, not an error.
	c.InvalidatePattern(ctx, CommentListPattern("nobody"))
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound, "entries must never be served past expiry")

	keys, err := store.Keys(ctx, "*")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		s       string
		want    bool
	}{
		{"thread:s1:*", "thread:s1:/blog/post", true},
		{"thread:s1:*", "thread:s2:/blog/post", false},
		{"exact", "exact", true},
		{"exact", "exactly", false},
		{"*", "anything", true},
		{"comments:list:U:*", "comments:list:U:all", true},
		{"comments:list:U:*", "comments:list:U2:all", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchPattern(tt.pattern, tt.s), "%s vs %s", tt.pattern, tt.s)
	}
}
