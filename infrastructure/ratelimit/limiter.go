// Package ratelimit enforces per-identifier sliding-window limits for each
// endpoint class. The window slides continuously: the previous window's count
// decays by its remaining overlap instead of resetting at boundaries.
//
// The limiter fails open. If the counter store is down or unconfigured the
// widget keeps serving; quota enforcement is never allowed to take the whole
// API down with it.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// EndpointClass selects which limit applies to a request.
type EndpointClass string

const (
	// ClassComment covers POST /add, the strictest class.
	ClassComment EndpointClass = "comment"
	// ClassThread covers GET /thread.
	ClassThread EndpointClass = "thread"
	// ClassDashboard covers the authenticated dashboard API.
	ClassDashboard EndpointClass = "api"
)

// AnonymousIdentifier is the shared bucket for clients with no derivable IP.
const AnonymousIdentifier = "anonymous"

// CounterStore is the shared remote counter store behind the limiter.
// Implementations must be safe for concurrent use across processes.
type CounterStore interface {
	// Increment atomically increments a counter, creating it with the given
	// TTL if absent, and returns the new value.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Get returns a counter's value, zero when absent.
	Get(ctx context.Context, key string) (int64, error)
}

// ClassLimit is the quota for one endpoint class.
type ClassLimit struct {
	Limit  int
	Window time.Duration
}

// Decision is the outcome of an admission check. A zero Limit means the
// limiter failed open and no X-RateLimit headers should be emitted.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter applies sliding-window limits per (endpoint class, identifier).
type Limiter struct {
	store  CounterStore
	limits map[EndpointClass]ClassLimit
	logger *zap.Logger
}

// NewLimiter creates a limiter. A nil store disables enforcement (every
// request is admitted), which keeps local development usable.
func NewLimiter(store CounterStore, limits map[EndpointClass]ClassLimit, logger *zap.Logger) *Limiter {
	return &Limiter{store: store, limits: limits, logger: logger}
}

// Admit decides whether a request from identifier is allowed under the
// class's quota.
//
// The count is approximated from two fixed buckets: the current window's
// counter plus the previous window's counter weighted by how much of it the
// trailing interval still covers. A burst at a boundary therefore keeps
// counting instead of vanishing when a new bucket starts.
func (l *Limiter) Admit(ctx context.Context, class EndpointClass, identifier string) Decision {
	limit, ok := l.limits[class]
	if l.store == nil || !ok || limit.Limit <= 0 {
		return Decision{Allowed: true}
	}
	if identifier == "" {
		identifier = AnonymousIdentifier
	}

	now := time.Now()
	currStart := now.Truncate(limit.Window)
	prevStart := currStart.Add(-limit.Window)

	currCount, err := l.store.Increment(ctx, l.bucketKey(class, identifier, currStart), 2*limit.Window)
	if err != nil {
		l.logger.Warn("rate limiter store unavailable, failing open",
			zap.String("class", string(class)),
			zap.Error(err),
		)
		return Decision{Allowed: true}
	}

	prevCount, err := l.store.Get(ctx, l.bucketKey(class, identifier, prevStart))
	if err != nil {
		l.logger.Warn("rate limiter store unavailable, failing open",
			zap.String("class", string(class)),
			zap.Error(err),
		)
		return Decision{Allowed: true}
	}

	overlap := 1 - float64(now.Sub(currStart))/float64(limit.Window)
	weighted := float64(currCount) + float64(prevCount)*overlap

	remaining := limit.Limit - int(weighted)
	if remaining < 0 {
		remaining = 0
	}

	return Decision{
		Allowed:   weighted <= float64(limit.Limit),
		Limit:     limit.Limit,
		Remaining: remaining,
		ResetAt:   currStart.Add(limit.Window),
	}
}

func (l *Limiter) bucketKey(class EndpointClass, identifier string, windowStart time.Time) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", class, identifier, windowStart.Unix())
}

// ClientIdentifier derives the limiter identifier for a request: the first
// entry of the forwarded-for chain, else the connection peer, else the
// shared anonymous bucket. The limiter must keep functioning when no IP is
// determinable.
func ClientIdentifier(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}

	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		addr = addr[:idx]
	}
	addr = strings.Trim(addr, "[]")
	if addr != "" {
		return addr
	}

	return AnonymousIdentifier
}

// SetHeaders writes the X-RateLimit response headers for a decision.
func (d Decision) SetHeaders(h http.Header) {
	if d.Limit <= 0 {
		return
	}
	h.Set("X-RateLimit-Limit", fmt.Sprintf("%d", d.Limit))
	h.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", d.Remaining))
	h.Set("X-RateLimit-Reset", fmt.Sprintf("%d", d.ResetAt.Unix()))
}
