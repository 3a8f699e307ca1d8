package middleware

import (
	"net/http"

	"go.uber.org/zap"

	"opino-backend/infrastructure/ratelimit"
	"opino-backend/pkg/common"
	"opino-backend/pkg/observability"
)

// RateLimit admits requests through the sliding-window limiter under one
// endpoint class. Rejections answer 429 with the rate headers set; the
// response body matches the branch the route belongs to.
type RateLimit struct {
	limiter  *ratelimit.Limiter
	metrics  *observability.Metrics
	logger   *zap.Logger
	jsonBody bool
}

// NewRateLimit creates the middleware. jsonBody selects the dashboard-style
// JSON error body over the widget's plain text.
func NewRateLimit(limiter *ratelimit.Limiter, metrics *observability.Metrics, jsonBody bool, logger *zap.Logger) *RateLimit {
	return &RateLimit{limiter: limiter, metrics: metrics, logger: logger, jsonBody: jsonBody}
}

// Class wraps a handler chain with admission for one endpoint class.
func (rl *RateLimit) Class(class ratelimit.EndpointClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := rl.limiter.Admit(r.Context(), class, ratelimit.ClientIdentifier(r))
			decision.SetHeaders(w.Header())

			if !decision.Allowed {
				rl.metrics.Increment(r.Context(), observability.MetricRateLimitRejected, "Class", string(class))
				rl.logger.Info("rate limit rejection",
					zap.String("class", string(class)),
					zap.String("path", r.URL.Path),
				)
				if rl.jsonBody {
					common.RespondError(w, http.StatusTooManyRequests, "Too many requests")
				} else {
					common.RespondText(w, http.StatusTooManyRequests, "Too many requests")
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
