// Package rest assembles the HTTP router: the public widget branch and the
// authenticated dashboard branch, each with its own CORS and rate policies.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"opino-backend/infrastructure/ratelimit"
	"opino-backend/interfaces/http/rest/handlers"
	"opino-backend/interfaces/http/rest/middleware"
	"opino-backend/pkg/common"
)

// RouterConfig carries the route-level knobs.
type RouterConfig struct {
	// DashboardOrigins is the exact-match CORS allow-list for /api.
	DashboardOrigins []string
}

// NewRouter builds the full route tree.
func NewRouter(
	widget *handlers.WidgetHandler,
	dashboard *handlers.DashboardHandler,
	authn *middleware.Authenticator,
	rateLimit *middleware.RateLimit,
	apiRateLimit *middleware.RateLimit,
	cfg RouterConfig,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		common.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Public widget branch: origin is reflected, never credentialed, and the
	// real authorization happens against the site registry inside the
	// service. OPTIONS preflights short-circuit in PublicCORS.
	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicCORS)

		r.Group(func(r chi.Router) {
			r.Use(rateLimit.Class(ratelimit.ClassThread))
			r.Get("/", widget.Hello)
			r.Get("/thread", widget.GetThread)
		})
		r.Group(func(r chi.Router) {
			r.Use(rateLimit.Class(ratelimit.ClassComment))
			r.Post("/add", widget.AddComment)
		})
		r.Options("/*", func(w http.ResponseWriter, r *http.Request) {})
	})

	// Dashboard branch: fixed origin allow-list with credentials, bearer
	// auth, one shared rate class.
	r.Route("/api", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.DashboardOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
		r.Use(apiRateLimit.Class(ratelimit.ClassDashboard))
		r.Use(authn.Middleware)

		r.Get("/comments", dashboard.ListComments)
		r.Delete("/comments/{commentId}", dashboard.DeleteComment)

		r.Get("/sites", dashboard.ListSites)
		r.Post("/sites", dashboard.CreateSite)
		r.Put("/sites/{siteId}", dashboard.UpdateSite)
		r.Delete("/sites/{siteId}", dashboard.DeleteSite)

		r.Get("/dashboard/stats", dashboard.Stats)
	})

	return r
}
