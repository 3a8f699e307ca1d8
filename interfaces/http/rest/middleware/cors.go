// Package middleware holds the HTTP middleware for both route branches: the
// public widget endpoints and the authenticated dashboard API.
package middleware

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// maxOriginLen caps the Origin header before parsing; anything longer is
// treated as absent.
const maxOriginLen = 2048

type originContextKey struct{}

// ExtractOrigin returns the request's Origin header after a syntactic check.
// Oversized or unparseable values come back empty, so the rest of the
// pipeline only ever sees a well-formed origin or none at all.
func ExtractOrigin(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Origin"))
	if raw == "" || len(raw) > maxOriginLen {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return raw
}

// OriginFromContext returns the syntactically checked origin stored by
// PublicCORS, possibly empty.
func OriginFromContext(ctx context.Context) string {
	origin, _ := ctx.Value(originContextKey{}).(string)
	return origin
}

// PublicCORS is the widget-branch CORS policy. The widget is embedded on
// arbitrary customer pages, so the allow-list lives in the site registry and
// is enforced per request by the services; here the browser just needs the
// echo. Requests without a usable origin get an empty allow-origin.
// Credentials are never allowed on this branch.
func PublicCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := ExtractOrigin(r)

		// The allow-origin is the request origin verbatim or nothing at
		// all. A wildcard is never emitted on this branch.
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		h.Set("Access-Control-Max-Age", "86400")
		if origin != "" {
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), originContextKey{}, origin)))
	})
}
