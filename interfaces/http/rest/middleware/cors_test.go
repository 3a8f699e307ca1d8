package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractOrigin(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		want   string
	}{
		{"valid https", "https://example.com", "https://example.com"},
		{"valid with port", "http://localhost:3000", "http://localhost:3000"},
		{"absent", "", ""},
		{"whitespace only", "   ", ""},
		{"no scheme", "example.com", ""},
		{"scheme only", "https://", ""},
		{"oversized", "https://" + strings.Repeat("a", 2100) + ".com", ""},
		{"unparseable", "http://exa mple.com", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, ExtractOrigin(r))
		})
	}
}

func TestPublicCORSReflectsOrigin(t *testing.T) {
	var seenOrigin string
	handler := PublicCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenOrigin = OriginFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/thread", nil)
	req.Header.Set("Origin", "https://blog.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://blog.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "https://blog.example.com", seenOrigin)
	assert.Contains(t, rec.Header().Values("Vary"), "Origin")
}

func TestPublicCORSEmptyWithoutOrigin(t *testing.T) {
	handler := PublicCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/thread", nil))

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestPublicCORSShortCircuitsPreflight(t *testing.T) {
	called := false
	handler := PublicCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/add", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, called, "preflights never reach the handler")
}
