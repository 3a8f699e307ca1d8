package captcha

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newVerifyServer(t *testing.T, success bool, wantToken string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req verifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-secret", req.Secret)
		if wantToken != "" {
			assert.Equal(t, wantToken, req.Response)
		}
		json.NewEncoder(w).Encode(verifyResponse{Success: success})
	}))
}

func TestVerifyAcceptsValidToken(t *testing.T) {
	srv := newVerifyServer(t, true, "good-token")
	defer srv.Close()

	v := NewTurnstileVerifier("test-secret", zap.NewNop(), WithVerifyURL(srv.URL))
	assert.True(t, v.Verify(context.Background(), "good-token"))
}

func TestVerifyRejectsInvalidToken(t *testing.T) {
	srv := newVerifyServer(t, false, "")
	defer srv.Close()

	v := NewTurnstileVerifier("test-secret", zap.NewNop(), WithVerifyURL(srv.URL))
	assert.False(t, v.Verify(context.Background(), "bad-token"))
}

func TestVerifyPassesWithoutSecret(t *testing.T) {
	v := NewTurnstileVerifier("", zap.NewNop())
	assert.True(t, v.Verify(context.Background(), "anything"),
		"verification is disabled when no secret is configured")
}

func TestVerifyFailsClosedOnOracleErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := NewTurnstileVerifier("test-secret", zap.NewNop(), WithVerifyURL(srv.URL))
	assert.False(t, v.Verify(context.Background(), "token"))

	// An unreachable endpoint also counts as invalid.
	srv.Close()
	assert.False(t, v.Verify(context.Background(), "token"))
}

func TestVerifyBreakerOpensAfterRepeatedFailures(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	v := NewTurnstileVerifier("test-secret", zap.NewNop(), WithVerifyURL(srv.URL))
	for i := 0; i < 10; i++ {
		assert.False(t, v.Verify(context.Background(), "token"))
	}
	assert.Less(t, calls, 10, "the breaker should stop hammering a failing oracle")
}
