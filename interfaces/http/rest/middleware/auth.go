package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"opino-backend/pkg/auth"
	"opino-backend/pkg/common"
)

// Authenticator validates dashboard bearer tokens and stores the caller in
// the request context.
type Authenticator struct {
	validator *auth.JWTValidator
	logger    *zap.Logger
}

// NewAuthenticator creates the auth middleware.
func NewAuthenticator(validator *auth.JWTValidator, logger *zap.Logger) *Authenticator {
	return &Authenticator{validator: validator, logger: logger}
}

// Middleware rejects requests without a valid bearer token.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			common.RespondError(w, http.StatusUnauthorized, "Missing or invalid authorization header")
			return
		}

		claims, err := a.validator.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			a.logger.Debug("token rejected", zap.Error(err))
			common.RespondError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{
			UserID: claims.UserID,
			Email:  claims.Email,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
