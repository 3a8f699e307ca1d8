package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func TestValidateToken(t *testing.T) {
	cfg := JWTConfig{SecretKey: testSecret, Issuer: "opino"}

	generator, err := NewJWTGenerator(cfg)
	require.NoError(t, err)
	validator, err := NewJWTValidator(cfg)
	require.NoError(t, err)

	token, err := generator.GenerateToken("user-1", "u@example.com")
	require.NoError(t, err)

	claims, err := validator.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "u@example.com", claims.Email)
}

func TestValidateTokenRejectsBadSignature(t *testing.T) {
	generator, _ := NewJWTGenerator(JWTConfig{SecretKey: "other-secret"})
	validator, _ := NewJWTValidator(JWTConfig{SecretKey: testSecret})

	token, err := generator.GenerateToken("user-1", "")
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	now := time.Now()
	claims := Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-1 * time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	validator, _ := NewJWTValidator(JWTConfig{SecretKey: testSecret})
	_, err = validator.ValidateToken(raw)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateTokenRejectsWrongIssuer(t *testing.T) {
	generator, _ := NewJWTGenerator(JWTConfig{SecretKey: testSecret, Issuer: "someone-else"})
	validator, _ := NewJWTValidator(JWTConfig{SecretKey: testSecret, Issuer: "opino"})

	token, err := generator.GenerateToken("user-1", "")
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUserContextRoundTrip(t *testing.T) {
	ctx := SetUserInContext(context.Background(), &UserContext{UserID: "u1"})
	user, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.UserID)

	_, err = GetUserFromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoUserInContext)
}
