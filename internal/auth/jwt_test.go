package auth

import (
	"testing"
	"time"

	"gatisathi/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *TokenService {
	return NewTokenService(config.AuthConfig{JWTSecret: "test-secret", Issuer: "gatisathi", TokenTTLHours: 1})
}

func TestGenerateAndValidate(t *testing.T) {
	s := newService()

	token, err := s.GenerateToken("user-1", "user")
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "user", claims.Role)
	assert.Equal(t, "gatisathi", claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestGenerateToken_EmptyUser(t *testing.T) {
	_, err := newService().GenerateToken("", "user")
	assert.Error(t, err)
}

func TestValidateToken_Rejects(t *testing.T) {
	s := newService()

	t.Run("garbage", func(t *testing.T) {
		_, err := s.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenService(config.AuthConfig{JWTSecret: "other", Issuer: "gatisathi", TokenTTLHours: 1})
		token, err := other.GenerateToken("user-1", "")
		require.NoError(t, err)
		_, err = s.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewTokenService(config.AuthConfig{JWTSecret: "test-secret", Issuer: "someone-else", TokenTTLHours: 1})
		token, err := other.GenerateToken("user-1", "")
		require.NoError(t, err)
		_, err = s.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past := newService()
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := past.GenerateToken("user-1", "")
		require.NoError(t, err)
		_, err = s.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "gatisathi",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = s.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
