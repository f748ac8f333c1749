package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, secret, issuer string) *JWTService {
	t.Helper()
	s, err := NewJWTService(Config{Secret: secret, Issuer: issuer, TTL: time.Minute})
	require.NoError(t, err)
	return s
}

func TestRoundTrip(t *testing.T) {
	s := newService(t, "secret", "plasma")
	token, err := s.GenerateToken("analyst", "modeler")
	require.NoError(t, err)

	claims, err := s.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "analyst", claims.Subject)
	assert.Equal(t, []string{"modeler"}, claims.Roles)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateRejects(t *testing.T) {
	s := newService(t, "secret", "plasma")
	good, err := s.GenerateToken("analyst")
	require.NoError(t, err)

	otherKey, err := newService(t, "other", "plasma").GenerateToken("analyst")
	require.NoError(t, err)
	otherIssuer, err := newService(t, "secret", "elsewhere").GenerateToken("analyst")
	require.NoError(t, err)
	noSubject, err := newService(t, "secret", "plasma").GenerateToken("")
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "x", Issuer: "plasma"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	expired := newService(t, "secret", "plasma")
	expired.now = func() time.Time { return time.Now().Add(-time.Hour) }
	old, err := expired.GenerateToken("analyst")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"missing", "Bearer ", ErrMissingToken},
		{"garbage", "not-a-token", ErrInvalidToken},
		{"wrong key", otherKey, ErrInvalidToken},
		{"wrong issuer", otherIssuer, ErrInvalidClaims},
		{"no subject", noSubject, ErrInvalidClaims},
		{"unsigned", none, ErrInvalidToken},
		{"expired", old, ErrExpiredToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ValidateToken(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = s.ValidateToken(good)
	assert.NoError(t, err)
}

func TestNewJWTServiceRequiresSecret(t *testing.T) {
	_, err := NewJWTService(Config{})
	assert.Error(t, err)
}

func TestClaimsContext(t *testing.T) {
	_, ok := ClaimsFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithClaims(context.Background(), &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "a"}})
	claims, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "a", claims.Subject)
}
