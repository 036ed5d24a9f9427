package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primadev/licensehub/internal/auth"
)

func TestNewVerifier_RequiresSecret(t *testing.T) {
	_, err := auth.NewVerifier("", "")
	assert.ErrorIs(t, err, auth.ErrNoSecret)
}

func TestVerifier_Verify(t *testing.T) {
	v, err := auth.NewVerifier("s3cret", "licensehub")
	require.NoError(t, err)

	other, err := auth.NewVerifier("other", "licensehub")
	require.NoError(t, err)

	wrongIssuer, err := auth.NewVerifier("s3cret", "someone-else")
	require.NoError(t, err)

	now := time.Now()

	valid, err := v.Sign("admin@primadev.id", time.Hour, now)
	require.NoError(t, err)

	expired, err := v.Sign("admin@primadev.id", time.Hour, now.Add(-2*time.Hour))
	require.NoError(t, err)

	forged, err := other.Sign("admin@primadev.id", time.Hour, now)
	require.NoError(t, err)

	foreign, err := wrongIssuer.Sign("admin@primadev.id", time.Hour, now)
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"Valid", valid, false},
		{"Expired", expired, true},
		{"WrongSecret", forged, true},
		{"WrongIssuer", foreign, true},
		{"NoneAlgorithm", noneAlg, true},
		{"Garbage", "not-a-jwt", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.Verify(tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, auth.ErrInvalidToken)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, "admin@primadev.id", claims.Subject)
		})
	}
}

func TestClaimsContext(t *testing.T) {
	_, ok := auth.FromContext(context.Background())
	assert.False(t, ok)

	ctx := auth.WithClaims(context.Background(), &auth.Claims{Email: "a@b.c"})

	c, ok := auth.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "a@b.c", c.Email)
}
