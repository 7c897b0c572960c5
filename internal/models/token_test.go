package models

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestAuthTokenRoundTrip(t *testing.T) {
	raw, err := NewAuthToken(secret, 42, RoleAdmin)
	require.NoError(t, err)

	claims, err := ParseAuthToken(secret, raw)
	require.NoError(t, err)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, RoleAdmin, claims.Role)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(TokenTTL), claims.ExpiresAt.Time, time.Minute)
}

func TestAuthTokenUniqueIDs(t *testing.T) {
	a, err := NewAuthToken(secret, 1, RoleUser)
	require.NoError(t, err)
	b, err := NewAuthToken(secret, 1, RoleUser)
	require.NoError(t, err)

	claimsA, err := ParseAuthToken(secret, a)
	require.NoError(t, err)
	claimsB, err := ParseAuthToken(secret, b)
	require.NoError(t, err)
	assert.NotEqual(t, claimsA.ID, claimsB.ID)
}

func TestParseAuthTokenWrongSecret(t *testing.T) {
	raw, err := NewAuthToken(secret, 1, RoleUser)
	require.NoError(t, err)

	_, err = ParseAuthToken([]byte("other-secret"), raw)
	assert.Error(t, err)
}

func TestParseAuthTokenExpired(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	claims := AuthClaims{
		UserID: 1,
		Role:   RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "expired",
			IssuedAt:  jwt.NewNumericDate(past.Add(-TokenTTL)),
			ExpiresAt: jwt.NewNumericDate(past),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	_, err = ParseAuthToken(secret, raw)
	assert.Error(t, err)
}

func TestParseAuthTokenRejectsUnsignedAlgorithm(t *testing.T) {
	claims := AuthClaims{
		UserID: 1,
		Role:   RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "forged",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseAuthToken(secret, raw)
	assert.Error(t, err)
}
