package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_UsesConfiguredTTL(t *testing.T) {
	ttl := 2 * time.Hour
	tm := NewTokenManager("test-secret", ttl)

	start := time.Now()

	token, err := tm.GenerateToken("operator-1", "Dispatch Desk", RoleAgent)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	require.NotNil(t, claims.ExpiresAt)

	expectedExpiry := start.Add(ttl)
	assert.WithinDuration(t, expectedExpiry, claims.ExpiresAt.Time, 2*time.Second)
	assert.Equal(t, "operator-1", claims.Subject)
	assert.False(t, claims.IsAdmin())
}

func TestTokenManager_RejectsForeignSignature(t *testing.T) {
	issuer := NewTokenManager("issuer-secret", time.Hour)
	verifier := NewTokenManager("other-secret", time.Hour)

	token, err := issuer.GenerateToken("operator-1", "", RoleAdmin)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)
	claims := &Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "operator-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = tm.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestTokenManager_RequiresSubject(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	token, err := tm.GenerateToken("", "", RoleAgent)
	require.NoError(t, err)

	_, err = tm.ValidateToken(token)
	assert.Error(t, err)
}
