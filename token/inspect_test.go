package token_test

import (
	"testing"
	"time"

	"github.com/developersupreme/supreme-ai-sdk-sub000/token"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestPeekClaims(t *testing.T) {
	raw := mintToken(t, jwt.MapClaims{"sub": "2", "email": "john@example.com"})

	claims, err := token.PeekClaims(raw)
	require.NoError(t, err)
	require.Equal(t, "2", claims["sub"])
	require.Equal(t, "john@example.com", claims["email"])
}

func TestPeekClaimsMalformed(t *testing.T) {
	_, err := token.PeekClaims("not.a.jwt")
	require.Error(t, err)
}

func TestExpiresAt(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := mintToken(t, jwt.MapClaims{"exp": exp.Unix()})

	got, ok := token.ExpiresAt(raw)
	require.True(t, ok)
	require.True(t, got.Equal(exp))
}

func TestExpiresAtWithoutClaim(t *testing.T) {
	raw := mintToken(t, jwt.MapClaims{"sub": "2"})

	_, ok := token.ExpiresAt(raw)
	require.False(t, ok)
}

func TestIsExpired(t *testing.T) {
	expired := mintToken(t, jwt.MapClaims{"exp": time.Now().Add(-time.Minute).Unix()})
	live := mintToken(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})

	require.True(t, token.IsExpired(expired, 0))
	require.False(t, token.IsExpired(live, 0))

	// Leeway pushes a soon-to-expire token over the line.
	soon := mintToken(t, jwt.MapClaims{"exp": time.Now().Add(30 * time.Second).Unix()})
	require.False(t, token.IsExpired(soon, 0))
	require.True(t, token.IsExpired(soon, time.Minute))
}

func TestIsExpiredUnparseableReportsFalse(t *testing.T) {
	// The backend stays the authority for garbage tokens.
	require.False(t, token.IsExpired("garbage", 0))
	require.False(t, token.IsExpired(mintToken(t, jwt.MapClaims{"sub": "2"}), 0))
}
