// Package token provides local, non-cryptographic inspection of JWT access
// tokens. Signature validation is delegated to the backend; the SDK only
// peeks at claims to avoid round-trips for obviously expired tokens and to
// log time-to-expiry.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

var parser = jwt.NewParser()

// PeekClaims decodes the claims of a JWT without verifying its signature.
func PeekClaims(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return nil, errors.Wrap(err, "[PeekClaims] parse")
	}
	return claims, nil
}

// ExpiresAt returns the exp claim of the token. The second return value is
// false when the token is malformed or carries no expiry.
func ExpiresAt(raw string) (time.Time, bool) {
	claims, err := PeekClaims(raw)
	if err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// IsExpired reports whether the token's exp claim lies within leeway of now.
// Tokens without an expiry, or that cannot be parsed at all, report false:
// the backend remains the authority and will reject them if they are bad.
func IsExpired(raw string, leeway time.Duration) bool {
	exp, ok := ExpiresAt(raw)
	if !ok {
		return false
	}
	return time.Now().Add(leeway).After(exp)
}
