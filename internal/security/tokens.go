// Package security provides client-side token inspection. The platform signs
// tokens server-side; the client never holds the key, so claims are read
// without signature verification and only used to judge whether a persisted
// token is still worth presenting.
package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed or carries no usable claims.
	ErrInvalidToken = errors.New("invalid token")
)

// TokenInfo holds the claims the client cares about.
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time // zero when the token carries no exp claim
}

// Inspect parses the token without verifying its signature and returns the
// subject and expiry. Returns ErrInvalidToken for malformed tokens.
func Inspect(tokenString string) (*TokenInfo, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrInvalidToken
	}
	info := &TokenInfo{}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}

// Expired reports whether the token is malformed or past its exp claim.
// Tokens without an exp claim are treated as not expired; opaque (non-JWT)
// tokens are treated as expired so they never short-circuit a fresh login.
func Expired(tokenString string, now time.Time) bool {
	info, err := Inspect(tokenString)
	if err != nil {
		return true
	}
	if info.ExpiresAt.IsZero() {
		return false
	}
	return !info.ExpiresAt.After(now)
}
