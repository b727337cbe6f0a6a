// Package service provides technical services for authentication.
package service

import (
	"time"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
)

// TokenVerifier turns a bearer token into a principal.
type TokenVerifier interface {
	// Verify validates signature, expiry and issuer. Every failure wraps ErrUnauthorized.
	Verify(token string) (*authDomain.Principal, error)
}

// TokenIssuer mints bearer tokens for a principal.
type TokenIssuer interface {
	Issue(principal authDomain.Principal, ttl time.Duration) (string, error)
}
