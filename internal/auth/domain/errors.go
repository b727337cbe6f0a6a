package domain

import (
	"github.com/allisson/credvault/internal/errors"
)

// Authentication errors.
var (
	// ErrInvalidToken indicates a bearer token that failed parsing, signature or claim checks.
	ErrInvalidToken = errors.Wrap(errors.ErrUnauthorized, "invalid token")

	// ErrInvalidSubject indicates a token whose subject is not a user UUID.
	ErrInvalidSubject = errors.Wrap(errors.ErrUnauthorized, "invalid token subject")
)
