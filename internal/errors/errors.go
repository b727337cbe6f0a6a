// Package errors defines the base error kinds shared by every layer. Domain errors wrap
// one of them so handlers and the audit trail can classify a failure without knowing the
// domain package that produced it.
package errors

import (
	"errors"
	"fmt"
)

// Base kinds. Each maps to one HTTP status in httputil.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	// ErrGone is a resource that exists but was deactivated or has expired.
	ErrGone = errors.New("gone")
	// ErrIntegrity is stored data that failed authentication: tampering or corruption.
	ErrIntegrity = errors.New("integrity check failed")
)

// Wrap prefixes err with message. It returns nil for a nil err.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// Is is errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
