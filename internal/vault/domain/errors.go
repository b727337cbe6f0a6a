package domain

import (
	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	"github.com/allisson/credvault/internal/errors"
)

// Vault error definitions.
var (
	ErrSecretNotFound = errors.Wrap(errors.ErrNotFound, "secret not found")
	ErrShareNotFound  = errors.Wrap(errors.ErrNotFound, "share not found")

	// ErrAccessDenied is returned both when the caller has no grant and when the grant
	// lacks the operation. Expired shares produce this error, never a distinct one.
	ErrAccessDenied = errors.Wrap(errors.ErrForbidden, "access denied")

	ErrSecretInactive = errors.Wrap(errors.ErrGone, "secret is inactive")
	ErrSecretExpired  = errors.Wrap(errors.ErrGone, "secret has expired")

	// ErrVersionConflict means another writer changed the value first. The stored row is
	// untouched; callers may reload and retry.
	ErrVersionConflict = errors.Wrap(errors.ErrConflict, "secret version changed concurrently")

	ErrInvalidShareTarget = errors.Wrap(
		errors.ErrInvalidInput,
		"exactly one of shared_with_user_id or shared_with_org_id is required",
	)
	ErrShareWithOwner = errors.Wrap(errors.ErrInvalidInput, "cannot share a secret with its owner")
	ErrEmptyUpdate    = errors.Wrap(errors.ErrInvalidInput, "update must change at least one field")

	// ErrMalformedRequest marks a request refused before it could be decoded.
	ErrMalformedRequest = errors.Wrap(errors.ErrInvalidInput, "malformed request")

	// ErrDecryptionFailed is the crypto engine's integrity failure.
	ErrDecryptionFailed = cryptoDomain.ErrDecryptionFailed
)

// ErrorKind is the stable, caller-facing classification of a vault error.
type ErrorKind string

const (
	KindNone           ErrorKind = ""
	KindValidation     ErrorKind = "validation_error"
	KindAccessDenied   ErrorKind = "access_denied"
	KindNotFound       ErrorKind = "not_found"
	KindSecretInactive ErrorKind = "secret_inactive"
	KindSecretExpired  ErrorKind = "secret_expired"
	KindDecryption     ErrorKind = "decryption_error"
	KindConflict       ErrorKind = "conflict"
	KindUnauthorized   ErrorKind = "unauthorized"
	KindInternal       ErrorKind = "internal_error"
)

// Kind classifies err. A nil error has KindNone.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrSecretInactive):
		return KindSecretInactive
	case errors.Is(err, ErrSecretExpired):
		return KindSecretExpired
	case errors.Is(err, errors.ErrIntegrity):
		return KindDecryption
	case errors.Is(err, errors.ErrForbidden):
		return KindAccessDenied
	case errors.Is(err, errors.ErrNotFound):
		return KindNotFound
	case errors.Is(err, errors.ErrInvalidInput):
		return KindValidation
	case errors.Is(err, errors.ErrConflict):
		return KindConflict
	case errors.Is(err, errors.ErrUnauthorized):
		return KindUnauthorized
	default:
		return KindInternal
	}
}

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	return string(k)
}
