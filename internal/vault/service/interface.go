// Package service provides technical services for the vault: access-log signing and
// notarization of stored ciphertext.
package service

import (
	"context"

	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

// AccessLogSigner signs and verifies access log rows.
type AccessLogSigner interface {
	// Sign returns the HMAC-SHA256 signature of the row's canonical encoding.
	Sign(log *vaultDomain.AccessLog) ([]byte, error)

	// Verify returns ErrSignatureInvalid if the stored signature does not match.
	Verify(log *vaultDomain.AccessLog) error
}

// Notarizer anchors a digest of stored ciphertext in an external proof system.
type Notarizer interface {
	// Notarize records hash and returns an opaque reference to the proof.
	Notarize(ctx context.Context, hash []byte) (string, error)

	// Verify reports whether reference is a valid proof issued by this notarizer.
	Verify(ctx context.Context, reference string) (bool, error)
}
