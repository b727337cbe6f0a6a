// Package service implements the cryptographic primitives behind the vault: AEAD ciphers,
// the envelope encryption engine and KMS-backed master key loading.
package service

import (
	"context"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
)

// AEAD seals and opens data under a caller-supplied nonce.
//
// Nonce generation is left to the caller so the envelope engine can return the data
// nonce as first-class metadata. Open returns an error for a nonce of the wrong size
// instead of panicking.
type AEAD interface {
	NonceSize() int
	Seal(nonce, plaintext, aad []byte) []byte
	Open(nonce, ciphertext, aad []byte) ([]byte, error)
}

// AEADManager creates AEAD ciphers for a key and algorithm.
type AEADManager interface {
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// Engine performs envelope encryption bound to an owner identity.
type Engine interface {
	// Encrypt seals plaintext under a fresh DEK and wraps the DEK under a KEK derived
	// from the master key, ownerID and a fresh salt.
	Encrypt(plaintext []byte, ownerID string) (*cryptoDomain.Envelope, error)

	// Decrypt re-derives the KEK, unwraps the DEK and opens the ciphertext. Every
	// cryptographic failure is reported as cryptoDomain.ErrDecryptionFailed.
	Decrypt(envelope *cryptoDomain.Envelope, ownerID string) ([]byte, error)
}

// KMSService opens KMS keepers from gocloud.dev key URIs.
type KMSService interface {
	OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error)
}
