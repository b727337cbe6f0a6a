package domain

import (
	"github.com/allisson/credvault/internal/errors"
)

// Cryptographic error definitions. Messages never include key material.
var (
	// ErrUnsupportedAlgorithm indicates the requested encryption algorithm is not supported.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates a key is not exactly KeySize bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed indicates an unwrap or AEAD open failed.
	//
	// Covers a wrong derived KEK (different owner), a tampered ciphertext, wrapped key
	// or nonce, and malformed metadata. The cause is deliberately not disclosed.
	// Never retry: retrying cannot repair a bad authentication tag.
	ErrDecryptionFailed = errors.Wrap(errors.ErrIntegrity, "decryption failed")

	// ErrMasterKeyNotSet indicates no master key was configured.
	ErrMasterKeyNotSet = errors.Wrap(errors.ErrInvalidInput, "MASTER_KEY is not set")

	// ErrInvalidMasterKeyBase64 indicates the configured master key is not valid base64.
	ErrInvalidMasterKeyBase64 = errors.Wrap(errors.ErrInvalidInput, "invalid base64 encoding for master key")

	// ErrKDFIterationsTooLow indicates a PBKDF2 iteration count below MinKDFIterations.
	ErrKDFIterationsTooLow = errors.Wrap(errors.ErrInvalidInput, "kdf iterations below minimum")
)
