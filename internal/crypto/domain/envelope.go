package domain

import (
	"context"
)

// Envelope is the complete encrypted form of one secret value.
//
// Ciphertext includes the AEAD authentication tag. WrappedDataKey is the DEK sealed
// under the derived KEK with its own nonce prefixed. None of the fields reveal the
// plaintext on their own, and all of them are required to decrypt.
type Envelope struct {
	Algorithm      Algorithm
	Ciphertext     []byte
	WrappedDataKey []byte
	Salt           []byte
	Nonce          []byte
}

// KMSKeeper decrypts a KMS-protected master key. *secrets.Keeper implements it.
type KMSKeeper interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Close() error
}
