package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	"github.com/allisson/credvault/internal/errors"
)

// ErrNotarizationDisabled is returned by the no-op notarizer.
var ErrNotarizationDisabled = errors.Wrap(errors.ErrInvalidInput, "notarization disabled")

// NoopNotarizer issues no proofs. Secrets stored with it keep a nil blockchain reference.
type NoopNotarizer struct{}

// NewNoopNotarizer creates a NoopNotarizer.
func NewNoopNotarizer() *NoopNotarizer {
	return &NoopNotarizer{}
}

// Notarize always fails with ErrNotarizationDisabled.
func (n *NoopNotarizer) Notarize(_ context.Context, _ []byte) (string, error) {
	return "", ErrNotarizationDisabled
}

// Verify always reports false.
func (n *NoopNotarizer) Verify(_ context.Context, _ string) (bool, error) {
	return false, nil
}

const (
	hashChainPrefix = "hc1"
	hashChainInfo   = "notarization-v1"
)

// HashChainNotarizer issues offline-verifiable proofs of the form
// "hc1:<sha256 hex>:<hmac hex>", keyed by a key derived from the master key.
type HashChainNotarizer struct {
	key []byte
}

// NewHashChainNotarizer derives the proof key from masterKey with HKDF-SHA256.
func NewHashChainNotarizer(masterKey *cryptoDomain.MasterKey) (*HashChainNotarizer, error) {
	if masterKey == nil {
		return nil, cryptoDomain.ErrMasterKeyNotSet
	}

	secret := masterKey.Bytes()
	defer cryptoDomain.Zero(secret)

	key := make([]byte, cryptoDomain.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(hashChainInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive notarization key: %w", err)
	}
	return &HashChainNotarizer{key: key}, nil
}

// Notarize returns a proof reference for hash.
func (n *HashChainNotarizer) Notarize(ctx context.Context, hash []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(hash) != sha256.Size {
		return "", errors.Wrapf(errors.ErrInvalidInput, "hash must be %d bytes", sha256.Size)
	}
	return fmt.Sprintf("%s:%s:%s", hashChainPrefix, hex.EncodeToString(hash), hex.EncodeToString(n.mac(hash))), nil
}

// Verify checks that reference was issued by this notarizer.
func (n *HashChainNotarizer) Verify(ctx context.Context, reference string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	parts := strings.Split(reference, ":")
	if len(parts) != 3 || parts[0] != hashChainPrefix {
		return false, nil
	}
	hash, err := hex.DecodeString(parts[1])
	if err != nil {
		return false, nil
	}
	sig, err := hex.DecodeString(parts[2])
	if err != nil {
		return false, nil
	}
	return hmac.Equal(sig, n.mac(hash)), nil
}

func (n *HashChainNotarizer) mac(hash []byte) []byte {
	m := hmac.New(sha256.New, n.key)
	m.Write(hash)
	return m.Sum(nil)
}

// Digest returns the SHA-256 digest notarized for a stored ciphertext.
func Digest(ciphertext []byte) []byte {
	sum := sha256.Sum256(ciphertext)
	return sum[:]
}
