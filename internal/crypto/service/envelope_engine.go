package service

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
)

// EnvelopeEngine implements Engine.
//
// Encrypt flow:
//  1. random 32-byte DEK and data nonce
//  2. seal plaintext with the DEK under the configured algorithm
//  3. random salt, KEK = PBKDF2-HMAC-SHA256(masterKey || ownerID, salt)
//  4. wrap the DEK with the KEK under AES-256-GCM; the wrap nonce is prefixed to the
//     wrapped key and ownerID is bound as additional authenticated data
//
// The only shared state is the read-only master key, so an engine is safe for
// concurrent use.
type EnvelopeEngine struct {
	masterKey   *cryptoDomain.MasterKey
	aeadManager AEADManager
	algorithm   cryptoDomain.Algorithm
	iterations  int
}

// NewEnvelopeEngine creates an engine bound to masterKey.
func NewEnvelopeEngine(
	masterKey *cryptoDomain.MasterKey,
	aeadManager AEADManager,
	algorithm cryptoDomain.Algorithm,
	iterations int,
) (*EnvelopeEngine, error) {
	if masterKey == nil {
		return nil, cryptoDomain.ErrMasterKeyNotSet
	}
	if _, err := cryptoDomain.ParseAlgorithm(string(algorithm)); err != nil {
		return nil, err
	}
	if iterations == 0 {
		iterations = cryptoDomain.DefaultKDFIterations
	}
	if iterations < cryptoDomain.MinKDFIterations {
		return nil, fmt.Errorf("%w: %d", cryptoDomain.ErrKDFIterationsTooLow, iterations)
	}

	return &EnvelopeEngine{
		masterKey:   masterKey,
		aeadManager: aeadManager,
		algorithm:   algorithm,
		iterations:  iterations,
	}, nil
}

// Encrypt implements Engine.
func (e *EnvelopeEngine) Encrypt(plaintext []byte, ownerID string) (*cryptoDomain.Envelope, error) {
	dek, err := randomBytes(cryptoDomain.KeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate DEK: %w", err)
	}
	defer cryptoDomain.Zero(dek)

	dataCipher, err := e.aeadManager.CreateCipher(dek, e.algorithm)
	if err != nil {
		return nil, err
	}

	nonce, err := randomBytes(dataCipher.NonceSize())
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := dataCipher.Seal(nonce, plaintext, nil)

	salt, err := randomBytes(cryptoDomain.SaltSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	kek := e.deriveKEK(ownerID, salt)
	defer cryptoDomain.Zero(kek)

	wrapped, err := e.wrap(kek, dek, ownerID)
	if err != nil {
		return nil, err
	}

	return &cryptoDomain.Envelope{
		Algorithm:      e.algorithm,
		Ciphertext:     ciphertext,
		WrappedDataKey: wrapped,
		Salt:           salt,
		Nonce:          nonce,
	}, nil
}

// Decrypt implements Engine.
func (e *EnvelopeEngine) Decrypt(envelope *cryptoDomain.Envelope, ownerID string) ([]byte, error) {
	if envelope == nil || len(envelope.Salt) == 0 {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	kek := e.deriveKEK(ownerID, envelope.Salt)
	defer cryptoDomain.Zero(kek)

	dek, err := e.unwrap(kek, envelope.WrappedDataKey, ownerID)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(dek)

	dataCipher, err := e.aeadManager.CreateCipher(dek, envelope.Algorithm)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	plaintext, err := dataCipher.Open(envelope.Nonce, envelope.Ciphertext, nil)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	return plaintext, nil
}

func (e *EnvelopeEngine) deriveKEK(ownerID string, salt []byte) []byte {
	mk := e.masterKey.Bytes()
	defer cryptoDomain.Zero(mk)

	password := make([]byte, 0, len(mk)+len(ownerID))
	password = append(password, mk...)
	password = append(password, ownerID...)
	defer cryptoDomain.Zero(password)

	return pbkdf2.Key(password, salt, e.iterations, cryptoDomain.KeySize, sha256.New)
}

func (e *EnvelopeEngine) wrap(kek, dek []byte, ownerID string) ([]byte, error) {
	wrapCipher, err := NewAESGCM(kek)
	if err != nil {
		return nil, err
	}

	nonce, err := randomBytes(wrapCipher.NonceSize())
	if err != nil {
		return nil, fmt.Errorf("failed to generate wrap nonce: %w", err)
	}

	sealed := wrapCipher.Seal(nonce, dek, []byte(ownerID))
	return append(nonce, sealed...), nil
}

func (e *EnvelopeEngine) unwrap(kek, wrapped []byte, ownerID string) ([]byte, error) {
	wrapCipher, err := NewAESGCM(kek)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	nonceSize := wrapCipher.NonceSize()
	if len(wrapped) <= nonceSize {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	dek, err := wrapCipher.Open(wrapped[:nonceSize], wrapped[nonceSize:], []byte(ownerID))
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	if len(dek) != cryptoDomain.KeySize {
		cryptoDomain.Zero(dek)
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	return dek, nil
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
