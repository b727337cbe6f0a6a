package vaulttest

import (
	"bytes"
	"crypto/rand"
	"errors"
	"sync/atomic"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
)

// ErrEncryptFailed is returned by Encrypt while FailEncrypt is set.
var ErrEncryptFailed = errors.New("encryption failed")

// Engine is a fast, insecure stand-in for the envelope engine. The ciphertext embeds the
// owner id so decrypting with another owner fails like the real engine does.
type Engine struct {
	failEncrypt atomic.Bool
	failDecrypt atomic.Bool
	encrypts    atomic.Int64
	decrypts    atomic.Int64
}

// NewEngine creates an Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// FailEncrypt makes Encrypt fail while set.
func (e *Engine) FailEncrypt(fail bool) {
	e.failEncrypt.Store(fail)
}

// FailDecrypt makes Decrypt report an integrity failure while set.
func (e *Engine) FailDecrypt(fail bool) {
	e.failDecrypt.Store(fail)
}

// Encrypts returns the number of Encrypt calls.
func (e *Engine) Encrypts() int64 {
	return e.encrypts.Load()
}

// Decrypts returns the number of Decrypt calls.
func (e *Engine) Decrypts() int64 {
	return e.decrypts.Load()
}

// Encrypt implements the engine contract.
func (e *Engine) Encrypt(plaintext []byte, ownerID string) (*cryptoDomain.Envelope, error) {
	e.encrypts.Add(1)
	if e.failEncrypt.Load() {
		return nil, ErrEncryptFailed
	}

	salt := make([]byte, cryptoDomain.SaltSize)
	_, _ = rand.Read(salt)

	ciphertext := make([]byte, 0, len(ownerID)+len(plaintext))
	ciphertext = append(ciphertext, ownerID...)
	ciphertext = append(ciphertext, plaintext...)

	return &cryptoDomain.Envelope{
		Algorithm:      cryptoDomain.AESGCM,
		Ciphertext:     ciphertext,
		WrappedDataKey: bytes.Repeat([]byte{0x01}, 60),
		Salt:           salt,
		Nonce:          bytes.Repeat([]byte{0x02}, 12),
	}, nil
}

// Decrypt implements the engine contract.
func (e *Engine) Decrypt(envelope *cryptoDomain.Envelope, ownerID string) ([]byte, error) {
	e.decrypts.Add(1)
	if e.failDecrypt.Load() || envelope == nil || len(envelope.Salt) == 0 {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	if !bytes.HasPrefix(envelope.Ciphertext, []byte(ownerID)) {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return bytes.Clone(envelope.Ciphertext[len(ownerID):]), nil
}
