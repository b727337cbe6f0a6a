package service

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
)

// sealer adapts a cipher.AEAD to AEAD. Open checks the nonce length first because
// cipher.AEAD panics on a short nonce.
type sealer struct {
	alg  cryptoDomain.Algorithm
	aead cipher.AEAD
}

func (s *sealer) NonceSize() int { return s.aead.NonceSize() }

func (s *sealer) Seal(nonce, plaintext, aad []byte) []byte {
	return s.aead.Seal(nil, nonce, plaintext, aad)
}

func (s *sealer) Open(nonce, ciphertext, aad []byte) ([]byte, error) {
	if len(nonce) != s.aead.NonceSize() {
		return nil, fmt.Errorf("%s: nonce is %d bytes, want %d", s.alg, len(nonce), s.aead.NonceSize())
	}
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", s.alg, err)
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

var constructors = map[cryptoDomain.Algorithm]func(key []byte) (cipher.AEAD, error){
	cryptoDomain.AESGCM:   newGCM,
	cryptoDomain.ChaCha20: chacha20poly1305.New,
}

// NewAESGCM returns an AES-256-GCM cipher for a 32-byte key.
func NewAESGCM(key []byte) (AEAD, error) {
	return newSealer(key, cryptoDomain.AESGCM)
}

// NewChaCha20Poly1305 returns a ChaCha20-Poly1305 cipher for a 32-byte key.
func NewChaCha20Poly1305(key []byte) (AEAD, error) {
	return newSealer(key, cryptoDomain.ChaCha20)
}

func newSealer(key []byte, alg cryptoDomain.Algorithm) (*sealer, error) {
	build, ok := constructors[alg]
	if !ok {
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}
	aead, err := build(key)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", alg, err)
	}
	return &sealer{alg: alg, aead: aead}, nil
}

// AEADManagerService builds ciphers from the algorithm recorded on an envelope.
type AEADManagerService struct{}

// NewAEADManager creates an AEADManagerService.
func NewAEADManager() *AEADManagerService {
	return &AEADManagerService{}
}

// CreateCipher returns ErrUnsupportedAlgorithm for an unknown alg and ErrInvalidKeySize
// when key is not 32 bytes.
func (*AEADManagerService) CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error) {
	s, err := newSealer(key, alg)
	if err != nil {
		return nil, err
	}
	return s, nil
}
