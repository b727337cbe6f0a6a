// Package domain defines the core cryptographic domain models for envelope encryption.
//
// The key hierarchy is Master Key → derived KEK (per owner and salt) → DEK → secret value.
// KEKs are never stored: they are re-derived with PBKDF2 from the master key, the owner
// identity and the salt persisted next to the ciphertext.
package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// MasterKey is the process-wide root key. It is built once at start-up and is read-only
// afterwards; callers receive copies of the key bytes, never the backing slice.
type MasterKey struct {
	id  string
	key []byte
}

// NewMasterKey copies key into a new MasterKey. The caller may zero its own slice afterwards.
func NewMasterKey(id string, key []byte) (*MasterKey, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: master key must be %d bytes, got %d", ErrInvalidKeySize, KeySize, len(key))
	}
	buf := make([]byte, KeySize)
	copy(buf, key)
	return &MasterKey{id: id, key: buf}, nil
}

// ParseMasterKey decodes a standard base64 master key.
func ParseMasterKey(id, encoded string) (*MasterKey, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrMasterKeyNotSet
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMasterKeyBase64, err)
	}
	defer Zero(raw)
	return NewMasterKey(id, raw)
}

// ID returns the master key identifier.
func (m *MasterKey) ID() string {
	return m.id
}

// Bytes returns a copy of the key. Callers must Zero it after use.
func (m *MasterKey) Bytes() []byte {
	buf := make([]byte, len(m.key))
	copy(buf, m.key)
	return buf
}

// Close zeroes the key. The MasterKey must not be used afterwards.
func (m *MasterKey) Close() {
	Zero(m.key)
}
