package domain

import (
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
)

// VaultItem is a stored secret. The value is only ever held in envelope-encrypted form;
// EncryptedValue, WrappedDataKey, KeyDerivationSalt and Nonce are all required to decrypt.
type VaultItem struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	SecretType SecretType
	Name       string
	Tags       []string
	// Provider is an optional free-form label such as "aws" or "stripe".
	Provider string

	EncryptedValue    []byte
	WrappedDataKey    []byte
	KeyDerivationSalt []byte
	Nonce             []byte
	Algorithm         cryptoDomain.Algorithm

	// Version starts at 1 and changes only when the value is re-encrypted.
	Version        uint
	IsActive       bool
	AccessCount    int64
	LastAccessedAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ExpiresAt      *time.Time
	RotationDays   *int
	// BlockchainReference is set only when notarization succeeded.
	BlockchainReference *string
}

// IsExpired reports whether ExpiresAt has passed at now.
func (v *VaultItem) IsExpired(now time.Time) bool {
	return v.ExpiresAt != nil && !now.Before(*v.ExpiresAt)
}

// RotationDue reports whether RotationDays is set and that many days have passed since
// the last update.
func (v *VaultItem) RotationDue(now time.Time) bool {
	if v.RotationDays == nil {
		return false
	}
	due := v.UpdatedAt.Add(time.Duration(*v.RotationDays) * 24 * time.Hour)
	return !now.Before(due)
}

// Envelope returns the encryption metadata as an envelope for decryption.
func (v *VaultItem) Envelope() *cryptoDomain.Envelope {
	return &cryptoDomain.Envelope{
		Algorithm:      v.Algorithm,
		Ciphertext:     v.EncryptedValue,
		WrappedDataKey: v.WrappedDataKey,
		Salt:           v.KeyDerivationSalt,
		Nonce:          v.Nonce,
	}
}

// SetEnvelope replaces all encryption metadata with envelope's. Metadata is never
// partially merged.
func (v *VaultItem) SetEnvelope(envelope *cryptoDomain.Envelope) {
	v.Algorithm = envelope.Algorithm
	v.EncryptedValue = envelope.Ciphertext
	v.WrappedDataKey = envelope.WrappedDataKey
	v.KeyDerivationSalt = envelope.Salt
	v.Nonce = envelope.Nonce
}

// VaultShare grants another user or organization access to a secret.
// Exactly one of SharedWithUserID and SharedWithOrgID is set.
type VaultShare struct {
	ID               uuid.UUID
	VaultID          uuid.UUID
	OwnerID          uuid.UUID
	SharedWithUserID *uuid.UUID
	SharedWithOrgID  *uuid.UUID
	PermissionLevel  PermissionLevel
	ExpiresAt        *time.Time
	IsActive         bool
	CreatedAt        time.Time
}

// IsEffective reports whether the share currently confers access. An expired share is
// treated as absent regardless of IsActive.
func (s *VaultShare) IsEffective(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	return s.ExpiresAt == nil || now.Before(*s.ExpiresAt)
}

// Matches reports whether the share targets userID directly or one of orgIDs.
func (s *VaultShare) Matches(userID uuid.UUID, orgIDs []uuid.UUID) bool {
	if s.SharedWithUserID != nil && *s.SharedWithUserID == userID {
		return true
	}
	if s.SharedWithOrgID != nil {
		for _, orgID := range orgIDs {
			if *s.SharedWithOrgID == orgID {
				return true
			}
		}
	}
	return false
}

// AccessLog is an append-only record of one attempted vault operation.
type AccessLog struct {
	ID      uuid.UUID
	VaultID uuid.UUID
	UserID  uuid.UUID
	Action  Action
	Success bool
	// ErrorKind is the stable failure kind, empty on success.
	ErrorKind ErrorKind
	IPAddress string
	UserAgent string
	// Signature is an HMAC-SHA256 over the row's canonical encoding.
	Signature []byte
	CreatedAt time.Time
}

// IsSigned reports whether the row carries a signature.
func (l *AccessLog) IsSigned() bool {
	return len(l.Signature) > 0
}
