package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a published or consumed domain event.
type EventType string

const (
	EventSecretCreated  EventType = "vault.secret.created"
	EventSecretAccessed EventType = "vault.secret.accessed"
	EventSecretUpdated  EventType = "vault.secret.updated"
	EventSecretDeleted  EventType = "vault.secret.deleted"
	EventSecretShared   EventType = "vault.secret.shared"
	EventSecretRotated  EventType = "vault.secret.rotated"

	// EventUserDeleted is consumed, never published.
	EventUserDeleted EventType = "user.deleted"
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	return string(e)
}

// SecretEvent is the payload of every vault.secret.* event.
type SecretEvent struct {
	VaultID         uuid.UUID       `json:"vault_id"`
	UserID          uuid.UUID       `json:"user_id"`
	PermissionLevel PermissionLevel `json:"permission_level,omitempty"`
	Decrypted       *bool           `json:"decrypted,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}

// NewSecretEvent builds the base payload for an event about vaultID caused by userID.
func NewSecretEvent(vaultID, userID uuid.UUID, now time.Time) SecretEvent {
	return SecretEvent{VaultID: vaultID, UserID: userID, Timestamp: now.UTC()}
}

// UserDeletedEvent is the payload of user.deleted.
type UserDeletedEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}
