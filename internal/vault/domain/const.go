// Package domain defines the vault's core models: stored secrets, shares, access logs,
// the permission matrix and the lifecycle events the vault publishes.
package domain

import (
	"fmt"

	"github.com/allisson/credvault/internal/errors"
)

// SecretType classifies a stored credential.
type SecretType string

const (
	SecretTypeAPIKey      SecretType = "api_key"
	SecretTypePassword    SecretType = "password"
	SecretTypeToken       SecretType = "token"
	SecretTypeCertificate SecretType = "certificate"
	SecretTypeOther       SecretType = "other"
)

// Validate checks if the secret type is one of the known variants.
func (t SecretType) Validate() error {
	switch t {
	case SecretTypeAPIKey, SecretTypePassword, SecretTypeToken, SecretTypeCertificate, SecretTypeOther:
		return nil
	default:
		return errors.Wrapf(errors.ErrInvalidInput, "invalid secret type %q", string(t))
	}
}

// String returns the string representation of the secret type.
func (t SecretType) String() string {
	return string(t)
}

// SecretTypes lists every secret type in display order.
var SecretTypes = []SecretType{
	SecretTypeAPIKey,
	SecretTypePassword,
	SecretTypeToken,
	SecretTypeCertificate,
	SecretTypeOther,
}

// PermissionLevel is the level granted by a share.
type PermissionLevel string

const (
	PermissionRead      PermissionLevel = "read"
	PermissionReadWrite PermissionLevel = "read_write"
)

// Validate checks if the permission level is one of the known variants.
func (p PermissionLevel) Validate() error {
	switch p {
	case PermissionRead, PermissionReadWrite:
		return nil
	default:
		return errors.Wrapf(errors.ErrInvalidInput, "invalid permission level %q", string(p))
	}
}

// String returns the string representation of the permission level.
func (p PermissionLevel) String() string {
	return string(p)
}

// Action is the operation recorded in an access log row.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionShare  Action = "share"
	ActionRotate Action = "rotate"
)

// Validate checks if the action is one of the known variants.
func (a Action) Validate() error {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionShare, ActionRotate:
		return nil
	default:
		return fmt.Errorf("invalid action %q", string(a))
	}
}

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// Size limits for stored fields.
const (
	MaxNameLength     = 255
	MaxTags           = 10
	MaxTagLength      = 64
	MaxProviderLength = 64
	MinRotationDays   = 1
	MaxRotationDays   = 365

	// MaxSecretValueSize bounds a single plaintext value (64 KB).
	MaxSecretValueSize = 65536
)

// RedactedValue replaces the plaintext when a secret is read without decryption.
const RedactedValue = "********"
