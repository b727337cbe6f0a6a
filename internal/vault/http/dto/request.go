// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/credvault/internal/validation"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

// CreateSecretRequest contains the parameters for storing a new secret.
// Value is base64 encoded on the wire.
type CreateSecretRequest struct {
	Name         string     `json:"name"`
	SecretType   string     `json:"secret_type"`
	Value        []byte     `json:"value"`
	Tags         []string   `json:"tags"`
	Provider     string     `json:"provider"`
	ExpiresAt    *time.Time `json:"expires_at"`
	RotationDays *int       `json:"rotation_days"`
}

// ToInput converts the request to the domain input. Field rules are enforced by the use
// case so that rejected requests are still audited.
func (r *CreateSecretRequest) ToInput() *vaultDomain.CreateSecretInput {
	return &vaultDomain.CreateSecretInput{
		Name:         r.Name,
		SecretType:   vaultDomain.SecretType(r.SecretType),
		Value:        r.Value,
		Tags:         r.Tags,
		Provider:     r.Provider,
		ExpiresAt:    r.ExpiresAt,
		RotationDays: r.RotationDays,
	}
}

// UpdateSecretRequest changes a secret. Omitted fields are left untouched.
type UpdateSecretRequest struct {
	Name         *string    `json:"name"`
	Value        []byte     `json:"value"`
	Tags         []string   `json:"tags"`
	Provider     *string    `json:"provider"`
	ExpiresAt    *time.Time `json:"expires_at"`
	RotationDays *int       `json:"rotation_days"`
}

// ToInput converts the request to the domain input.
func (r *UpdateSecretRequest) ToInput() *vaultDomain.UpdateSecretInput {
	return &vaultDomain.UpdateSecretInput{
		Name:         r.Name,
		Value:        r.Value,
		Tags:         r.Tags,
		Provider:     r.Provider,
		ExpiresAt:    r.ExpiresAt,
		RotationDays: r.RotationDays,
	}
}

// RotateSecretRequest carries the replacement value.
type RotateSecretRequest struct {
	Value []byte `json:"value"`
}

// ShareSecretRequest grants access to a user or an organization.
type ShareSecretRequest struct {
	SharedWithUserID *uuid.UUID `json:"shared_with_user_id"`
	SharedWithOrgID  *uuid.UUID `json:"shared_with_org_id"`
	PermissionLevel  string     `json:"permission_level"`
	ExpiresAt        *time.Time `json:"expires_at"`
}

// ToInput converts the request to the domain input.
func (r *ShareSecretRequest) ToInput() *vaultDomain.ShareSecretInput {
	return &vaultDomain.ShareSecretInput{
		SharedWithUserID: r.SharedWithUserID,
		SharedWithOrgID:  r.SharedWithOrgID,
		PermissionLevel:  vaultDomain.PermissionLevel(r.PermissionLevel),
		ExpiresAt:        r.ExpiresAt,
	}
}

// EventRequest is an inbound platform event envelope.
type EventRequest struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

// Validate checks that the envelope names an event and carries a payload.
func (r *EventRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.EventType, validation.Required),
		validation.Field(&r.Data, validation.Required),
	)
}

// UserDeletedData is the data of a user.deleted event.
type UserDeletedData struct {
	UserID uuid.UUID `json:"user_id"`
}

// Validate checks that the user id is set.
func (d *UserDeletedData) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.UserID, customValidation.NotNilUUID),
	)
}
