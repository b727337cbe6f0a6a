package domain

import (
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/credvault/internal/validation"
)

var secretTypeRule = validation.In(
	SecretTypeAPIKey,
	SecretTypePassword,
	SecretTypeToken,
	SecretTypeCertificate,
	SecretTypeOther,
).Error("must be one of api_key, password, token, certificate, other")

var permissionLevelRule = validation.In(PermissionRead, PermissionReadWrite).
	Error("must be one of read, read_write")

func tagsRules() []validation.Rule {
	return []validation.Rule{
		validation.Length(0, MaxTags),
		customValidation.UniqueStrings,
		validation.Each(validation.Required, customValidation.NotBlank, validation.RuneLength(1, MaxTagLength)),
	}
}

func rotationDaysRules() []validation.Rule {
	return []validation.Rule{
		validation.NilOrNotEmpty,
		validation.Min(MinRotationDays),
		validation.Max(MaxRotationDays),
	}
}

// CreateSecretInput is the validated request to store a new secret.
type CreateSecretInput struct {
	Name         string
	SecretType   SecretType
	Value        []byte
	Tags         []string
	Provider     string
	ExpiresAt    *time.Time
	RotationDays *int
}

// Validate checks name length, tag count, rotation range and value size.
func (in *CreateSecretInput) Validate() error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.Name,
			validation.Required,
			customValidation.NotBlank,
			validation.RuneLength(1, MaxNameLength),
		),
		validation.Field(&in.SecretType, validation.Required, secretTypeRule),
		validation.Field(&in.Value, validation.Required, validation.Length(1, MaxSecretValueSize)),
		validation.Field(&in.Tags, tagsRules()...),
		validation.Field(&in.Provider, validation.RuneLength(0, MaxProviderLength)),
		validation.Field(&in.ExpiresAt, customValidation.InFuture(time.Now)),
		validation.Field(&in.RotationDays, rotationDaysRules()...),
	)
	return customValidation.WrapValidationError(err)
}

// UpdateSecretInput changes a secret. Nil fields are left untouched; a non-nil field fully
// replaces the stored value, including Tags. Supplying Value re-encrypts and bumps the version.
type UpdateSecretInput struct {
	Name         *string
	Value        []byte
	Tags         []string
	Provider     *string
	ExpiresAt    *time.Time
	RotationDays *int
}

// HasValue reports whether the update changes the secret value.
func (in *UpdateSecretInput) HasValue() bool {
	return in.Value != nil
}

// IsEmpty reports whether the update changes nothing.
func (in *UpdateSecretInput) IsEmpty() bool {
	return in.Name == nil && in.Value == nil && in.Tags == nil &&
		in.Provider == nil && in.ExpiresAt == nil && in.RotationDays == nil
}

// Validate applies the create rules to each supplied field.
func (in *UpdateSecretInput) Validate() error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.Name,
			validation.NilOrNotEmpty,
			customValidation.NotBlank,
			validation.RuneLength(1, MaxNameLength),
		),
		validation.Field(&in.Value,
			validation.When(in.Value != nil, validation.Required, validation.Length(1, MaxSecretValueSize)),
		),
		validation.Field(&in.Tags, tagsRules()...),
		validation.Field(&in.Provider, validation.RuneLength(0, MaxProviderLength)),
		validation.Field(&in.ExpiresAt, customValidation.InFuture(time.Now)),
		validation.Field(&in.RotationDays, rotationDaysRules()...),
	)
	if err != nil {
		return customValidation.WrapValidationError(err)
	}
	if in.IsEmpty() {
		return ErrEmptyUpdate
	}
	return nil
}

// ShareSecretInput grants access to exactly one user or organization.
type ShareSecretInput struct {
	SharedWithUserID *uuid.UUID
	SharedWithOrgID  *uuid.UUID
	PermissionLevel  PermissionLevel
	ExpiresAt        *time.Time
}

// Validate checks the permission level and that exactly one target is set.
func (in *ShareSecretInput) Validate() error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.PermissionLevel, validation.Required, permissionLevelRule),
		validation.Field(&in.ExpiresAt, customValidation.InFuture(time.Now)),
	)
	if err != nil {
		return customValidation.WrapValidationError(err)
	}
	if (in.SharedWithUserID == nil) == (in.SharedWithOrgID == nil) {
		return ErrInvalidShareTarget
	}
	if in.SharedWithUserID != nil && *in.SharedWithUserID == uuid.Nil ||
		in.SharedWithOrgID != nil && *in.SharedWithOrgID == uuid.Nil {
		return ErrInvalidShareTarget
	}
	return nil
}

// ValidateSecretValue checks a replacement value supplied to rotate.
func ValidateSecretValue(value []byte) error {
	err := validation.Validate(value, validation.Required, validation.Length(1, MaxSecretValueSize))
	if err != nil {
		return customValidation.WrapValidationError(validation.Errors{"value": err})
	}
	return nil
}
