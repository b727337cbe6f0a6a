// Package validation adds the rules the vault inputs need on top of jellydator/validation.
package validation

import (
	"strings"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/credvault/internal/errors"
)

// WrapValidationError turns a validation failure into apperrors.ErrInvalidInput, keeping
// the field messages.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NotBlank rejects strings made only of whitespace.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// InFuture validates that a time.Time or *time.Time lies strictly after now().
// Nil pointers and zero times are left to Required/NilOrNotEmpty.
func InFuture(now func() time.Time) validation.Rule {
	return validation.By(func(value interface{}) error {
		var t time.Time
		switch v := value.(type) {
		case time.Time:
			t = v
		case *time.Time:
			if v == nil {
				return nil
			}
			t = *v
		default:
			return validation.NewError("validation_time_type", "must be a time")
		}
		if t.IsZero() {
			return nil
		}
		if !t.After(now()) {
			return validation.NewError("validation_in_future", "must be in the future")
		}
		return nil
	})
}

// NotNilUUID validates that a uuid.UUID or *uuid.UUID is not the nil UUID.
// Nil pointers are left to Required/NilOrNotEmpty.
var NotNilUUID = validation.By(func(value interface{}) error {
	var id uuid.UUID
	switch v := value.(type) {
	case uuid.UUID:
		id = v
	case *uuid.UUID:
		if v == nil {
			return nil
		}
		id = *v
	default:
		return validation.NewError("validation_uuid_type", "must be a uuid")
	}
	if id == uuid.Nil {
		return validation.NewError("validation_not_nil_uuid", "must not be the nil uuid")
	}
	return nil
})

// UniqueStrings rejects a []string holding the same value twice.
var UniqueStrings = validation.By(func(value interface{}) error {
	values, ok := value.([]string)
	if !ok {
		return validation.NewError("validation_strings_type", "must be a list of strings")
	}
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, dup := seen[v]; dup {
			return validation.NewError("validation_unique", "must not contain duplicates")
		}
		seen[v] = struct{}{}
	}
	return nil
})
