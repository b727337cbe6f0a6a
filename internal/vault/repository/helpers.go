package repository

import (
	"database/sql"

	"github.com/google/uuid"

	apperrors "github.com/allisson/credvault/internal/errors"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func rowsAffected(result sql.Result) (int64, error) {
	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return count, nil
}

// checkCompareAndSet maps a zero-row update to a version conflict.
func checkCompareAndSet(result sql.Result) error {
	count, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if count == 0 {
		return vaultDomain.ErrVersionConflict
	}
	return nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// MySQL stores UUIDs as BINARY(16).

func marshalUUID(id uuid.UUID) ([]byte, error) {
	b, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal uuid")
	}
	return b, nil
}

func marshalNullableUUID(id *uuid.UUID) (any, error) {
	if id == nil {
		return nil, nil
	}
	return marshalUUID(*id)
}

func unmarshalUUID(b []byte, dst *uuid.UUID) error {
	if err := dst.UnmarshalBinary(b); err != nil {
		return apperrors.Wrap(err, "failed to unmarshal uuid")
	}
	return nil
}

func unmarshalNullableUUID(b []byte) (*uuid.UUID, error) {
	if b == nil {
		return nil, nil
	}
	var id uuid.UUID
	if err := unmarshalUUID(b, &id); err != nil {
		return nil, err
	}
	return &id, nil
}
