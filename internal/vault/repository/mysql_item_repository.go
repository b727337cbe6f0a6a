package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/credvault/internal/database"
	apperrors "github.com/allisson/credvault/internal/errors"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

// MySQLItemRepository implements VaultItem persistence for MySQL. Tags are stored as a
// JSON array.
type MySQLItemRepository struct {
	db *sql.DB
}

// NewMySQLItemRepository creates a new MySQL VaultItem repository instance.
func NewMySQLItemRepository(db *sql.DB) *MySQLItemRepository {
	return &MySQLItemRepository{db: db}
}

// Create inserts a new vault item.
func (m *MySQLItemRepository) Create(ctx context.Context, item *vaultDomain.VaultItem) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO vault_items (` + itemColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := marshalUUID(item.ID)
	if err != nil {
		return err
	}
	ownerID, err := marshalUUID(item.OwnerID)
	if err != nil {
		return err
	}
	tags, err := json.Marshal(tagsOrEmpty(item.Tags))
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal tags")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		ownerID,
		item.SecretType,
		item.Name,
		string(tags),
		item.Provider,
		item.EncryptedValue,
		item.WrappedDataKey,
		item.KeyDerivationSalt,
		item.Nonce,
		item.Algorithm,
		item.Version,
		item.IsActive,
		item.AccessCount,
		item.LastAccessedAt,
		item.CreatedAt,
		item.UpdatedAt,
		item.ExpiresAt,
		item.RotationDays,
		item.BlockchainReference,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create vault item")
	}
	return nil
}

// Get retrieves a vault item by id regardless of its active state.
func (m *MySQLItemRepository) Get(ctx context.Context, vaultID uuid.UUID) (*vaultDomain.VaultItem, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(vaultID)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + itemColumns + ` FROM vault_items WHERE id = ?`

	item, err := scanMySQLItem(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vaultDomain.ErrSecretNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get vault item")
	}
	return item, nil
}

// Update writes the mutable columns guarded by a compare-and-set on version. Inactive rows
// never match.
func (m *MySQLItemRepository) Update(
	ctx context.Context,
	item *vaultDomain.VaultItem,
	expectedVersion uint,
) error {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(item.ID)
	if err != nil {
		return err
	}
	tags, err := json.Marshal(tagsOrEmpty(item.Tags))
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal tags")
	}

	query := `UPDATE vault_items
			  SET name = ?, tags = ?, provider = ?, encrypted_value = ?, wrapped_data_key = ?,
			      key_derivation_salt = ?, nonce = ?, algorithm = ?, version = ?, updated_at = ?,
			      expires_at = ?, rotation_days = ?
			  WHERE id = ? AND version = ? AND is_active = TRUE`

	result, err := querier.ExecContext(
		ctx,
		query,
		item.Name,
		string(tags),
		item.Provider,
		item.EncryptedValue,
		item.WrappedDataKey,
		item.KeyDerivationSalt,
		item.Nonce,
		item.Algorithm,
		item.Version,
		item.UpdatedAt,
		item.ExpiresAt,
		item.RotationDays,
		id,
		expectedVersion,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update vault item")
	}

	return checkCompareAndSet(result)
}

// IncrementAccess bumps access_count atomically in the database and records the access time.
func (m *MySQLItemRepository) IncrementAccess(ctx context.Context, vaultID uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(vaultID)
	if err != nil {
		return err
	}

	query := `UPDATE vault_items SET access_count = access_count + 1, last_accessed_at = ? WHERE id = ?`

	if _, err := querier.ExecContext(ctx, query, at, id); err != nil {
		return apperrors.Wrap(err, "failed to increment access count")
	}
	return nil
}

// Deactivate soft-deletes a vault item.
func (m *MySQLItemRepository) Deactivate(ctx context.Context, vaultID uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(vaultID)
	if err != nil {
		return err
	}

	if _, err := querier.ExecContext(ctx, `UPDATE vault_items SET is_active = FALSE, updated_at = ? WHERE id = ?`, at, id); err != nil {
		return apperrors.Wrap(err, "failed to deactivate vault item")
	}
	return nil
}

// SetBlockchainReference stores the notarization reference of a vault item.
func (m *MySQLItemRepository) SetBlockchainReference(
	ctx context.Context,
	vaultID uuid.UUID,
	reference string,
) error {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(vaultID)
	if err != nil {
		return err
	}

	if _, err := querier.ExecContext(ctx, `UPDATE vault_items SET blockchain_reference = ? WHERE id = ?`, reference, id); err != nil {
		return apperrors.Wrap(err, "failed to set blockchain reference")
	}
	return nil
}

// ListByOwner lists active items owned by ownerID. Tags match with JSON_CONTAINS.
func (m *MySQLItemRepository) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	filter vaultDomain.ListFilter,
) ([]*vaultDomain.VaultItem, error) {
	querier := database.GetTx(ctx, m.db)

	owner, err := marshalUUID(ownerID)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + itemColumns + ` FROM vault_items WHERE owner_id = ? AND is_active = TRUE`
	args := []any{owner}

	if filter.SecretType != nil {
		query += " AND secret_type = ?"
		args = append(args, *filter.SecretType)
	}
	if len(filter.Tags) > 0 {
		tags, err := json.Marshal(filter.Tags)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to marshal tag filter")
		}
		query += " AND JSON_CONTAINS(tags, ?)"
		args = append(args, string(tags))
	}

	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list vault items")
	}
	defer rows.Close() //nolint:errcheck

	items := make([]*vaultDomain.VaultItem, 0)
	for rows.Next() {
		item, err := scanMySQLItem(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan vault item")
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate vault items")
	}

	return items, nil
}

// Stats aggregates every item owned by ownerID, active or not.
func (m *MySQLItemRepository) Stats(
	ctx context.Context,
	ownerID uuid.UUID,
	now time.Time,
) (*vaultDomain.Stats, error) {
	querier := database.GetTx(ctx, m.db)

	owner, err := marshalUUID(ownerID)
	if err != nil {
		return nil, err
	}

	query := `SELECT secret_type, provider, is_active, expires_at, rotation_days, updated_at
			  FROM vault_items WHERE owner_id = ?`

	rows, err := querier.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to query vault stats")
	}
	defer rows.Close() //nolint:errcheck

	stats := vaultDomain.NewStats()
	for rows.Next() {
		var item vaultDomain.VaultItem
		if err := rows.Scan(
			&item.SecretType,
			&item.Provider,
			&item.IsActive,
			&item.ExpiresAt,
			&item.RotationDays,
			&item.UpdatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan vault stats")
		}
		stats.Add(&item, now)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate vault stats")
	}

	return stats, nil
}

// DeleteByOwner physically removes every item owned by ownerID.
func (m *MySQLItemRepository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	owner, err := marshalUUID(ownerID)
	if err != nil {
		return 0, err
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM vault_items WHERE owner_id = ?`, owner)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete vault items")
	}
	return rowsAffected(result)
}

func scanMySQLItem(row rowScanner) (*vaultDomain.VaultItem, error) {
	var item vaultDomain.VaultItem
	var id, ownerID, tags []byte

	err := row.Scan(
		&id,
		&ownerID,
		&item.SecretType,
		&item.Name,
		&tags,
		&item.Provider,
		&item.EncryptedValue,
		&item.WrappedDataKey,
		&item.KeyDerivationSalt,
		&item.Nonce,
		&item.Algorithm,
		&item.Version,
		&item.IsActive,
		&item.AccessCount,
		&item.LastAccessedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
		&item.ExpiresAt,
		&item.RotationDays,
		&item.BlockchainReference,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalUUID(id, &item.ID); err != nil {
		return nil, err
	}
	if err := unmarshalUUID(ownerID, &item.OwnerID); err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &item.Tags); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal tags")
		}
	}

	return &item, nil
}
