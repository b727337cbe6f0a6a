// Package repository implements vault persistence for PostgreSQL and MySQL. Every query
// runs on the transaction carried by ctx when there is one.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/allisson/credvault/internal/database"
	apperrors "github.com/allisson/credvault/internal/errors"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

const itemColumns = `id, owner_id, secret_type, name, tags, provider, encrypted_value, wrapped_data_key,
	key_derivation_salt, nonce, algorithm, version, is_active, access_count, last_accessed_at,
	created_at, updated_at, expires_at, rotation_days, blockchain_reference`

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgreSQLItemRepository implements VaultItem persistence for PostgreSQL.
type PostgreSQLItemRepository struct {
	db *sql.DB
}

// NewPostgreSQLItemRepository creates a new PostgreSQL VaultItem repository instance.
func NewPostgreSQLItemRepository(db *sql.DB) *PostgreSQLItemRepository {
	return &PostgreSQLItemRepository{db: db}
}

// Create inserts a new vault item.
func (p *PostgreSQLItemRepository) Create(ctx context.Context, item *vaultDomain.VaultItem) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO vault_items (` + itemColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err := querier.ExecContext(
		ctx,
		query,
		item.ID,
		item.OwnerID,
		item.SecretType,
		item.Name,
		pq.Array(tagsOrEmpty(item.Tags)),
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
func (p *PostgreSQLItemRepository) Get(ctx context.Context, vaultID uuid.UUID) (*vaultDomain.VaultItem, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + itemColumns + ` FROM vault_items WHERE id = $1`

	item, err := scanPostgreSQLItem(querier.QueryRowContext(ctx, query, vaultID))
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
func (p *PostgreSQLItemRepository) Update(
	ctx context.Context,
	item *vaultDomain.VaultItem,
	expectedVersion uint,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE vault_items
			  SET name = $1, tags = $2, provider = $3, encrypted_value = $4, wrapped_data_key = $5,
			      key_derivation_salt = $6, nonce = $7, algorithm = $8, version = $9, updated_at = $10,
			      expires_at = $11, rotation_days = $12
			  WHERE id = $13 AND version = $14 AND is_active = TRUE`

	result, err := querier.ExecContext(
		ctx,
		query,
		item.Name,
		pq.Array(tagsOrEmpty(item.Tags)),
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
		item.ID,
		expectedVersion,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update vault item")
	}

	return checkCompareAndSet(result)
}

// IncrementAccess bumps access_count atomically in the database and records the access time.
func (p *PostgreSQLItemRepository) IncrementAccess(ctx context.Context, vaultID uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE vault_items SET access_count = access_count + 1, last_accessed_at = $1 WHERE id = $2`

	if _, err := querier.ExecContext(ctx, query, at, vaultID); err != nil {
		return apperrors.Wrap(err, "failed to increment access count")
	}
	return nil
}

// Deactivate soft-deletes a vault item.
func (p *PostgreSQLItemRepository) Deactivate(ctx context.Context, vaultID uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE vault_items SET is_active = FALSE, updated_at = $1 WHERE id = $2`

	if _, err := querier.ExecContext(ctx, query, at, vaultID); err != nil {
		return apperrors.Wrap(err, "failed to deactivate vault item")
	}
	return nil
}

// SetBlockchainReference stores the notarization reference of a vault item.
func (p *PostgreSQLItemRepository) SetBlockchainReference(
	ctx context.Context,
	vaultID uuid.UUID,
	reference string,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE vault_items SET blockchain_reference = $1 WHERE id = $2`

	if _, err := querier.ExecContext(ctx, query, reference, vaultID); err != nil {
		return apperrors.Wrap(err, "failed to set blockchain reference")
	}
	return nil
}

// ListByOwner lists active items owned by ownerID. Tags match with array containment.
func (p *PostgreSQLItemRepository) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	filter vaultDomain.ListFilter,
) ([]*vaultDomain.VaultItem, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + itemColumns + ` FROM vault_items WHERE owner_id = $1 AND is_active = TRUE`
	args := []any{ownerID}

	if filter.SecretType != nil {
		args = append(args, *filter.SecretType)
		query += fmt.Sprintf(" AND secret_type = $%d", len(args))
	}
	if len(filter.Tags) > 0 {
		args = append(args, pq.Array(filter.Tags))
		query += fmt.Sprintf(" AND tags @> $%d", len(args))
	}

	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list vault items")
	}
	defer rows.Close() //nolint:errcheck

	items := make([]*vaultDomain.VaultItem, 0)
	for rows.Next() {
		item, err := scanPostgreSQLItem(rows)
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
func (p *PostgreSQLItemRepository) Stats(
	ctx context.Context,
	ownerID uuid.UUID,
	now time.Time,
) (*vaultDomain.Stats, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT secret_type, provider, is_active, expires_at, rotation_days, updated_at
			  FROM vault_items WHERE owner_id = $1`

	rows, err := querier.QueryContext(ctx, query, ownerID)
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
func (p *PostgreSQLItemRepository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM vault_items WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete vault items")
	}
	return rowsAffected(result)
}

func scanPostgreSQLItem(row rowScanner) (*vaultDomain.VaultItem, error) {
	var item vaultDomain.VaultItem
	err := row.Scan(
		&item.ID,
		&item.OwnerID,
		&item.SecretType,
		&item.Name,
		pq.Array(&item.Tags),
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
	return &item, nil
}
