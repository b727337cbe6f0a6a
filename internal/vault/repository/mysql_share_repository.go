package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/credvault/internal/database"
	apperrors "github.com/allisson/credvault/internal/errors"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

// MySQLShareRepository implements VaultShare persistence for MySQL.
type MySQLShareRepository struct {
	db *sql.DB
}

// NewMySQLShareRepository creates a new MySQL VaultShare repository instance.
func NewMySQLShareRepository(db *sql.DB) *MySQLShareRepository {
	return &MySQLShareRepository{db: db}
}

// Create inserts a new share.
func (m *MySQLShareRepository) Create(ctx context.Context, share *vaultDomain.VaultShare) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO vault_shares (` + shareColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := marshalUUID(share.ID)
	if err != nil {
		return err
	}
	vaultID, err := marshalUUID(share.VaultID)
	if err != nil {
		return err
	}
	ownerID, err := marshalUUID(share.OwnerID)
	if err != nil {
		return err
	}
	userID, err := marshalNullableUUID(share.SharedWithUserID)
	if err != nil {
		return err
	}
	orgID, err := marshalNullableUUID(share.SharedWithOrgID)
	if err != nil {
		return err
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		vaultID,
		ownerID,
		userID,
		orgID,
		share.PermissionLevel,
		share.ExpiresAt,
		share.IsActive,
		share.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create vault share")
	}
	return nil
}

// Get retrieves a share by id.
func (m *MySQLShareRepository) Get(ctx context.Context, shareID uuid.UUID) (*vaultDomain.VaultShare, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(shareID)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + shareColumns + ` FROM vault_shares WHERE id = ?`

	share, err := scanMySQLShare(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vaultDomain.ErrShareNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get vault share")
	}
	return share, nil
}

// ListByVault lists every share of a vault item, oldest first.
func (m *MySQLShareRepository) ListByVault(
	ctx context.Context,
	vaultID uuid.UUID,
) ([]*vaultDomain.VaultShare, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(vaultID)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + shareColumns + ` FROM vault_shares WHERE vault_id = ? ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list vault shares")
	}
	return collectMySQLShares(rows)
}

// ListForPrincipal lists effective shares of active secrets targeting userID or one of
// orgIDs, newest first.
func (m *MySQLShareRepository) ListForPrincipal(
	ctx context.Context,
	userID uuid.UUID,
	orgIDs []uuid.UUID,
	now time.Time,
	offset, limit int,
) ([]*vaultDomain.VaultShare, error) {
	querier := database.GetTx(ctx, m.db)

	user, err := marshalUUID(userID)
	if err != nil {
		return nil, err
	}

	target := "shared_with_user_id = ?"
	args := []any{now, user}
	if len(orgIDs) > 0 {
		placeholders := make([]string, len(orgIDs))
		for i, orgID := range orgIDs {
			org, err := marshalUUID(orgID)
			if err != nil {
				return nil, err
			}
			placeholders[i] = "?"
			args = append(args, org)
		}
		target += " OR shared_with_org_id IN (" + strings.Join(placeholders, ", ") + ")"
	}
	args = append(args, limit, offset)

	query := `SELECT ` + shareColumns + ` FROM vault_shares
			  WHERE is_active = TRUE
			    AND (expires_at IS NULL OR expires_at > ?)
			    AND (` + target + `)
			    AND EXISTS (SELECT 1 FROM vault_items i WHERE i.id = vault_shares.vault_id AND i.is_active = TRUE)
			  ORDER BY created_at DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list shares for principal")
	}
	return collectMySQLShares(rows)
}

// Revoke deactivates a share.
func (m *MySQLShareRepository) Revoke(ctx context.Context, shareID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	id, err := marshalUUID(shareID)
	if err != nil {
		return err
	}

	if _, err := querier.ExecContext(ctx, `UPDATE vault_shares SET is_active = FALSE WHERE id = ?`, id); err != nil {
		return apperrors.Wrap(err, "failed to revoke vault share")
	}
	return nil
}

// DeleteByUser removes shares owned by or granted directly to userID.
func (m *MySQLShareRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	user, err := marshalUUID(userID)
	if err != nil {
		return 0, err
	}

	query := `DELETE FROM vault_shares WHERE owner_id = ? OR shared_with_user_id = ?`

	result, err := querier.ExecContext(ctx, query, user, user)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete vault shares")
	}
	return rowsAffected(result)
}

func collectMySQLShares(rows *sql.Rows) ([]*vaultDomain.VaultShare, error) {
	defer rows.Close() //nolint:errcheck

	shares := make([]*vaultDomain.VaultShare, 0)
	for rows.Next() {
		share, err := scanMySQLShare(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan vault share")
		}
		shares = append(shares, share)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate vault shares")
	}
	return shares, nil
}

func scanMySQLShare(row rowScanner) (*vaultDomain.VaultShare, error) {
	var share vaultDomain.VaultShare
	var id, vaultID, ownerID, userID, orgID []byte

	err := row.Scan(
		&id,
		&vaultID,
		&ownerID,
		&userID,
		&orgID,
		&share.PermissionLevel,
		&share.ExpiresAt,
		&share.IsActive,
		&share.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalUUID(id, &share.ID); err != nil {
		return nil, err
	}
	if err := unmarshalUUID(vaultID, &share.VaultID); err != nil {
		return nil, err
	}
	if err := unmarshalUUID(ownerID, &share.OwnerID); err != nil {
		return nil, err
	}
	if share.SharedWithUserID, err = unmarshalNullableUUID(userID); err != nil {
		return nil, err
	}
	if share.SharedWithOrgID, err = unmarshalNullableUUID(orgID); err != nil {
		return nil, err
	}

	return &share, nil
}
