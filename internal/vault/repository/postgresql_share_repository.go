package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/allisson/credvault/internal/database"
	apperrors "github.com/allisson/credvault/internal/errors"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

const shareColumns = `id, vault_id, owner_id, shared_with_user_id, shared_with_org_id, permission_level,
	expires_at, is_active, created_at`

// PostgreSQLShareRepository implements VaultShare persistence for PostgreSQL.
type PostgreSQLShareRepository struct {
	db *sql.DB
}

// NewPostgreSQLShareRepository creates a new PostgreSQL VaultShare repository instance.
func NewPostgreSQLShareRepository(db *sql.DB) *PostgreSQLShareRepository {
	return &PostgreSQLShareRepository{db: db}
}

// Create inserts a new share.
func (p *PostgreSQLShareRepository) Create(ctx context.Context, share *vaultDomain.VaultShare) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO vault_shares (` + shareColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := querier.ExecContext(
		ctx,
		query,
		share.ID,
		share.VaultID,
		share.OwnerID,
		share.SharedWithUserID,
		share.SharedWithOrgID,
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
func (p *PostgreSQLShareRepository) Get(ctx context.Context, shareID uuid.UUID) (*vaultDomain.VaultShare, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + shareColumns + ` FROM vault_shares WHERE id = $1`

	share, err := scanPostgreSQLShare(querier.QueryRowContext(ctx, query, shareID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, vaultDomain.ErrShareNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get vault share")
	}
	return share, nil
}

// ListByVault lists every share of a vault item, oldest first.
func (p *PostgreSQLShareRepository) ListByVault(
	ctx context.Context,
	vaultID uuid.UUID,
) ([]*vaultDomain.VaultShare, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + shareColumns + ` FROM vault_shares WHERE vault_id = $1 ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, vaultID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list vault shares")
	}
	return collectPostgreSQLShares(rows)
}

// ListForPrincipal lists effective shares of active secrets targeting userID or one of
// orgIDs, newest first.
func (p *PostgreSQLShareRepository) ListForPrincipal(
	ctx context.Context,
	userID uuid.UUID,
	orgIDs []uuid.UUID,
	now time.Time,
	offset, limit int,
) ([]*vaultDomain.VaultShare, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + shareColumns + ` FROM vault_shares
			  WHERE is_active = TRUE
			    AND (expires_at IS NULL OR expires_at > $1)
			    AND (shared_with_user_id = $2 OR shared_with_org_id = ANY($3::uuid[]))
			    AND EXISTS (SELECT 1 FROM vault_items i WHERE i.id = vault_shares.vault_id AND i.is_active = TRUE)
			  ORDER BY created_at DESC
			  LIMIT $4 OFFSET $5`

	rows, err := querier.QueryContext(ctx, query, now, userID, pq.Array(uuidStrings(orgIDs)), limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list shares for principal")
	}
	return collectPostgreSQLShares(rows)
}

// Revoke deactivates a share.
func (p *PostgreSQLShareRepository) Revoke(ctx context.Context, shareID uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	if _, err := querier.ExecContext(ctx, `UPDATE vault_shares SET is_active = FALSE WHERE id = $1`, shareID); err != nil {
		return apperrors.Wrap(err, "failed to revoke vault share")
	}
	return nil
}

// DeleteByUser removes shares owned by or granted directly to userID.
func (p *PostgreSQLShareRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM vault_shares WHERE owner_id = $1 OR shared_with_user_id = $1`

	result, err := querier.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete vault shares")
	}
	return rowsAffected(result)
}

func collectPostgreSQLShares(rows *sql.Rows) ([]*vaultDomain.VaultShare, error) {
	defer rows.Close() //nolint:errcheck

	shares := make([]*vaultDomain.VaultShare, 0)
	for rows.Next() {
		share, err := scanPostgreSQLShare(rows)
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

func scanPostgreSQLShare(row rowScanner) (*vaultDomain.VaultShare, error) {
	var share vaultDomain.VaultShare
	err := row.Scan(
		&share.ID,
		&share.VaultID,
		&share.OwnerID,
		&share.SharedWithUserID,
		&share.SharedWithOrgID,
		&share.PermissionLevel,
		&share.ExpiresAt,
		&share.IsActive,
		&share.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &share, nil
}
