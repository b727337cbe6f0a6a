package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/allisson/credvault/internal/database"
	apperrors "github.com/allisson/credvault/internal/errors"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

const accessLogColumns = `id, vault_id, user_id, action, success, error_kind, ip_address, user_agent,
	signature, created_at`

// PostgreSQLAccessLogRepository implements AccessLog persistence for PostgreSQL.
type PostgreSQLAccessLogRepository struct {
	db *sql.DB
}

// NewPostgreSQLAccessLogRepository creates a new PostgreSQL AccessLog repository instance.
func NewPostgreSQLAccessLogRepository(db *sql.DB) *PostgreSQLAccessLogRepository {
	return &PostgreSQLAccessLogRepository{db: db}
}

// Create appends an access log row.
func (p *PostgreSQLAccessLogRepository) Create(ctx context.Context, log *vaultDomain.AccessLog) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO vault_access_logs (` + accessLogColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := querier.ExecContext(
		ctx,
		query,
		log.ID,
		log.VaultID,
		log.UserID,
		log.Action,
		log.Success,
		log.ErrorKind,
		log.IPAddress,
		log.UserAgent,
		log.Signature,
		log.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create access log")
	}
	return nil
}

// ListByOwner lists rows for items owned by ownerID, newest first. Ownership is enforced
// by the join.
func (p *PostgreSQLAccessLogRepository) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	filter vaultDomain.AccessLogFilter,
) ([]*vaultDomain.AccessLog, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT l.id, l.vault_id, l.user_id, l.action, l.success, l.error_kind, l.ip_address,
			         l.user_agent, l.signature, l.created_at
			  FROM vault_access_logs l
			  JOIN vault_items i ON i.id = l.vault_id
			  WHERE i.owner_id = $1`
	args := []any{ownerID}

	if filter.VaultID != nil {
		args = append(args, *filter.VaultID)
		query += fmt.Sprintf(" AND l.vault_id = $%d", len(args))
	}

	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY l.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list access logs")
	}
	return collectPostgreSQLAccessLogs(rows)
}

// List lists every row, oldest first.
func (p *PostgreSQLAccessLogRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*vaultDomain.AccessLog, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + accessLogColumns + ` FROM vault_access_logs
			  ORDER BY created_at ASC, id ASC LIMIT $1 OFFSET $2`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list access logs")
	}
	return collectPostgreSQLAccessLogs(rows)
}

// DeleteByUser removes rows written by userID or referencing a secret owned by userID.
func (p *PostgreSQLAccessLogRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM vault_access_logs
			  WHERE user_id = $1 OR vault_id IN (SELECT id FROM vault_items WHERE owner_id = $1)`

	result, err := querier.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete access logs")
	}
	return rowsAffected(result)
}

func collectPostgreSQLAccessLogs(rows *sql.Rows) ([]*vaultDomain.AccessLog, error) {
	defer rows.Close() //nolint:errcheck

	logs := make([]*vaultDomain.AccessLog, 0)
	for rows.Next() {
		var log vaultDomain.AccessLog
		if err := rows.Scan(
			&log.ID,
			&log.VaultID,
			&log.UserID,
			&log.Action,
			&log.Success,
			&log.ErrorKind,
			&log.IPAddress,
			&log.UserAgent,
			&log.Signature,
			&log.CreatedAt,
		); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan access log")
		}
		logs = append(logs, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate access logs")
	}
	return logs, nil
}
