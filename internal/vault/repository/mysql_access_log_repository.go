package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/credvault/internal/database"
	apperrors "github.com/allisson/credvault/internal/errors"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

// MySQLAccessLogRepository implements AccessLog persistence for MySQL.
type MySQLAccessLogRepository struct {
	db *sql.DB
}

// NewMySQLAccessLogRepository creates a new MySQL AccessLog repository instance.
func NewMySQLAccessLogRepository(db *sql.DB) *MySQLAccessLogRepository {
	return &MySQLAccessLogRepository{db: db}
}

// Create appends an access log row.
func (m *MySQLAccessLogRepository) Create(ctx context.Context, log *vaultDomain.AccessLog) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO vault_access_logs (` + accessLogColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := marshalUUID(log.ID)
	if err != nil {
		return err
	}
	vaultID, err := marshalUUID(log.VaultID)
	if err != nil {
		return err
	}
	userID, err := marshalUUID(log.UserID)
	if err != nil {
		return err
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		vaultID,
		userID,
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

// ListByOwner lists rows for items owned by ownerID, newest first.
func (m *MySQLAccessLogRepository) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	filter vaultDomain.AccessLogFilter,
) ([]*vaultDomain.AccessLog, error) {
	querier := database.GetTx(ctx, m.db)

	owner, err := marshalUUID(ownerID)
	if err != nil {
		return nil, err
	}

	query := `SELECT l.id, l.vault_id, l.user_id, l.action, l.success, l.error_kind, l.ip_address,
			         l.user_agent, l.signature, l.created_at
			  FROM vault_access_logs l
			  JOIN vault_items i ON i.id = l.vault_id
			  WHERE i.owner_id = ?`
	args := []any{owner}

	if filter.VaultID != nil {
		vaultID, err := marshalUUID(*filter.VaultID)
		if err != nil {
			return nil, err
		}
		query += " AND l.vault_id = ?"
		args = append(args, vaultID)
	}

	query += " ORDER BY l.created_at DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list access logs")
	}
	return collectMySQLAccessLogs(rows)
}

// List lists every row, oldest first.
func (m *MySQLAccessLogRepository) List(ctx context.Context, offset, limit int) ([]*vaultDomain.AccessLog, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + accessLogColumns + ` FROM vault_access_logs
			  ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list access logs")
	}
	return collectMySQLAccessLogs(rows)
}

// DeleteByUser removes rows written by userID or referencing a secret owned by userID.
func (m *MySQLAccessLogRepository) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	user, err := marshalUUID(userID)
	if err != nil {
		return 0, err
	}

	query := `DELETE FROM vault_access_logs
			  WHERE user_id = ? OR vault_id IN (SELECT id FROM vault_items WHERE owner_id = ?)`

	result, err := querier.ExecContext(ctx, query, user, user)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete access logs")
	}
	return rowsAffected(result)
}

func collectMySQLAccessLogs(rows *sql.Rows) ([]*vaultDomain.AccessLog, error) {
	defer rows.Close() //nolint:errcheck

	logs := make([]*vaultDomain.AccessLog, 0)
	for rows.Next() {
		var log vaultDomain.AccessLog
		var id, vaultID, userID []byte

		if err := rows.Scan(
			&id,
			&vaultID,
			&userID,
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

		if err := unmarshalUUID(id, &log.ID); err != nil {
			return nil, err
		}
		if err := unmarshalUUID(vaultID, &log.VaultID); err != nil {
			return nil, err
		}
		if err := unmarshalUUID(userID, &log.UserID); err != nil {
			return nil, err
		}

		logs = append(logs, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate access logs")
	}
	return logs, nil
}
