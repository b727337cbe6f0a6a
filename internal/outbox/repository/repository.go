// Package repository persists outbox events in PostgreSQL or MySQL. Both dialects share
// one set of queries; they differ only in placeholders and in how the id column is
// encoded.
package repository

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/credvault/internal/database"
	apperrors "github.com/allisson/credvault/internal/errors"
	"github.com/allisson/credvault/internal/outbox/domain"
)

const eventColumns = "id, event_type, payload, status, retries, last_error, processed_at, created_at, updated_at"

type dialect struct {
	numbered bool
	encodeID func(uuid.UUID) (any, error)
	decodeID func([]byte) (uuid.UUID, error)
}

// PostgreSQL keeps ids in a native UUID column.
var postgres = dialect{
	numbered: true,
	encodeID: func(id uuid.UUID) (any, error) { return id.String(), nil },
	decodeID: uuid.ParseBytes,
}

// MySQL keeps ids in BINARY(16).
var mysql = dialect{
	encodeID: func(id uuid.UUID) (any, error) { return id.MarshalBinary() },
	decodeID: uuid.FromBytes,
}

// bind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func (d dialect) bind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Repository stores outbox events. Every method joins the transaction in ctx.
type Repository struct {
	db *sql.DB
	d  dialect
}

// NewPostgreSQLRepository returns a Repository for PostgreSQL.
func NewPostgreSQLRepository(db *sql.DB) *Repository {
	return &Repository{db: db, d: postgres}
}

// NewMySQLRepository returns a Repository for MySQL.
func NewMySQLRepository(db *sql.DB) *Repository {
	return &Repository{db: db, d: mysql}
}

// Create inserts event.
func (r *Repository) Create(ctx context.Context, event *domain.Event) error {
	id, err := r.d.encodeID(event.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode outbox event id")
	}

	query := r.d.bind(`INSERT INTO outbox_events (` + eventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	_, err = database.GetTx(ctx, r.db).ExecContext(ctx, query,
		id, event.EventType, event.Payload, event.Status, event.Retries,
		event.LastError, event.ProcessedAt, event.CreatedAt, event.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, "failed to create outbox event")
	}
	return nil
}

// ClaimPending returns up to limit pending events, oldest first. The rows stay locked
// until the surrounding transaction ends; rows locked by another worker are skipped.
func (r *Repository) ClaimPending(ctx context.Context, limit int) ([]*domain.Event, error) {
	query := r.d.bind(`SELECT ` + eventColumns + ` FROM outbox_events
		WHERE status = ?
		ORDER BY created_at
		LIMIT ?
		FOR UPDATE SKIP LOCKED`)

	rows, err := database.GetTx(ctx, r.db).QueryContext(ctx, query, domain.StatusPending, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to claim outbox events")
	}
	defer rows.Close() //nolint:errcheck

	events := []*domain.Event{}
	for rows.Next() {
		event, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate outbox events")
	}
	return events, nil
}

func (r *Repository) scan(rows *sql.Rows) (*domain.Event, error) {
	var (
		event domain.Event
		rawID []byte
	)
	err := rows.Scan(&rawID, &event.EventType, &event.Payload, &event.Status, &event.Retries,
		&event.LastError, &event.ProcessedAt, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan outbox event")
	}
	if event.ID, err = r.d.decodeID(rawID); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode outbox event id")
	}
	return &event, nil
}

// SaveDelivery writes the delivery columns of event: status, retries, last_error,
// processed_at and updated_at.
func (r *Repository) SaveDelivery(ctx context.Context, event *domain.Event) error {
	id, err := r.d.encodeID(event.ID)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode outbox event id")
	}

	query := r.d.bind(`UPDATE outbox_events
		SET status = ?, retries = ?, last_error = ?, processed_at = ?, updated_at = ?
		WHERE id = ?`)

	_, err = database.GetTx(ctx, r.db).ExecContext(ctx, query,
		event.Status, event.Retries, event.LastError, event.ProcessedAt, event.UpdatedAt, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to save outbox event delivery")
	}
	return nil
}

// DeleteProcessedBefore removes processed events delivered before cutoff. Failed events
// are kept for inspection.
func (r *Repository) DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := r.d.bind(`DELETE FROM outbox_events WHERE status = ? AND processed_at < ?`)

	result, err := database.GetTx(ctx, r.db).ExecContext(ctx, query, domain.StatusProcessed, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete processed outbox events")
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return count, nil
}
