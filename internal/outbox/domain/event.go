// Package domain defines the transactional outbox record. Vault writes an Event in the same
// transaction as the state change it describes; the dispatcher later hands it to a Handler.
package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the delivery state of an Event.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
)

// Event is one row of outbox_events.
type Event struct {
	ID          uuid.UUID
	EventType   string
	Payload     string
	Status      Status
	Retries     int
	LastError   *string
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewEvent returns a pending event with payload encoded as JSON.
func NewEvent(eventType string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", eventType, err)
	}

	now := time.Now().UTC()
	return &Event{
		ID:        uuid.Must(uuid.NewV7()),
		EventType: eventType,
		Payload:   string(data),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal([]byte(e.Payload), v)
}

// MarkProcessed records a successful delivery.
func (e *Event) MarkProcessed(at time.Time) {
	at = at.UTC()
	e.Status = StatusProcessed
	e.ProcessedAt = &at
	e.UpdatedAt = at
}

// MarkAttemptFailed counts a failed delivery. The event stays pending until maxRetries
// attempts have failed, then it is parked as failed and never picked up again.
func (e *Event) MarkAttemptFailed(cause error, maxRetries int, at time.Time) {
	msg := cause.Error()
	e.Retries++
	e.LastError = &msg
	e.UpdatedAt = at.UTC()
	if e.Retries >= maxRetries {
		e.Status = StatusFailed
	}
}
