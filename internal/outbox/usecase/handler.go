package usecase

import (
	"context"
	"log/slog"

	apperrors "github.com/allisson/credvault/internal/errors"
	"github.com/allisson/credvault/internal/outbox/domain"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

// LogHandler delivers vault events to the structured log. Deployments that forward events
// to a broker plug in their own Handler instead.
type LogHandler struct {
	logger *slog.Logger
}

// NewLogHandler creates a LogHandler.
func NewLogHandler(logger *slog.Logger) *LogHandler {
	return &LogHandler{logger: logger}
}

// Handle logs secret lifecycle events. Unknown types are logged and acknowledged so they
// do not block the queue; an undecodable payload is a failed attempt.
func (h *LogHandler) Handle(ctx context.Context, event *domain.Event) error {
	switch vaultDomain.EventType(event.EventType) {
	case vaultDomain.EventSecretCreated,
		vaultDomain.EventSecretAccessed,
		vaultDomain.EventSecretUpdated,
		vaultDomain.EventSecretDeleted,
		vaultDomain.EventSecretShared,
		vaultDomain.EventSecretRotated:
	default:
		h.logger.WarnContext(ctx, "skipping unknown outbox event",
			slog.String("event_id", event.ID.String()),
			slog.String("event_type", event.EventType),
		)
		return nil
	}

	var payload vaultDomain.SecretEvent
	if err := event.Decode(&payload); err != nil {
		return apperrors.Wrap(err, "failed to decode event payload")
	}

	attrs := []slog.Attr{
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.EventType),
		slog.String("vault_id", payload.VaultID.String()),
		slog.String("user_id", payload.UserID.String()),
		slog.Time("timestamp", payload.Timestamp),
	}
	if payload.PermissionLevel != "" {
		attrs = append(attrs, slog.String("permission_level", payload.PermissionLevel.String()))
	}
	if payload.Decrypted != nil {
		attrs = append(attrs, slog.Bool("decrypted", *payload.Decrypted))
	}
	h.logger.LogAttrs(ctx, slog.LevelInfo, "vault event", attrs...)
	return nil
}
