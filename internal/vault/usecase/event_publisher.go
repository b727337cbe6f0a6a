package usecase

import (
	"context"

	apperrors "github.com/allisson/credvault/internal/errors"
	outboxDomain "github.com/allisson/credvault/internal/outbox/domain"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

// OutboxWriter stores outbox events. Implementations join the transaction in ctx.
type OutboxWriter interface {
	Create(ctx context.Context, event *outboxDomain.Event) error
}

// outboxEventPublisher implements EventPublisher on top of the transactional outbox.
type outboxEventPublisher struct {
	outboxRepo OutboxWriter
}

// Publish encodes payload as JSON and stores it as a pending outbox event.
func (p *outboxEventPublisher) Publish(
	ctx context.Context,
	eventType vaultDomain.EventType,
	payload any,
) error {
	event, err := outboxDomain.NewEvent(eventType.String(), payload)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode event")
	}

	if err := p.outboxRepo.Create(ctx, event); err != nil {
		return apperrors.Wrap(err, "failed to publish event")
	}

	return nil
}

// NewOutboxEventPublisher creates an EventPublisher that writes to outboxRepo.
func NewOutboxEventPublisher(outboxRepo OutboxWriter) EventPublisher {
	return &outboxEventPublisher{outboxRepo: outboxRepo}
}
