// Package usecase implements the outbox dispatcher that delivers vault events written by
// the lifecycle use case.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/allisson/credvault/internal/database"
	apperrors "github.com/allisson/credvault/internal/errors"
	"github.com/allisson/credvault/internal/outbox/domain"
)

// Config tunes the dispatcher loop.
type Config struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// Repository is the outbox storage used by the dispatcher and, through Create, by the
// vault event publisher.
type Repository interface {
	Create(ctx context.Context, event *domain.Event) error
	ClaimPending(ctx context.Context, limit int) ([]*domain.Event, error)
	SaveDelivery(ctx context.Context, event *domain.Event) error
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Handler delivers one event. A returned error counts as a failed attempt.
type Handler interface {
	Handle(ctx context.Context, event *domain.Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event *domain.Event) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, event *domain.Event) error {
	return f(ctx, event)
}

// UseCase is the outbox surface used by the server and the CLI.
type UseCase interface {
	Start(ctx context.Context) error
	ProcessEvents(ctx context.Context) error
	Clean(ctx context.Context, days int) (int64, error)
}

// Dispatcher claims pending events in batches and hands each one to a Handler.
type Dispatcher struct {
	cfg     Config
	tx      database.TxManager
	repo    Repository
	handler Handler
	logger  *slog.Logger
	now     func() time.Time
}

// NewDispatcher creates a Dispatcher. A nil logger discards output.
func NewDispatcher(
	cfg Config,
	tx database.TxManager,
	repo Repository,
	handler Handler,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		cfg:     cfg,
		tx:      tx,
		repo:    repo,
		handler: handler,
		logger:  logger,
		now:     time.Now,
	}
}

// Start runs ProcessEvents every Interval until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	return poll(ctx, d.cfg, d.logger, d.ProcessEvents)
}

// poll is shared with the metrics decorator so its ticks go through the instrumented
// ProcessEvents.
func poll(ctx context.Context, cfg Config, logger *slog.Logger, tick func(context.Context) error) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Info("outbox dispatcher started",
		slog.Duration("interval", cfg.Interval),
		slog.Int("batch_size", cfg.BatchSize),
	)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("outbox dispatcher stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := tick(ctx); err != nil {
				logger.Error("outbox batch failed", slog.Any("error", err))
			}
		}
	}
}

// ProcessEvents delivers one batch inside a transaction. Handler failures are recorded on
// the event and do not abort the batch; storage failures roll the whole batch back.
func (d *Dispatcher) ProcessEvents(ctx context.Context) error {
	return d.tx.WithTx(ctx, func(ctx context.Context) error {
		events, err := d.repo.ClaimPending(ctx, d.cfg.BatchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		d.logger.Debug("outbox batch claimed", slog.Int("count", len(events)))

		for _, event := range events {
			d.deliver(ctx, event)
			if err := d.repo.SaveDelivery(ctx, event); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *Dispatcher) deliver(ctx context.Context, event *domain.Event) {
	if err := d.handler.Handle(ctx, event); err != nil {
		event.MarkAttemptFailed(err, d.cfg.MaxRetries, d.now())
		d.logger.Error("outbox delivery failed",
			slog.String("event_id", event.ID.String()),
			slog.String("event_type", event.EventType),
			slog.Int("retries", event.Retries),
			slog.String("status", string(event.Status)),
			slog.Any("error", err),
		)
		return
	}
	event.MarkProcessed(d.now())
}

// Clean removes events processed more than days days ago.
func (d *Dispatcher) Clean(ctx context.Context, days int) (int64, error) {
	if days < 0 {
		return 0, apperrors.Wrap(apperrors.ErrInvalidInput, "days must be greater than or equal to 0")
	}
	return d.repo.DeleteProcessedBefore(ctx, d.now().UTC().AddDate(0, 0, -days))
}
