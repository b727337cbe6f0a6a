package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/allisson/credvault/internal/metrics"
)

type dispatcherWithMetrics struct {
	next    UseCase
	config  Config
	metrics metrics.BusinessMetrics
	logger  *slog.Logger
}

// NewDispatcherWithMetrics records one operation sample per batch and per cleanup.
func NewDispatcherWithMetrics(
	useCase UseCase,
	config Config,
	m metrics.BusinessMetrics,
	logger *slog.Logger,
) UseCase {
	return &dispatcherWithMetrics{
		next:    useCase,
		config:  config,
		metrics: m,
		logger:  logger,
	}
}

func (o *dispatcherWithMetrics) Start(ctx context.Context) error {
	return poll(ctx, o.config, o.logger, o.ProcessEvents)
}

func (o *dispatcherWithMetrics) ProcessEvents(ctx context.Context) error {
	start := time.Now()
	err := o.next.ProcessEvents(ctx)

	o.record(ctx, "process_events", start, err)
	return err
}

func (o *dispatcherWithMetrics) Clean(ctx context.Context, days int) (int64, error) {
	start := time.Now()
	count, err := o.next.Clean(ctx, days)

	o.record(ctx, "clean", start, err)
	return count, err
}

func (o *dispatcherWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = "error"
	}
	o.metrics.RecordOperation(ctx, "outbox", operation, outcome, time.Since(start))
}
