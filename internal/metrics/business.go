package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OutcomeSuccess labels operations that returned no error.
const OutcomeSuccess = "success"

// BusinessMetrics records vault and outbox operations.
type BusinessMetrics interface {
	// RecordOperation counts one finished operation and records how long it took. outcome is
	// OutcomeSuccess or a stable failure kind such as "access_denied".
	RecordOperation(ctx context.Context, component, operation, outcome string, duration time.Duration)

	// RecordPurgedRows counts rows removed from table by a user purge.
	RecordPurgedRows(ctx context.Context, table string, rows int64)
}

type businessMetrics struct {
	operations metric.Int64Counter
	latency    metric.Float64Histogram
	purged     metric.Int64Counter
}

// NewBusinessMetrics creates the instruments on a meter named after namespace. Every
// instrument name is prefixed with the namespace.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operations, err := meter.Int64Counter(
		namespace+"_operations_total",
		metric.WithDescription("Vault and outbox operations by outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operations counter: %w", err)
	}

	latency, err := meter.Float64Histogram(
		namespace+"_operation_duration_seconds",
		metric.WithDescription("Latency of vault and outbox operations"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	purged, err := meter.Int64Counter(
		namespace+"_purged_rows_total",
		metric.WithDescription("Rows removed by user purges"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create purged rows counter: %w", err)
	}

	return &businessMetrics{operations: operations, latency: latency, purged: purged}, nil
}

func (b *businessMetrics) RecordOperation(
	ctx context.Context,
	component, operation, outcome string,
	duration time.Duration,
) {
	attrs := metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	)
	b.operations.Add(ctx, 1, attrs)
	b.latency.Record(ctx, duration.Seconds(), attrs)
}

func (b *businessMetrics) RecordPurgedRows(ctx context.Context, table string, rows int64) {
	if rows <= 0 {
		return
	}
	b.purged.Add(ctx, rows, metric.WithAttributes(attribute.String("table", table)))
}

// NoOpBusinessMetrics discards everything. Used when METRICS_ENABLED is false.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics returns a NoOpBusinessMetrics.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return NoOpBusinessMetrics{}
}

func (NoOpBusinessMetrics) RecordOperation(context.Context, string, string, string, time.Duration) {}

func (NoOpBusinessMetrics) RecordPurgedRows(context.Context, string, int64) {}
