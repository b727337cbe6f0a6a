package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	outboxUseCase "github.com/allisson/credvault/internal/outbox/usecase"
)

// RunCleanOutbox deletes dispatched outbox events older than days.
func RunCleanOutbox(
	ctx context.Context,
	useCase outboxUseCase.UseCase,
	logger *slog.Logger,
	writer io.Writer,
	days int,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}
	if days < 0 {
		return fmt.Errorf("days must be a positive number, got: %d", days)
	}

	logger.Info("cleaning outbox events", slog.Int("days", days))

	count, err := useCase.Clean(ctx, days)
	if err != nil {
		return fmt.Errorf("failed to clean outbox events: %w", err)
	}

	if format == FormatJSON {
		return writeJSON(writer, map[string]any{"count": count, "days": days})
	}
	_, _ = fmt.Fprintf(writer, "Deleted %d outbox event(s) older than %d day(s)\n", count, days)
	return nil
}
