package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	vaultUseCase "github.com/allisson/credvault/internal/vault/usecase"
)

// RunPurgeUser erases every secret, share and access log row of a user, the same way a
// user.deleted event does. It is the manual path for deletions that missed the webhook.
func RunPurgeUser(
	ctx context.Context,
	purgeUseCase vaultUseCase.PurgeUseCase,
	logger *slog.Logger,
	writer io.Writer,
	userIDStr string,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil || userID == uuid.Nil {
		return fmt.Errorf("invalid user id: %q", userIDStr)
	}

	logger.Info("purging user data", slog.String("user_id", userID.String()))

	result, err := purgeUseCase.PurgeUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to purge user: %w", err)
	}

	if format == FormatJSON {
		return writeJSON(writer, result)
	}

	_, _ = fmt.Fprintf(writer, "Purged user %s\n", result.UserID)
	_, _ = fmt.Fprintf(writer, "  Secrets:     %d\n", result.Items)
	_, _ = fmt.Fprintf(writer, "  Shares:      %d\n", result.Shares)
	_, _ = fmt.Fprintf(writer, "  Access logs: %d\n", result.AccessLogs)
	_, _ = fmt.Fprintf(writer, "  Total:       %d\n", result.Total())
	return nil
}
