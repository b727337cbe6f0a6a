package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

// AccessLogVerifier checks the signatures of stored access log rows.
type AccessLogVerifier interface {
	VerifyAll(ctx context.Context, batchSize int) (*vaultDomain.VerificationReport, error)
}

// RunVerifyAccessLogs verifies the HMAC signature of every access log row and fails when
// any signed row does not match. Unsigned rows are reported but do not fail the check.
func RunVerifyAccessLogs(
	ctx context.Context,
	verifier AccessLogVerifier,
	logger *slog.Logger,
	writer io.Writer,
	batchSize int,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("verifying access logs", slog.Int("batch_size", batchSize))

	report, err := verifier.VerifyAll(ctx, batchSize)
	if err != nil {
		return fmt.Errorf("failed to verify access logs: %w", err)
	}

	if format == FormatJSON {
		if err := writeJSON(writer, struct {
			*vaultDomain.VerificationReport
			Passed bool `json:"passed"`
		}{report, report.Passed()}); err != nil {
			return err
		}
	} else {
		outputVerifyText(writer, report)
	}

	logger.Info("verification completed",
		slog.Int64("total", report.Total),
		slog.Int64("valid", report.Valid),
		slog.Int64("unsigned", report.Unsigned),
		slog.Int("invalid", len(report.Invalid)),
	)

	if !report.Passed() {
		return fmt.Errorf("integrity check failed: %d invalid signature(s)", len(report.Invalid))
	}
	return nil
}

func outputVerifyText(writer io.Writer, report *vaultDomain.VerificationReport) {
	_, _ = fmt.Fprintf(writer, "Access Log Integrity Verification\n\n")
	_, _ = fmt.Fprintf(writer, "Total:     %d\n", report.Total)
	_, _ = fmt.Fprintf(writer, "Valid:     %d\n", report.Valid)
	_, _ = fmt.Fprintf(writer, "Unsigned:  %d\n", report.Unsigned)
	_, _ = fmt.Fprintf(writer, "Invalid:   %d\n\n", len(report.Invalid))

	switch {
	case !report.Passed():
		_, _ = fmt.Fprintf(writer, "Invalid log ids:\n")
		for _, id := range report.Invalid {
			_, _ = fmt.Fprintf(writer, "  - %s\n", id)
		}
		_, _ = fmt.Fprintf(writer, "\nStatus: FAILED\n")
	case report.Total == 0:
		_, _ = fmt.Fprintf(writer, "Status: no access logs found\n")
	default:
		_, _ = fmt.Fprintf(writer, "Status: PASSED\n")
	}
}
