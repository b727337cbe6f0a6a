package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	apperrors "github.com/allisson/credvault/internal/errors"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
	vaultService "github.com/allisson/credvault/internal/vault/service"
)

// AuditLogger writes one signed access log row per lifecycle call.
type AuditLogger struct {
	accessLogRepo AccessLogRepository
	signer        vaultService.AccessLogSigner
	logger        *slog.Logger
	now           func() time.Time
}

// NewAuditLogger creates an AuditLogger.
func NewAuditLogger(
	accessLogRepo AccessLogRepository,
	signer vaultService.AccessLogSigner,
	logger *slog.Logger,
) *AuditLogger {
	return &AuditLogger{
		accessLogRepo: accessLogRepo,
		signer:        signer,
		logger:        logger,
		now:           time.Now,
	}
}

// Record appends a row for action on vaultID by userID. A nil opErr records success,
// otherwise the row carries the error's kind. Client metadata comes from
// authDomain.GetRequestInfo.
//
// The write ignores cancellation of ctx so that a disconnecting client still leaves a
// row behind. Failures are logged and returned; callers never fail the operation on them.
func (a *AuditLogger) Record(
	ctx context.Context,
	vaultID, userID uuid.UUID,
	action vaultDomain.Action,
	opErr error,
) error {
	info := authDomain.GetRequestInfo(ctx)

	entry := &vaultDomain.AccessLog{
		ID:        uuid.Must(uuid.NewV7()),
		VaultID:   vaultID,
		UserID:    userID,
		Action:    action,
		Success:   opErr == nil,
		ErrorKind: vaultDomain.Kind(opErr),
		IPAddress: info.IPAddress,
		UserAgent: info.UserAgent,
		CreatedAt: a.now().UTC().Truncate(time.Microsecond),
	}

	signature, err := a.signer.Sign(entry)
	if err == nil {
		entry.Signature = signature
		err = a.accessLogRepo.Create(context.WithoutCancel(ctx), entry)
	}
	if err != nil {
		a.logger.Error("failed to write access log",
			slog.String("vault_id", vaultID.String()),
			slog.String("user_id", userID.String()),
			slog.String("action", action.String()),
			slog.Bool("success", entry.Success),
			slog.Any("error", err),
		)
		return apperrors.Wrap(err, "failed to write access log")
	}

	return nil
}

// List returns access log rows for secrets owned by ownerID, newest first.
func (a *AuditLogger) List(
	ctx context.Context,
	ownerID uuid.UUID,
	filter vaultDomain.AccessLogFilter,
) ([]*vaultDomain.AccessLog, error) {
	logs, err := a.accessLogRepo.ListByOwner(ctx, ownerID, filter)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list access logs")
	}
	return logs, nil
}

// VerifyAll checks the signature of every stored row, reading batchSize rows at a time.
// Rows without a signature are counted separately and are not treated as tampered.
func (a *AuditLogger) VerifyAll(ctx context.Context, batchSize int) (*vaultDomain.VerificationReport, error) {
	if batchSize <= 0 {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "batch size must be positive")
	}

	report := &vaultDomain.VerificationReport{}
	for offset := 0; ; offset += batchSize {
		logs, err := a.accessLogRepo.List(ctx, offset, batchSize)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to list access logs")
		}

		for _, entry := range logs {
			report.Total++
			if !entry.IsSigned() {
				report.Unsigned++
				continue
			}

			err := a.signer.Verify(entry)
			switch {
			case err == nil:
				report.Valid++
			case errors.Is(err, vaultService.ErrSignatureInvalid):
				report.Invalid = append(report.Invalid, entry.ID)
			default:
				return nil, err
			}
		}

		if len(logs) < batchSize {
			return report, nil
		}
	}
}
