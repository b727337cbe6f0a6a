package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/allisson/credvault/internal/database"
	apperrors "github.com/allisson/credvault/internal/errors"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

// purgeUseCase implements PurgeUseCase.
type purgeUseCase struct {
	txManager     database.TxManager
	itemRepo      ItemRepository
	shareRepo     ShareRepository
	accessLogRepo AccessLogRepository
	logger        *slog.Logger
}

// PurgeUser physically deletes every vault row tied to userID in one transaction: access
// logs written by the user or about secrets it owns, shares it owns or received, and its
// items. Access logs and shares go first because both reference items.
func (p *purgeUseCase) PurgeUser(ctx context.Context, userID uuid.UUID) (*vaultDomain.PurgeResult, error) {
	if userID == uuid.Nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "user id is required")
	}

	result := &vaultDomain.PurgeResult{UserID: userID}
	err := p.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		if result.AccessLogs, err = p.accessLogRepo.DeleteByUser(txCtx, userID); err != nil {
			return err
		}
		if result.Shares, err = p.shareRepo.DeleteByUser(txCtx, userID); err != nil {
			return err
		}
		result.Items, err = p.itemRepo.DeleteByOwner(txCtx, userID)
		return err
	})
	if err != nil {
		p.logger.Error("failed to purge user vault data",
			slog.String("user_id", userID.String()),
			slog.Any("error", err),
		)
		return nil, apperrors.Wrap(err, "failed to purge user")
	}

	p.logger.Info("purged user vault data",
		slog.String("user_id", userID.String()),
		slog.Int64("items", result.Items),
		slog.Int64("shares", result.Shares),
		slog.Int64("access_logs", result.AccessLogs),
		slog.Int64("total", result.Total()),
	)

	return result, nil
}

// NewPurgeUseCase creates a new PurgeUseCase.
func NewPurgeUseCase(
	txManager database.TxManager,
	itemRepo ItemRepository,
	shareRepo ShareRepository,
	accessLogRepo AccessLogRepository,
	logger *slog.Logger,
) PurgeUseCase {
	return &purgeUseCase{
		txManager:     txManager,
		itemRepo:      itemRepo,
		shareRepo:     shareRepo,
		accessLogRepo: accessLogRepo,
		logger:        logger,
	}
}
