// Package usecase implements the vault's business logic: access resolution, the secret
// lifecycle, audit logging and GDPR purge. Use cases orchestrate repositories, the
// envelope engine and the outbox so that every lifecycle call persists, audits and
// publishes in a fixed order.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

// ItemRepository defines persistence operations for vault items.
type ItemRepository interface {
	Create(ctx context.Context, item *vaultDomain.VaultItem) error
	Get(ctx context.Context, vaultID uuid.UUID) (*vaultDomain.VaultItem, error)
	// Update writes every mutable column only if the stored version still equals
	// expectedVersion, otherwise it returns vaultDomain.ErrVersionConflict.
	Update(ctx context.Context, item *vaultDomain.VaultItem, expectedVersion uint) error
	IncrementAccess(ctx context.Context, vaultID uuid.UUID, at time.Time) error
	Deactivate(ctx context.Context, vaultID uuid.UUID, at time.Time) error
	SetBlockchainReference(ctx context.Context, vaultID uuid.UUID, reference string) error
	// ListByOwner returns active items owned by ownerID, newest first.
	ListByOwner(
		ctx context.Context,
		ownerID uuid.UUID,
		filter vaultDomain.ListFilter,
	) ([]*vaultDomain.VaultItem, error)
	Stats(ctx context.Context, ownerID uuid.UUID, now time.Time) (*vaultDomain.Stats, error)
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

// ShareRepository defines persistence operations for vault shares.
type ShareRepository interface {
	Create(ctx context.Context, share *vaultDomain.VaultShare) error
	Get(ctx context.Context, shareID uuid.UUID) (*vaultDomain.VaultShare, error)
	// ListByVault returns every share of vaultID, oldest first.
	ListByVault(ctx context.Context, vaultID uuid.UUID) ([]*vaultDomain.VaultShare, error)
	// ListForPrincipal returns active, unexpired shares granted to userID or any of orgIDs.
	ListForPrincipal(
		ctx context.Context,
		userID uuid.UUID,
		orgIDs []uuid.UUID,
		now time.Time,
		offset, limit int,
	) ([]*vaultDomain.VaultShare, error)
	Revoke(ctx context.Context, shareID uuid.UUID) error
	// DeleteByUser removes shares owned by or granted directly to userID.
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// AccessLogRepository defines persistence operations for access logs. Rows are never
// updated; DeleteByUser exists only for GDPR purge.
type AccessLogRepository interface {
	Create(ctx context.Context, log *vaultDomain.AccessLog) error
	// ListByOwner returns rows for secrets owned by ownerID, newest first.
	ListByOwner(
		ctx context.Context,
		ownerID uuid.UUID,
		filter vaultDomain.AccessLogFilter,
	) ([]*vaultDomain.AccessLog, error)
	List(ctx context.Context, offset, limit int) ([]*vaultDomain.AccessLog, error)
	// DeleteByUser removes rows written by userID or referencing a secret userID owns.
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// EventPublisher records a domain event for asynchronous delivery. Publish joins the
// transaction in ctx when there is one.
type EventPublisher interface {
	Publish(ctx context.Context, eventType vaultDomain.EventType, payload any) error
}

// VaultUseCase is the secret lifecycle service.
type VaultUseCase interface {
	Create(
		ctx context.Context,
		caller authDomain.Principal,
		input *vaultDomain.CreateSecretInput,
	) (*vaultDomain.VaultItem, error)
	// Get returns the item and, when decrypt is true, its plaintext value.
	//
	// Security Note: callers MUST zero RevealedSecret.Value after use with cryptoDomain.Zero.
	Get(
		ctx context.Context,
		caller authDomain.Principal,
		vaultID uuid.UUID,
		decrypt bool,
	) (*vaultDomain.RevealedSecret, error)
	Update(
		ctx context.Context,
		caller authDomain.Principal,
		vaultID uuid.UUID,
		input *vaultDomain.UpdateSecretInput,
	) (*vaultDomain.VaultItem, error)
	Rotate(
		ctx context.Context,
		caller authDomain.Principal,
		vaultID uuid.UUID,
		newValue []byte,
	) (*vaultDomain.VaultItem, error)
	Delete(ctx context.Context, caller authDomain.Principal, vaultID uuid.UUID) error
	Share(
		ctx context.Context,
		caller authDomain.Principal,
		vaultID uuid.UUID,
		input *vaultDomain.ShareSecretInput,
	) (*vaultDomain.VaultShare, error)
	RevokeShare(ctx context.Context, caller authDomain.Principal, vaultID, shareID uuid.UUID) error
	List(
		ctx context.Context,
		caller authDomain.Principal,
		filter vaultDomain.ListFilter,
	) ([]*vaultDomain.VaultItem, error)
	ListShares(
		ctx context.Context,
		caller authDomain.Principal,
		vaultID uuid.UUID,
	) ([]*vaultDomain.VaultShare, error)
	ListSharedWithMe(
		ctx context.Context,
		caller authDomain.Principal,
		offset, limit int,
	) ([]*vaultDomain.VaultShare, error)
	TestCredential(
		ctx context.Context,
		caller authDomain.Principal,
		vaultID uuid.UUID,
	) (*vaultDomain.CredentialTestResult, error)
	AccessLogs(
		ctx context.Context,
		caller authDomain.Principal,
		filter vaultDomain.AccessLogFilter,
	) ([]*vaultDomain.AccessLog, error)
	Stats(ctx context.Context, caller authDomain.Principal) (*vaultDomain.Stats, error)
	// Reject audits a request that never reached its operation because it could not be
	// decoded. The row is written as a failure with the validation_error kind.
	Reject(ctx context.Context, caller authDomain.Principal, vaultID uuid.UUID, action vaultDomain.Action)
}

// PurgeUseCase erases a deleted user's vault data.
type PurgeUseCase interface {
	PurgeUser(ctx context.Context, userID uuid.UUID) (*vaultDomain.PurgeResult, error)
}
