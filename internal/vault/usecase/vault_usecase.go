package usecase

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	cryptoService "github.com/allisson/credvault/internal/crypto/service"
	"github.com/allisson/credvault/internal/database"
	apperrors "github.com/allisson/credvault/internal/errors"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
	vaultService "github.com/allisson/credvault/internal/vault/service"
)

// DefaultNotarizationTimeout bounds a notarization call when none is configured.
const DefaultNotarizationTimeout = 5 * time.Second

// vaultUseCase implements VaultUseCase.
//
// Every audited call follows the same order: validate, load and resolve access, encrypt,
// persist the mutation together with its outbox event in one transaction, then write the
// access log row for the final outcome. The KEK is always derived from the item's owner,
// never from the caller, so shared readers decrypt the owner's envelope.
type vaultUseCase struct {
	txManager           database.TxManager
	itemRepo            ItemRepository
	shareRepo           ShareRepository
	resolver            *AccessResolver
	auditLogger         *AuditLogger
	publisher           EventPublisher
	engine              cryptoService.Engine
	notarizer           vaultService.Notarizer
	notarizationTimeout time.Duration
	logger              *slog.Logger
	now                 func() time.Time
}

// Create encrypts and stores a new secret owned by the caller.
func (v *vaultUseCase) Create(
	ctx context.Context,
	caller authDomain.Principal,
	input *vaultDomain.CreateSecretInput,
) (*vaultDomain.VaultItem, error) {
	// The id exists before validation so a rejected create still has a row to audit.
	vaultID := uuid.Must(uuid.NewV7())

	item, err := v.create(ctx, caller, vaultID, input)
	_ = v.auditLogger.Record(ctx, vaultID, caller.UserID, vaultDomain.ActionCreate, err)
	if err != nil {
		return nil, err
	}

	v.notarize(ctx, item)
	return item, nil
}

func (v *vaultUseCase) create(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID uuid.UUID,
	input *vaultDomain.CreateSecretInput,
) (*vaultDomain.VaultItem, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	envelope, err := v.engine.Encrypt(input.Value, caller.UserID.String())
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encrypt secret")
	}

	now := v.now().UTC()
	item := &vaultDomain.VaultItem{
		ID:           vaultID,
		OwnerID:      caller.UserID,
		SecretType:   input.SecretType,
		Name:         input.Name,
		Tags:         slices.Clone(input.Tags),
		Provider:     input.Provider,
		Version:      1,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
		ExpiresAt:    input.ExpiresAt,
		RotationDays: input.RotationDays,
	}
	item.SetEnvelope(envelope)

	err = v.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := v.itemRepo.Create(txCtx, item); err != nil {
			return err
		}
		return v.publisher.Publish(
			txCtx,
			vaultDomain.EventSecretCreated,
			vaultDomain.NewSecretEvent(item.ID, caller.UserID, now),
		)
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

// notarize anchors the stored ciphertext. Failures leave BlockchainReference nil.
func (v *vaultUseCase) notarize(ctx context.Context, item *vaultDomain.VaultItem) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.notarizationTimeout)
	defer cancel()

	reference, err := v.notarizer.Notarize(nctx, vaultService.Digest(item.EncryptedValue))
	if err == nil {
		err = v.itemRepo.SetBlockchainReference(nctx, item.ID, reference)
	}
	if err != nil {
		if errors.Is(err, vaultService.ErrNotarizationDisabled) {
			return
		}
		v.logger.Warn("failed to notarize secret",
			slog.String("vault_id", item.ID.String()),
			slog.Any("error", err),
		)
		return
	}

	item.BlockchainReference = &reference
}

// Get reads a secret. With decrypt the plaintext is returned and the access counter is
// bumped; without it the value is redacted and the counter is left alone.
func (v *vaultUseCase) Get(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID uuid.UUID,
	decrypt bool,
) (*vaultDomain.RevealedSecret, error) {
	secret, err := v.get(ctx, caller, vaultID, decrypt)
	_ = v.auditLogger.Record(ctx, vaultID, caller.UserID, vaultDomain.ActionRead, err)
	if err != nil {
		return nil, err
	}
	return secret, nil
}

func (v *vaultUseCase) get(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID uuid.UUID,
	decrypt bool,
) (*vaultDomain.RevealedSecret, error) {
	op := vaultDomain.OpReadMetadata
	if decrypt {
		op = vaultDomain.OpReadValue
	}

	item, grant, err := v.authorize(ctx, caller, vaultID, op)
	if err != nil {
		return nil, err
	}

	now := v.now().UTC()
	if err := checkReadable(item, now); err != nil {
		return nil, err
	}

	event := vaultDomain.NewSecretEvent(item.ID, caller.UserID, now)
	event.Decrypted = &decrypt

	if !decrypt {
		if err := v.publisher.Publish(ctx, vaultDomain.EventSecretAccessed, event); err != nil {
			return nil, err
		}
		return &vaultDomain.RevealedSecret{
			Item:  item,
			Value: []byte(vaultDomain.RedactedValue),
			Grant: grant,
		}, nil
	}

	plaintext, err := v.engine.Decrypt(item.Envelope(), item.OwnerID.String())
	if err != nil {
		return nil, err
	}

	err = v.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := v.itemRepo.IncrementAccess(txCtx, item.ID, now); err != nil {
			return err
		}
		return v.publisher.Publish(txCtx, vaultDomain.EventSecretAccessed, event)
	})
	if err != nil {
		cryptoDomain.Zero(plaintext)
		return nil, err
	}

	item.AccessCount++
	item.LastAccessedAt = &now

	return &vaultDomain.RevealedSecret{
		Item:      item,
		Value:     plaintext,
		Decrypted: true,
		Grant:     grant,
	}, nil
}

// Update changes metadata and, when a value is supplied, re-encrypts it and bumps the
// version. Supplied fields fully replace the stored ones.
func (v *vaultUseCase) Update(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID uuid.UUID,
	input *vaultDomain.UpdateSecretInput,
) (*vaultDomain.VaultItem, error) {
	item, err := v.update(ctx, caller, vaultID, input)
	_ = v.auditLogger.Record(ctx, vaultID, caller.UserID, vaultDomain.ActionUpdate, err)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (v *vaultUseCase) update(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID uuid.UUID,
	input *vaultDomain.UpdateSecretInput,
) (*vaultDomain.VaultItem, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	item, _, err := v.authorize(ctx, caller, vaultID, vaultDomain.OpUpdate)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, vaultDomain.ErrSecretInactive
	}

	expectedVersion := item.Version
	if input.Name != nil {
		item.Name = *input.Name
	}
	if input.Tags != nil {
		item.Tags = slices.Clone(input.Tags)
	}
	if input.Provider != nil {
		item.Provider = *input.Provider
	}
	if input.ExpiresAt != nil {
		item.ExpiresAt = input.ExpiresAt
	}
	if input.RotationDays != nil {
		item.RotationDays = input.RotationDays
	}
	if input.HasValue() {
		envelope, err := v.engine.Encrypt(input.Value, item.OwnerID.String())
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to encrypt secret")
		}
		item.SetEnvelope(envelope)
		item.Version++
	}

	if err := v.save(ctx, caller, item, expectedVersion, vaultDomain.EventSecretUpdated); err != nil {
		return nil, err
	}
	return item, nil
}

// Rotate replaces the value with newValue under a fresh envelope and bumps the version.
func (v *vaultUseCase) Rotate(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID uuid.UUID,
	newValue []byte,
) (*vaultDomain.VaultItem, error) {
	item, err := v.rotate(ctx, caller, vaultID, newValue)
	_ = v.auditLogger.Record(ctx, vaultID, caller.UserID, vaultDomain.ActionRotate, err)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (v *vaultUseCase) rotate(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID uuid.UUID,
	newValue []byte,
) (*vaultDomain.VaultItem, error) {
	if err := vaultDomain.ValidateSecretValue(newValue); err != nil {
		return nil, err
	}

	item, _, err := v.authorize(ctx, caller, vaultID, vaultDomain.OpRotate)
	if err != nil {
		return nil, err
	}
	if !item.IsActive {
		return nil, vaultDomain.ErrSecretInactive
	}

	envelope, err := v.engine.Encrypt(newValue, item.OwnerID.String())
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encrypt secret")
	}

	expectedVersion := item.Version
	item.SetEnvelope(envelope)
	item.Version++

	if err := v.save(ctx, caller, item, expectedVersion, vaultDomain.EventSecretRotated); err != nil {
		return nil, err
	}
	return item, nil
}

// save persists item with a compare-and-set on version and is_active, then publishes
// eventType. A lost race against a delete reports ErrSecretInactive.
func (v *vaultUseCase) save(
	ctx context.Context,
	caller authDomain.Principal,
	item *vaultDomain.VaultItem,
	expectedVersion uint,
	eventType vaultDomain.EventType,
) error {
	now := v.now().UTC()
	item.UpdatedAt = now

	return v.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := v.itemRepo.Update(txCtx, item, expectedVersion); err != nil {
			if errors.Is(err, vaultDomain.ErrVersionConflict) {
				if current, getErr := v.itemRepo.Get(txCtx, item.ID); getErr == nil && !current.IsActive {
					return vaultDomain.ErrSecretInactive
				}
			}
			return err
		}
		return v.publisher.Publish(txCtx, eventType, vaultDomain.NewSecretEvent(item.ID, caller.UserID, now))
	})
}

// Delete soft-deletes a secret. Deleting an already inactive secret succeeds without
// publishing another event.
func (v *vaultUseCase) Delete(ctx context.Context, caller authDomain.Principal, vaultID uuid.UUID) error {
	err := v.delete(ctx, caller, vaultID)
	_ = v.auditLogger.Record(ctx, vaultID, caller.UserID, vaultDomain.ActionDelete, err)
	return err
}

func (v *vaultUseCase) delete(ctx context.Context, caller authDomain.Principal, vaultID uuid.UUID) error {
	item, _, err := v.authorize(ctx, caller, vaultID, vaultDomain.OpDelete)
	if err != nil {
		return err
	}
	if !item.IsActive {
		return nil
	}

	now := v.now().UTC()
	return v.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := v.itemRepo.Deactivate(txCtx, item.ID, now); err != nil {
			return err
		}
		return v.publisher.Publish(
			txCtx,
			vaultDomain.EventSecretDeleted,
			vaultDomain.NewSecretEvent(item.ID, caller.UserID, now),
		)
	})
}

// Share grants a user or organization access to a secret. Only the owner may share.
func (v *vaultUseCase) Share(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID uuid.UUID,
	input *vaultDomain.ShareSecretInput,
) (*vaultDomain.VaultShare, error) {
	share, err := v.share(ctx, caller, vaultID, input)
	_ = v.auditLogger.Record(ctx, vaultID, caller.UserID, vaultDomain.ActionShare, err)
	if err != nil {
		return nil, err
	}
	return share, nil
}

func (v *vaultUseCase) share(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID uuid.UUID,
	input *vaultDomain.ShareSecretInput,
) (*vaultDomain.VaultShare, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	item, _, err := v.authorize(ctx, caller, vaultID, vaultDomain.OpShare)
	if err != nil {
		return nil, err
	}

	now := v.now().UTC()
	if err := checkReadable(item, now); err != nil {
		return nil, err
	}
	if input.SharedWithUserID != nil && *input.SharedWithUserID == item.OwnerID {
		return nil, vaultDomain.ErrShareWithOwner
	}

	share := &vaultDomain.VaultShare{
		ID:               uuid.Must(uuid.NewV7()),
		VaultID:          item.ID,
		OwnerID:          item.OwnerID,
		SharedWithUserID: input.SharedWithUserID,
		SharedWithOrgID:  input.SharedWithOrgID,
		PermissionLevel:  input.PermissionLevel,
		ExpiresAt:        input.ExpiresAt,
		IsActive:         true,
		CreatedAt:        now,
	}

	event := vaultDomain.NewSecretEvent(item.ID, caller.UserID, now)
	event.PermissionLevel = share.PermissionLevel

	err = v.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := v.shareRepo.Create(txCtx, share); err != nil {
			return err
		}
		return v.publisher.Publish(txCtx, vaultDomain.EventSecretShared, event)
	})
	if err != nil {
		return nil, err
	}

	return share, nil
}

// RevokeShare deactivates one share of a secret. It is audited as a share action.
func (v *vaultUseCase) RevokeShare(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID, shareID uuid.UUID,
) error {
	err := v.revokeShare(ctx, caller, vaultID, shareID)
	_ = v.auditLogger.Record(ctx, vaultID, caller.UserID, vaultDomain.ActionShare, err)
	return err
}

func (v *vaultUseCase) revokeShare(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID, shareID uuid.UUID,
) error {
	if _, _, err := v.authorize(ctx, caller, vaultID, vaultDomain.OpShare); err != nil {
		return err
	}

	share, err := v.shareRepo.Get(ctx, shareID)
	if err != nil {
		return err
	}
	if share.VaultID != vaultID {
		return vaultDomain.ErrShareNotFound
	}

	return v.shareRepo.Revoke(ctx, share.ID)
}

// List returns the caller's own active secrets.
func (v *vaultUseCase) List(
	ctx context.Context,
	caller authDomain.Principal,
	filter vaultDomain.ListFilter,
) ([]*vaultDomain.VaultItem, error) {
	items, err := v.itemRepo.ListByOwner(ctx, caller.UserID, filter)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list secrets")
	}
	return items, nil
}

// ListShares returns every share of a secret, including revoked and expired ones.
func (v *vaultUseCase) ListShares(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID uuid.UUID,
) ([]*vaultDomain.VaultShare, error) {
	if _, _, err := v.authorize(ctx, caller, vaultID, vaultDomain.OpShare); err != nil {
		return nil, err
	}
	return v.shareRepo.ListByVault(ctx, vaultID)
}

// ListSharedWithMe returns the effective shares granted to the caller or its organizations.
func (v *vaultUseCase) ListSharedWithMe(
	ctx context.Context,
	caller authDomain.Principal,
	offset, limit int,
) ([]*vaultDomain.VaultShare, error) {
	shares, err := v.shareRepo.ListForPrincipal(ctx, caller.UserID, caller.OrgIDs, v.now().UTC(), offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list shares")
	}
	return shares, nil
}

// TestCredential checks that the stored value still decrypts. The plaintext is discarded
// immediately and the access counter is not touched. An integrity failure is reported in
// the result, not as an error, and is audited as a failed read.
func (v *vaultUseCase) TestCredential(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID uuid.UUID,
) (*vaultDomain.CredentialTestResult, error) {
	result, err := v.testCredential(ctx, caller, vaultID)

	auditErr := err
	if err == nil && !result.Success {
		auditErr = vaultDomain.ErrDecryptionFailed
	}
	_ = v.auditLogger.Record(ctx, vaultID, caller.UserID, vaultDomain.ActionRead, auditErr)

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (v *vaultUseCase) testCredential(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID uuid.UUID,
) (*vaultDomain.CredentialTestResult, error) {
	item, _, err := v.authorize(ctx, caller, vaultID, vaultDomain.OpReadValue)
	if err != nil {
		return nil, err
	}
	if err := checkReadable(item, v.now().UTC()); err != nil {
		return nil, err
	}

	result := &vaultDomain.CredentialTestResult{VaultID: item.ID}

	plaintext, err := v.engine.Decrypt(item.Envelope(), item.OwnerID.String())
	if err != nil {
		result.ErrorKind = vaultDomain.Kind(err)
		return result, nil
	}
	cryptoDomain.Zero(plaintext)

	result.Success = true
	return result, nil
}

// AccessLogs returns access log rows for the caller's secrets.
func (v *vaultUseCase) AccessLogs(
	ctx context.Context,
	caller authDomain.Principal,
	filter vaultDomain.AccessLogFilter,
) ([]*vaultDomain.AccessLog, error) {
	return v.auditLogger.List(ctx, caller.UserID, filter)
}

// Stats aggregates the caller's secrets.
func (v *vaultUseCase) Stats(ctx context.Context, caller authDomain.Principal) (*vaultDomain.Stats, error) {
	stats, err := v.itemRepo.Stats(ctx, caller.UserID, v.now().UTC())
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to compute stats")
	}
	return stats, nil
}

// authorize loads vaultID and checks the caller may perform op on it.
func (v *vaultUseCase) authorize(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID uuid.UUID,
	op vaultDomain.Operation,
) (*vaultDomain.VaultItem, vaultDomain.Grant, error) {
	item, err := v.itemRepo.Get(ctx, vaultID)
	if err != nil {
		return nil, vaultDomain.NoAccess, err
	}

	grant, err := v.resolver.Resolve(ctx, item, caller)
	if err != nil {
		return nil, vaultDomain.NoAccess, err
	}
	if !grant.Allows(op) {
		return nil, vaultDomain.NoAccess, vaultDomain.ErrAccessDenied
	}

	return item, grant, nil
}

// checkReadable rejects soft-deleted and expired items.
func checkReadable(item *vaultDomain.VaultItem, now time.Time) error {
	if !item.IsActive {
		return vaultDomain.ErrSecretInactive
	}
	if item.IsExpired(now) {
		return vaultDomain.ErrSecretExpired
	}
	return nil
}

// NewVaultUseCase creates a new VaultUseCase.
func NewVaultUseCase(
	txManager database.TxManager,
	itemRepo ItemRepository,
	shareRepo ShareRepository,
	resolver *AccessResolver,
	auditLogger *AuditLogger,
	publisher EventPublisher,
	engine cryptoService.Engine,
	notarizer vaultService.Notarizer,
	notarizationTimeout time.Duration,
	logger *slog.Logger,
) VaultUseCase {
	if notarizationTimeout <= 0 {
		notarizationTimeout = DefaultNotarizationTimeout
	}

	return &vaultUseCase{
		txManager:           txManager,
		itemRepo:            itemRepo,
		shareRepo:           shareRepo,
		resolver:            resolver,
		auditLogger:         auditLogger,
		publisher:           publisher,
		engine:              engine,
		notarizer:           notarizer,
		notarizationTimeout: notarizationTimeout,
		logger:              logger,
		now:                 time.Now,
	}
}

// Reject implements VaultUseCase.
func (v *vaultUseCase) Reject(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID uuid.UUID,
	action vaultDomain.Action,
) {
	_ = v.auditLogger.Record(ctx, vaultID, caller.UserID, action, vaultDomain.ErrMalformedRequest)
}
