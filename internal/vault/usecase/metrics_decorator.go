package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	"github.com/allisson/credvault/internal/metrics"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

const metricsComponent = "vault"

// vaultUseCaseWithMetrics decorates VaultUseCase with metrics instrumentation.
type vaultUseCaseWithMetrics struct {
	next    VaultUseCase
	metrics metrics.BusinessMetrics
}

// NewVaultUseCaseWithMetrics wraps a VaultUseCase with metrics recording.
func NewVaultUseCaseWithMetrics(useCase VaultUseCase, m metrics.BusinessMetrics) VaultUseCase {
	return &vaultUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (v *vaultUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	recordMetrics(ctx, v.metrics, operation, start, err)
}

// Create records metrics for secret creation.
func (v *vaultUseCaseWithMetrics) Create(
	ctx context.Context,
	caller authDomain.Principal,
	input *vaultDomain.CreateSecretInput,
) (*vaultDomain.VaultItem, error) {
	start := time.Now()
	item, err := v.next.Create(ctx, caller, input)
	v.record(ctx, "secret_create", start, err)
	return item, err
}

// Get records metrics for secret reads, split by whether the value was decrypted.
func (v *vaultUseCaseWithMetrics) Get(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID uuid.UUID,
	decrypt bool,
) (*vaultDomain.RevealedSecret, error) {
	start := time.Now()
	secret, err := v.next.Get(ctx, caller, vaultID, decrypt)

	operation := "secret_get_metadata"
	if decrypt {
		operation = "secret_get"
	}
	v.record(ctx, operation, start, err)
	return secret, err
}

// Update records metrics for secret updates.
func (v *vaultUseCaseWithMetrics) Update(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID uuid.UUID,
	input *vaultDomain.UpdateSecretInput,
) (*vaultDomain.VaultItem, error) {
	start := time.Now()
	item, err := v.next.Update(ctx, caller, vaultID, input)
	v.record(ctx, "secret_update", start, err)
	return item, err
}

// Rotate records metrics for secret rotation.
func (v *vaultUseCaseWithMetrics) Rotate(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID uuid.UUID,
	newValue []byte,
) (*vaultDomain.VaultItem, error) {
	start := time.Now()
	item, err := v.next.Rotate(ctx, caller, vaultID, newValue)
	v.record(ctx, "secret_rotate", start, err)
	return item, err
}

// Delete records metrics for secret deletion.
func (v *vaultUseCaseWithMetrics) Delete(ctx context.Context, caller authDomain.Principal, vaultID uuid.UUID) error {
	start := time.Now()
	err := v.next.Delete(ctx, caller, vaultID)
	v.record(ctx, "secret_delete", start, err)
	return err
}

// Share records metrics for share creation.
func (v *vaultUseCaseWithMetrics) Share(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID uuid.UUID,
	input *vaultDomain.ShareSecretInput,
) (*vaultDomain.VaultShare, error) {
	start := time.Now()
	share, err := v.next.Share(ctx, caller, vaultID, input)
	v.record(ctx, "secret_share", start, err)
	return share, err
}

// RevokeShare records metrics for share revocation.
func (v *vaultUseCaseWithMetrics) RevokeShare(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID, shareID uuid.UUID,
) error {
	start := time.Now()
	err := v.next.RevokeShare(ctx, caller, vaultID, shareID)
	v.record(ctx, "share_revoke", start, err)
	return err
}

// List records metrics for secret listing.
func (v *vaultUseCaseWithMetrics) List(
	ctx context.Context,
	caller authDomain.Principal,
	filter vaultDomain.ListFilter,
) ([]*vaultDomain.VaultItem, error) {
	start := time.Now()
	items, err := v.next.List(ctx, caller, filter)
	v.record(ctx, "secret_list", start, err)
	return items, err
}

// ListShares records metrics for listing a secret's shares.
func (v *vaultUseCaseWithMetrics) ListShares(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID uuid.UUID,
) ([]*vaultDomain.VaultShare, error) {
	start := time.Now()
	shares, err := v.next.ListShares(ctx, caller, vaultID)
	v.record(ctx, "share_list", start, err)
	return shares, err
}

// ListSharedWithMe records metrics for listing shares granted to the caller.
func (v *vaultUseCaseWithMetrics) ListSharedWithMe(
	ctx context.Context,
	caller authDomain.Principal,
	offset, limit int,
) ([]*vaultDomain.VaultShare, error) {
	start := time.Now()
	shares, err := v.next.ListSharedWithMe(ctx, caller, offset, limit)
	v.record(ctx, "share_list_received", start, err)
	return shares, err
}

// TestCredential records metrics for credential tests. A failed decryption reported in the
// result counts as an error.
// Reject records a rejected request under the operation of its action.
func (v *vaultUseCaseWithMetrics) Reject(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID uuid.UUID,
	action vaultDomain.Action,
) {
	start := time.Now()
	v.next.Reject(ctx, caller, vaultID, action)

	operation := "secret_" + action.String()
	if action == vaultDomain.ActionRead {
		operation = "secret_get"
	}
	v.record(ctx, operation, start, vaultDomain.ErrMalformedRequest)
}

func (v *vaultUseCaseWithMetrics) TestCredential(
	ctx context.Context,
	caller authDomain.Principal,
	vaultID uuid.UUID,
) (*vaultDomain.CredentialTestResult, error) {
	start := time.Now()
	result, err := v.next.TestCredential(ctx, caller, vaultID)

	recorded := err
	if err == nil && !result.Success {
		recorded = vaultDomain.ErrDecryptionFailed
	}
	v.record(ctx, "secret_test", start, recorded)
	return result, err
}

// AccessLogs records metrics for access log listing.
func (v *vaultUseCaseWithMetrics) AccessLogs(
	ctx context.Context,
	caller authDomain.Principal,
	filter vaultDomain.AccessLogFilter,
) ([]*vaultDomain.AccessLog, error) {
	start := time.Now()
	logs, err := v.next.AccessLogs(ctx, caller, filter)
	v.record(ctx, "access_log_list", start, err)
	return logs, err
}

// Stats records metrics for stats computation.
func (v *vaultUseCaseWithMetrics) Stats(ctx context.Context, caller authDomain.Principal) (*vaultDomain.Stats, error) {
	start := time.Now()
	stats, err := v.next.Stats(ctx, caller)
	v.record(ctx, "secret_stats", start, err)
	return stats, err
}

// purgeUseCaseWithMetrics decorates PurgeUseCase with metrics instrumentation.
type purgeUseCaseWithMetrics struct {
	next    PurgeUseCase
	metrics metrics.BusinessMetrics
}

// NewPurgeUseCaseWithMetrics wraps a PurgeUseCase with metrics recording.
func NewPurgeUseCaseWithMetrics(useCase PurgeUseCase, m metrics.BusinessMetrics) PurgeUseCase {
	return &purgeUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// PurgeUser records the purge outcome and how many rows each table lost.
func (p *purgeUseCaseWithMetrics) PurgeUser(ctx context.Context, userID uuid.UUID) (*vaultDomain.PurgeResult, error) {
	start := time.Now()
	result, err := p.next.PurgeUser(ctx, userID)
	recordMetrics(ctx, p.metrics, "user_purge", start, err)
	if err == nil {
		p.metrics.RecordPurgedRows(ctx, "vault_items", result.Items)
		p.metrics.RecordPurgedRows(ctx, "vault_shares", result.Shares)
		p.metrics.RecordPurgedRows(ctx, "vault_access_logs", result.AccessLogs)
	}
	return result, err
}

// recordMetrics labels failures with their error kind so denials and conflicts can be told
// apart from storage errors.
func recordMetrics(
	ctx context.Context,
	m metrics.BusinessMetrics,
	operation string,
	start time.Time,
	err error,
) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = string(vaultDomain.Kind(err))
	}
	m.RecordOperation(ctx, metricsComponent, operation, outcome, time.Since(start))
}
