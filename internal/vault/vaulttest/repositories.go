package vaulttest

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/credvault/internal/errors"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

// ItemRepository is an in-memory vault item repository.
type ItemRepository struct {
	store *Store
}

// Create stores a copy of item.
func (r *ItemRepository) Create(_ context.Context, item *vaultDomain.VaultItem) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpItemCreate); err != nil {
		return err
	}
	if s.findItem(item.ID) != nil {
		return apperrors.Wrap(apperrors.ErrConflict, "vault item already exists")
	}
	s.items = append(s.items, cloneItem(item))
	return nil
}

// Get returns a copy of the item.
func (r *ItemRepository) Get(_ context.Context, vaultID uuid.UUID) (*vaultDomain.VaultItem, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpItemGet); err != nil {
		return nil, err
	}
	item := s.findItem(vaultID)
	if item == nil {
		return nil, vaultDomain.ErrSecretNotFound
	}
	return cloneItem(item), nil
}

// Update writes the mutable columns when the stored item is active and its version equals
// expectedVersion.
func (r *ItemRepository) Update(_ context.Context, item *vaultDomain.VaultItem, expectedVersion uint) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpItemUpdate); err != nil {
		return err
	}
	stored := s.findItem(item.ID)
	if stored == nil || !stored.IsActive || stored.Version != expectedVersion {
		return vaultDomain.ErrVersionConflict
	}

	src := cloneItem(item)
	stored.Name = src.Name
	stored.Tags = src.Tags
	stored.Provider = src.Provider
	stored.EncryptedValue = src.EncryptedValue
	stored.WrappedDataKey = src.WrappedDataKey
	stored.KeyDerivationSalt = src.KeyDerivationSalt
	stored.Nonce = src.Nonce
	stored.Algorithm = src.Algorithm
	stored.Version = src.Version
	stored.UpdatedAt = src.UpdatedAt
	stored.ExpiresAt = src.ExpiresAt
	stored.RotationDays = src.RotationDays
	return nil
}

// IncrementAccess bumps the access counter.
func (r *ItemRepository) IncrementAccess(_ context.Context, vaultID uuid.UUID, at time.Time) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpItemIncrementAccess); err != nil {
		return err
	}
	if item := s.findItem(vaultID); item != nil {
		item.AccessCount++
		item.LastAccessedAt = &at
	}
	return nil
}

// Deactivate soft-deletes the item.
func (r *ItemRepository) Deactivate(_ context.Context, vaultID uuid.UUID, at time.Time) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpItemDeactivate); err != nil {
		return err
	}
	if item := s.findItem(vaultID); item != nil {
		item.IsActive = false
		item.UpdatedAt = at
	}
	return nil
}

// SetBlockchainReference stores the notarization reference.
func (r *ItemRepository) SetBlockchainReference(_ context.Context, vaultID uuid.UUID, reference string) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpItemSetReference); err != nil {
		return err
	}
	if item := s.findItem(vaultID); item != nil {
		item.BlockchainReference = &reference
	}
	return nil
}

// ListByOwner returns active items of ownerID matching filter, newest first.
func (r *ItemRepository) ListByOwner(
	_ context.Context,
	ownerID uuid.UUID,
	filter vaultDomain.ListFilter,
) ([]*vaultDomain.VaultItem, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpItemList); err != nil {
		return nil, err
	}

	var out []*vaultDomain.VaultItem
	for i := len(s.items) - 1; i >= 0; i-- {
		item := s.items[i]
		if item.OwnerID != ownerID || !item.IsActive {
			continue
		}
		if filter.SecretType != nil && item.SecretType != *filter.SecretType {
			continue
		}
		if !containsAll(item.Tags, filter.Tags) {
			continue
		}
		out = append(out, cloneItem(item))
	}
	return page(out, filter.Offset, filter.Limit), nil
}

// Stats aggregates every item of ownerID.
func (r *ItemRepository) Stats(_ context.Context, ownerID uuid.UUID, now time.Time) (*vaultDomain.Stats, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpItemStats); err != nil {
		return nil, err
	}

	stats := vaultDomain.NewStats()
	for _, item := range s.items {
		if item.OwnerID == ownerID {
			stats.Add(item, now)
		}
	}
	return stats, nil
}

// DeleteByOwner removes every item of ownerID.
func (r *ItemRepository) DeleteByOwner(_ context.Context, ownerID uuid.UUID) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpItemDeleteByOwner); err != nil {
		return 0, err
	}

	before := len(s.items)
	s.items = slices.DeleteFunc(s.items, func(item *vaultDomain.VaultItem) bool {
		return item.OwnerID == ownerID
	})
	return int64(before - len(s.items)), nil
}

// Count returns the number of stored items, active or not.
func (r *ItemRepository) Count() int {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return len(r.store.items)
}

// ShareRepository is an in-memory vault share repository.
type ShareRepository struct {
	store *Store
}

// Create stores a copy of share.
func (r *ShareRepository) Create(_ context.Context, share *vaultDomain.VaultShare) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpShareCreate); err != nil {
		return err
	}
	c := *share
	s.shares = append(s.shares, &c)
	return nil
}

// Get returns a copy of the share.
func (r *ShareRepository) Get(_ context.Context, shareID uuid.UUID) (*vaultDomain.VaultShare, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpShareGet); err != nil {
		return nil, err
	}
	for _, share := range s.shares {
		if share.ID == shareID {
			c := *share
			return &c, nil
		}
	}
	return nil, vaultDomain.ErrShareNotFound
}

// ListByVault returns every share of vaultID, oldest first.
func (r *ShareRepository) ListByVault(_ context.Context, vaultID uuid.UUID) ([]*vaultDomain.VaultShare, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpShareListByVault); err != nil {
		return nil, err
	}

	out := []*vaultDomain.VaultShare{}
	for _, share := range s.shares {
		if share.VaultID == vaultID {
			c := *share
			out = append(out, &c)
		}
	}
	return out, nil
}

// ListForPrincipal returns effective shares of active items targeting userID or one of
// orgIDs, newest first.
func (r *ShareRepository) ListForPrincipal(
	_ context.Context,
	userID uuid.UUID,
	orgIDs []uuid.UUID,
	now time.Time,
	offset, limit int,
) ([]*vaultDomain.VaultShare, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpShareListForUser); err != nil {
		return nil, err
	}

	var out []*vaultDomain.VaultShare
	for i := len(s.shares) - 1; i >= 0; i-- {
		share := s.shares[i]
		item := s.findItem(share.VaultID)
		if item == nil || !item.IsActive {
			continue
		}
		if share.IsEffective(now) && share.Matches(userID, orgIDs) {
			c := *share
			out = append(out, &c)
		}
	}
	return page(out, offset, limit), nil
}

// Revoke deactivates a share.
func (r *ShareRepository) Revoke(_ context.Context, shareID uuid.UUID) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpShareRevoke); err != nil {
		return err
	}
	for _, share := range s.shares {
		if share.ID == shareID {
			share.IsActive = false
		}
	}
	return nil
}

// DeleteByUser removes shares owned by or granted directly to userID.
func (r *ShareRepository) DeleteByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpShareDeleteByUser); err != nil {
		return 0, err
	}

	before := len(s.shares)
	s.shares = slices.DeleteFunc(s.shares, func(share *vaultDomain.VaultShare) bool {
		return share.OwnerID == userID || share.SharedWithUserID != nil && *share.SharedWithUserID == userID
	})
	return int64(before - len(s.shares)), nil
}

// AccessLogRepository is an in-memory access log repository.
type AccessLogRepository struct {
	store *Store
}

// Create appends a copy of log.
func (r *AccessLogRepository) Create(_ context.Context, log *vaultDomain.AccessLog) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpAccessLogCreate); err != nil {
		return err
	}
	c := *log
	s.logs = append(s.logs, &c)
	return nil
}

// ListByOwner returns rows about secrets owned by ownerID, newest first.
func (r *AccessLogRepository) ListByOwner(
	_ context.Context,
	ownerID uuid.UUID,
	filter vaultDomain.AccessLogFilter,
) ([]*vaultDomain.AccessLog, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpAccessLogListByOwner); err != nil {
		return nil, err
	}

	var out []*vaultDomain.AccessLog
	for i := len(s.logs) - 1; i >= 0; i-- {
		log := s.logs[i]
		item := s.findItem(log.VaultID)
		if item == nil || item.OwnerID != ownerID {
			continue
		}
		if filter.VaultID != nil && log.VaultID != *filter.VaultID {
			continue
		}
		c := *log
		out = append(out, &c)
	}
	return page(out, filter.Offset, filter.Limit), nil
}

// List returns rows oldest first.
func (r *AccessLogRepository) List(_ context.Context, offset, limit int) ([]*vaultDomain.AccessLog, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpAccessLogList); err != nil {
		return nil, err
	}

	out := make([]*vaultDomain.AccessLog, 0, len(s.logs))
	for _, log := range s.logs {
		c := *log
		out = append(out, &c)
	}
	return page(out, offset, limit), nil
}

// DeleteByUser removes rows written by userID or about a secret userID owns.
func (r *AccessLogRepository) DeleteByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failure(OpAccessLogDeleteUser); err != nil {
		return 0, err
	}

	before := len(s.logs)
	s.logs = slices.DeleteFunc(s.logs, func(log *vaultDomain.AccessLog) bool {
		if log.UserID == userID {
			return true
		}
		item := s.findItem(log.VaultID)
		return item != nil && item.OwnerID == userID
	})
	return int64(before - len(s.logs)), nil
}

// findItem must be called with mu held.
func (s *Store) findItem(vaultID uuid.UUID) *vaultDomain.VaultItem {
	for _, item := range s.items {
		if item.ID == vaultID {
			return item
		}
	}
	return nil
}

func containsAll(have, want []string) bool {
	for _, tag := range want {
		if !slices.Contains(have, tag) {
			return false
		}
	}
	return true
}
