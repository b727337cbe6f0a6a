package usecase

import (
	"context"
	"time"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

// AccessResolver determines the grant a caller holds on a secret.
type AccessResolver struct {
	shareRepo ShareRepository
	now       func() time.Time
}

// NewAccessResolver creates an AccessResolver backed by shareRepo.
func NewAccessResolver(shareRepo ShareRepository) *AccessResolver {
	return &AccessResolver{shareRepo: shareRepo, now: time.Now}
}

// Resolve returns OwnerGrant for the secret's owner. Otherwise the oldest effective share
// matching the caller's user id or one of its organizations decides the grant; inactive and
// expired shares are skipped. A caller with no matching share gets NoAccess.
//
// Resolution does not look at the item's own active or expiry state.
func (r *AccessResolver) Resolve(
	ctx context.Context,
	item *vaultDomain.VaultItem,
	caller authDomain.Principal,
) (vaultDomain.Grant, error) {
	if item.OwnerID == caller.UserID {
		return vaultDomain.OwnerGrant(), nil
	}

	shares, err := r.shareRepo.ListByVault(ctx, item.ID)
	if err != nil {
		return vaultDomain.NoAccess, err
	}

	now := r.now()
	for _, share := range shares {
		if !share.IsEffective(now) || !share.Matches(caller.UserID, caller.OrgIDs) {
			continue
		}
		return vaultDomain.ShareGrant(share.PermissionLevel), nil
	}

	return vaultDomain.NoAccess, nil
}
