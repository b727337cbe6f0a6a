package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	apperrors "github.com/allisson/credvault/internal/errors"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
	"github.com/allisson/credvault/internal/vault/vaulttest"
)

func TestPurgeUseCase_PurgeUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	purge := NewPurgeUseCase(f.store.TxManager(), f.store.Items(), f.store.Shares(), f.store.AccessLogs(), discardLogger())

	gone := authDomain.NewPrincipal(newUserID())
	kept := authDomain.NewPrincipal(newUserID())

	// gone owns one secret shared with kept, and reads a secret kept shared with it.
	goneItem := f.createSecret(t, gone, "mine")
	f.shareWithUser(t, gone, goneItem.ID, kept.UserID, vaultDomain.PermissionRead, nil)
	keptItem := f.createSecret(t, kept, "theirs")
	f.shareWithUser(t, kept, keptItem.ID, gone.UserID, vaultDomain.PermissionRead, nil)
	_, err := f.uc.Get(ctx, gone, keptItem.ID, true)
	require.NoError(t, err)
	_, err = f.uc.Get(ctx, kept, goneItem.ID, true)
	require.NoError(t, err)

	result, err := purge.PurgeUser(ctx, gone.UserID)
	require.NoError(t, err)
	assert.Equal(t, gone.UserID, result.UserID)
	assert.Equal(t, int64(1), result.Items)
	assert.Equal(t, int64(2), result.Shares)
	// create, share and kept's read of goneItem, plus gone's read of keptItem.
	assert.Equal(t, int64(4), result.AccessLogs)
	assert.Equal(t, int64(7), result.Total())

	_, err = f.store.Items().Get(ctx, goneItem.ID)
	assert.ErrorIs(t, err, vaultDomain.ErrSecretNotFound)

	for _, log := range f.store.Logs() {
		assert.NotEqual(t, gone.UserID, log.UserID)
		assert.Equal(t, keptItem.ID, log.VaultID)
	}

	shares, err := f.uc.ListShares(ctx, kept, keptItem.ID)
	require.NoError(t, err)
	assert.Empty(t, shares)

	result, err = purge.PurgeUser(ctx, gone.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Total())
}

func TestPurgeUseCase_RollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	purge := NewPurgeUseCase(f.store.TxManager(), f.store.Items(), f.store.Shares(), f.store.AccessLogs(), discardLogger())

	owner := authDomain.NewPrincipal(newUserID())
	item := f.createSecret(t, owner, "value")
	f.store.Fail(vaulttest.OpItemDeleteByOwner, errors.New("lock timeout"))

	_, err := purge.PurgeUser(ctx, owner.UserID)
	require.Error(t, err)

	assert.Len(t, f.store.Logs(), 1)
	_, err = f.store.Items().Get(ctx, item.ID)
	assert.NoError(t, err)
}

func TestPurgeUseCase_NilUser(t *testing.T) {
	store := vaulttest.NewStore()
	purge := NewPurgeUseCase(store.TxManager(), store.Items(), store.Shares(), store.AccessLogs(), discardLogger())

	_, err := purge.PurgeUser(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
