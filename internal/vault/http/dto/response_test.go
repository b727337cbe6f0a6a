package dto

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

func TestMapItemToResponse(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rotationDays := 30
	reference := "hashchain:v1:abc"

	item := &vaultDomain.VaultItem{
		ID:                  uuid.Must(uuid.NewV7()),
		OwnerID:             uuid.Must(uuid.NewV7()),
		SecretType:          vaultDomain.SecretTypeToken,
		Name:                "ci-token",
		Provider:            "github",
		EncryptedValue:      []byte("ciphertext"),
		Algorithm:           cryptoDomain.ChaCha20,
		Version:             3,
		IsActive:            true,
		CreatedAt:           now.Add(-60 * 24 * time.Hour),
		UpdatedAt:           now.Add(-31 * 24 * time.Hour),
		RotationDays:        &rotationDays,
		BlockchainReference: &reference,
	}

	response := MapItemToResponse(item, now)

	assert.Equal(t, item.ID.String(), response.ID)
	assert.Equal(t, "token", response.SecretType)
	assert.Equal(t, "chacha20-poly1305", response.Algorithm)
	assert.Equal(t, []string{}, response.Tags)
	assert.True(t, response.RotationDue)
	assert.Equal(t, &reference, response.BlockchainReference)
	assert.Nil(t, response.Value)
	assert.Empty(t, response.Permission)
}

func TestMapRevealedSecretToResponse(t *testing.T) {
	item := &vaultDomain.VaultItem{ID: uuid.Must(uuid.NewV7()), IsActive: true, Version: 1}

	response := MapRevealedSecretToResponse(&vaultDomain.RevealedSecret{
		Item:      item,
		Value:     []byte("plaintext"),
		Decrypted: true,
		Grant:     vaultDomain.ShareGrant(vaultDomain.PermissionReadWrite),
	}, time.Now())

	assert.Equal(t, []byte("plaintext"), response.Value)
	assert.True(t, response.Decrypted)
	assert.Equal(t, "read_write", response.Permission)
	assert.False(t, response.RotationDue)
}

func TestMapShareToResponse(t *testing.T) {
	now := time.Now().UTC()
	orgID := uuid.Must(uuid.NewV7())
	expired := now.Add(-time.Minute)

	share := &vaultDomain.VaultShare{
		ID:              uuid.Must(uuid.NewV7()),
		VaultID:         uuid.Must(uuid.NewV7()),
		OwnerID:         uuid.Must(uuid.NewV7()),
		SharedWithOrgID: &orgID,
		PermissionLevel: vaultDomain.PermissionRead,
		ExpiresAt:       &expired,
		IsActive:        true,
		CreatedAt:       now.Add(-time.Hour),
	}

	response := MapShareToResponse(share, now)

	assert.Nil(t, response.SharedWithUserID)
	assert.Equal(t, orgID.String(), *response.SharedWithOrgID)
	assert.True(t, response.IsActive)
	assert.False(t, response.IsEffective)

	list := MapSharesToListResponse(nil, now)
	assert.NotNil(t, list.Data)
	assert.Empty(t, list.Data)
}

func TestMapAccessLogsToListResponse(t *testing.T) {
	logs := []*vaultDomain.AccessLog{
		{
			ID:        uuid.Must(uuid.NewV7()),
			Action:    vaultDomain.ActionRead,
			ErrorKind: vaultDomain.KindAccessDenied,
			Signature: []byte{0x01},
		},
		{
			ID:      uuid.Must(uuid.NewV7()),
			Action:  vaultDomain.ActionCreate,
			Success: true,
		},
	}

	response := MapAccessLogsToListResponse(logs)

	assert.Len(t, response.Data, 2)
	assert.Equal(t, "read", response.Data[0].Action)
	assert.Equal(t, "access_denied", response.Data[0].ErrorKind)
	assert.True(t, response.Data[0].Signed)
	assert.True(t, response.Data[1].Success)
	assert.Empty(t, response.Data[1].ErrorKind)
	assert.False(t, response.Data[1].Signed)
}
