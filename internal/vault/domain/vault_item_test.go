package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
)

func TestVaultItem_IsExpired(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	assert.False(t, (&VaultItem{}).IsExpired(now))
	assert.True(t, (&VaultItem{ExpiresAt: &past}).IsExpired(now))
	assert.True(t, (&VaultItem{ExpiresAt: &now}).IsExpired(now))
	assert.False(t, (&VaultItem{ExpiresAt: &future}).IsExpired(now))
}

func TestVaultItem_RotationDue(t *testing.T) {
	now := time.Now().UTC()
	days := 30

	t.Run("no rotation policy", func(t *testing.T) {
		item := &VaultItem{UpdatedAt: now.Add(-1000 * 24 * time.Hour)}
		assert.False(t, item.RotationDue(now))
	})

	t.Run("not yet due", func(t *testing.T) {
		item := &VaultItem{UpdatedAt: now.Add(-29 * 24 * time.Hour), RotationDays: &days}
		assert.False(t, item.RotationDue(now))
	})

	t.Run("due", func(t *testing.T) {
		item := &VaultItem{UpdatedAt: now.Add(-31 * 24 * time.Hour), RotationDays: &days}
		assert.True(t, item.RotationDue(now))
	})
}

func TestVaultItem_Envelope(t *testing.T) {
	item := &VaultItem{}
	envelope := &cryptoDomain.Envelope{
		Algorithm:      cryptoDomain.AESGCM,
		Ciphertext:     []byte{1},
		WrappedDataKey: []byte{2},
		Salt:           []byte{3},
		Nonce:          []byte{4},
	}

	item.SetEnvelope(envelope)
	assert.Equal(t, envelope, item.Envelope())
	assert.Equal(t, []byte{3}, item.KeyDerivationSalt)
}

func TestVaultShare_IsEffective(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	tests := []struct {
		name     string
		share    VaultShare
		expected bool
	}{
		{"active without expiry", VaultShare{IsActive: true}, true},
		{"active expiring in one second", VaultShare{IsActive: true, ExpiresAt: &future}, true},
		{"active expired one second ago", VaultShare{IsActive: true, ExpiresAt: &past}, false},
		{"revoked", VaultShare{IsActive: false}, false},
		{"revoked and unexpired", VaultShare{IsActive: false, ExpiresAt: &future}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.share.IsEffective(now))
		})
	}
}

func TestVaultShare_Matches(t *testing.T) {
	user := uuid.New()
	org := uuid.New()

	byUser := VaultShare{SharedWithUserID: &user}
	assert.True(t, byUser.Matches(user, nil))
	assert.False(t, byUser.Matches(uuid.New(), []uuid.UUID{user}))

	byOrg := VaultShare{SharedWithOrgID: &org}
	assert.True(t, byOrg.Matches(uuid.New(), []uuid.UUID{uuid.New(), org}))
	assert.False(t, byOrg.Matches(org, nil))
}

func TestStats_Add(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	days := 1

	stats := NewStats()
	stats.Add(&VaultItem{IsActive: true, SecretType: SecretTypeAPIKey, Provider: "aws", UpdatedAt: now}, now)
	stats.Add(&VaultItem{IsActive: true, SecretType: SecretTypeAPIKey, ExpiresAt: &past, UpdatedAt: now}, now)
	stats.Add(&VaultItem{
		IsActive:     true,
		SecretType:   SecretTypePassword,
		Provider:     "aws",
		RotationDays: &days,
		UpdatedAt:    now.Add(-48 * time.Hour),
	}, now)
	stats.Add(&VaultItem{IsActive: false, SecretType: SecretTypeToken, Provider: "stripe"}, now)

	assert.Equal(t, int64(4), stats.Total)
	assert.Equal(t, int64(3), stats.Active)
	assert.Equal(t, int64(1), stats.Inactive)
	assert.Equal(t, int64(1), stats.Expired)
	assert.Equal(t, int64(1), stats.RotationDue)
	assert.Equal(t, int64(2), stats.ByType[SecretTypeAPIKey])
	assert.Equal(t, int64(1), stats.ByType[SecretTypePassword])
	assert.Equal(t, int64(0), stats.ByType[SecretTypeToken])
	assert.Equal(t, int64(2), stats.ByProvider["aws"])
	assert.NotContains(t, stats.ByProvider, "stripe")
}
