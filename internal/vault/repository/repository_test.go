package repository

import (
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
)

var (
	itemColumnNames = []string{
		"id", "owner_id", "secret_type", "name", "tags", "provider", "encrypted_value", "wrapped_data_key",
		"key_derivation_salt", "nonce", "algorithm", "version", "is_active", "access_count", "last_accessed_at",
		"created_at", "updated_at", "expires_at", "rotation_days", "blockchain_reference",
	}
	shareColumnNames = []string{
		"id", "vault_id", "owner_id", "shared_with_user_id", "shared_with_org_id", "permission_level",
		"expires_at", "is_active", "created_at",
	}
	accessLogColumnNames = []string{
		"id", "vault_id", "user_id", "action", "success", "error_kind", "ip_address", "user_agent",
		"signature", "created_at",
	}

	// activeItemClause keeps shares of soft-deleted secrets out of share listings.
	activeItemClause = regexp.QuoteMeta(
		"AND EXISTS (SELECT 1 FROM vault_items i WHERE i.id = vault_shares.vault_id AND i.is_active = TRUE)",
	)
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db, mock
}

func newTestItem() *vaultDomain.VaultItem {
	now := time.Now().UTC().Truncate(time.Microsecond)
	days := 30
	return &vaultDomain.VaultItem{
		ID:                uuid.Must(uuid.NewV7()),
		OwnerID:           uuid.Must(uuid.NewV7()),
		SecretType:        vaultDomain.SecretTypePassword,
		Name:              "db-password",
		Tags:              []string{"db", "prod"},
		Provider:          "postgres",
		EncryptedValue:    []byte("ciphertext"),
		WrappedDataKey:    []byte("wrapped"),
		KeyDerivationSalt: []byte("salt"),
		Nonce:             []byte("nonce"),
		Algorithm:         cryptoDomain.AESGCM,
		Version:           1,
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
		RotationDays:      &days,
	}
}

func mustBinary(t *testing.T, id uuid.UUID) []byte {
	t.Helper()
	b, err := id.MarshalBinary()
	require.NoError(t, err)
	return b
}
