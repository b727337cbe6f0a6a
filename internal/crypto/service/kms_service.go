package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// kmsService implements KMSService using gocloud.dev/secrets.
type kmsService struct{}

// NewKMSService creates a new KMS service instance.
func NewKMSService() KMSService {
	return &kmsService{}
}

// OpenKeeper opens a secrets.Keeper for the configured KMS provider using the keyURI.
// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

// MasterKeyID is the identifier given to the single configured master key.
const MasterKeyID = "default"

// LoadMasterKey resolves the process master key.
//
// Without a KMS provider, encoded is the base64 of the raw 32-byte key. With a
// provider, encoded is the base64 of the KMS ciphertext and keyURI selects the keeper.
func LoadMasterKey(
	ctx context.Context,
	kms KMSService,
	provider, keyURI, encoded string,
) (*cryptoDomain.MasterKey, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, cryptoDomain.ErrMasterKeyNotSet
	}

	if provider == "" {
		return cryptoDomain.ParseMasterKey(MasterKeyID, encoded)
	}

	if keyURI == "" {
		return nil, fmt.Errorf("KMS_KEY_URI is required when KMS_PROVIDER is %q", provider)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, cryptoDomain.ErrInvalidMasterKeyBase64
	}

	keeper, err := kms.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = keeper.Close()
	}()

	raw, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt master key with KMS: %w", err)
	}
	defer cryptoDomain.Zero(raw)

	return cryptoDomain.NewMasterKey(MasterKeyID, raw)
}

// GenerateMasterKey returns a fresh master key encoded for MASTER_KEY. When keyURI is
// set the key is encrypted with the KMS keeper first.
func GenerateMasterKey(ctx context.Context, kms KMSService, keyURI string) (string, error) {
	raw, err := randomBytes(cryptoDomain.KeySize)
	if err != nil {
		return "", fmt.Errorf("failed to generate master key: %w", err)
	}
	defer cryptoDomain.Zero(raw)

	if keyURI == "" {
		return base64.StdEncoding.EncodeToString(raw), nil
	}

	keeper, err := kms.OpenKeeper(ctx, keyURI)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = keeper.Close()
	}()

	ciphertext, err := keeper.Encrypt(ctx, raw)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt master key with KMS: %w", err)
	}

	return base64.StdEncoding.EncodeToString(ciphertext), nil
}
