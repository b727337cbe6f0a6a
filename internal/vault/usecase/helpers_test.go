package usecase

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	cryptoService "github.com/allisson/credvault/internal/crypto/service"
	"github.com/allisson/credvault/internal/database"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
	vaultService "github.com/allisson/credvault/internal/vault/service"
	"github.com/allisson/credvault/internal/vault/vaulttest"
)

var (
	_ ItemRepository       = (*vaulttest.ItemRepository)(nil)
	_ ShareRepository      = (*vaulttest.ShareRepository)(nil)
	_ AccessLogRepository  = (*vaulttest.AccessLogRepository)(nil)
	_ OutboxWriter         = (*vaulttest.OutboxRepository)(nil)
	_ database.TxManager   = (*vaulttest.TxManager)(nil)
	_ cryptoService.Engine = (*vaulttest.Engine)(nil)
)

func newTestMasterKey(t *testing.T) *cryptoDomain.MasterKey {
	t.Helper()
	key := make([]byte, cryptoDomain.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	mk, err := cryptoDomain.NewMasterKey("test", key)
	require.NoError(t, err)
	return mk
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newUserID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

type fixture struct {
	store    *vaulttest.Store
	engine   *vaulttest.Engine // nil on the envelope fixture
	signer   vaultService.AccessLogSigner
	resolver *AccessResolver
	audit    *AuditLogger
	uc       *vaultUseCase
}

// newFixture wires the use case to the fast fake engine.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	engine := vaulttest.NewEngine()
	f := buildFixture(t, newTestMasterKey(t), engine)
	f.engine = engine
	return f
}

// newEnvelopeFixture wires the use case to the real envelope engine.
func newEnvelopeFixture(t *testing.T) *fixture {
	t.Helper()

	mk := newTestMasterKey(t)
	engine, err := cryptoService.NewEnvelopeEngine(
		mk,
		cryptoService.NewAEADManager(),
		cryptoDomain.AESGCM,
		cryptoDomain.MinKDFIterations,
	)
	require.NoError(t, err)
	return buildFixture(t, mk, engine)
}

func buildFixture(t *testing.T, mk *cryptoDomain.MasterKey, engine cryptoService.Engine) *fixture {
	t.Helper()

	store := vaulttest.NewStore()
	signer, err := vaultService.NewAccessLogSigner(mk)
	require.NoError(t, err)

	logger := discardLogger()
	resolver := NewAccessResolver(store.Shares())
	audit := NewAuditLogger(store.AccessLogs(), signer, logger)
	uc := NewVaultUseCase(
		store.TxManager(),
		store.Items(),
		store.Shares(),
		resolver,
		audit,
		NewOutboxEventPublisher(store.Outbox()),
		engine,
		vaultService.NewNoopNotarizer(),
		time.Second,
		logger,
	).(*vaultUseCase)

	return &fixture{
		store:    store,
		signer:   signer,
		resolver: resolver,
		audit:    audit,
		uc:       uc,
	}
}

// setNow pins the clock of every component.
func (f *fixture) setNow(now time.Time) {
	clock := func() time.Time { return now }
	f.uc.now = clock
	f.resolver.now = clock
	f.audit.now = clock
}

func (f *fixture) createSecret(
	t *testing.T,
	owner authDomain.Principal,
	value string,
) *vaultDomain.VaultItem {
	t.Helper()

	item, err := f.uc.Create(context.Background(), owner, &vaultDomain.CreateSecretInput{
		Name:       "db-password",
		SecretType: vaultDomain.SecretTypePassword,
		Value:      []byte(value),
		Tags:       []string{"prod"},
	})
	require.NoError(t, err)
	return item
}

func (f *fixture) shareWithUser(
	t *testing.T,
	owner authDomain.Principal,
	vaultID, userID uuid.UUID,
	level vaultDomain.PermissionLevel,
	expiresAt *time.Time,
) *vaultDomain.VaultShare {
	t.Helper()

	share, err := f.uc.Share(context.Background(), owner, vaultID, &vaultDomain.ShareSecretInput{
		SharedWithUserID: &userID,
		PermissionLevel:  level,
		ExpiresAt:        expiresAt,
	})
	require.NoError(t, err)
	return share
}

func (f *fixture) storedItem(t *testing.T, vaultID uuid.UUID) *vaultDomain.VaultItem {
	t.Helper()
	item, err := f.store.Items().Get(context.Background(), vaultID)
	require.NoError(t, err)
	return item
}

func (f *fixture) lastLog(t *testing.T) vaultDomain.AccessLog {
	t.Helper()
	logs := f.store.Logs()
	require.NotEmpty(t, logs)
	return logs[len(logs)-1]
}
