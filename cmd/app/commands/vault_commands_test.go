package commands

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	vaultDomain "github.com/allisson/credvault/internal/vault/domain"
	vaultService "github.com/allisson/credvault/internal/vault/service"
	vaultUseCase "github.com/allisson/credvault/internal/vault/usecase"
	"github.com/allisson/credvault/internal/vault/vaulttest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAuditLogger(t *testing.T, store *vaulttest.Store) *vaultUseCase.AuditLogger {
	t.Helper()

	key := make([]byte, cryptoDomain.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	masterKey, err := cryptoDomain.NewMasterKey("test", key)
	require.NoError(t, err)
	signer, err := vaultService.NewAccessLogSigner(masterKey)
	require.NoError(t, err)

	return vaultUseCase.NewAuditLogger(store.AccessLogs(), signer, discardLogger())
}

func seedItem(t *testing.T, store *vaulttest.Store, ownerID uuid.UUID) uuid.UUID {
	t.Helper()
	id := uuid.Must(uuid.NewV7())
	require.NoError(t, store.Items().Create(context.Background(), &vaultDomain.VaultItem{
		ID:       id,
		OwnerID:  ownerID,
		Name:     "api-key",
		IsActive: true,
		Version:  1,
	}))
	return id
}

func TestRunPurgeUser(t *testing.T) {
	ctx := context.Background()
	logger := discardLogger()

	setup := func(t *testing.T) (*vaulttest.Store, vaultUseCase.PurgeUseCase, uuid.UUID) {
		store := vaulttest.NewStore()
		audit := newAuditLogger(t, store)
		userID := uuid.Must(uuid.NewV7())

		vaultID := seedItem(t, store, userID)
		seedItem(t, store, uuid.Must(uuid.NewV7()))
		require.NoError(t, audit.Record(ctx, vaultID, userID, vaultDomain.ActionCreate, nil))

		purge := vaultUseCase.NewPurgeUseCase(
			store.TxManager(),
			store.Items(),
			store.Shares(),
			store.AccessLogs(),
			logger,
		)
		return store, purge, userID
	}

	t.Run("text", func(t *testing.T) {
		store, purge, userID := setup(t)

		var out bytes.Buffer
		require.NoError(t, RunPurgeUser(ctx, purge, logger, &out, userID.String(), FormatText))
		assert.Contains(t, out.String(), "Purged user "+userID.String())
		assert.Contains(t, out.String(), "Total:       2")
		assert.Equal(t, 1, store.Items().Count())
		assert.Empty(t, store.Logs())
	})

	t.Run("json", func(t *testing.T) {
		_, purge, userID := setup(t)

		var out bytes.Buffer
		require.NoError(t, RunPurgeUser(ctx, purge, logger, &out, userID.String(), FormatJSON))

		var result vaultDomain.PurgeResult
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.Equal(t, userID, result.UserID)
		assert.Equal(t, int64(1), result.Items)
		assert.Equal(t, int64(1), result.AccessLogs)
	})

	t.Run("invalid user id", func(t *testing.T) {
		_, purge, _ := setup(t)

		for _, id := range []string{"", "not-a-uuid", uuid.Nil.String()} {
			err := RunPurgeUser(ctx, purge, logger, io.Discard, id, FormatText)
			assert.ErrorContains(t, err, "invalid user id")
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		_, purge, userID := setup(t)

		err := RunPurgeUser(ctx, purge, logger, io.Discard, userID.String(), "yaml")
		assert.ErrorContains(t, err, "invalid format")
	})

	t.Run("repository failure rolls back", func(t *testing.T) {
		store, purge, userID := setup(t)
		store.Fail(vaulttest.OpAccessLogDeleteUser, errors.New("connection reset"))

		err := RunPurgeUser(ctx, purge, logger, io.Discard, userID.String(), FormatText)
		require.ErrorContains(t, err, "failed to purge user")
		assert.Equal(t, 2, store.Items().Count())
	})
}

func TestRunVerifyAccessLogs(t *testing.T) {
	ctx := context.Background()
	logger := discardLogger()

	setup := func(t *testing.T) (*vaulttest.Store, *vaultUseCase.AuditLogger) {
		store := vaulttest.NewStore()
		audit := newAuditLogger(t, store)
		userID := uuid.Must(uuid.NewV7())
		vaultID := seedItem(t, store, userID)

		require.NoError(t, audit.Record(ctx, vaultID, userID, vaultDomain.ActionCreate, nil))
		require.NoError(t, audit.Record(ctx, vaultID, userID, vaultDomain.ActionRead, nil))
		require.NoError(t, audit.Record(ctx, vaultID, userID, vaultDomain.ActionRead, vaultDomain.ErrAccessDenied))
		return store, audit
	}

	t.Run("passed text", func(t *testing.T) {
		_, audit := setup(t)

		var out bytes.Buffer
		require.NoError(t, RunVerifyAccessLogs(ctx, audit, logger, &out, 2, FormatText))
		assert.Contains(t, out.String(), "Total:     3")
		assert.Contains(t, out.String(), "Status: PASSED")
	})

	t.Run("passed json", func(t *testing.T) {
		_, audit := setup(t)

		var out bytes.Buffer
		require.NoError(t, RunVerifyAccessLogs(ctx, audit, logger, &out, 100, FormatJSON))

		var result map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.Equal(t, float64(3), result["total"])
		assert.Equal(t, float64(3), result["valid"])
		assert.Equal(t, true, result["passed"])
	})

	t.Run("tampered row fails", func(t *testing.T) {
		store, audit := setup(t)
		tampered := store.Logs()[1]
		tampered.Action = vaultDomain.ActionDelete
		store.TamperLog(tampered)

		var out bytes.Buffer
		err := RunVerifyAccessLogs(ctx, audit, logger, &out, 100, FormatText)
		require.ErrorContains(t, err, "integrity check failed: 1 invalid signature(s)")
		assert.Contains(t, out.String(), tampered.ID.String())
		assert.Contains(t, out.String(), "Status: FAILED")
	})

	t.Run("empty store", func(t *testing.T) {
		store := vaulttest.NewStore()

		var out bytes.Buffer
		require.NoError(t, RunVerifyAccessLogs(ctx, newAuditLogger(t, store), logger, &out, 100, FormatText))
		assert.Contains(t, out.String(), "no access logs found")
	})

	t.Run("invalid batch size", func(t *testing.T) {
		_, audit := setup(t)

		err := RunVerifyAccessLogs(ctx, audit, logger, io.Discard, 0, FormatText)
		assert.ErrorContains(t, err, "failed to verify access logs")
	})
}

type MockOutboxUseCase struct {
	mock.Mock
}

func (m *MockOutboxUseCase) Start(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockOutboxUseCase) ProcessEvents(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockOutboxUseCase) Clean(ctx context.Context, days int) (int64, error) {
	args := m.Called(ctx, days)
	return args.Get(0).(int64), args.Error(1)
}

func TestRunCleanOutbox(t *testing.T) {
	ctx := context.Background()
	logger := discardLogger()

	t.Run("text", func(t *testing.T) {
		useCase := &MockOutboxUseCase{}
		useCase.On("Clean", ctx, 7).Return(int64(12), nil)

		var out bytes.Buffer
		require.NoError(t, RunCleanOutbox(ctx, useCase, logger, &out, 7, FormatText))
		assert.Equal(t, "Deleted 12 outbox event(s) older than 7 day(s)\n", out.String())
		useCase.AssertExpectations(t)
	})

	t.Run("json", func(t *testing.T) {
		useCase := &MockOutboxUseCase{}
		useCase.On("Clean", ctx, 0).Return(int64(3), nil)

		var out bytes.Buffer
		require.NoError(t, RunCleanOutbox(ctx, useCase, logger, &out, 0, FormatJSON))

		var result map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		assert.Equal(t, float64(3), result["count"])
		useCase.AssertExpectations(t)
	})

	t.Run("negative days", func(t *testing.T) {
		useCase := &MockOutboxUseCase{}

		err := RunCleanOutbox(ctx, useCase, logger, io.Discard, -1, FormatText)
		assert.ErrorContains(t, err, "days must be a positive number")
		useCase.AssertNotCalled(t, "Clean", mock.Anything, mock.Anything)
	})

	t.Run("use case error", func(t *testing.T) {
		useCase := &MockOutboxUseCase{}
		useCase.On("Clean", ctx, 30).Return(int64(0), errors.New("db down"))

		err := RunCleanOutbox(ctx, useCase, logger, io.Discard, 30, FormatText)
		assert.ErrorContains(t, err, "failed to clean outbox events")
	})
}
