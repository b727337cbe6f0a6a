package commands

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	cryptoService "github.com/allisson/credvault/internal/crypto/service"
)

type MockKMSService struct {
	mock.Mock
}

func (m *MockKMSService) OpenKeeper(ctx context.Context, uri string) (cryptoDomain.KMSKeeper, error) {
	args := m.Called(ctx, uri)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(cryptoDomain.KMSKeeper), args.Error(1)
}

type MockKMSKeeper struct {
	mock.Mock
}

func (m *MockKMSKeeper) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	args := m.Called(ctx, plaintext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockKMSKeeper) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	args := m.Called(ctx, ciphertext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockKMSKeeper) Close() error {
	return m.Called().Error(0)
}

var masterKeyLine = regexp.MustCompile(`MASTER_KEY="([^"]+)"`)

func TestRunCreateMasterKey(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("plaintext", func(t *testing.T) {
		var out bytes.Buffer
		err := RunCreateMasterKey(ctx, &MockKMSService{}, logger, &out, "", "")
		require.NoError(t, err)

		match := masterKeyLine.FindStringSubmatch(out.String())
		require.Len(t, match, 2)
		raw, err := base64.StdEncoding.DecodeString(match[1])
		require.NoError(t, err)
		assert.Len(t, raw, cryptoDomain.KeySize)
		assert.NotContains(t, out.String(), "KMS_PROVIDER")
	})

	t.Run("kms", func(t *testing.T) {
		mockService := &MockKMSService{}
		mockKeeper := &MockKMSKeeper{}
		mockService.On("OpenKeeper", ctx, "base64key://test").Return(mockKeeper, nil)
		mockKeeper.On("Encrypt", ctx, mock.AnythingOfType("[]uint8")).Return([]byte("encrypted"), nil)
		mockKeeper.On("Close").Return(nil)

		var out bytes.Buffer
		err := RunCreateMasterKey(ctx, mockService, logger, &out, "localsecrets", "base64key://test")
		require.NoError(t, err)
		assert.Contains(t, out.String(), `KMS_PROVIDER="localsecrets"`)
		assert.Contains(t, out.String(), `MASTER_KEY="`+base64.StdEncoding.EncodeToString([]byte("encrypted"))+`"`)

		mockService.AssertExpectations(t)
		mockKeeper.AssertExpectations(t)
	})

	t.Run("round trip with local keeper", func(t *testing.T) {
		keeperKey := make([]byte, 32)
		keyURI := "base64key://" + base64.URLEncoding.EncodeToString(keeperKey)
		kms := cryptoService.NewKMSService()

		var out bytes.Buffer
		require.NoError(t, RunCreateMasterKey(ctx, kms, logger, &out, "localsecrets", keyURI))

		match := masterKeyLine.FindStringSubmatch(out.String())
		require.Len(t, match, 2)
		masterKey, err := cryptoService.LoadMasterKey(ctx, kms, "localsecrets", keyURI, match[1])
		require.NoError(t, err)
		assert.Len(t, masterKey.Bytes(), cryptoDomain.KeySize)
	})

	t.Run("provider without key uri", func(t *testing.T) {
		err := RunCreateMasterKey(ctx, nil, logger, io.Discard, "localsecrets", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "required together")
	})

	t.Run("kms error", func(t *testing.T) {
		mockService := &MockKMSService{}
		mockService.On("OpenKeeper", ctx, "awskms://invalid").Return(nil, errors.New("kms error"))

		err := RunCreateMasterKey(ctx, mockService, logger, io.Discard, "awskms", "awskms://invalid")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kms error")
	})
}
