package http

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	authHTTP "github.com/allisson/credvault/internal/auth/http"
	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	vaultService "github.com/allisson/credvault/internal/vault/service"
	vaultUseCase "github.com/allisson/credvault/internal/vault/usecase"
	"github.com/allisson/credvault/internal/vault/vaulttest"
)

type testEnv struct {
	store  *vaulttest.Store
	engine *vaulttest.Engine
	vault  *VaultHandler
	events *EventHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gin.SetMode(gin.TestMode)

	key := make([]byte, cryptoDomain.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	masterKey, err := cryptoDomain.NewMasterKey("test", key)
	require.NoError(t, err)
	signer, err := vaultService.NewAccessLogSigner(masterKey)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := vaulttest.NewStore()
	engine := vaulttest.NewEngine()

	vaultUC := vaultUseCase.NewVaultUseCase(
		store.TxManager(),
		store.Items(),
		store.Shares(),
		vaultUseCase.NewAccessResolver(store.Shares()),
		vaultUseCase.NewAuditLogger(store.AccessLogs(), signer, logger),
		vaultUseCase.NewOutboxEventPublisher(store.Outbox()),
		engine,
		vaultService.NewNoopNotarizer(),
		time.Second,
		logger,
	)
	purgeUC := vaultUseCase.NewPurgeUseCase(
		store.TxManager(),
		store.Items(),
		store.Shares(),
		store.AccessLogs(),
		logger,
	)

	return &testEnv{
		store:  store,
		engine: engine,
		vault:  NewVaultHandler(vaultUC, logger),
		events: NewEventHandler(purgeUC, logger),
	}
}

// router mirrors the production routes with a fixed caller in place of JWT authentication.
func (e *testEnv) router(caller *authDomain.Principal) *gin.Engine {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if caller != nil {
			c.Request = c.Request.WithContext(authHTTP.WithPrincipal(c.Request.Context(), caller))
		}
		c.Next()
	})
	router.Use(authHTTP.RequestInfoMiddleware())

	v1 := router.Group("/v1")
	secrets := v1.Group("/secrets")
	{
		secrets.POST("", e.vault.CreateHandler)
		secrets.GET("", e.vault.ListHandler)
		secrets.GET("/stats", e.vault.StatsHandler)
		secrets.GET("/:id", e.vault.GetHandler)
		secrets.PATCH("/:id", e.vault.UpdateHandler)
		secrets.DELETE("/:id", e.vault.DeleteHandler)
		secrets.POST("/:id/rotate", e.vault.RotateHandler)
		secrets.POST("/:id/test", e.vault.TestHandler)
		secrets.POST("/:id/shares", e.vault.ShareHandler)
		secrets.GET("/:id/shares", e.vault.ListSharesHandler)
		secrets.DELETE("/:id/shares/:share_id", e.vault.RevokeShareHandler)
	}
	v1.GET("/shares", e.vault.ListSharedWithMeHandler)
	v1.GET("/access-logs", e.vault.AccessLogsHandler)
	v1.POST("/events", e.events.ReceiveHandler)

	return router
}

func (e *testEnv) do(
	t *testing.T,
	caller *authDomain.Principal,
	method, path string,
	body any,
) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "credvault-test")

	w := httptest.NewRecorder()
	e.router(caller).ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func newPrincipal(orgIDs ...uuid.UUID) *authDomain.Principal {
	p := authDomain.NewPrincipal(uuid.Must(uuid.NewV7()), orgIDs...)
	return &p
}

func requireStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
}
