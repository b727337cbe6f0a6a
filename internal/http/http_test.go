package http

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	authService "github.com/allisson/credvault/internal/auth/service"
	"github.com/allisson/credvault/internal/config"
	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	"github.com/allisson/credvault/internal/metrics"
	vaultHTTP "github.com/allisson/credvault/internal/vault/http"
	vaultService "github.com/allisson/credvault/internal/vault/service"
	vaultUseCase "github.com/allisson/credvault/internal/vault/usecase"
	"github.com/allisson/credvault/internal/vault/vaulttest"
)

const (
	testJWTSecret    = "0123456789abcdef0123456789abcdef"
	testWebhookToken = "webhook-token"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// routedServer is a Server with the full router backed by in-memory repositories.
type routedServer struct {
	server *Server
	store  *vaulttest.Store
	jwt    *authService.JWTService
}

func newRoutedServer(t *testing.T, cfg *config.Config) *routedServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	key := make([]byte, cryptoDomain.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	masterKey, err := cryptoDomain.NewMasterKey("test", key)
	require.NoError(t, err)
	signer, err := vaultService.NewAccessLogSigner(masterKey)
	require.NoError(t, err)
	jwtService, err := authService.NewJWTService(testJWTSecret, "credvault-test", time.Second)
	require.NoError(t, err)

	store := vaulttest.NewStore()
	vaultUC := vaultUseCase.NewVaultUseCase(
		store.TxManager(),
		store.Items(),
		store.Shares(),
		vaultUseCase.NewAccessResolver(store.Shares()),
		vaultUseCase.NewAuditLogger(store.AccessLogs(), signer, logger),
		vaultUseCase.NewOutboxEventPublisher(store.Outbox()),
		vaulttest.NewEngine(),
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

	server := NewServer(nil, "localhost", 8080, logger)
	server.SetupRouter(
		t.Context(),
		cfg,
		vaultHTTP.NewVaultHandler(vaultUC, logger),
		vaultHTTP.NewEventHandler(purgeUC, logger),
		jwtService,
		nil,
	)

	return &routedServer{server: server, store: store, jwt: jwtService}
}

func (r *routedServer) token(t *testing.T, principal authDomain.Principal) string {
	t.Helper()
	token, err := r.jwt.Issue(principal, time.Minute)
	require.NoError(t, err)
	return token
}

func (r *routedServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.server.GetHandler().ServeHTTP(w, req)
	return w
}

func TestProbes(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		path       string
		ping       func(mock sqlmock.Sqlmock)
		wantCode   int
		wantStatus string
		wantDB     string
	}{
		{name: "liveness ignores the database", path: "/health", wantCode: http.StatusOK, wantStatus: "healthy"},
		{
			name:       "ready",
			path:       "/ready",
			ping:       func(mock sqlmock.Sqlmock) { mock.ExpectPing() },
			wantCode:   http.StatusOK,
			wantStatus: "ready",
			wantDB:     "ok",
		},
		{
			name:       "ping fails",
			path:       "/ready",
			ping:       func(mock sqlmock.Sqlmock) { mock.ExpectPing().WillReturnError(assert.AnError) },
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not_ready",
			wantDB:     "error",
		},
		{
			name:       "no database",
			path:       "/ready",
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not_ready",
			wantDB:     "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var server *Server
			if tt.ping != nil {
				db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
				require.NoError(t, err)
				t.Cleanup(func() { _ = db.Close() })
				tt.ping(mock)
				server = NewServer(db, "localhost", 8080, logger)
				t.Cleanup(func() { assert.NoError(t, mock.ExpectationsWereMet()) })
			} else {
				server = NewServer(nil, "localhost", 8080, logger)
			}

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.path == "/health" {
				server.healthHandler(c)
			} else {
				server.readinessHandler(c)
			}

			assert.Equal(t, tt.wantCode, w.Code)
			var body struct {
				Status     string            `json:"status"`
				Components map[string]string `json:"components"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.wantDB, body.Components["database"])
		})
	}
}

func TestCustomLoggerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(CustomLoggerMiddleware(slog.New(slog.NewJSONHandler(&buf, nil))))
	router.GET("/secrets/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/upstream", func(c *gin.Context) { c.Status(http.StatusBadGateway) })
	router.GET("/panic", func(*gin.Context) { panic("handler bug") })

	tests := []struct {
		path      string
		wantCode  int
		wantLevel string
		wantRoute string
	}{
		{"/secrets/42", http.StatusNoContent, "INFO", "/secrets/:id"},
		{"/missing", http.StatusNotFound, "WARN", "/missing"},
		{"/upstream", http.StatusBadGateway, "ERROR", "/upstream"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			buf.Reset()
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantCode, w.Code)
			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, "http request", entry["msg"])
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, tt.path, entry["path"])
			assert.Equal(t, tt.wantRoute, entry["route"])
			assert.Equal(t, float64(tt.wantCode), entry["status"])
			assert.Equal(t, w.Header().Get("X-Request-Id"), entry["request_id"])
		})
	}

	t.Run("panic is recovered", func(t *testing.T) {
		w := httptest.NewRecorder()
		assert.NotPanics(t, func() {
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
		})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestServer_GetHandlerBeforeSetup(t *testing.T) {
	server := NewServer(nil, "localhost", 8080, slog.New(slog.DiscardHandler))
	assert.Nil(t, server.GetHandler())
	assert.Error(t, server.Start(t.Context()))
}

func TestRouter_HealthAndReady(t *testing.T) {
	rs := newRoutedServer(t, &config.Config{})

	w := rs.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	w = rs.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_NotFoundEndpoint(t *testing.T) {
	rs := newRoutedServer(t, &config.Config{})

	w := rs.do(t, http.MethodGet, "/nonexistent", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Metrics are served by the metrics server only.
	w = rs.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Authentication(t *testing.T) {
	rs := newRoutedServer(t, &config.Config{})

	w := rs.do(t, http.MethodGet, "/v1/secrets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = rs.do(t, http.MethodGet, "/v1/secrets", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other, err := authService.NewJWTService("ffffffffffffffffffffffffffffffff", "credvault-test", 0)
	require.NoError(t, err)
	forged, err := other.Issue(authDomain.NewPrincipal(uuid.Must(uuid.NewV7())), time.Minute)
	require.NoError(t, err)
	w = rs.do(t, http.MethodGet, "/v1/secrets", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	owner := authDomain.NewPrincipal(uuid.Must(uuid.NewV7()))
	w = rs.do(t, http.MethodGet, "/v1/secrets", rs.token(t, owner), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestRouter_SecretLifecycle drives a secret through create, share and read over HTTP.
func TestRouter_SecretLifecycle(t *testing.T) {
	rs := newRoutedServer(t, &config.Config{})
	orgID := uuid.Must(uuid.NewV7())
	owner := authDomain.NewPrincipal(uuid.Must(uuid.NewV7()))
	member := authDomain.NewPrincipal(uuid.Must(uuid.NewV7()), orgID)

	w := rs.do(t, http.MethodPost, "/v1/secrets", rs.token(t, owner), map[string]any{
		"name":        "db-password",
		"secret_type": "password",
		"value":       []byte("s3cr3t"),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created["id"].(string)

	w = rs.do(t, http.MethodGet, "/v1/secrets/"+id+"?decrypt=true", rs.token(t, member), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = rs.do(t, http.MethodPost, "/v1/secrets/"+id+"/shares", rs.token(t, owner), map[string]any{
		"shared_with_org_id": orgID,
		"permission_level":   "read",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = rs.do(t, http.MethodGet, "/v1/secrets/"+id+"?decrypt=true", rs.token(t, member), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var read struct {
		Value     []byte `json:"value"`
		Decrypted bool   `json:"decrypted"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &read))
	assert.Equal(t, []byte("s3cr3t"), read.Value)
	assert.True(t, read.Decrypted)

	w = rs.do(t, http.MethodGet, "/v1/secrets/stats", rs.token(t, owner), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Create, the denied read, share and the granted read.
	assert.Len(t, rs.store.Logs(), 4)
}

// TestRouter_Events tests that event intake requires the webhook token.
func TestRouter_Events(t *testing.T) {
	rs := newRoutedServer(t, &config.Config{EventsWebhookToken: testWebhookToken})
	body := map[string]any{
		"event_type": "user.deleted",
		"data":       map[string]any{"user_id": uuid.Must(uuid.NewV7())},
	}

	w := rs.do(t, http.MethodPost, "/v1/events", "", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	user := authDomain.NewPrincipal(uuid.Must(uuid.NewV7()))
	w = rs.do(t, http.MethodPost, "/v1/events", rs.token(t, user), body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = rs.do(t, http.MethodPost, "/v1/events", testWebhookToken, body)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_EventsDisabledWithoutToken(t *testing.T) {
	rs := newRoutedServer(t, &config.Config{})

	w := rs.do(t, http.MethodPost, "/v1/events", "anything", map[string]any{
		"event_type": "user.deleted",
		"data":       map[string]any{"user_id": uuid.Must(uuid.NewV7())},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_RateLimit(t *testing.T) {
	rs := newRoutedServer(t, &config.Config{
		RateLimitEnabled:        true,
		RateLimitRequestsPerSec: 0.001,
		RateLimitBurst:          1,
	})
	token := rs.token(t, authDomain.NewPrincipal(uuid.Must(uuid.NewV7())))

	w := rs.do(t, http.MethodGet, "/v1/secrets", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = rs.do(t, http.MethodGet, "/v1/secrets", token, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestServer_Shutdown(t *testing.T) {
	server := NewServer(nil, "127.0.0.1", 0, slog.New(slog.DiscardHandler))
	server.router = gin.New()

	done := make(chan error, 1)
	go func() { done <- server.Start(t.Context()) }()

	// Shutdown before ListenAndServe makes it return ErrServerClosed right away.
	require.Eventually(t, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return server.Shutdown(ctx) == nil
	}, 2*time.Second, 20*time.Millisecond)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestMetricsServer_Endpoints(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	provider, err := metrics.NewProvider("test_app")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	metricsServer := NewMetricsServer("localhost", 8081, logger, provider)
	require.NotNil(t, metricsServer)

	for _, path := range []string{"/metrics", "/health"} {
		w := httptest.NewRecorder()
		metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	metricsServer.GetHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/secrets", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
