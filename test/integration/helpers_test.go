// Package integration exercises the HTTP API and the CLI use cases against real
// PostgreSQL and MySQL databases.
package integration

import (
	"bytes"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/allisson/credvault/internal/app"
	authDomain "github.com/allisson/credvault/internal/auth/domain"
	"github.com/allisson/credvault/internal/config"
	"github.com/allisson/credvault/internal/testutil"
)

const webhookToken = "integration-webhook-token"

var drivers = []string{"postgres", "mysql"}

type testEnv struct {
	container *app.Container
	db        *sql.DB
	server    *httptest.Server
	driver    string
}

// newTestEnv migrates and empties the database of driver and serves the full router.
func newTestEnv(t *testing.T, driver string) *testEnv {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testutil.SkipIfNoDB(t, driver)
	gin.SetMode(gin.TestMode)

	db := testutil.SetupDB(t, driver)
	t.Cleanup(func() {
		testutil.TeardownDB(t, db)
	})

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	cfg := &config.Config{
		LogLevel:             "error",
		DBDriver:             driver,
		DBConnectionString:   testutil.DSN(driver),
		DBMaxOpenConnections: 5,
		DBMaxIdleConnections: 2,
		DBConnMaxLifetime:    time.Minute,
		MasterKey:            base64.StdEncoding.EncodeToString(key),
		KDFIterations:        100000,
		DEKAlgorithm:         "aes-gcm",
		JWTSecret:            "integration-secret-0123456789abcdef",
		JWTIssuer:            "credvault-integration",
		JWTLeeway:            time.Second,
		EventsWebhookToken:   webhookToken,
		NotarizationProvider: config.NotarizationHashChain,
		NotarizationTimeout:  time.Second,
		OutboxInterval:       time.Second,
		OutboxBatchSize:      50,
		OutboxMaxRetries:     3,
		MetricsNamespace:     "credvault_integration",
	}
	require.NoError(t, cfg.Validate())

	container := app.NewContainer(cfg)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = container.Shutdown(ctx)
	})

	server, err := container.HTTPServer(t.Context())
	require.NoError(t, err)

	ts := httptest.NewServer(server.GetHandler())
	t.Cleanup(ts.Close)

	return &testEnv{container: container, db: db, server: ts, driver: driver}
}

// token issues a JWT for principal.
func (e *testEnv) token(t *testing.T, principal authDomain.Principal) string {
	t.Helper()
	jwtService, err := e.container.JWTService()
	require.NoError(t, err)
	token, err := jwtService.Issue(principal, time.Hour)
	require.NoError(t, err)
	return token
}

// do sends a request and decodes a JSON response body into out when out is not nil.
func (e *testEnv) do(t *testing.T, method, path, token string, body, out any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(t.Context(), method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil && len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, out), string(raw))
	}
	return resp.StatusCode
}

// count returns the number of rows of table matching where, which takes no arguments.
func (e *testEnv) count(t *testing.T, table, where string) int {
	t.Helper()
	query := "SELECT COUNT(*) FROM " + table
	if where != "" {
		query += " WHERE " + where
	}
	var n int
	require.NoError(t, e.db.QueryRowContext(t.Context(), query).Scan(&n))
	return n
}

func newUserID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
