package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/credvault/internal/auth/domain"
	authService "github.com/allisson/credvault/internal/auth/service"
	"github.com/allisson/credvault/internal/httputil"
)

// mockTokenVerifier is a mock implementation of TokenVerifier for testing.
type mockTokenVerifier struct {
	mock.Mock
}

func (m *mockTokenVerifier) Verify(token string) (*authDomain.Principal, error) {
	args := m.Called(token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authDomain.Principal), args.Error(1)
}

// TestMain sets Gin to test mode for all tests in this package.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// createTestLogger creates a test logger that discards output.
func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAuthRouter(verifier authService.TokenVerifier) *gin.Engine {
	router := gin.New()
	router.Use(AuthenticationMiddleware(verifier, createTestLogger()))
	router.GET("/test", func(c *gin.Context) {
		principal, ok := GetPrincipal(c.Request.Context())
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": principal.UserID.String()})
	})
	return router
}

func TestAuthenticationMiddleware_Success(t *testing.T) {
	verifier := &mockTokenVerifier{}
	userID := uuid.Must(uuid.NewV7())
	verifier.On("Verify", "good-token").Return(&authDomain.Principal{UserID: userID}, nil).Once()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "bearer good-token")
	newAuthRouter(verifier).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())
	verifier.AssertExpectations(t)
}

func TestAuthenticationMiddleware_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"basic scheme", "Basic dXNlcjpwYXNz"},
		{"empty bearer", "Bearer "},
		{"prefix only", "Bearer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &mockTokenVerifier{}

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			newAuthRouter(verifier).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			verifier.AssertNotCalled(t, "Verify", mock.Anything)
		})
	}
}

func TestAuthenticationMiddleware_InvalidToken(t *testing.T) {
	verifier := &mockTokenVerifier{}
	verifier.On("Verify", "forged").Return(nil, authDomain.ErrInvalidToken).Once()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer forged")
	newAuthRouter(verifier).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unauthorized", resp.Error)
}

func TestAuthenticationMiddleware_RealJWT(t *testing.T) {
	svc, err := authService.NewJWTService("test-secret-key-with-at-least-32-bytes!", "", 0)
	require.NoError(t, err)

	userID := uuid.Must(uuid.NewV7())
	token, err := svc.Issue(authDomain.NewPrincipal(userID), time.Minute)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	newAuthRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())
}

func TestRequestInfoMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(requestid.New())
	router.Use(RequestInfoMiddleware())

	var captured authDomain.RequestInfo
	router.GET("/test", func(c *gin.Context) {
		captured = authDomain.GetRequestInfo(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("User-Agent", "vault-cli/1.0")
	req.Header.Set("X-Request-Id", "req-123")
	req.RemoteAddr = "192.0.2.10:5555"
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "vault-cli/1.0", captured.UserAgent)
	assert.Equal(t, "192.0.2.10", captured.IPAddress)
	assert.Equal(t, "req-123", captured.RequestID)
}

func TestStaticTokenMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		header   string
		status   int
	}{
		{"valid", "hook-secret", "Bearer hook-secret", http.StatusNoContent},
		{"wrong token", "hook-secret", "Bearer nope", http.StatusUnauthorized},
		{"missing", "hook-secret", "", http.StatusUnauthorized},
		{"unconfigured", "", "Bearer ", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.Use(StaticTokenMiddleware(tt.expected, createTestLogger()))
			router.POST("/hook", func(c *gin.Context) { c.Status(http.StatusNoContent) })

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/hook", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}
}
