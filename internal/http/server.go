// Package http provides the HTTP server, router and request middleware.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authHTTP "github.com/allisson/credvault/internal/auth/http"
	authService "github.com/allisson/credvault/internal/auth/service"
	"github.com/allisson/credvault/internal/config"
	"github.com/allisson/credvault/internal/metrics"
	vaultHTTP "github.com/allisson/credvault/internal/vault/http"
)

// readinessTimeout bounds the database ping of the readiness probe.
const readinessTimeout = 2 * time.Second

// Server represents the HTTP server.
type Server struct {
	db     *sql.DB
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
}

// NewServer creates a new HTTP server. The router is installed by SetupRouter.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter builds the gin engine with all routes and middleware.
//
// ctx bounds background goroutines started by middleware, such as the rate limiter's
// cleanup loop. metricsProvider may be nil when metrics are disabled.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	vaultHandler *vaultHTTP.VaultHandler,
	eventHandler *vaultHTTP.EventHandler,
	tokenVerifier authService.TokenVerifier,
	metricsProvider *metrics.Provider,
) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")

	// Platform events are authenticated with a shared webhook token, not a user JWT.
	v1.POST("/events",
		authHTTP.StaticTokenMiddleware(cfg.EventsWebhookToken, s.logger),
		authHTTP.RequestInfoMiddleware(),
		eventHandler.ReceiveHandler,
	)

	authenticated := v1.Group("")
	authenticated.Use(authHTTP.AuthenticationMiddleware(tokenVerifier, s.logger))
	authenticated.Use(authHTTP.RequestInfoMiddleware())
	if cfg.RateLimitEnabled {
		authenticated.Use(authHTTP.RateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	secrets := authenticated.Group("/secrets")
	{
		secrets.POST("", vaultHandler.CreateHandler)
		secrets.GET("", vaultHandler.ListHandler)
		secrets.GET("/stats", vaultHandler.StatsHandler)
		secrets.GET("/:id", vaultHandler.GetHandler)
		secrets.PATCH("/:id", vaultHandler.UpdateHandler)
		secrets.DELETE("/:id", vaultHandler.DeleteHandler)
		secrets.POST("/:id/rotate", vaultHandler.RotateHandler)
		secrets.POST("/:id/test", vaultHandler.TestHandler)
		secrets.POST("/:id/shares", vaultHandler.ShareHandler)
		secrets.GET("/:id/shares", vaultHandler.ListSharesHandler)
		secrets.DELETE("/:id/shares/:share_id", vaultHandler.RevokeShareHandler)
	}
	authenticated.GET("/shares", vaultHandler.ListSharedWithMeHandler)
	authenticated.GET("/access-logs", vaultHandler.AccessLogsHandler)

	s.router = router
}

// GetHandler returns the http.Handler, or nil before SetupRouter.
func (s *Server) GetHandler() http.Handler {
	if s.router == nil {
		return nil
	}
	return s.router
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not configured: call SetupRouter first")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the database is reachable.
func (s *Server) readinessHandler(c *gin.Context) {
	database := "ok"
	if err := s.pingDB(c.Request.Context()); err != nil {
		s.logger.Warn("readiness check failed", slog.Any("error", err))
		database = "error"
	}

	status, code := "ready", http.StatusOK
	if database != "ok" {
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status": status,
		"components": gin.H{
			"database": database,
		},
	})
}

func (s *Server) pingDB(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()
	return s.db.PingContext(ctx)
}
