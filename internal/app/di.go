// Package app provides the dependency injection container that assembles the vault.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	authService "github.com/allisson/credvault/internal/auth/service"
	"github.com/allisson/credvault/internal/config"
	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	cryptoService "github.com/allisson/credvault/internal/crypto/service"
	"github.com/allisson/credvault/internal/database"
	"github.com/allisson/credvault/internal/http"
	"github.com/allisson/credvault/internal/metrics"
	outboxUseCase "github.com/allisson/credvault/internal/outbox/usecase"
	vaultHTTP "github.com/allisson/credvault/internal/vault/http"
	vaultService "github.com/allisson/credvault/internal/vault/service"
	vaultUseCase "github.com/allisson/credvault/internal/vault/usecase"
)

// Container holds all application dependencies. Components are built on first access
// and cached, including the error of a failed build.
type Container struct {
	config *config.Config

	// Infrastructure
	logger    *slog.Logger
	db        *sql.DB
	txManager database.TxManager

	// Crypto
	kmsService cryptoService.KMSService
	masterKey  *cryptoDomain.MasterKey
	engine     cryptoService.Engine
	signer     vaultService.AccessLogSigner
	notarizer  vaultService.Notarizer

	// Auth
	jwtService *authService.JWTService

	// Repositories
	itemRepo      vaultUseCase.ItemRepository
	shareRepo     vaultUseCase.ShareRepository
	accessLogRepo vaultUseCase.AccessLogRepository
	outboxRepo    outboxUseCase.Repository

	// Use cases
	auditLogger   *vaultUseCase.AuditLogger
	vaultUseCase  vaultUseCase.VaultUseCase
	purgeUseCase  vaultUseCase.PurgeUseCase
	outboxUseCase outboxUseCase.UseCase

	// Metrics
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Handlers, servers and workers
	vaultHandler  *vaultHTTP.VaultHandler
	eventHandler  *vaultHTTP.EventHandler
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	txManagerInit       sync.Once
	kmsServiceInit      sync.Once
	masterKeyInit       sync.Once
	engineInit          sync.Once
	signerInit          sync.Once
	notarizerInit       sync.Once
	jwtServiceInit      sync.Once
	itemRepoInit        sync.Once
	shareRepoInit       sync.Once
	accessLogRepoInit   sync.Once
	outboxRepoInit      sync.Once
	auditLoggerInit     sync.Once
	vaultUseCaseInit    sync.Once
	purgeUseCaseInit    sync.Once
	outboxUseCaseInit   sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	vaultHandlerInit    sync.Once
	eventHandlerInit    sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a container for cfg.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the JSON logger at the configured level.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		c.db, c.initErrors["db"] = c.initDB()
	})
	if err := c.initErrors["db"]; err != nil {
		return nil, err
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		c.txManager, c.initErrors["txManager"] = c.initTxManager()
	})
	if err := c.initErrors["txManager"]; err != nil {
		return nil, err
	}
	return c.txManager, nil
}

// JWTService returns the bearer token verifier.
func (c *Container) JWTService() (*authService.JWTService, error) {
	c.jwtServiceInit.Do(func() {
		c.jwtService, c.initErrors["jwtService"] = authService.NewJWTService(
			c.config.JWTSecret,
			c.config.JWTIssuer,
			c.config.JWTLeeway,
		)
	})
	if err := c.initErrors["jwtService"]; err != nil {
		return nil, fmt.Errorf("failed to create jwt service: %w", err)
	}
	return c.jwtService, nil
}

// MetricsProvider returns the OpenTelemetry provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsProvider, c.initErrors["metricsProvider"] = metrics.NewProvider(c.config.MetricsNamespace)
	})
	if err := c.initErrors["metricsProvider"]; err != nil {
		return nil, err
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the vault business metrics. They are no-ops when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		c.businessMetrics, c.initErrors["businessMetrics"] = c.initBusinessMetrics()
	})
	if err := c.initErrors["businessMetrics"]; err != nil {
		return nil, err
	}
	return c.businessMetrics, nil
}

// HTTPServer returns the API server with its router configured.
func (c *Container) HTTPServer(ctx context.Context) (*http.Server, error) {
	c.httpServerInit.Do(func() {
		c.httpServer, c.initErrors["httpServer"] = c.initHTTPServer(ctx)
	})
	if err := c.initErrors["httpServer"]; err != nil {
		return nil, err
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus scrape server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		c.metricsServer, c.initErrors["metricsServer"] = c.initMetricsServer()
	})
	if err := c.initErrors["metricsServer"]; err != nil {
		return nil, err
	}
	return c.metricsServer, nil
}

// Shutdown releases every initialized resource. The master key is zeroed last.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
	}
	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
	}
	if c.masterKey != nil {
		c.masterKey.Close()
	}

	return errors.Join(errs...)
}

func (c *Container) initLogger() *slog.Logger {
	var level slog.Level
	switch c.config.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

func (c *Container) initBusinessMetrics() (metrics.BusinessMetrics, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
	}
	if provider == nil {
		return metrics.NewNoOpBusinessMetrics(), nil
	}
	return metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
}

func (c *Container) initHTTPServer(ctx context.Context) (*http.Server, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}
	vaultHandler, err := c.VaultHandler(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get vault handler for http server: %w", err)
	}
	eventHandler, err := c.EventHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get event handler for http server: %w", err)
	}
	jwtService, err := c.JWTService()
	if err != nil {
		return nil, err
	}
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger())
	server.SetupRouter(ctx, c.config, vaultHandler, eventHandler, jwtService, provider)
	return server, nil
}

func (c *Container) initMetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
	}
	if provider == nil {
		return nil, nil
	}
	return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
}
