package app

import (
	"context"
	"fmt"

	outboxRepository "github.com/allisson/credvault/internal/outbox/repository"
	outboxUseCase "github.com/allisson/credvault/internal/outbox/usecase"
	vaultHTTP "github.com/allisson/credvault/internal/vault/http"
	vaultRepository "github.com/allisson/credvault/internal/vault/repository"
	vaultUseCase "github.com/allisson/credvault/internal/vault/usecase"
)

// ItemRepository returns the vault item repository for the configured driver.
func (c *Container) ItemRepository() (vaultUseCase.ItemRepository, error) {
	c.itemRepoInit.Do(func() {
		c.itemRepo, c.initErrors["itemRepo"] = c.initItemRepository()
	})
	if err := c.initErrors["itemRepo"]; err != nil {
		return nil, err
	}
	return c.itemRepo, nil
}

// ShareRepository returns the share repository for the configured driver.
func (c *Container) ShareRepository() (vaultUseCase.ShareRepository, error) {
	c.shareRepoInit.Do(func() {
		c.shareRepo, c.initErrors["shareRepo"] = c.initShareRepository()
	})
	if err := c.initErrors["shareRepo"]; err != nil {
		return nil, err
	}
	return c.shareRepo, nil
}

// AccessLogRepository returns the access log repository for the configured driver.
func (c *Container) AccessLogRepository() (vaultUseCase.AccessLogRepository, error) {
	c.accessLogRepoInit.Do(func() {
		c.accessLogRepo, c.initErrors["accessLogRepo"] = c.initAccessLogRepository()
	})
	if err := c.initErrors["accessLogRepo"]; err != nil {
		return nil, err
	}
	return c.accessLogRepo, nil
}

// OutboxRepository returns the outbox event repository for the configured driver.
func (c *Container) OutboxRepository() (outboxUseCase.Repository, error) {
	c.outboxRepoInit.Do(func() {
		c.outboxRepo, c.initErrors["outboxRepo"] = c.initOutboxRepository()
	})
	if err := c.initErrors["outboxRepo"]; err != nil {
		return nil, err
	}
	return c.outboxRepo, nil
}

// AuditLogger returns the signed access log writer.
func (c *Container) AuditLogger(ctx context.Context) (*vaultUseCase.AuditLogger, error) {
	c.auditLoggerInit.Do(func() {
		c.auditLogger, c.initErrors["auditLogger"] = c.initAuditLogger(ctx)
	})
	if err := c.initErrors["auditLogger"]; err != nil {
		return nil, err
	}
	return c.auditLogger, nil
}

// VaultUseCase returns the secret lifecycle use case.
func (c *Container) VaultUseCase(ctx context.Context) (vaultUseCase.VaultUseCase, error) {
	c.vaultUseCaseInit.Do(func() {
		c.vaultUseCase, c.initErrors["vaultUseCase"] = c.initVaultUseCase(ctx)
	})
	if err := c.initErrors["vaultUseCase"]; err != nil {
		return nil, err
	}
	return c.vaultUseCase, nil
}

// PurgeUseCase returns the user data purge use case.
func (c *Container) PurgeUseCase() (vaultUseCase.PurgeUseCase, error) {
	c.purgeUseCaseInit.Do(func() {
		c.purgeUseCase, c.initErrors["purgeUseCase"] = c.initPurgeUseCase()
	})
	if err := c.initErrors["purgeUseCase"]; err != nil {
		return nil, err
	}
	return c.purgeUseCase, nil
}

// OutboxUseCase returns the outbox dispatcher.
func (c *Container) OutboxUseCase() (outboxUseCase.UseCase, error) {
	c.outboxUseCaseInit.Do(func() {
		c.outboxUseCase, c.initErrors["outboxUseCase"] = c.initOutboxUseCase()
	})
	if err := c.initErrors["outboxUseCase"]; err != nil {
		return nil, err
	}
	return c.outboxUseCase, nil
}

// VaultHandler returns the HTTP handler for secret routes.
func (c *Container) VaultHandler(ctx context.Context) (*vaultHTTP.VaultHandler, error) {
	c.vaultHandlerInit.Do(func() {
		c.vaultHandler, c.initErrors["vaultHandler"] = c.initVaultHandler(ctx)
	})
	if err := c.initErrors["vaultHandler"]; err != nil {
		return nil, err
	}
	return c.vaultHandler, nil
}

// EventHandler returns the HTTP handler for platform events.
func (c *Container) EventHandler() (*vaultHTTP.EventHandler, error) {
	c.eventHandlerInit.Do(func() {
		c.eventHandler, c.initErrors["eventHandler"] = c.initEventHandler()
	})
	if err := c.initErrors["eventHandler"]; err != nil {
		return nil, err
	}
	return c.eventHandler, nil
}

func (c *Container) initItemRepository() (vaultUseCase.ItemRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for item repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return vaultRepository.NewMySQLItemRepository(db), nil
	case "postgres":
		return vaultRepository.NewPostgreSQLItemRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initShareRepository() (vaultUseCase.ShareRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for share repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return vaultRepository.NewMySQLShareRepository(db), nil
	case "postgres":
		return vaultRepository.NewPostgreSQLShareRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initAccessLogRepository() (vaultUseCase.AccessLogRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for access log repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return vaultRepository.NewMySQLAccessLogRepository(db), nil
	case "postgres":
		return vaultRepository.NewPostgreSQLAccessLogRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initOutboxRepository() (outboxUseCase.Repository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for outbox repository: %w", err)
	}

	switch c.config.DBDriver {
	case "mysql":
		return outboxRepository.NewMySQLRepository(db), nil
	case "postgres":
		return outboxRepository.NewPostgreSQLRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) initAuditLogger(ctx context.Context) (*vaultUseCase.AuditLogger, error) {
	accessLogRepo, err := c.AccessLogRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get access log repository for audit logger: %w", err)
	}
	signer, err := c.AccessLogSigner(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get signer for audit logger: %w", err)
	}
	return vaultUseCase.NewAuditLogger(accessLogRepo, signer, c.Logger()), nil
}

func (c *Container) initVaultUseCase(ctx context.Context) (vaultUseCase.VaultUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for vault use case: %w", err)
	}
	itemRepo, err := c.ItemRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get item repository for vault use case: %w", err)
	}
	shareRepo, err := c.ShareRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get share repository for vault use case: %w", err)
	}
	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for vault use case: %w", err)
	}
	auditLogger, err := c.AuditLogger(ctx)
	if err != nil {
		return nil, err
	}
	engine, err := c.Engine(ctx)
	if err != nil {
		return nil, err
	}
	notarizer, err := c.Notarizer(ctx)
	if err != nil {
		return nil, err
	}

	useCase := vaultUseCase.NewVaultUseCase(
		txManager,
		itemRepo,
		shareRepo,
		vaultUseCase.NewAccessResolver(shareRepo),
		auditLogger,
		vaultUseCase.NewOutboxEventPublisher(outboxRepo),
		engine,
		notarizer,
		c.config.NotarizationTimeout,
		c.Logger(),
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for vault use case: %w", err)
		}
		return vaultUseCase.NewVaultUseCaseWithMetrics(useCase, businessMetrics), nil
	}
	return useCase, nil
}

func (c *Container) initPurgeUseCase() (vaultUseCase.PurgeUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for purge use case: %w", err)
	}
	itemRepo, err := c.ItemRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get item repository for purge use case: %w", err)
	}
	shareRepo, err := c.ShareRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get share repository for purge use case: %w", err)
	}
	accessLogRepo, err := c.AccessLogRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get access log repository for purge use case: %w", err)
	}

	useCase := vaultUseCase.NewPurgeUseCase(txManager, itemRepo, shareRepo, accessLogRepo, c.Logger())

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for purge use case: %w", err)
		}
		return vaultUseCase.NewPurgeUseCaseWithMetrics(useCase, businessMetrics), nil
	}
	return useCase, nil
}

func (c *Container) initOutboxUseCase() (outboxUseCase.UseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for outbox use case: %w", err)
	}
	outboxRepo, err := c.OutboxRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox repository for outbox use case: %w", err)
	}

	logger := c.Logger()
	cfg := outboxUseCase.Config{
		Interval:   c.config.OutboxInterval,
		BatchSize:  c.config.OutboxBatchSize,
		MaxRetries: c.config.OutboxMaxRetries,
	}
	useCase := outboxUseCase.NewDispatcher(
		cfg,
		txManager,
		outboxRepo,
		outboxUseCase.NewLogHandler(logger),
		logger,
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for outbox use case: %w", err)
		}
		return outboxUseCase.NewDispatcherWithMetrics(useCase, cfg, businessMetrics, logger), nil
	}
	return useCase, nil
}

func (c *Container) initVaultHandler(ctx context.Context) (*vaultHTTP.VaultHandler, error) {
	useCase, err := c.VaultUseCase(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get vault use case for vault handler: %w", err)
	}
	return vaultHTTP.NewVaultHandler(useCase, c.Logger()), nil
}

func (c *Container) initEventHandler() (*vaultHTTP.EventHandler, error) {
	useCase, err := c.PurgeUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get purge use case for event handler: %w", err)
	}
	return vaultHTTP.NewEventHandler(useCase, c.Logger()), nil
}
