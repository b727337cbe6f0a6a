package app

import (
	"context"
	"fmt"

	"github.com/allisson/credvault/internal/config"
	cryptoDomain "github.com/allisson/credvault/internal/crypto/domain"
	cryptoService "github.com/allisson/credvault/internal/crypto/service"
	vaultService "github.com/allisson/credvault/internal/vault/service"
)

// KMSService returns the KMS service used to unwrap the master key.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsServiceInit.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// MasterKey returns the process master key, decrypting it with the KMS when one is configured.
func (c *Container) MasterKey(ctx context.Context) (*cryptoDomain.MasterKey, error) {
	c.masterKeyInit.Do(func() {
		c.masterKey, c.initErrors["masterKey"] = cryptoService.LoadMasterKey(
			ctx,
			c.KMSService(),
			c.config.KMSProvider,
			c.config.KMSKeyURI,
			c.config.MasterKey,
		)
	})
	if err := c.initErrors["masterKey"]; err != nil {
		return nil, fmt.Errorf("failed to load master key: %w", err)
	}
	return c.masterKey, nil
}

// Engine returns the envelope encryption engine.
func (c *Container) Engine(ctx context.Context) (cryptoService.Engine, error) {
	c.engineInit.Do(func() {
		c.engine, c.initErrors["engine"] = c.initEngine(ctx)
	})
	if err := c.initErrors["engine"]; err != nil {
		return nil, err
	}
	return c.engine, nil
}

// AccessLogSigner returns the signer for access log rows.
func (c *Container) AccessLogSigner(ctx context.Context) (vaultService.AccessLogSigner, error) {
	c.signerInit.Do(func() {
		c.signer, c.initErrors["signer"] = c.initAccessLogSigner(ctx)
	})
	if err := c.initErrors["signer"]; err != nil {
		return nil, err
	}
	return c.signer, nil
}

// Notarizer returns the notarizer selected by NOTARIZATION_PROVIDER.
func (c *Container) Notarizer(ctx context.Context) (vaultService.Notarizer, error) {
	c.notarizerInit.Do(func() {
		c.notarizer, c.initErrors["notarizer"] = c.initNotarizer(ctx)
	})
	if err := c.initErrors["notarizer"]; err != nil {
		return nil, err
	}
	return c.notarizer, nil
}

func (c *Container) initEngine(ctx context.Context) (cryptoService.Engine, error) {
	masterKey, err := c.MasterKey(ctx)
	if err != nil {
		return nil, err
	}

	algorithm, err := cryptoDomain.ParseAlgorithm(c.config.DEKAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("invalid DEK_ALGORITHM: %w", err)
	}

	engine, err := cryptoService.NewEnvelopeEngine(
		masterKey,
		cryptoService.NewAEADManager(),
		algorithm,
		c.config.KDFIterations,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create envelope engine: %w", err)
	}
	return engine, nil
}

func (c *Container) initAccessLogSigner(ctx context.Context) (vaultService.AccessLogSigner, error) {
	masterKey, err := c.MasterKey(ctx)
	if err != nil {
		return nil, err
	}

	signer, err := vaultService.NewAccessLogSigner(masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create access log signer: %w", err)
	}
	return signer, nil
}

func (c *Container) initNotarizer(ctx context.Context) (vaultService.Notarizer, error) {
	switch c.config.NotarizationProvider {
	case "", config.NotarizationNone:
		return vaultService.NewNoopNotarizer(), nil
	case config.NotarizationHashChain:
		masterKey, err := c.MasterKey(ctx)
		if err != nil {
			return nil, err
		}
		notarizer, err := vaultService.NewHashChainNotarizer(masterKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create notarizer: %w", err)
		}
		return notarizer, nil
	default:
		return nil, fmt.Errorf("unsupported notarization provider: %s", c.config.NotarizationProvider)
	}
}
