package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/sparketl/internal/retry"
	"github.com/vvka-141/sparketl/pkg/sparketl"
)

// tokenExpiryWarning is how close to expiry a fresh token triggers a warning.
const tokenExpiryWarning = 5 * time.Minute

// TokenBasedConnector implements the Connector interface for cloud providers
// that authenticate via short-lived tokens (AWS IAM, Azure Entra ID).
// The token is used as the PostgreSQL password.
type TokenBasedConnector struct {
	config        *sparketl.ConnectionConfig
	tokenProvider TokenProvider
	retryExecutor *retry.Executor
	providerName  string
	logger        sparketl.Logger
}

// NewTokenBasedConnector creates a connector that uses a TokenProvider for authentication.
// providerName is used in error/warning messages (e.g., "AWS IAM", "Azure").
func NewTokenBasedConnector(config *sparketl.ConnectionConfig, tokenProvider TokenProvider, providerName string, logger sparketl.Logger) *TokenBasedConnector {
	if config == nil {
		panic("config cannot be nil")
	}
	if tokenProvider == nil {
		panic("tokenProvider cannot be nil")
	}
	logger = orNullLogger(logger)

	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		retryExecutor: newConnectExecutor(logger),
		providerName:  providerName,
		logger:        logger,
	}
}

// Connect acquires a fresh token for every attempt.
func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool

	err := c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		token, expiresOn, err := c.tokenProvider.GetToken(ctx)
		if err != nil {
			return fmt.Errorf("%w: failed to acquire %s token: %w", sparketl.ErrConnectionFailed, c.providerName, err)
		}

		if remaining := time.Until(expiresOn); remaining < tokenExpiryWarning {
			c.logger.Info("Warning: %s token expires in %v", c.providerName, remaining.Round(time.Second))
		}
		c.logger.Verbose("acquired token from %s", c.tokenProvider)

		configWithToken := *c.config
		configWithToken.Password = token

		pool, err = openPool(ctx, BuildConnectionString(&configWithToken), c.config, c.logger)
		return err
	})
	if err != nil {
		return nil, err
	}

	return pool, nil
}
