package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/sparketl/internal/logging"
	"github.com/vvka-141/sparketl/internal/retry"
	"github.com/vvka-141/sparketl/pkg/sparketl"
)

// Connection pool configuration constants
const (
	// DefaultMaxConns is small: a run holds a single connection and the
	// rest only serve schema management.
	DefaultMaxConns = 4

	// DefaultMinConns maintains at least one connection in the pool.
	DefaultMinConns = 1

	// DefaultMaxConnIdleTime keeps the connection alive across long event passes.
	DefaultMaxConnIdleTime = 30 * time.Minute
)

func configurePool(poolConfig *pgxpool.Config, logger sparketl.Logger) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		logger.Verbose("postgres %s: %s", strings.ToLower(notice.Severity), notice.Message)
	}
}

func newConnectExecutor(logger sparketl.Logger) *retry.Executor {
	strategy := retry.NewExponentialBackoff(sparketl.DefaultRetryMaxAttempts,
		retry.WithInitialDelay(sparketl.DefaultRetryInitialDelay),
		retry.WithMaxDelay(sparketl.DefaultRetryMaxDelay),
	)
	return retry.NewExecutor(retry.NewPostgreSQLErrorClassifier(), strategy).
		WithLogger(logger, "connect")
}

func orNullLogger(logger sparketl.Logger) sparketl.Logger {
	if logger == nil {
		return logging.NewNullLogger()
	}
	return logger
}

// StandardConnector connects with username/password credentials and
// retries transient failures.
type StandardConnector struct {
	config        *sparketl.ConnectionConfig
	logger        sparketl.Logger
	retryExecutor *retry.Executor
}

// NewStandardConnector creates a StandardConnector. A nil logger discards output.
// Panics if config is nil.
func NewStandardConnector(config *sparketl.ConnectionConfig, logger sparketl.Logger) *StandardConnector {
	if config == nil {
		panic("config cannot be nil")
	}
	logger = orNullLogger(logger)

	return &StandardConnector{
		config:        config,
		logger:        logger,
		retryExecutor: newConnectExecutor(logger),
	}
}

// Connect establishes a connection pool using standard authentication with automatic retry.
func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	connStr := BuildConnectionString(c.config)

	err := c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		var err error
		pool, err = openPool(ctx, connStr, c.config, c.logger)
		return err
	})
	if err != nil {
		return nil, err
	}

	return pool, nil
}

// openPool parses connStr, creates a pool and pings it.
func openPool(ctx context.Context, connStr string, config *sparketl.ConnectionConfig, logger sparketl.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse connection config: %w", sparketl.ErrInvalidConfig, err)
	}

	configurePool(poolConfig, logger)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrapConnectionError(err, config.Host, config.Port, config.Database)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapConnectionError(err, config.Host, config.Port, config.Database)
	}

	logger.Verbose("connected to %s:%d/%s as %s", config.Host, config.Port, config.Database, config.Username)
	return pool, nil
}

// NewConnector picks the Connector implementation for config.AuthMethod.
func NewConnector(config *sparketl.ConnectionConfig, logger sparketl.Logger) (sparketl.Connector, error) {
	switch config.AuthMethod {
	case sparketl.AuthMethodStandard:
		return NewStandardConnector(config, logger), nil
	case sparketl.AuthMethodAWSIAM:
		return newAWSConnector(config, logger)
	case sparketl.AuthMethodGoogleIAM:
		return newGoogleConnector(config, logger)
	case sparketl.AuthMethodAzureEntraID:
		return newAzureConnector(config, logger)
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, sparketl.ErrUnsupportedAuthMethod)
	}
}

// wrapConnectionError wraps raw pgx connection errors with actionable guidance.
// Every result chains both ErrConnectionFailed and err.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`%w: connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port

Original error: %w`, sparketl.ErrConnectionFailed, addr, host, port, err)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		return fmt.Errorf(`%w: cannot resolve host "%s"

Check the hostname and that DNS is reachable.

Original error: %w`, sparketl.ErrConnectionFailed, host, err)

	case strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf(`%w: password authentication failed for database "%s"

Possible causes:
  - Wrong password (check $PGPASSWORD or the connection string)
  - Wrong username

Original error: %w`, sparketl.ErrConnectionFailed, database, err)

	case strings.Contains(errStr, "does not exist"):
		return fmt.Errorf(`%w: database "%s" does not exist

To create it:
  createdb %s
then run: sparketl schema up

Original error: %w`, sparketl.ErrConnectionFailed, database, database, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`%w: connection timed out to %s

The server may be overloaded, or a firewall may be dropping packets.

Original error: %w`, sparketl.ErrConnectionFailed, addr, err)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		return fmt.Errorf(`%w: SSL/TLS connection error

Check --sslmode (try --sslmode=require or --sslmode=disable for local servers).

Original error: %w`, sparketl.ErrConnectionFailed, err)

	case strings.Contains(errStr, "too many connections"):
		return fmt.Errorf(`%w: too many connections to database "%s"

max_connections is exhausted on the server.

Original error: %w`, sparketl.ErrConnectionFailed, database, err)

	default:
		return fmt.Errorf("%w: failed to connect to database: %w", sparketl.ErrConnectionFailed, err)
	}
}

// newAWSConnector creates a token-based connector with the AWS IAM token provider.
func newAWSConnector(config *sparketl.ConnectionConfig, logger sparketl.Logger) (sparketl.Connector, error) {
	endpoint := fmt.Sprintf("%s:%d", config.Host, config.Port)

	tokenProvider, err := NewRDSTokenProvider(endpoint, config.AWSRegion, config.Username)
	if err != nil {
		return nil, err
	}

	return NewTokenBasedConnector(config, tokenProvider, "AWS IAM", logger), nil
}

// newGoogleConnector creates a GoogleCloudSQLConnector for Google Cloud SQL IAM authentication.
func newGoogleConnector(config *sparketl.ConnectionConfig, logger sparketl.Logger) (sparketl.Connector, error) {
	if config.GoogleInstance == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires --google-instance (project:region:instance): %w", sparketl.ErrInvalidConfig)
	}
	if config.Username == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires username (-U): %w", sparketl.ErrInvalidConfig)
	}

	return NewGoogleCloudSQLConnector(config, config.GoogleInstance, logger), nil
}

// newAzureConnector uses Service Principal credentials when tenant, client
// and secret are all set, and the DefaultAzureCredential chain otherwise.
func newAzureConnector(config *sparketl.ConnectionConfig, logger sparketl.Logger) (sparketl.Connector, error) {
	var tokenProvider TokenProvider
	var err error

	if config.AzureTenantID != "" && config.AzureClientID != "" && config.AzureClientSecret != "" {
		tokenProvider, err = NewEntraServicePrincipalProvider(
			config.AzureTenantID,
			config.AzureClientID,
			config.AzureClientSecret,
		)
	} else {
		tokenProvider, err = NewEntraDefaultProvider(config.AzureTenantID)
	}
	if err != nil {
		return nil, err
	}

	return NewTokenBasedConnector(config, tokenProvider, "Azure", logger), nil
}
