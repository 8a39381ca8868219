package db

import (
	"context"
	"fmt"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vvka-141/sparketl/pkg/sparketl"
)

// GoogleCloudSQLConnector connects to Cloud SQL with IAM database
// authentication through the Cloud SQL Go Connector.
//
// Implements io.Closer: call Close after the pool is closed to release
// the dialer.
type GoogleCloudSQLConnector struct {
	config   *sparketl.ConnectionConfig
	instance string
	logger   sparketl.Logger
	dialer   *cloudsqlconn.Dialer
}

// NewGoogleCloudSQLConnector creates a connector for Google Cloud SQL IAM authentication.
// instance is the instance connection name in format: project:region:instance
func NewGoogleCloudSQLConnector(config *sparketl.ConnectionConfig, instance string, logger sparketl.Logger) *GoogleCloudSQLConnector {
	return &GoogleCloudSQLConnector{
		config:   config,
		instance: instance,
		logger:   orNullLogger(logger),
	}
}

// dsn names the instance as host; the dialer ignores it and dials the instance.
func (c *GoogleCloudSQLConnector) dsn() string {
	dsn := fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable", c.instance, c.config.Username, c.config.Database)
	if c.config.AppName != "" {
		dsn += " application_name=" + c.config.AppName
	}
	return dsn
}

// Connect creates the dialer, opens a pool through it and pings it.
func (c *GoogleCloudSQLConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Cloud SQL dialer: %w", sparketl.ErrConnectionFailed, err)
	}

	poolConfig, err := pgxpool.ParseConfig(c.dsn())
	if err != nil {
		dialer.Close()
		return nil, fmt.Errorf("%w: failed to parse connection config: %w", sparketl.ErrInvalidConfig, err)
	}

	poolConfig.ConnConfig.DialFunc = func(ctx context.Context, _, _ string) (net.Conn, error) {
		return dialer.Dial(ctx, c.instance)
	}

	configurePool(poolConfig, c.logger)

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		dialer.Close()
		return nil, fmt.Errorf("%w: failed to connect to %s: %w", sparketl.ErrConnectionFailed, c.instance, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		dialer.Close()
		return nil, fmt.Errorf("%w: failed to ping %s: %w", sparketl.ErrConnectionFailed, c.instance, err)
	}

	c.logger.Verbose("connected to Cloud SQL instance %s", c.instance)
	c.dialer = dialer
	return pool, nil
}

// Close releases the Cloud SQL dialer resources.
// Must be called after the connection pool returned by Connect() is closed.
func (c *GoogleCloudSQLConnector) Close() error {
	if c.dialer != nil {
		c.dialer.Close()
		c.dialer = nil
	}
	return nil
}
