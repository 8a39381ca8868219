package services

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/vvka-141/sparketl/pkg/sparketl"
)

// ConnectorFactory builds a Connector for a resolved connection config.
type ConnectorFactory func(*sparketl.ConnectionConfig) (sparketl.Connector, error)

// SessionManager opens the single database session a load run holds.
//
// SessionManager is safe for concurrent use as long as the injected
// connectorFactory and logger are.
type SessionManager struct {
	connectorFactory ConnectorFactory
	logger           sparketl.Logger
}

// NewSessionManager creates a new SessionManager with all dependencies injected.
// Panics if any dependency is nil.
func NewSessionManager(connectorFactory ConnectorFactory, logger sparketl.Logger) *SessionManager {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	return &SessionManager{
		connectorFactory: connectorFactory,
		logger:           logger,
	}
}

// ApplicationName tags server-side sessions of a run so they can be found
// in pg_stat_activity.
func ApplicationName(runID uuid.UUID) string {
	return fmt.Sprintf("%s/%s", sparketl.AppName, runID.String()[:8])
}

// OpenSession connects and acquires the one connection every statement of
// the run goes through. The caller owns the session: defer session.Close().
func (sm *SessionManager) OpenSession(
	ctx context.Context,
	connConfig *sparketl.ConnectionConfig,
	runID uuid.UUID,
) (*sparketl.Session, error) {
	cfg := *connConfig
	if cfg.AppName == "" {
		cfg.AppName = ApplicationName(runID)
	}

	sm.logger.Verbose("Connecting to database '%s' on %s:%d (%s auth)", cfg.Database, cfg.Host, cfg.Port, cfg.AuthMethod)

	connector, err := sm.connectorFactory(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}

	pool, err := connector.Connect(ctx)
	if err != nil {
		closeConnector(connector)
		return nil, fmt.Errorf("failed to connect to database %q: %w", cfg.Database, err)
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		closeConnector(connector)
		return nil, fmt.Errorf("%w: failed to acquire connection: %w", sparketl.ErrConnectionFailed, err)
	}

	session := sparketl.NewSession(pool, conn, runID)
	if closer, ok := connector.(io.Closer); ok {
		session.AddCloser(closer)
	}

	sm.logger.Verbose("Session %s ready", runID)
	return session, nil
}

func closeConnector(connector sparketl.Connector) {
	if closer, ok := connector.(io.Closer); ok {
		_ = closer.Close()
	}
}
