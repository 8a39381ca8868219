package sparketl

import (
	"errors"
	"io"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Session encapsulates the single database connection held for a whole run.
//
// Session manages the lifecycle of database resources (pool and connection)
// and ensures proper cleanup through a single Close() method. It is passed
// explicitly to the load service so several runs can coexist in one process.
//
// Thread-Safety: NOT safe for concurrent use.
type Session struct {
	pool  *pgxpool.Pool
	conn  *pgxpool.Conn
	runID uuid.UUID

	closers []io.Closer
}

// NewSession creates a new Session instance.
// Panics if pool or conn is nil.
func NewSession(pool *pgxpool.Pool, conn *pgxpool.Conn, runID uuid.UUID) *Session {
	if pool == nil {
		panic("pool cannot be nil")
	}
	if conn == nil {
		panic("conn cannot be nil")
	}

	return &Session{
		pool:  pool,
		conn:  conn,
		runID: runID,
	}
}

// Pool returns the connection pool for the session.
func (s *Session) Pool() *pgxpool.Pool {
	return s.pool
}

// Conn returns the acquired connection every statement of the run goes through.
func (s *Session) Conn() *pgxpool.Conn {
	return s.conn
}

// RunID identifies the run in logs and in application_name.
func (s *Session) RunID() uuid.UUID {
	return s.runID
}

// AddCloser registers c to be closed after the pool, e.g. a Cloud SQL dialer.
func (s *Session) AddCloser(c io.Closer) {
	s.closers = append(s.closers, c)
}

// Close releases the connection, closes the pool, then runs registered
// closers. Idempotent.
func (s *Session) Close() error {
	if s.conn != nil {
		s.conn.Release()
		s.conn = nil
	}

	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}

	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	s.closers = nil

	return errors.Join(errs...)
}
