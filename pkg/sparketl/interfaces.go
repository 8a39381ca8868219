package sparketl

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Logger receives progress and diagnostics. Implementations must be safe
// for concurrent use.
type Logger interface {
	// Verbose is printed only with -v.
	Verbose(format string, args ...any)

	// Info carries the progress lines ("n files found in root") and is always printed.
	Info(format string, args ...any)

	Error(format string, args ...any)
}

// Connector opens a pool for one auth method: password, AWS RDS IAM,
// Google Cloud SQL IAM or Azure Entra ID. The caller closes the pool.
type Connector interface {
	Connect(ctx context.Context) (*pgxpool.Pool, error)
}

// ErrorClassifier decides whether a failed attempt is worth retrying.
type ErrorClassifier interface {
	IsTransient(err error) bool
}

// BackoffStrategy spaces out retry attempts.
type BackoffStrategy interface {
	// NextDelay is the wait before retry number attempt, counting from zero.
	NextDelay(attempt int) time.Duration

	// MaxAttempts bounds the retries; zero disables them and -1 retries
	// until the context ends.
	MaxAttempts() int
}
