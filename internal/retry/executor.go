package retry

import (
	"context"
	"time"

	"github.com/vvka-141/sparketl/pkg/sparketl"
)

// Executor runs an operation until it succeeds, fails fatally, or the
// backoff strategy runs out of attempts. It is safe for concurrent use;
// the With* methods return modified copies.
type Executor struct {
	classifier sparketl.ErrorClassifier
	strategy   sparketl.BackoffStrategy
	onRetry    func(attempt int, err error, delay time.Duration)
}

// NewExecutor creates a retry executor.
// Panics if classifier or strategy is nil.
func NewExecutor(classifier sparketl.ErrorClassifier, strategy sparketl.BackoffStrategy) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if strategy == nil {
		panic("strategy cannot be nil")
	}
	return &Executor{classifier: classifier, strategy: strategy}
}

// WithOnRetry returns a copy that calls callback before every wait.
func (e *Executor) WithOnRetry(callback func(attempt int, err error, delay time.Duration)) *Executor {
	clone := *e
	clone.onRetry = callback
	return &clone
}

// WithLogger returns a copy that reports each retry through logger.
func (e *Executor) WithLogger(logger sparketl.Logger, operation string) *Executor {
	if logger == nil {
		return e
	}
	return e.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		logger.Verbose("%s failed (retry %d in %v): %v", operation, attempt+1, delay.Round(time.Millisecond), err)
	})
}

// Execute runs operation, retrying transient errors. A negative
// MaxAttempts retries until ctx is done.
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	err := operation(ctx)
	maxAttempts := e.strategy.MaxAttempts()

	for attempt := 0; err != nil && e.classifier.IsTransient(err); attempt++ {
		if maxAttempts >= 0 && attempt >= maxAttempts {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		delay := e.strategy.NextDelay(attempt)
		if e.onRetry != nil {
			e.onRetry(attempt, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		err = operation(ctx)
	}

	return err
}
