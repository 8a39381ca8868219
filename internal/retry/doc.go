// Package retry retries database connection setup on transient failures.
//
// Only connection establishment is retried. Once a load run holds its
// session, every statement runs exactly once and any failure is final.
//
//	executor := retry.NewExecutor(
//	    retry.NewPostgreSQLErrorClassifier(),
//	    retry.NewExponentialBackoff(3),
//	).WithLogger(logger, "connect")
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return ping(ctx)
//	})
package retry
