// Package retry provides bounded recovery for operations that fail with an
// error the caller knows how to repair.
//
// Unlike a transient-failure retry loop there is no backoff: the executor
// runs the operation, and if the failure is recoverable it runs the recovery
// callback and then the operation again, at most MaxRetries times. The bulk
// loader uses it with MaxRetries 1 to create a missing target table and redo
// the copy.
//
// # Example Usage
//
//	executor := retry.NewExecutor(retry.RelationMissing(), 1).
//	    WithRecover(func(ctx context.Context, attempt int, err error) error {
//	        return createTable(ctx)
//	    })
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return copyRows(ctx)
//	})
//
// # Thread Safety
//
// Executor instances are safe for concurrent use. WithRecover and WithOnRetry
// return independent copies.
package retry
