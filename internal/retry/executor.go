package retry

import (
	"context"
	"fmt"
)

// RecoverFunc repairs the condition behind err before attempt number attempt
// (1-based) is made. Returning an error aborts the execution.
type RecoverFunc func(ctx context.Context, attempt int, err error) error

// Executor runs an operation, recovering and retrying it a bounded number of times.
//
// Thread Safety:
// The Executor itself is safe for concurrent use when calling Execute().
// WithRecover() and WithOnRetry() return NEW instances; the original
// Executor remains unchanged.
type Executor struct {
	classifier ErrorClassifier
	maxRetries int
	recover    RecoverFunc
	onRetry    func(attempt int, err error)
}

// NewExecutor creates a new executor allowing at most maxRetries retries.
// Panics if classifier is nil or maxRetries is negative.
func NewExecutor(classifier ErrorClassifier, maxRetries int) *Executor {
	if classifier == nil {
		panic("classifier cannot be nil")
	}
	if maxRetries < 0 {
		panic("maxRetries cannot be negative")
	}
	return &Executor{
		classifier: classifier,
		maxRetries: maxRetries,
	}
}

// WithRecover returns a new Executor running fn before every retry.
func (e *Executor) WithRecover(fn RecoverFunc) *Executor {
	clone := *e
	clone.recover = fn
	return &clone
}

// WithOnRetry returns a new Executor with the specified retry callback,
// invoked after recovery succeeded and before the retry runs.
func (e *Executor) WithOnRetry(callback func(attempt int, err error)) *Executor {
	clone := *e
	clone.onRetry = callback
	return &clone
}

// MaxRetries returns the retry bound.
func (e *Executor) MaxRetries() int {
	return e.maxRetries
}

// Execute runs the operation. A recoverable failure is repaired and retried
// until the bound is reached; the error of the last attempt is returned.
func (e *Executor) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	lastErr := operation(ctx)

	for attempt := 1; lastErr != nil && attempt <= e.maxRetries; attempt++ {
		if !e.classifier.IsRecoverable(lastErr) {
			return lastErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if e.recover != nil {
			if err := e.recover(ctx, attempt, lastErr); err != nil {
				return fmt.Errorf("recovery before retry %d failed: %w", attempt, err)
			}
		}
		if e.onRetry != nil {
			e.onRetry(attempt, lastErr)
		}

		lastErr = operation(ctx)
	}

	return lastErr
}
