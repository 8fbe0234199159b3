package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	backoff "github.com/sethvargo/go-retry"
)

// Defaults used when Do is given non-positive values.
const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 800 * time.Millisecond
)

// ExhaustedError wraps the last underlying failure after every attempt has
// been used up.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d attempts failed: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do invokes op up to attempts times, sleeping baseDelay × n after the n-th
// failure. The backoff is linear, not exponential. When the final attempt
// fails it returns an *ExhaustedError wrapping the last error; a cancelled
// context surfaces the context error instead.
func Do(ctx context.Context, attempts int, baseDelay time.Duration, op func(context.Context) error) error {
	if attempts < 1 {
		attempts = DefaultAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}

	b := backoff.WithMaxRetries(uint64(attempts-1), linear(baseDelay))
	err := backoff.Do(ctx, b, func(ctx context.Context) error {
		if err := op(ctx); err != nil {
			// Mark everything retryable; the attempt budget is the only
			// thing that stops the loop.
			return backoff.RetryableError(err)
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if cerr := ctx.Err(); cerr != nil && errors.Is(err, cerr) {
		return err
	}
	return &ExhaustedError{Attempts: attempts, Err: err}
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, attempts int, baseDelay time.Duration, op func(context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, attempts, baseDelay, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// linear returns a Backoff whose n-th delay is n × base.
func linear(base time.Duration) backoff.Backoff {
	attempt := 0
	return backoff.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * base, false
	})
}
