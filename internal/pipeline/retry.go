package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/assembler/internal/logfields"
	"git.home.luguber.info/inful/assembler/internal/observability"
)

// RetryPolicy defines retry behavior for failed handlers.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	IsRetryable func(error) bool
}

// DefaultRetryPolicy retries timeouts and temporary failures up to 3 times
// with exponential backoff starting at 500ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     500 * time.Millisecond,
		IsRetryable: func(err error) bool {
			if errors.Is(err, context.DeadlineExceeded) {
				return true
			}
			var timeout interface{ Timeout() bool }
			if errors.As(err, &timeout) && timeout.Timeout() {
				return true
			}
			var temp interface{ Temporary() bool }
			return errors.As(err, &temp) && temp.Temporary()
		},
	}
}

// WithRetry wraps a handler with retry logic according to the policy.
// Waiting between attempts stops early when ctx is done.
func WithRetry(h Handler, policy RetryPolicy) Handler {
	attempts := max(policy.MaxAttempts, 1)
	return func(ctx context.Context, e Event) error {
		var lastErr error
		for attempt := 1; attempt <= attempts; attempt++ {
			lastErr = h(ctx, e)
			if lastErr == nil {
				return nil
			}
			if policy.IsRetryable == nil || !policy.IsRetryable(lastErr) {
				return lastErr
			}
			if attempt == attempts {
				break
			}
			backoff := policy.Backoff * time.Duration(1<<uint(attempt-1))
			observability.DebugContext(ctx, "Retrying run event handler",
				logfields.Error(lastErr), slog.String("event", e.Name()), slog.Int("attempt", attempt), slog.Duration("backoff", backoff))
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w (retry aborted: %w)", lastErr, ctx.Err())
			case <-time.After(backoff):
			}
		}
		return fmt.Errorf("handler failed after %d attempts: %w", attempts, lastErr)
	}
}
