package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout bounds fn to timeout. It returns as soon as the deadline
// passes even if fn ignores its context; the error then wraps
// context.DeadlineExceeded. A non-positive timeout runs fn unbounded.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeoutCause(ctx, timeout,
		fmt.Errorf("%s: %w (limit %v)", name, context.DeadlineExceeded, timeout))
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
