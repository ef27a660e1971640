package recovery

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sethvargo/go-retry"
)

// RetryStrategy defines how retries should be handled.
type RetryStrategy interface {
	// GetDelay returns the delay after the given attempt (0-indexed).
	GetDelay(attempt int) time.Duration

	// ShouldRetry checks if we should retry based on the error and attempt count.
	ShouldRetry(err error, attempt int) bool
}

// LinearBackoff waits Delay, 2*Delay, 3*Delay... between attempts.
type LinearBackoff struct {
	Delay       time.Duration
	MaxAttempts int
}

// GetDelay calculates delay: Delay * (attempt+1)
func (s LinearBackoff) GetDelay(attempt int) time.Duration {
	return s.Delay * time.Duration(attempt+1)
}

// ShouldRetry allows another attempt unless the budget is spent or the
// caller gave up.
func (s LinearBackoff) ShouldRetry(err error, attempt int) bool {
	if attempt+1 >= s.MaxAttempts {
		return false
	}
	return !isCancellation(err)
}

// sequence drives go-retry without delay. Execute waits on its own clock
// between attempts, and the strategy's ShouldRetry decides exhaustion.
func sequence() retry.Backoff {
	return retry.BackoffFunc(func() (time.Duration, bool) {
		return 0, false
	})
}

// wait blocks for d on clock, or until ctx is done.
func wait(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := clock.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Chan():
		return nil
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
