package transcriber

import (
	"context"
	"errors"
	"time"
)

// Policy is a retry policy with exponential backoff. MaxRetries counts the
// retries after the first attempt, so MaxRetries=3 means up to 4 attempts.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// Retryable decides whether a failure is worth another attempt.
	// nil retries everything.
	Retryable func(error) bool

	// OnRetry is invoked before each backoff sleep.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Delay returns the backoff delay before retrying the given zero-based
// attempt: BaseDelay doubled each attempt, capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	d := p.BaseDelay << uint(attempt)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds, fails non-retryably, or the attempt budget
// runs out. It returns the number of attempts made and the last error.
// Context cancellation aborts immediately and is never retried.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	attempts := p.MaxRetries + 1
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt, err
		}

		err := fn(ctx)
		if err == nil {
			return attempt + 1, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return attempt + 1, err
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return attempt + 1, err
		}
		if attempt == attempts-1 {
			break
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt + 1, ctx.Err()
		case <-timer.C:
		}
	}

	return attempts, lastErr
}
