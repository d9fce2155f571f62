package ledger

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// RetryPolicy bounds how often an operation that lost an optimistic race is re-run.
type RetryPolicy struct {
	Attempts int
	Base     time.Duration
	Max      time.Duration
}

var DefaultRetryPolicy = RetryPolicy{Attempts: 5, Base: 20 * time.Millisecond, Max: time.Second}

// RetryOnConflict runs fn until it returns something other than ErrConflict, the attempts
// are spent, or ctx is done. Waits grow exponentially with full jitter.
func RetryOnConflict(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	attempts := max(p.Attempts, 1)

	var err error

	for attempt := range attempts {
		err = fn(ctx)
		if err == nil || !errors.Is(err, ErrConflict) {
			return err
		}

		if attempt == attempts-1 {
			break
		}

		timer := time.NewTimer(fullJitter(backoff(p.Base, p.Max, attempt)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return err
}

func backoff(base, ceiling time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}

	d := base << min(attempt, 30)
	if ceiling > 0 && (d > ceiling || d <= 0) {
		return ceiling
	}

	return d
}

func fullJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}

	return time.Duration(rand.Int64N(int64(d)))
}
