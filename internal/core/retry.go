package core

import (
	"context"
	"time"
)

// withRetry calls fn up to attempts times, sleeping between failures with
// exponential backoff (base, base*factor, base*factor^2, ...). It returns
// nil as soon as fn succeeds, the last error once attempts are exhausted,
// or the context error if the context is cancelled while waiting.
func withRetry(ctx context.Context, attempts int, base time.Duration, factor float64, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	delay := base
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = time.Duration(float64(delay) * factor)
	}
	return err
}
