// Package retry provides a small bounded-retry helper used wherever the
// checkout pipeline talks to the payment provider or the database and a
// transient failure is worth one more attempt.
package retry

import (
	"context"
	"time"
)

// Always treats every error as retryable.
func Always(error) bool { return true }

// Do runs fn up to attempts times, sleeping backoff between attempts.
// It stops early when fn succeeds, when retryable rejects the error, or
// when the context is done. The last error is returned.
func Do(ctx context.Context, attempts int, backoff time.Duration, retryable func(error) bool, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	if retryable == nil {
		retryable = Always
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if !retryable(err) || i == attempts-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return err
}
