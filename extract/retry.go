package extract

import (
	"context"
	"time"

	"github.com/caselight/caselight/errors"
)

const (
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 8 * time.Second
)

// WithRetry runs fn up to maxRetries+1 times with capped exponential
// backoff. Only errors marked retryable are retried; fatal errors and
// context cancellation return immediately.
func WithRetry(ctx context.Context, maxRetries int, fn func() error) error {
	delay := retryBaseDelay

	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !errors.IsRetryable(err) || attempt >= maxRetries {
			return err
		}

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "retry aborted")
		case <-time.After(delay):
		}

		delay *= 2
		if delay > retryMaxDelay {
			delay = retryMaxDelay
		}
	}
}
