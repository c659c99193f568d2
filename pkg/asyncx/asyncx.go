// Package asyncx holds the small set of concurrency helpers the service
// layers share: fire-and-forget dispatch and retry with backoff.
package asyncx

import (
	"context"
	"time"

	"github.com/kyfplatform/kyf-api/pkg/logx"
)

// Do runs fn in a goroutine and recovers panics so a background task can
// never take the process down. Use it for side work the request must not
// wait on, like audit emission.
func Do(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logx.WithField("panic", r).Error("asyncx: background task panicked")
			}
		}()
		fn()
	}()
}

// RetryWithBackoff calls fn up to attempts times, doubling the delay after
// each failure starting from initialDelay. Cancellation is honored both
// before an attempt and while waiting between attempts; the last attempt's
// error is returned when all fail.
func RetryWithBackoff(ctx context.Context, attempts int, initialDelay time.Duration, fn func(context.Context) error) error {
	var err error
	delay := initialDelay

	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err = fn(ctx); err == nil {
			return nil
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return err
}
