package engine

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/helion-data/scanflow/pkg/schema"
)

// IsRetryableError classifies whether an error should be retried.
// FlowErrors carry their own retryability; network errors and step deadline
// overruns are retryable; a cancelled context means the run is shutting down
// and is not.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var ferr *schema.FlowError
	if errors.As(err, &ferr) {
		return ferr.Retryable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// Default: retryable (conservative — the retry budget limits attempts).
	return true
}

// Backoff computes the delay before the next retry attempt: linear in the
// number of retries already performed, so attempt 1 waits base, attempt 2
// waits 2*base, and so on.
func Backoff(base time.Duration, retryCount int) time.Duration {
	if base <= 0 || retryCount <= 0 {
		return 0
	}
	return base * time.Duration(retryCount)
}

// WaitForBackoff sleeps for the delay or returns early when the context is
// cancelled.
func WaitForBackoff(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
