package backoff

import (
	"context"
	"fmt"
	mrand "math/rand/v2"
	"time"

	"github.com/LerianStudio/lib-resilience/resilience/safe"
)

const maxShift = 62

// Exponential calculates exponential delay based on attempt number.
// The delay is calculated as base * 2^attempt with overflow protection.
// Negative attempts are treated as 0.
func Exponential(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}

	if attempt < 0 {
		attempt = 0
	} else if attempt > maxShift {
		attempt = maxShift
	}

	return safe.MulDuration(base, int64(1)<<attempt)
}

// Delay computes the wait before the next retry. attempt starts at 1 for the
// delay preceding the second try: the raw delay is base * 2^(attempt-1),
// capped at max, with a uniformly random jitter in [0, jitterRatio*capped]
// added when jitterRatio is positive.
//
// The jitter draw uses math/rand/v2's shared source, which is safe for
// concurrent use. The result is never negative.
func Delay(attempt int, base, max time.Duration, jitterRatio float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	capped := Exponential(base, attempt-1)
	if max > 0 && capped > max {
		capped = max
	}

	if capped <= 0 {
		return 0
	}

	if jitterRatio <= 0 {
		return capped
	}

	jitterCeil := safe.ScaleDuration(capped, jitterRatio)
	if jitterCeil <= 0 {
		return capped
	}

	delay := capped + time.Duration(mrand.Int64N(int64(jitterCeil)+1))
	if delay < 0 {
		return 0
	}

	return delay
}

// SleepWithContext sleeps for the specified duration but respects context cancellation.
// Returns nil if the sleep completes, or an error if the context is cancelled.
// Returns immediately (nil) for zero or negative durations.
func SleepWithContext(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}

	timer := time.NewTimer(duration)

	defer func() {
		if !timer.Stop() {
			select {
			case <-timer.C: // drain any pending tick so the channel doesn't retain value
			default:
			}
		}
	}()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context done: %w", ctx.Err())
	}
}
