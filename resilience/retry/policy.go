package retry

import "time"

// Policy configures the retry loop. It is read-only once handed to Do; the
// same value may be shared across concurrent calls.
//
// The zero value performs a single attempt with no backoff. Use
// DefaultPolicy for the documented defaults.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt, so the
	// total attempt budget is MaxRetries+1. Zero means exactly one attempt.
	MaxRetries int

	// BaseDelay seeds the exponential backoff.
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth before jitter is applied.
	MaxDelay time.Duration

	// JitterRatio in [0,1] widens each delay by a uniformly random amount
	// in [0, JitterRatio*delay]. Zero disables jitter.
	JitterRatio float64

	// RetryIf, when set, decides whether a failure is retryable. A failure
	// it rejects terminates the loop immediately with that failure. Absence
	// means every failure (except caller cancellation) is retryable.
	RetryIf func(err error) bool

	// OnRetry, when set, is invoked before each backoff wait with the
	// attempt number just completed, the computed delay, and the failure
	// that triggered the retry. Absence means no-op.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Default policy values.
const (
	DefaultMaxRetries  = 5
	DefaultBaseDelay   = 200 * time.Millisecond
	DefaultMaxDelay    = 5 * time.Second
	DefaultJitterRatio = 0.25
)

// DefaultPolicy returns the default retry configuration.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:  DefaultMaxRetries,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		JitterRatio: DefaultJitterRatio,
	}
}
