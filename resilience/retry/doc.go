// Package retry orchestrates bounded retries with exponential backoff,
// per-attempt timeouts, and optional circuit breaking.
//
// Each attempt consults the circuit breaker (when one is supplied), runs the
// operation under the per-attempt timeout, reports the outcome back to the
// breaker, and decides whether to retry. Caller cancellation is checked
// before every attempt and honored during backoff waits; it is always
// terminal, never retried, and never recorded against the breaker.
//
// Typical usage:
//
//	pol := retry.DefaultPolicy()
//	err := retry.Do(ctx, pol, timeout.DefaultPolicy(), breaker, func(ctx context.Context) error {
//		return client.Ping(ctx)
//	})
package retry
