package retry

import (
	"context"
	"sync"

	"github.com/LerianStudio/lib-resilience/resilience/circuitbreaker"
	"github.com/LerianStudio/lib-resilience/resilience/timeout"
)

var (
	defaultExecutor     *Executor
	defaultExecutorOnce sync.Once
)

// Default returns the shared package-level executor.
func Default() *Executor {
	defaultExecutorOnce.Do(func() {
		defaultExecutor = NewExecutor()
	})

	return defaultExecutor
}

// Do runs op through the shared default executor. breaker may be nil.
func Do(ctx context.Context, pol Policy, toPol timeout.Policy, breaker *circuitbreaker.Breaker, op Operation) error {
	return Default().Do(ctx, pol, toPol, breaker, op)
}
