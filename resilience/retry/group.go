package retry

import (
	"context"

	"github.com/LerianStudio/lib-resilience/resilience/circuitbreaker"
	"github.com/LerianStudio/lib-resilience/resilience/errgroup"
	"github.com/LerianStudio/lib-resilience/resilience/timeout"
)

// Group runs several operations concurrently, each through the same retry
// loop and (optionally) one shared circuit breaker. The first failure
// cancels the remaining operations.
type Group struct {
	exec          *Executor
	policy        Policy
	timeoutPolicy timeout.Policy
	breaker       *circuitbreaker.Breaker
}

// NewGroup creates a Group. exec may be nil to use a fresh default executor;
// breaker may be nil when no circuit breaking is wanted.
func NewGroup(exec *Executor, pol Policy, toPol timeout.Policy, breaker *circuitbreaker.Breaker) *Group {
	if exec == nil {
		exec = NewExecutor()
	}

	return &Group{
		exec:          exec,
		policy:        pol,
		timeoutPolicy: toPol,
		breaker:       breaker,
	}
}

// Do runs every operation concurrently and waits for all of them. The first
// error (including a recovered panic) cancels the group's context, aborting
// the other operations at their next cancellation point, and is returned.
func (g *Group) Do(ctx context.Context, ops ...Operation) error {
	if len(ops) == 0 {
		return nil
	}

	grp, groupCtx := errgroup.WithContext(ctx)
	grp.SetLogger(g.exec.logger)

	for _, op := range ops {
		grp.Go(func() error {
			return g.exec.Do(groupCtx, g.policy, g.timeoutPolicy, g.breaker, op)
		})
	}

	return grp.Wait()
}
