package timeout

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is the sentinel matched by errors.Is for attempt timeouts.
var ErrTimeout = errors.New("timeout: attempt deadline exceeded")

// ExceededError reports that an attempt exceeded its allotted duration.
// It is distinct from caller cancellation: callers that cancel their own
// context receive that context's error instead.
type ExceededError struct {
	Timeout time.Duration
}

// Error returns the formatted timeout message.
func (e *ExceededError) Error() string {
	return fmt.Sprintf("timeout: attempt exceeded %v", e.Timeout)
}

// Unwrap returns the sentinel timeout error for errors.Is.
func (e *ExceededError) Unwrap() error {
	return ErrTimeout
}

// Policy configures the per-attempt timeout behavior.
// The zero value disables the deadline (attempts run until completion or
// caller cancellation).
type Policy struct {
	// Timeout bounds a single attempt. Zero or negative means no deadline.
	Timeout time.Duration

	// OnTimeout, when set, is invoked with the configured timeout each time
	// an attempt's deadline expires. Absence means no-op.
	OnTimeout func(timeout time.Duration)
}

// DefaultPolicy returns the default per-attempt timeout configuration.
func DefaultPolicy() Policy {
	return Policy{Timeout: 10 * time.Second}
}

// Operation is a unit of work that honors context cancellation.
type Operation func(ctx context.Context) error

// OperationValue is a unit of work producing a value.
type OperationValue[T any] func(ctx context.Context) (T, error)

// Run executes op under the policy's deadline, linked to ctx.
func Run(ctx context.Context, policy Policy, op Operation) error {
	_, err := RunValue(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})

	return err
}

type result[T any] struct {
	value T
	err   error
}

// RunValue executes op under the policy's deadline, linked to ctx.
//
// The operation runs in its own goroutine and is signaled to stop through its
// context the moment the deadline expires or the caller cancels; the guard
// does not wait for a stalled operation to unwind before reporting. The
// result channel is buffered so an operation that finishes late never leaks
// its goroutine.
func RunValue[T any](ctx context.Context, policy Policy, op OperationValue[T]) (T, error) {
	var zero T

	if err := ctx.Err(); err != nil {
		return zero, err
	}

	attemptCtx := ctx
	cancel := context.CancelFunc(func() {})

	if policy.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, policy.Timeout)
	}
	defer cancel()

	done := make(chan result[T], 1)

	go func() {
		value, err := op(attemptCtx)
		done <- result[T]{value: value, err: err}
	}()

	select {
	case res := <-done:
		return res.value, classify(ctx, attemptCtx, policy, res.err)
	case <-attemptCtx.Done():
		return zero, classify(ctx, attemptCtx, policy, attemptCtx.Err())
	}
}

// classify maps a raw attempt error to the taxonomy: caller cancellation wins
// any race, the attempt deadline becomes *ExceededError, and everything else
// passes through unchanged.
func classify(callerCtx, attemptCtx context.Context, policy Policy, err error) error {
	if err == nil {
		return nil
	}

	if callerErr := callerCtx.Err(); callerErr != nil {
		return callerErr
	}

	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && errors.Is(err, context.DeadlineExceeded) {
		if policy.OnTimeout != nil {
			policy.OnTimeout(policy.Timeout)
		}

		return &ExceededError{Timeout: policy.Timeout}
	}

	return err
}
