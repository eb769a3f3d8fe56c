//go:build unit

package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LerianStudio/lib-resilience/resilience/circuitbreaker"
	"github.com/LerianStudio/lib-resilience/resilience/runtime"
	"github.com/LerianStudio/lib-resilience/resilience/timeout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient failure")

// sleepRecorder replaces the backoff wait so tests run without real delays.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.delays = append(s.delays, d)

	return nil
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]time.Duration(nil), s.delays...)
}

func newTestExecutor(recorder *sleepRecorder) *Executor {
	return NewExecutor(WithSleep(recorder.sleep))
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	recorder := &sleepRecorder{}
	exec := newTestExecutor(recorder)

	calls := 0

	err := exec.Do(context.Background(), DefaultPolicy(), timeout.Policy{}, nil, func(_ context.Context) error {
		calls++

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, recorder.recorded())
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	recorder := &sleepRecorder{}
	exec := newTestExecutor(recorder)

	pol := Policy{
		MaxRetries: 5,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
	}

	calls := 0

	err := exec.Do(context.Background(), pol, timeout.Policy{}, nil, func(_ context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	// Jitter disabled: delays are deterministic doubling.
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, recorder.recorded())
}

func TestDoValueReturnsValue(t *testing.T) {
	t.Parallel()

	recorder := &sleepRecorder{}
	exec := newTestExecutor(recorder)

	pol := Policy{MaxRetries: 2, BaseDelay: time.Millisecond}

	calls := 0

	value, err := DoValue(context.Background(), exec, pol, timeout.Policy{}, nil, func(_ context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errTransient
		}

		return "recovered", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "recovered", value)
	assert.Equal(t, 2, calls)
}

func TestDoZeroPolicySingleAttempt(t *testing.T) {
	t.Parallel()

	recorder := &sleepRecorder{}
	exec := newTestExecutor(recorder)

	calls := 0

	err := exec.Do(context.Background(), Policy{}, timeout.Policy{}, nil, func(_ context.Context) error {
		calls++

		return errTransient
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
	assert.Empty(t, recorder.recorded())
}

func TestDoExhaustionSurfacesLastError(t *testing.T) {
	t.Parallel()

	recorder := &sleepRecorder{}
	exec := newTestExecutor(recorder)

	pol := Policy{MaxRetries: 3, BaseDelay: time.Millisecond}

	calls := 0
	errFinal := errors.New("failure number 4")

	err := exec.Do(context.Background(), pol, timeout.Policy{}, nil, func(_ context.Context) error {
		calls++
		if calls == 4 {
			return errFinal
		}

		return errTransient
	})

	require.Error(t, err)
	assert.Equal(t, errFinal, err)
	assert.Equal(t, 4, calls)
	assert.Len(t, recorder.recorded(), 3)
}

func TestDoRetryIfStopsImmediately(t *testing.T) {
	t.Parallel()

	recorder := &sleepRecorder{}
	exec := newTestExecutor(recorder)

	errPermanent := errors.New("permanent failure")

	pol := Policy{
		MaxRetries: 5,
		BaseDelay:  time.Millisecond,
		RetryIf: func(err error) bool {
			return !errors.Is(err, errPermanent)
		},
	}

	calls := 0

	err := exec.Do(context.Background(), pol, timeout.Policy{}, nil, func(_ context.Context) error {
		calls++

		return errPermanent
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errPermanent)
	assert.Equal(t, 1, calls)
	// Predicate rejected before any backoff wait.
	assert.Empty(t, recorder.recorded())
}

func TestDoOnRetryCallback(t *testing.T) {
	t.Parallel()

	recorder := &sleepRecorder{}
	exec := newTestExecutor(recorder)

	var mu sync.Mutex

	var attempts []int

	pol := Policy{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			mu.Lock()
			defer mu.Unlock()

			attempts = append(attempts, attempt)

			assert.Positive(t, delay)
			assert.ErrorIs(t, err, errTransient)
		},
	}

	_ = exec.Do(context.Background(), pol, timeout.Policy{}, nil, func(_ context.Context) error {
		return errTransient
	})

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, []int{1, 2, 3}, attempts)
}

func TestDoPreCancelledContext(t *testing.T) {
	t.Parallel()

	recorder := &sleepRecorder{}
	exec := newTestExecutor(recorder)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0

	err := exec.Do(ctx, DefaultPolicy(), timeout.Policy{}, nil, func(_ context.Context) error {
		calls++

		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestDoCancellationDuringBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	exec := NewExecutor(WithSleep(func(ctx context.Context, _ time.Duration) error {
		cancel()

		return ctx.Err()
	}))

	pol := Policy{MaxRetries: 5, BaseDelay: time.Millisecond}

	calls := 0

	err := exec.Do(ctx, pol, timeout.Policy{}, nil, func(_ context.Context) error {
		calls++

		return errTransient
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoCancellationDuringAttemptIsTerminal(t *testing.T) {
	t.Parallel()

	recorder := &sleepRecorder{}
	exec := newTestExecutor(recorder)

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0

	err := exec.Do(ctx, DefaultPolicy(), timeout.Policy{}, nil, func(_ context.Context) error {
		calls++
		cancel()

		return ctx.Err()
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, timeout.ErrTimeout)
	assert.Equal(t, 1, calls)
	assert.Empty(t, recorder.recorded())
}

func TestDoAttemptTimeoutIsRetryable(t *testing.T) {
	t.Parallel()

	recorder := &sleepRecorder{}
	exec := newTestExecutor(recorder)

	pol := Policy{MaxRetries: 2, BaseDelay: time.Millisecond}
	toPol := timeout.Policy{Timeout: 10 * time.Millisecond}

	calls := 0

	err := exec.Do(context.Background(), pol, toPol, nil, func(ctx context.Context) error {
		calls++
		<-ctx.Done()

		return ctx.Err()
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, timeout.ErrTimeout)
	// Timeouts consume the budget like any other failure.
	assert.Equal(t, 3, calls)
	assert.Len(t, recorder.recorded(), 2)
}

func TestDoBreakerOpensMidExecution(t *testing.T) {
	t.Parallel()

	recorder := &sleepRecorder{}
	exec := newTestExecutor(recorder)

	breaker := circuitbreaker.New("downstream", circuitbreaker.Options{
		FailuresBeforeOpen: 3,
		OpenInterval:       30 * time.Second,
	})

	pol := Policy{MaxRetries: 4, BaseDelay: 150 * time.Millisecond}

	calls := 0

	err := exec.Do(context.Background(), pol, timeout.Policy{}, breaker, func(_ context.Context) error {
		calls++

		return errTransient
	})

	require.Error(t, err)

	// The third failure trips the breaker; attempts four and five are
	// rejected without invoking the operation, and the rejection is the
	// error the caller sees.
	assert.ErrorIs(t, err, circuitbreaker.ErrOpenCircuit)
	assert.Equal(t, 3, calls)
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())
	assert.Len(t, recorder.recorded(), 4)

	counts := breaker.Counts()
	assert.Equal(t, int64(3), counts.TotalFailures)
	assert.Equal(t, int64(3), counts.Requests) // rejections are not recorded
}

func TestDoBreakerRecordsSuccess(t *testing.T) {
	t.Parallel()

	recorder := &sleepRecorder{}
	exec := newTestExecutor(recorder)

	breaker := circuitbreaker.New("downstream", circuitbreaker.Options{FailuresBeforeOpen: 5})

	pol := Policy{MaxRetries: 3, BaseDelay: time.Millisecond}

	calls := 0

	err := exec.Do(context.Background(), pol, timeout.Policy{}, breaker, func(_ context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}

		return nil
	})

	require.NoError(t, err)

	counts := breaker.Counts()
	assert.Equal(t, int64(2), counts.TotalFailures)
	assert.Equal(t, int64(1), counts.TotalSuccesses)
	assert.Zero(t, counts.ConsecutiveFailures)
	assert.Equal(t, circuitbreaker.StateClosed, breaker.State())
}

func TestDoRecoversPanics(t *testing.T) {
	t.Parallel()

	recorder := &sleepRecorder{}
	exec := NewExecutor(WithSleep(recorder.sleep), WithRecoverPanics(true))

	pol := Policy{MaxRetries: 2, BaseDelay: time.Millisecond}

	calls := 0

	err := exec.Do(context.Background(), pol, timeout.Policy{}, nil, func(_ context.Context) error {
		calls++
		if calls < 3 {
			panic("operation bug")
		}

		return nil
	})

	// Panics convert to errors and consume the budget like failures.
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoSurfacesPanicError(t *testing.T) {
	t.Parallel()

	recorder := &sleepRecorder{}
	exec := NewExecutor(WithSleep(recorder.sleep), WithRecoverPanics(true))

	err := exec.Do(context.Background(), Policy{}, timeout.Policy{}, nil, func(_ context.Context) error {
		panic("operation bug")
	})

	require.Error(t, err)

	var panicErr *runtime.PanicError

	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "operation bug", panicErr.Value)
}

func TestDoValueNilExecutorUsesDefaults(t *testing.T) {
	t.Parallel()

	value, err := DoValue(context.Background(), nil, Policy{}, timeout.Policy{}, nil, func(_ context.Context) (int, error) {
		return 7, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 7, value)
}

func TestDefaultPolicyValues(t *testing.T) {
	t.Parallel()

	pol := DefaultPolicy()

	assert.Equal(t, DefaultMaxRetries, pol.MaxRetries)
	assert.Equal(t, DefaultBaseDelay, pol.BaseDelay)
	assert.Equal(t, DefaultMaxDelay, pol.MaxDelay)
	assert.InDelta(t, DefaultJitterRatio, pol.JitterRatio, 0.0001)
	assert.Nil(t, pol.RetryIf)
	assert.Nil(t, pol.OnRetry)
}

func TestPackageLevelDo(t *testing.T) {
	t.Parallel()

	err := Do(context.Background(), Policy{}, timeout.Policy{}, nil, func(_ context.Context) error {
		return nil
	})

	require.NoError(t, err)
}
