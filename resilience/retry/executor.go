package retry

import (
	"context"
	"time"

	"github.com/LerianStudio/lib-resilience/resilience"
	"github.com/LerianStudio/lib-resilience/resilience/backoff"
	"github.com/LerianStudio/lib-resilience/resilience/circuitbreaker"
	"github.com/LerianStudio/lib-resilience/resilience/log"
	"github.com/LerianStudio/lib-resilience/resilience/opentelemetry/metrics"
	"github.com/LerianStudio/lib-resilience/resilience/runtime"
	"github.com/LerianStudio/lib-resilience/resilience/timeout"
	"github.com/google/uuid"
)

// Operation is a unit of work that honors context cancellation.
type Operation func(ctx context.Context) error

// OperationValue is a unit of work producing a value.
type OperationValue[T any] func(ctx context.Context) (T, error)

// Executor runs operations through the retry loop. The zero value is not
// usable; construct with NewExecutor. Executors are safe for concurrent use
// and cheap to share.
type Executor struct {
	logger        log.Logger
	metrics       *metrics.MetricsFactory
	clock         func() time.Time
	sleep         func(ctx context.Context, d time.Duration) error
	recoverPanics bool
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLogger sets the executor's logger. A logger carried in the call
// context via resilience.ContextWithLogger takes precedence per call.
func WithLogger(logger log.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithMetrics sets the metrics factory used for attempt telemetry.
func WithMetrics(factory *metrics.MetricsFactory) ExecutorOption {
	return func(e *Executor) {
		e.metrics = factory
	}
}

// WithClock sets the clock function, primarily for tests.
func WithClock(f func() time.Time) ExecutorOption {
	return func(e *Executor) {
		e.clock = f
	}
}

// WithSleep sets the backoff wait function, primarily for tests.
func WithSleep(f func(ctx context.Context, d time.Duration) error) ExecutorOption {
	return func(e *Executor) {
		e.sleep = f
	}
}

// WithRecoverPanics sets whether panics in the operation are captured and
// surfaced as *runtime.PanicError instead of crashing the caller.
func WithRecoverPanics(recover bool) ExecutorOption {
	return func(e *Executor) {
		e.recoverPanics = recover
	}
}

// NewExecutor creates an Executor with the given options.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = log.NewNop()
	}

	if e.metrics == nil {
		e.metrics = metrics.NewNopFactory()
	}

	if e.clock == nil {
		e.clock = time.Now
	}

	if e.sleep == nil {
		e.sleep = backoff.SleepWithContext
	}

	return e
}

// Do runs op through the retry loop. breaker may be nil when no circuit
// breaking is wanted.
func (e *Executor) Do(ctx context.Context, pol Policy, toPol timeout.Policy, breaker *circuitbreaker.Breaker, op Operation) error {
	_, err := DoValue(ctx, e, pol, toPol, breaker, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})

	return err
}

// DoValue runs op through exec's retry loop and returns its value.
//
// Per-attempt ordering: caller cancellation is checked first, then the
// breaker is consulted, then the operation runs under the per-attempt
// timeout, then the outcome is classified and reported. A circuit rejection
// becomes the attempt's outcome and last error but is never recorded back
// against the breaker. Exhausting the retry budget surfaces the last
// recorded error unchanged.
func DoValue[T any](ctx context.Context, exec *Executor, pol Policy, toPol timeout.Policy, breaker *circuitbreaker.Breaker, op OperationValue[T]) (T, error) {
	var zero T

	if ctx == nil {
		ctx = context.Background()
	}

	if exec == nil {
		exec = NewExecutor()
	}

	logger := exec.loggerFor(ctx).With(log.String("execution_id", uuid.NewString()))

	var lastErr error

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		res, rejected := runAttempt(ctx, exec, toPol, breaker, op)
		if res.err == nil && !rejected {
			if breaker != nil {
				breaker.RecordSuccess()
			}

			return res.value, nil
		}

		if !rejected {
			if cerr := ctx.Err(); cerr != nil {
				// Caller cancellation: terminal, never recorded against
				// the breaker.
				return zero, res.err
			}

			if breaker != nil {
				breaker.RecordFailure()
			}
		}

		lastErr = res.err

		next := attempt + 1
		if next > pol.MaxRetries {
			exec.countExhaustion(ctx)
			logger.Log(ctx, log.LevelWarn, "retry budget exhausted",
				log.Int("attempts", next),
				log.Err(lastErr))

			return zero, lastErr
		}

		if pol.RetryIf != nil && !pol.RetryIf(lastErr) {
			logger.Log(ctx, log.LevelDebug, "failure not retryable",
				log.Int("attempt", next),
				log.Err(lastErr))

			return zero, lastErr
		}

		delay := backoff.Delay(next, pol.BaseDelay, pol.MaxDelay, pol.JitterRatio)

		if pol.OnRetry != nil {
			pol.OnRetry(next, delay, lastErr)
		}

		logger.Log(ctx, log.LevelDebug, "retrying after backoff",
			log.Int("attempt", next),
			log.Duration("delay", delay),
			log.Err(lastErr))

		if delay > 0 {
			if err := exec.sleep(ctx, delay); err != nil {
				if cerr := ctx.Err(); cerr != nil {
					return zero, cerr
				}

				return zero, err
			}
		}
	}
}

// attemptResult pairs an attempt's value with its classified error.
type attemptResult[T any] struct {
	value T
	err   error
}

// runAttempt performs one attempt: breaker admission, then the operation
// under the per-attempt timeout. The second return reports a circuit
// rejection, which skips both the operation and failure recording.
func runAttempt[T any](ctx context.Context, exec *Executor, toPol timeout.Policy, breaker *circuitbreaker.Breaker, op OperationValue[T]) (attemptResult[T], bool) {
	var res attemptResult[T]

	if breaker != nil {
		if admitErr := breaker.Admit(); admitErr != nil {
			res.err = admitErr

			return res, true
		}
	}

	exec.countAttempt(ctx)

	start := exec.clock()

	guarded := timeout.OperationValue[T](op)
	if exec.recoverPanics {
		guarded = func(ctx context.Context) (value T, err error) {
			defer func() {
				if recovered := recover(); recovered != nil {
					err = runtime.HandlePanicValue(ctx, exec.logger, recovered, "retry", "operation")
				}
			}()

			return op(ctx)
		}
	}

	res.value, res.err = timeout.RunValue(ctx, toPol, guarded)

	exec.recordDuration(ctx, exec.clock().Sub(start))

	return res, false
}

// loggerFor prefers a logger carried in the context over the executor's own.
func (e *Executor) loggerFor(ctx context.Context) log.Logger {
	if logger, ok := resilience.LoggerFromContext(ctx); ok {
		return logger
	}

	return e.logger
}

func (e *Executor) countAttempt(ctx context.Context) {
	if counter, err := e.metrics.Counter(metrics.MetricRetryAttempts); err == nil {
		_ = counter.AddOne(ctx)
	}
}

func (e *Executor) countExhaustion(ctx context.Context) {
	if counter, err := e.metrics.Counter(metrics.MetricRetryExhaustions); err == nil {
		_ = counter.AddOne(ctx)
	}
}

func (e *Executor) recordDuration(ctx context.Context, elapsed time.Duration) {
	if histogram, err := e.metrics.Histogram(metrics.MetricAttemptDuration); err == nil {
		_ = histogram.Record(ctx, elapsed.Seconds())
	}
}
