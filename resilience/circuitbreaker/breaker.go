package circuitbreaker

import (
	"fmt"
	"sync"
	"time"

	"github.com/LerianStudio/lib-resilience/resilience/safe"
	"github.com/shopspring/decimal"
)

// Breaker is a circuit breaker that opens after a run of consecutive
// failures. One instance is shared by reference across every call that
// should share the same failure budget; all state mutations happen under a
// single mutex so concurrent failure bursts cannot produce duplicate
// transitions or duplicate observer notifications.
type Breaker struct {
	mu sync.Mutex

	name string
	opts Options

	state               State
	consecutiveFailures int64
	requests            int64
	totalSuccesses      int64
	totalFailures       int64

	// eligibleAt is when an Open breaker may admit a recovery probe.
	eligibleAt time.Time
	// probeDeadline bounds the HalfOpen window; an unresolved probe past it
	// re-opens the breaker.
	probeDeadline time.Time

	// transitionHook is an internal observer used by Manager; fires under
	// the same exactly-once guarantee as Options.OnStateChange.
	transitionHook func(name string, from, to State)

	// pendingNotify holds observer calls staged under the lock; they run
	// after it is released so user callbacks cannot deadlock the breaker
	// by calling back into it.
	pendingNotify []func()

	nowFn func() time.Time
}

// New creates a Breaker with the given name and options.
func New(name string, opts Options) *Breaker {
	return &Breaker{
		name:  name,
		opts:  opts.withDefaults(),
		state: StateClosed,
	}
}

// Name returns the breaker's name.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.state
}

// Counts returns the current statistics.
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Counts{
		Requests:            b.requests,
		TotalSuccesses:      b.totalSuccesses,
		TotalFailures:       b.totalFailures,
		ConsecutiveFailures: b.consecutiveFailures,
	}
}

// Admit reports whether a call may proceed.
//
// Closed always proceeds. Open rejects with *OpenError until OpenInterval
// has elapsed, then transitions to HalfOpen and admits the recovery probe.
// HalfOpen proceeds while the probe window is live; once the window expires
// without a recorded outcome the breaker re-opens and rejects.
func (b *Breaker) Admit() error {
	b.mu.Lock()

	now := b.now()

	var err error

	switch b.state {
	case StateOpen:
		if now.Before(b.eligibleAt) {
			err = &OpenError{Name: b.name, RetryAfter: b.eligibleAt.Sub(now)}
			break
		}

		b.transitionLocked(StateHalfOpen, now)
	case StateHalfOpen:
		if !now.Before(b.probeDeadline) {
			// Hung probe: treat the unresolved window as a failure.
			b.transitionLocked(StateOpen, now)
			err = &OpenError{Name: b.name, RetryAfter: b.eligibleAt.Sub(now)}
		}
	case StateClosed:
	}

	notify := b.pendingNotify
	b.pendingNotify = nil
	b.mu.Unlock()

	runNotify(notify)

	return err
}

// RecordSuccess records a successful call. The consecutive-failure counter
// resets, and an Open or HalfOpen breaker closes.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()

	b.requests++
	b.totalSuccesses++
	b.consecutiveFailures = 0

	if b.state == StateOpen || b.state == StateHalfOpen {
		b.transitionLocked(StateClosed, b.now())
	}

	notify := b.pendingNotify
	b.pendingNotify = nil
	b.mu.Unlock()

	runNotify(notify)
}

// RecordFailure records a failed call. In Closed the consecutive-failure
// counter increments and the breaker opens once it reaches
// FailuresBeforeOpen (or the optional failure-ratio condition trips). A
// failed HalfOpen probe re-opens the breaker and re-arms OpenInterval. A
// failure recorded while already Open only updates statistics.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()

	b.requests++
	b.totalFailures++
	b.consecutiveFailures++

	now := b.now()

	switch b.state {
	case StateClosed:
		if b.shouldTripLocked() {
			b.transitionLocked(StateOpen, now)
		}
	case StateHalfOpen:
		b.transitionLocked(StateOpen, now)
	case StateOpen:
	}

	notify := b.pendingNotify
	b.pendingNotify = nil
	b.mu.Unlock()

	runNotify(notify)
}

// Reset forces the breaker back to Closed and zeroes its statistics.
// Used by health-check recovery once a dependency reports healthy.
func (b *Breaker) Reset() {
	b.mu.Lock()

	if b.state != StateClosed {
		b.transitionLocked(StateClosed, b.now())
	}

	b.requests = 0
	b.totalSuccesses = 0
	b.totalFailures = 0
	b.consecutiveFailures = 0

	notify := b.pendingNotify
	b.pendingNotify = nil
	b.mu.Unlock()

	runNotify(notify)
}

// SetClock overrides the breaker clock, primarily for tests.
func (b *Breaker) SetClock(f func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nowFn = f
}

// setTransitionHook registers the manager-side observer.
func (b *Breaker) setTransitionHook(hook func(name string, from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.transitionHook = hook
}

func (b *Breaker) shouldTripLocked() bool {
	if b.consecutiveFailures >= b.opts.FailuresBeforeOpen {
		return true
	}

	if b.opts.FailureRatio <= 0 || b.requests < b.opts.MinRequests {
		return false
	}

	ratio := safe.RatioOrZero(b.totalFailures, b.requests)

	return ratio.GreaterThanOrEqual(decimal.NewFromFloat(b.opts.FailureRatio))
}

// transitionLocked moves the breaker to a new state, arms the relevant
// timers, and stages exactly one observer notification.
func (b *Breaker) transitionLocked(to State, now time.Time) {
	from := b.state
	if from == to {
		return
	}

	b.state = to

	switch to {
	case StateClosed:
		b.consecutiveFailures = 0
		b.eligibleAt = time.Time{}
		b.probeDeadline = time.Time{}
	case StateOpen:
		b.eligibleAt = now.Add(b.opts.OpenInterval)
		b.probeDeadline = time.Time{}
	case StateHalfOpen:
		b.probeDeadline = now.Add(b.opts.HalfOpenProbeInterval)
	}

	onStateChange := b.opts.OnStateChange
	hook := b.transitionHook
	name := b.name

	b.pendingNotify = append(b.pendingNotify, func() {
		if onStateChange != nil {
			onStateChange(fmt.Sprintf("%s -> %s", from, to))
		}

		if hook != nil {
			hook(name, from, to)
		}
	})
}

func (b *Breaker) now() time.Time {
	if b.nowFn != nil {
		return b.nowFn()
	}

	return time.Now()
}

func runNotify(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}
