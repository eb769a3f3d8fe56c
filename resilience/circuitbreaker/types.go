package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// State represents circuit breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
	StateUnknown  State = "unknown"
)

// Counts represents circuit breaker statistics.
type Counts struct {
	Requests            int64
	TotalSuccesses      int64
	TotalFailures       int64
	ConsecutiveFailures int64
}

// Options holds circuit breaker configuration. The zero value is usable;
// missing fields fall back to the defaults documented per field.
type Options struct {
	// FailuresBeforeOpen is the number of consecutive failures that trips
	// the breaker from Closed to Open. Defaults to 5.
	FailuresBeforeOpen int64

	// OpenInterval is how long the breaker rejects calls before admitting
	// a recovery probe. Defaults to 30s.
	OpenInterval time.Duration

	// HalfOpenProbeInterval bounds the probe window: a probe that has not
	// resolved within it is treated as failed and the breaker re-opens.
	// Defaults to 5s.
	HalfOpenProbeInterval time.Duration

	// FailureRatio optionally trips the breaker when the overall failure
	// ratio reaches this value and at least MinRequests calls were seen.
	// Zero disables ratio-based tripping.
	FailureRatio float64

	// MinRequests is the minimum sample size before FailureRatio applies.
	MinRequests int64

	// OnStateChange, when set, receives a transition description of the
	// form "closed -> open" exactly once per state transition.
	OnStateChange func(transition string)
}

const (
	defaultFailuresBeforeOpen    = 5
	defaultOpenInterval          = 30 * time.Second
	defaultHalfOpenProbeInterval = 5 * time.Second
)

func (o Options) withDefaults() Options {
	if o.FailuresBeforeOpen <= 0 {
		o.FailuresBeforeOpen = defaultFailuresBeforeOpen
	}

	if o.OpenInterval <= 0 {
		o.OpenInterval = defaultOpenInterval
	}

	if o.HalfOpenProbeInterval <= 0 {
		o.HalfOpenProbeInterval = defaultHalfOpenProbeInterval
	}

	return o
}

// ErrOpenCircuit is the sentinel matched by errors.Is for circuit rejections.
var ErrOpenCircuit = errors.New("circuitbreaker: circuit open")

// OpenError reports a call rejected without attempting the operation because
// the breaker is Open and the cooldown has not elapsed.
type OpenError struct {
	Name       string
	RetryAfter time.Duration
}

// Error returns the formatted rejection message.
func (e *OpenError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("circuitbreaker: circuit open, retry after %v", e.RetryAfter)
	}

	return fmt.Sprintf("circuitbreaker: circuit %q open, retry after %v", e.Name, e.RetryAfter)
}

// Unwrap returns the sentinel open-circuit error for errors.Is.
func (e *OpenError) Unwrap() error {
	return ErrOpenCircuit
}

// StateChangeListener is notified when a managed circuit breaker changes state.
type StateChangeListener interface {
	// OnStateChange is called when a circuit breaker changes state.
	OnStateChange(serviceName string, from State, to State)
}

// HealthCheckFunc defines a function that checks service health.
type HealthCheckFunc func(ctx context.Context) error
