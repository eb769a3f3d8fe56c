// Package circuitbreaker implements a consecutive-failure circuit breaker
// and service-level orchestration around it.
//
// A Breaker tracks consecutive failures in the Closed state, opens once the
// configured threshold is reached, rejects calls for OpenInterval, then
// admits a single probe in the HalfOpen state whose outcome decides whether
// the circuit closes again.
//
// Use NewManager to create and manage named breakers shared across callers,
// then run calls through Manager.Execute so failures are tracked consistently.
// Optional health-check integration can automatically reset breakers after
// downstream services recover.
package circuitbreaker
