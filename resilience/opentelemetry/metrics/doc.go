// Package metrics provides a thread-safe OpenTelemetry metrics factory with
// lazy instrument creation and a fluent recording API.
//
// The pre-configured metrics cover the library's own telemetry: retry
// attempts, retry exhaustions, circuit breaker transitions, and attempt
// latency. NewNopFactory returns a silent fallback for callers that do not
// wire a meter.
package metrics
