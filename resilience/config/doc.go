// Package config loads retry, timeout, and circuit breaker policies from a
// YAML document.
//
// The combinators never read files themselves; this package is a convenience
// layer for services that keep their resilience tuning in configuration.
// Unset fields fall back to the library defaults.
package config
