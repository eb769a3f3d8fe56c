// Package resilience provides shared helpers used across the library's
// subpackages.
//
// The package includes context carriers for the logger used by the retry
// executor. The combinators themselves live in subpackages: backoff,
// timeout, circuitbreaker, and retry.
//
// Typical usage at request ingress:
//
//	ctx = resilience.ContextWithLogger(ctx, logger)
package resilience
