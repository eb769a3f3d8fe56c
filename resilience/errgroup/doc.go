// Package errgroup provides a cancellation-propagating goroutine group with
// panic recovery.
//
// The first error returned by any goroutine cancels the group's context and
// is returned by Wait; a panic in a goroutine is recovered, logged when a
// logger is set, and surfaced as ErrPanicRecovered.
package errgroup
