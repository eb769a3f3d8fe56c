// Package timeout bounds a single operation attempt with a deadline.
//
// Run executes an operation under a per-attempt timeout linked to the caller's
// context. Deadline expiry is reported as *ExceededError; caller cancellation
// is reported as the caller context's own error and always wins a race against
// the deadline.
package timeout
