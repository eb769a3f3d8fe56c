// Package safe provides arithmetic helpers that guard against division by
// zero and integer overflow.
package safe
