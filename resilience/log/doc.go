// Package log defines the structured logging contract used across
// lib-resilience.
//
// The core library never logs through a concrete backend directly; packages
// accept a Logger and callers pick the implementation. A zap-backed Logger
// lives in the sibling zap package, and NewNop returns a silent fallback.
package log
