// Package zap provides the zap-backed implementation of log.Logger.
//
// Use New to build a logger from an environment profile, or wrap an existing
// *zap.Logger with FromZap. Log events carry trace_id and span_id fields when
// the context holds an active OpenTelemetry span.
package zap
