package resilience

import (
	"context"

	"github.com/LerianStudio/lib-resilience/resilience/log"
)

type contextKey string

const loggerContextKey contextKey = "resilience_logger"

// ContextWithLogger returns a derived context carrying the given logger.
// Subpackages prefer a context-carried logger over their configured one, so
// per-request loggers (with request IDs, trace fields) flow through the
// retry loop automatically.
func ContextWithLogger(ctx context.Context, logger log.Logger) context.Context {
	if logger == nil {
		return ctx
	}

	return context.WithValue(ctx, loggerContextKey, logger)
}

// LoggerFromContext extracts a logger placed by ContextWithLogger.
// The second return reports whether one was present.
//
//nolint:ireturn
func LoggerFromContext(ctx context.Context) (log.Logger, bool) {
	if ctx == nil {
		return nil, false
	}

	logger, ok := ctx.Value(loggerContextKey).(log.Logger)
	if !ok || logger == nil {
		return nil, false
	}

	return logger, true
}
