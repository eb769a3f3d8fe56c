package runtime

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/LerianStudio/lib-resilience/resilience/log"
)

// PanicError wraps a recovered panic value so it can travel as an error.
type PanicError struct {
	Component string
	Operation string
	Value     any
	Stack     []byte
}

// Error returns the formatted panic message.
func (e *PanicError) Error() string {
	return fmt.Sprintf("%s: panic in %s: %v", e.Component, e.Operation, e.Value)
}

// NewPanicError builds a PanicError for a recovered value, capturing the
// current stack.
func NewPanicError(component, operation string, recovered any) *PanicError {
	return &PanicError{
		Component: component,
		Operation: operation,
		Value:     recovered,
		Stack:     debug.Stack(),
	}
}

// HandlePanicValue logs a recovered panic value with its stack trace.
// A nil logger is tolerated; the panic is then silently converted.
// Returns the PanicError describing the recovery so callers can propagate it.
func HandlePanicValue(ctx context.Context, logger log.Logger, recovered any, component, operation string) *PanicError {
	perr := NewPanicError(component, operation, recovered)

	if logger != nil {
		logger.Log(ctx, log.LevelError, "panic recovered",
			log.String("component", component),
			log.String("operation", operation),
			log.Any("panic_value", recovered),
			log.String("stack", string(perr.Stack)),
		)
	}

	return perr
}
