// Package middleware provides composable middleware for engine operations.
// Middleware wraps command execution synchronously and can modify it
// (recover from panics, log, record metrics, add tracing, etc.).
package middleware

import "context"

// Operation describes the engine command being executed, for observability.
type Operation struct {
	// Name is the command name, e.g. "submit_work" or "major_hold".
	Name string
	// Job identifies the job being operated on (job number or ID).
	Job string
	// StepName is the pipeline step, empty for job-scoped commands.
	StepName string
	// MachineCode is the machine, empty for step- or job-scoped commands.
	MachineCode string
	// Actor is the calling user's ID.
	Actor string
}

// Handler is the terminal function that executes operation logic.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic.
// It receives the current context, the operation being executed, and the
// next handler to call. Middleware MUST call next to continue the chain
// (unless short-circuiting on error).
type Middleware func(ctx context.Context, op *Operation, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover) executes as:
//
//	logging → recover → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, op *Operation, next Handler) error {
		// Build the chain from the end backwards.
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, op, prev)
			}
		}
		return h(ctx)
	}
}
