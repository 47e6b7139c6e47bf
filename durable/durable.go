// Package durable abstracts at-least-once dispatch of forced tool calls.
// A force-tagged wire's trunk normally fires fire-and-forget in an
// in-process goroutine (engine.NewTree's default); a Dispatcher lets an
// operator route that same call through a durable execution backend
// instead, trading "best-effort, swallow the error" for "retried per a
// workflow retry policy until it succeeds or exhausts its attempts." This
// is the domain-repointed descendant of the teacher's
// runtime/agent/engine.Engine abstraction, narrowed from "run an entire
// agent turn loop" down to "run one side-effecting tool call durably."
package durable

import (
	"context"

	"goa.design/bridge/ir"
)

// Request describes one forced tool call to dispatch durably.
type Request struct {
	// WorkflowID identifies the durable execution; callers typically derive
	// it from the request's trace id and the trunk's tool name so retries
	// of the same forced wire within one request dedupe onto the same
	// workflow.
	WorkflowID string
	// ToolName is the dotted tool name the dispatcher's worker looks up in
	// its own tools.Registry to run the call (the registry lives with the
	// worker, not the caller, since the call may be dispatched to a
	// different process entirely).
	ToolName string
	// Input is the resolved tool input value, already wire-overlaid by the
	// engine exactly as it would be for an ordinary in-process call.
	Input ir.Value
}

// Dispatcher runs a forced tool call at least once, returning its result
// once the durable execution completes. Implementations may block for a
// long time; callers that only need fire-and-forget semantics should not
// wait on the returned value.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) (ir.Value, error)
}
