package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind enumerates the schedule-time error taxonomy. Compile-time kinds
// (VersionMismatch, SyntaxError, ...) live in package compile; the two enums
// are disjoint so a host can switch on either without collision, per
// SPEC_FULL.md §7.
type ErrorKind string

const (
	KindToolNotFound        ErrorKind = "ToolNotFound"
	KindMissingToolFunction ErrorKind = "MissingToolFunction"
	KindToolFailure         ErrorKind = "ToolFailure"
	KindAggregateFailure    ErrorKind = "AggregateFailure"
)

// EngineError is the single concrete error type the engine raises, carrying
// a closed Kind plus an optional wrapped Cause (or, for AggregateFailure,
// every Cause that contributed). Supports errors.Is/As through Unwrap the
// same way the teacher's toolerrors.ToolError does for agent tool failures.
type EngineError struct {
	Kind    ErrorKind
	Message string
	Cause   error
	Causes  []*EngineError
}

func (e *EngineError) Error() string {
	if e == nil {
		return ""
	}
	if e.Kind == KindAggregateFailure {
		msgs := make([]string, len(e.Causes))
		for i, c := range e.Causes {
			msgs[i] = c.Error()
		}
		return fmt.Sprintf("%s: %s", e.Kind, strings.Join(msgs, "; "))
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *EngineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// toolNotFound reports that no ToolDef or bare function is bound to a trunk.
func toolNotFound(name string) *EngineError {
	return &EngineError{Kind: KindToolNotFound, Message: fmt.Sprintf("tool %q not found", name)}
}

// missingToolFunction reports that a ToolDef's Fn name has no registered
// implementation in the tools.Registry.
func missingToolFunction(name string) *EngineError {
	return &EngineError{Kind: KindMissingToolFunction, Message: fmt.Sprintf("no registered function %q", name)}
}

// toolFailure wraps an error a tool function itself raised.
func toolFailure(cause error) *EngineError {
	var ee *EngineError
	if errors.As(cause, &ee) {
		return ee
	}
	return &EngineError{Kind: KindToolFailure, Message: cause.Error(), Cause: cause}
}

// aggregateFailure combines every source failure in an overdefinition group
// where all sources threw.
func aggregateFailure(causes []*EngineError) *EngineError {
	return &EngineError{Kind: KindAggregateFailure, Message: fmt.Sprintf("%d sources failed", len(causes)), Causes: causes}
}
