// Package compile lowers a parsed .bridge AST into the ir.Instruction list
// the engine executes: handle resolution, pipe-fork materialization,
// coalesce-chain lowering, force marking, and define inlining.
package compile

import "fmt"

// ErrorKind enumerates the compile-time error taxonomy. Schedule-time kinds
// (ToolNotFound, MissingToolFunction, ToolFailure, AggregateFailure) live in
// package engine; the two enums are disjoint so a host can switch on either
// without colliding values, per SPEC_FULL.md §7.
type ErrorKind string

const (
	KindVersionMismatch    ErrorKind = "VersionMismatch"
	KindSyntaxError        ErrorKind = "SyntaxError"
	KindSemanticError      ErrorKind = "SemanticError"
	KindUndeclaredHandle   ErrorKind = "UndeclaredHandle"
	KindUnknownTool        ErrorKind = "UnknownTool"
	KindDuplicateHandle    ErrorKind = "DuplicateHandle"
	KindInvalidJSONLit     ErrorKind = "InvalidJsonLiteral"
	KindArrayIndexOnTarget ErrorKind = "ArrayIndexOnTarget"
	KindCircularExtends    ErrorKind = "CircularExtends"
	KindCircularDefine     ErrorKind = "CircularDefine"
)

// Diagnostic is one compile-time error, anchored to a source line.
type Diagnostic struct {
	Line    int
	Kind    ErrorKind
	Message string
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("line %d: %s: %s", d.Line, d.Kind, d.Message)
}

func diag(line int, kind ErrorKind, format string, args ...any) Diagnostic {
	return Diagnostic{Line: line, Kind: kind, Message: fmt.Sprintf(format, args...)}
}
