// Package tools defines the tool function registry the engine schedules
// calls through: a namespace tree whose leaves are Func values, plus the
// std built-in namespace (see tools/std) the engine falls back to when a
// ToolDef's function name is not found in the operator-supplied registry.
package tools

import (
	"context"
	"strings"

	"goa.design/bridge/ir"
)

// Func is a tool function: an async callable from an input mapping to a
// structured value. It must be deterministic with respect to its input for
// caching to work, but the engine never relies on determinism itself — it
// only deduplicates by trunk identity within one request.
type Func func(ctx context.Context, input ir.Value) (ir.Value, error)

// Registry is a tree of dotted names whose leaves are Func values and whose
// internal nodes are nested Registry values — the "nested mapping" dynamic
// dispatch model, not reflective property lookup. A Registry reserves the
// key "std" for the built-in namespace merged in by New.
type Registry map[string]any

// New builds a Registry with std merged in under a reserved fallback: user
// entries take precedence; anything the user does not declare under "std"
// is served from stdNamespace so a .bridge author can still reference
// std.http.get etc. without wiring it explicitly.
func New(user Registry, stdNamespace Registry) Registry {
	merged := make(Registry, len(user)+1)
	for k, v := range user {
		merged[k] = v
	}
	if existing, ok := merged["std"].(Registry); ok {
		merged["std"] = mergeNamespace(stdNamespace, existing)
	} else {
		merged["std"] = stdNamespace
	}
	return merged
}

func mergeNamespace(base, overrides Registry) Registry {
	out := make(Registry, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Lookup resolves a dotted tool function name. Resolution order, per the
// engine's schedule() contract: dotted tree traversal first, then a flat-key
// lookup (the whole name as one literal top-level key — authors sometimes
// register "http.get" as a single key rather than a nested http/get pair),
// then the same two strategies again rooted at the "std" namespace.
func (r Registry) Lookup(name string) (Func, bool) {
	if fn, ok := r.lookupDotted(name); ok {
		return fn, true
	}
	if fn, ok := r.lookupFlat(name); ok {
		return fn, true
	}
	std, ok := r["std"].(Registry)
	if !ok {
		return nil, false
	}
	if fn, ok := std.lookupDotted(name); ok {
		return fn, true
	}
	return std.lookupFlat(name)
}

func (r Registry) lookupDotted(name string) (Func, bool) {
	segs := strings.Split(name, ".")
	var cur any = r
	for _, seg := range segs {
		reg, ok := cur.(Registry)
		if !ok {
			return nil, false
		}
		next, ok := reg[seg]
		if !ok {
			return nil, false
		}
		cur = next
	}
	fn, ok := cur.(Func)
	return fn, ok
}

func (r Registry) lookupFlat(name string) (Func, bool) {
	v, ok := r[name]
	if !ok {
		return nil, false
	}
	fn, ok := v.(Func)
	return fn, ok
}
