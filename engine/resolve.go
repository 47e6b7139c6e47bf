package engine

import (
	"context"
	"strings"

	"goa.design/bridge/ir"
)

// ResolveKind discriminates the three shapes Resolve can hand back to a
// host, per the field resolution contract of §4.2.
type ResolveKind int

const (
	// ResolveValue carries a scalar or object value the host passes through.
	ResolveValue ResolveKind = iota
	// ResolveArray carries one shadow ExecutionTree per element of an
	// array-mapped target.
	ResolveArray
	// ResolveSelf tells the host to keep descending field-by-field through
	// the same tree (used for lazy define field resolution).
	ResolveSelf
)

// ResolveResult is the tagged union Resolve returns.
type ResolveResult struct {
	Kind    ResolveKind
	Value   ir.Value
	Shadows []*ExecutionTree
}

// Resolve implements resolve(ExecutionTree, path, is_array) from §4.2: strip
// numeric indices from path, match wires targeting the tree's own trunk (or,
// absent a match, a pending define redirect), and return a value, a list of
// per-element shadow trees, or a self reference that defers whole-define
// resolution to narrower follow-up calls.
func (t *ExecutionTree) Resolve(ctx context.Context, path []string, isArray bool) (ResolveResult, error) {
	if t.idx == nil {
		return ResolveResult{Kind: ResolveValue, Value: ir.Null}, nil
	}
	cp := cleanPath(path)

	matches := t.idx.wiresAt(t.outputTrunk(), cp)
	if len(matches) == 0 && t.defineRedirect != nil {
		matches = t.idx.wiresAt(*t.defineRedirect, cp)
	}

	if len(matches) > 0 {
		if redirect, ok := defineRedirectTarget(matches); ok {
			t.defineRedirect = &redirect
			return ResolveResult{Kind: ResolveSelf}, nil
		}
		v, err := t.resolveWireGroup(ctx, matches)
		if err != nil {
			return ResolveResult{}, err
		}
		return t.wrapResolved(v, isArray), nil
	}

	if t.isShadow {
		v, ok := t.elementValue.Walk(cp)
		if !ok {
			return ResolveResult{Kind: ResolveValue, Value: ir.Null}, nil
		}
		return t.wrapResolved(v, isArray), nil
	}

	return ResolveResult{Kind: ResolveValue, Value: ir.Null}, nil
}

func (t *ExecutionTree) wrapResolved(v ir.Value, isArray bool) ResolveResult {
	if isArray && v.Kind == ir.KindList {
		return ResolveResult{Kind: ResolveArray, Shadows: t.makeShadows(v.List)}
	}
	return ResolveResult{Kind: ResolveValue, Value: v}
}

// outputTrunk is the trunk whose wires answer this tree's field reads: the
// bridge's own output trunk for the root, or the shared element slot for a
// shadow tree (§4.2.5 — element-tagged wires only match in shadow trees).
func (t *ExecutionTree) outputTrunk() ir.NodeRef {
	if t.isShadow {
		return ir.NodeRef{Module: "element", Type: t.idx.bridge.Type, Field: t.idx.bridge.Field, Element: true}
	}
	return ir.NodeRef{Module: "output", Type: t.idx.bridge.Type, Field: t.idx.bridge.Field}
}

// makeShadows wraps each array item in a child tree sharing this tree's
// bridge index, context, and collector, per §4.2.5. Shadow trees may nest:
// a shadow tree's own makeShadows call produces grandchildren exactly the
// same way.
func (t *ExecutionTree) makeShadows(items []ir.Value) []*ExecutionTree {
	shadows := make([]*ExecutionTree, len(items))
	for i, item := range items {
		shadows[i] = &ExecutionTree{
			engine:         t.engine,
			root:           t.root,
			parent:         t,
			idx:            t.idx,
			ctx:            t.ctx,
			contextValue:   t.contextValue,
			collector:      t.collector,
			isShadow:       true,
			elementValue:   item,
			defineRedirect: t.defineRedirect,
			state:          nil,
			toolDepCache:   nil,
		}
	}
	return shadows
}

// defineRedirectTarget detects a lazy whole-object define pull (`o <-
// defineHandle` at path []) per §4.2.3: exactly one pull wire, empty source
// path, sourced from a synthetic define-output module. Resolving it eagerly
// would invoke the define's entire body even when the host only needs one
// field of it, so Resolve instead returns self and remembers the define's
// output trunk for narrower follow-up calls.
func defineRedirectTarget(matches []ir.Wire) (ir.NodeRef, bool) {
	if len(matches) != 1 {
		return ir.NodeRef{}, false
	}
	w := matches[0]
	if w.Kind != ir.WirePull || len(w.From.Path) != 0 {
		return ir.NodeRef{}, false
	}
	if !strings.HasPrefix(w.From.Module, "__define_out_") {
		return ir.NodeRef{}, false
	}
	return w.From.Trunk(), true
}
