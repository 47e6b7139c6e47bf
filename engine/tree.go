package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"goa.design/bridge/ir"
	"goa.design/bridge/telemetry"
)

// ExecutionTree is the request-scoped state for one top-level bridge
// invocation (or, for a shadow tree, one array element within it). Only the
// root tree owns state/toolDepCache; shadow trees delegate scheduling to
// root but carry their own elementValue and defineRedirect.
type ExecutionTree struct {
	engine *Engine
	root   *ExecutionTree
	parent *ExecutionTree
	idx    *bridgeIndex

	ctx          context.Context
	input        ir.Value
	contextValue ir.Value
	collector    *telemetry.Collector
	// requestID disambiguates this tree's durable dispatches and, when
	// tracing is on, correlates every ToolTrace back to one top-level
	// invocation, the same role google/uuid plays for the teacher's agent
	// run and tool-use ids.
	requestID uuid.UUID

	isShadow       bool
	elementValue   ir.Value
	defineRedirect *ir.NodeRef

	mu           sync.Mutex
	state        map[ir.TrunkKey]*future
	toolDepCache map[string]*future
}

// getOrSchedule returns the (possibly still in-flight) future for trunk,
// scheduling it on first request. Always operates on the root tree, per the
// at-most-once-per-trunk-per-request invariant.
func (t *ExecutionTree) getOrSchedule(trunk ir.NodeRef) *future {
	root := t.root
	root.mu.Lock()
	if f, ok := root.state[trunk.Key()]; ok {
		root.mu.Unlock()
		return f
	}
	f := newFuture()
	root.state[trunk.Key()] = f
	root.mu.Unlock()
	go root.runSchedule(trunk, f)
	return f
}

func (t *ExecutionTree) peekFuture(trunk ir.NodeRef) (*future, bool) {
	root := t.root
	root.mu.Lock()
	defer root.mu.Unlock()
	f, ok := root.state[trunk.Key()]
	return f, ok
}

// pull resolves a single NodeRef per §4.2.1: element-tagged refs read
// synchronously off the tree's own elementValue, everything else is
// scheduled (or found cached) on the root and awaited.
func (t *ExecutionTree) pull(ctx context.Context, ref ir.NodeRef) (ir.Value, error) {
	trunk := ref.Trunk()
	if trunk.Element {
		v, ok := t.elementValue.Walk(ref.Path)
		if !ok {
			return ir.Null, nil
		}
		return v, nil
	}
	f := t.getOrSchedule(trunk)
	val, err := f.await(ctx)
	if err != nil {
		return ir.Null, err
	}
	v, ok := val.Walk(ref.Path)
	if !ok {
		return ir.Null, nil
	}
	return v, nil
}

// cost scores a pull candidate per §4.2.1: 0 for input/context/const,
// element slots, and trunks already settled; 1 for anything that still
// needs a tool invocation.
func (t *ExecutionTree) cost(ref ir.NodeRef) int {
	trunk := ref.Trunk()
	if trunk.Element {
		return 0
	}
	switch trunk.Module {
	case "input", "context", "const":
		return 0
	}
	if f, ok := t.peekFuture(trunk); ok && f.settled() {
		return 0
	}
	return 1
}

// resolveWireGroup implements resolveWires(group) from §4.2: a constant
// wins immediately; otherwise the group's pull refs are cost-sorted and
// evaluated in order, first non-null short-circuiting, with null_fallback /
// fallback / fallback_ref applied per the pull-semantics outcome.
func (t *ExecutionTree) resolveWireGroup(ctx context.Context, group []ir.Wire) (ir.Value, error) {
	if len(group) == 0 {
		return ir.Null, nil
	}
	for _, w := range group {
		if w.Kind == ir.WireConstant {
			return ir.ParseJSONText(w.Value)
		}
	}

	type candidate struct {
		w    ir.Wire
		cost int
	}
	cands := make([]candidate, len(group))
	for i, w := range group {
		cands[i] = candidate{w: w, cost: t.cost(w.From)}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].cost < cands[j].cost })

	var errs []*EngineError
	for _, c := range cands {
		v, err := t.pull(ctx, c.w.From)
		if err != nil {
			errs = append(errs, toolFailure(err))
			continue
		}
		if v.IsNullOrUndefined() {
			continue
		}
		return v, nil
	}

	last := group[len(group)-1]
	if len(errs) == len(cands) && len(cands) > 0 {
		if last.Fallback != nil {
			return ir.ParseJSONText(*last.Fallback)
		}
		if last.FallbackRef != nil {
			return t.pull(ctx, *last.FallbackRef)
		}
		if len(cands) == 1 {
			return ir.Null, errs[0]
		}
		return ir.Null, aggregateFailure(errs)
	}
	if last.NullFallback != nil {
		v, err := ir.ParseJSONText(*last.NullFallback)
		if err != nil {
			return ir.StringValue(*last.NullFallback), nil
		}
		return v, nil
	}
	return ir.Null, nil
}
