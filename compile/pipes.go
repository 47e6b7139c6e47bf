package compile

import (
	"goa.design/bridge/dsl/ast"
	"goa.design/bridge/ir"
)

// resolveSourceExpr lowers a (possibly piped) source expression. The
// rightmost segment is the data source; every earlier segment names a tool
// handle materialized as a pipe fork, chained right to left per
// SPEC_FULL.md §4.1 step 4. It returns the pipe-stage wires (Pipe: true) and
// forks generated along the way plus the final ref a consumer wire should
// pull from.
func resolveSourceExpr(se *ast.SourceExpr, hm handleMap, ctx *bridgeCtx, declaredTools map[string]bool) ([]ir.Wire, []ir.PipeFork, ir.NodeRef, error) {
	segs := se.Segments
	last := segs[len(segs)-1]
	srcEntry, ok := resolveHandle(last.Handle, hm, ctx, declaredTools)
	if !ok {
		return nil, nil, ir.NodeRef{}, diag(last.Line, KindUndeclaredHandle, "undeclared handle %q", last.Handle)
	}
	current := srcEntry.Trunk
	current.Path = last.Path

	var wires []ir.Wire
	var forks []ir.PipeFork
	for i := len(segs) - 2; i >= 0; i-- {
		seg := segs[i]
		entry, ok := resolveHandle(seg.Handle, hm, ctx, declaredTools)
		if !ok {
			return nil, nil, ir.NodeRef{}, diag(seg.Line, KindUndeclaredHandle, "undeclared handle %q", seg.Handle)
		}
		if entry.Kind != ir.HandleTool {
			return nil, nil, ir.NodeRef{}, diag(seg.Line, KindSemanticError, "handle %q is not a tool, cannot appear as an intermediary pipe stage", seg.Handle)
		}
		forkTrunk := ctx.nextForkTrunk()
		baseTrunk := entry.Trunk
		forks = append(forks, ir.PipeFork{Handle: seg.Handle, ToolName: entry.Ref, Trunk: forkTrunk, BaseTrunk: &baseTrunk})
		wires = append(wires, ir.Wire{Kind: ir.WirePull, Pipe: true, To: forkTrunk, From: current, Line: seg.Line})
		current = forkTrunk
	}
	return wires, forks, current, nil
}

// lowerPull lowers one wire's full pull expression — its primary source,
// any "||" alternatives, and an optional "??" fallback — into the flat ir
// wire list for a single target. The engine resolves overdefinition and
// coalescing at request time (§4.2.1); compile time only needs to emit
// wires in declaration order with fallback metadata attached to each
// chain's last wire.
func lowerPull(target ir.NodeRef, w *ast.Wire, hm handleMap, ctx *bridgeCtx, declaredTools map[string]bool) ([]ir.Wire, []ir.PipeFork, error) {
	pipeWires, forks, srcRef, err := resolveSourceExpr(w.Source, hm, ctx, declaredTools)
	if err != nil {
		return nil, nil, err
	}
	wires := append(pipeWires, ir.Wire{
		Kind: ir.WirePull, To: target, From: srcRef, Force: w.Force, Line: w.Line,
	})

	var nullFallback *string
	for _, alt := range w.OrAlts {
		if alt.Kind == ast.AltLiteral {
			text := renderJSONValue(alt.Lit)
			nullFallback = &text
			continue
		}
		altWires, altForks, altRef, err := resolveSourceExpr(alt.Source, hm, ctx, declaredTools)
		if err != nil {
			return nil, nil, err
		}
		wires = append(wires, altWires...)
		forks = append(forks, altForks...)
		wires = append(wires, ir.Wire{Kind: ir.WirePull, To: target, From: altRef, Line: alt.Line})
	}
	if nullFallback != nil {
		wires[len(wires)-1].NullFallback = nullFallback
	}

	if w.CoalesceAlt != nil {
		alt := *w.CoalesceAlt
		if alt.Kind == ast.AltLiteral {
			text := renderJSONValue(alt.Lit)
			wires[len(wires)-1].Fallback = &text
		} else {
			primary := len(wires) - 1
			altWires, altForks, altRef, err := resolveSourceExpr(alt.Source, hm, ctx, declaredTools)
			if err != nil {
				return nil, nil, err
			}
			wires = append(wires, altWires...)
			forks = append(forks, altForks...)
			wires[primary].FallbackRef = &altRef
		}
	}
	return wires, forks, nil
}
