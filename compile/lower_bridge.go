package compile

import (
	"strings"

	"goa.design/bridge/dsl/ast"
	"goa.design/bridge/ir"
)

// bodyResult accumulates everything lowerBridgeBody produces, shared by both
// the top-level bridge lowering and define lowering (a define's body has the
// identical shape, minus the type/field header).
type bodyResult struct {
	handles        []ir.HandleBinding
	wires          []ir.Wire
	arrayIterators map[string]string
	arrayBlocks    []ir.ArrayBlock
	pipeHandles    []ir.PipeFork
}

// lowerBridgeBody lowers the with-lines and wire-lines shared by bridge and
// define blocks. declaredTools/declaredDefines let `with` resolve a dotted
// name to HandleTool vs HandleDefine.
func lowerBridgeBody(lines []ast.BridgeLine, hm handleMap, ctx *bridgeCtx, declaredTools, declaredDefines map[string]bool) (*bodyResult, []Diagnostic) {
	res := &bodyResult{arrayIterators: map[string]string{}}
	var diags []Diagnostic

	for _, line := range lines {
		if line.Kind != ast.BridgeLineWith {
			continue
		}
		entry, binding, d := resolveWithLine(line, ctx, declaredTools, declaredDefines)
		if d != nil {
			diags = append(diags, *d)
			continue
		}
		if _, exists := hm[line.WithAlias]; exists && binding != nil {
			diags = append(diags, diag(line.Line, KindDuplicateHandle, "handle %q already declared", line.WithAlias))
			continue
		}
		hm[line.WithAlias] = entry
		if binding != nil {
			res.handles = append(res.handles, *binding)
		}
	}

	for _, line := range lines {
		if line.Kind != ast.BridgeLineWire {
			continue
		}
		w := line.Wire
		if len(w.Target.Path) > 0 {
			for _, seg := range w.Target.Path {
				if isDigits(seg) {
					diags = append(diags, diag(w.Line, KindArrayIndexOnTarget, "explicit array index %q not allowed on a wire target", seg))
					break
				}
			}
		}
		targetEntry, ok := hm[w.Target.Handle]
		if !ok {
			diags = append(diags, diag(w.Line, KindUndeclaredHandle, "undeclared handle %q", w.Target.Handle))
			continue
		}
		target := targetEntry.Trunk
		target.Path = w.Target.Path

		if w.ConstValue != nil {
			text := renderBareValue(w.ConstValue)
			res.wires = append(res.wires, ir.Wire{Kind: ir.WireConstant, To: target, Value: text, Line: w.Line})
			continue
		}

		wires, forks, err := lowerPull(target, w, hm, ctx, declaredTools)
		if err != nil {
			diags = append(diags, err.(Diagnostic))
			continue
		}
		res.wires = append(res.wires, wires...)
		res.pipeHandles = append(res.pipeHandles, forks...)

		if w.ArrayMap != nil {
			pathKey := strings.Join(w.Target.Path, ".")
			res.arrayIterators[pathKey] = w.ArrayMap.IterName
			elemWires, elemForks, elemCount, nestedBlocks, elemDiags := lowerArrayMap(w.ArrayMap, hm, ctx, declaredTools)
			diags = append(diags, elemDiags...)
			res.wires = append(res.wires, elemWires...)
			res.pipeHandles = append(res.pipeHandles, elemForks...)
			res.arrayBlocks = append(res.arrayBlocks, ir.ArrayBlock{PathKey: pathKey, Iter: w.ArrayMap.IterName, ElemCount: elemCount})
			res.arrayBlocks = append(res.arrayBlocks, nestedBlocks...)
			for k, v := range nestedIterators(nestedBlocks) {
				res.arrayIterators[k] = v
			}
		}
	}

	// Tool names referenced bare in a source expression (no `with` line)
	// still need a HandleBinding so the engine can map their trunk back to a
	// tool name; ctx.bareOrder records first-use order across the whole
	// body, including nested array-mapping scopes.
	for _, name := range ctx.bareOrder {
		e := ctx.bareTools[name]
		res.handles = append(res.handles, ir.HandleBinding{Handle: name, Kind: e.Kind, Ref: e.Ref, Trunk: e.Trunk})
	}
	return res, diags
}

func resolveWithLine(line ast.BridgeLine, ctx *bridgeCtx, declaredTools, declaredDefines map[string]bool) (handleEntry, *ir.HandleBinding, *Diagnostic) {
	switch line.WithHandle {
	case "input":
		trunk := ir.NodeRef{Module: "input", Type: ctx.bridgeType, Field: ctx.bridgeField}
		return handleEntry{Kind: ir.HandleInput, Trunk: trunk},
			&ir.HandleBinding{Handle: line.WithAlias, Kind: ir.HandleInput, Trunk: trunk, Line: line.Line}, nil
	case "output":
		trunk := ir.NodeRef{Module: "output", Type: ctx.bridgeType, Field: ctx.bridgeField}
		return handleEntry{Kind: ir.HandleOutput, Trunk: trunk},
			&ir.HandleBinding{Handle: line.WithAlias, Kind: ir.HandleOutput, Trunk: trunk, Line: line.Line}, nil
	case "context":
		trunk := ir.NodeRef{Module: "context", Type: "Context", Field: "context"}
		return handleEntry{Kind: ir.HandleContext, Trunk: trunk},
			&ir.HandleBinding{Handle: line.WithAlias, Kind: ir.HandleContext, Trunk: trunk, Line: line.Line}, nil
	case "const":
		trunk := ir.NodeRef{Module: "const", Type: "Const", Field: "const"}
		return handleEntry{Kind: ir.HandleConst, Trunk: trunk},
			&ir.HandleBinding{Handle: line.WithAlias, Kind: ir.HandleConst, Trunk: trunk, Line: line.Line}, nil
	default:
		name := line.WithHandle
		trunk := ctx.nextHandleTrunk()
		switch {
		case declaredTools[name]:
			return handleEntry{Kind: ir.HandleTool, Ref: name, Trunk: trunk},
				&ir.HandleBinding{Handle: line.WithAlias, Kind: ir.HandleTool, Ref: name, Trunk: trunk, Line: line.Line}, nil
		case declaredDefines[name]:
			return handleEntry{Kind: ir.HandleDefine, Ref: name, Trunk: trunk},
				&ir.HandleBinding{Handle: line.WithAlias, Kind: ir.HandleDefine, Ref: name, Trunk: trunk, Line: line.Line}, nil
		default:
			d := diag(line.Line, KindUnknownTool, "%q is neither a declared tool nor a declared define", name)
			return handleEntry{}, nil, &d
		}
	}
}

// lowerArrayMap lowers the element lines of one `[] as iter { ... }` block.
// Every element line (and any nested array map inside it) addresses the
// bridge's single elementTrunk; nesting depth is a runtime shadow-tree
// concern, not an IR encoding concern.
func lowerArrayMap(am *ast.ArrayMap, outerHM handleMap, ctx *bridgeCtx, declaredTools map[string]bool) ([]ir.Wire, []ir.PipeFork, int, []ir.ArrayBlock, []Diagnostic) {
	elemSlot := elementTrunk(ctx.bridgeType, ctx.bridgeField)
	hm := cloneHandleMap(outerHM)
	hm[am.IterName] = handleEntry{Kind: ir.HandleInput, Trunk: elemSlot}

	var wires []ir.Wire
	var forks []ir.PipeFork
	var blocks []ir.ArrayBlock
	var diags []Diagnostic
	count := 0
	for _, el := range am.Elems {
		w := el.Wire
		for _, seg := range w.Target.Path {
			if isDigits(seg) {
				diags = append(diags, diag(w.Line, KindArrayIndexOnTarget, "explicit array index %q not allowed on a wire target", seg))
			}
		}
		target := elemSlot
		target.Path = w.Target.Path
		count++

		if w.ConstValue != nil {
			text := renderBareValue(w.ConstValue)
			wires = append(wires, ir.Wire{Kind: ir.WireConstant, To: target, Value: text, Line: w.Line})
			continue
		}

		elemWires, elemForks, err := lowerPull(target, &w, hm, ctx, declaredTools)
		if err != nil {
			diags = append(diags, err.(Diagnostic))
			continue
		}
		wires = append(wires, elemWires...)
		forks = append(forks, elemForks...)

		if w.ArrayMap != nil {
			nestedWires, nestedForks, nestedCount, nestedBlocks, nestedDiags := lowerArrayMap(w.ArrayMap, hm, ctx, declaredTools)
			diags = append(diags, nestedDiags...)
			wires = append(wires, nestedWires...)
			forks = append(forks, nestedForks...)
			blocks = append(blocks, ir.ArrayBlock{PathKey: strings.Join(w.Target.Path, "."), Iter: w.ArrayMap.IterName, ElemCount: nestedCount})
			blocks = append(blocks, nestedBlocks...)
		}
	}
	return wires, forks, count, blocks, diags
}

func nestedIterators(blocks []ir.ArrayBlock) map[string]string {
	out := map[string]string{}
	for _, b := range blocks {
		out[b.PathKey] = b.Iter
	}
	return out
}

func cloneHandleMap(hm handleMap) handleMap {
	out := make(handleMap, len(hm)+1)
	for k, v := range hm {
		out[k] = v
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
