package compile

import "goa.design/bridge/ir"

// inlineDefines rewrites bridge in place, inlining the body of every define
// handle it introduced via `with <define> as h`. A define's own input/output
// trunks are rewritten to synthetic per-use-site modules
// (__define_in_<h>/__define_out_<h>) so two uses of the same define in one
// bridge, or in different bridges, never share storage; tool-handle and
// pipe-fork trunks inside the define body are redrawn from the enclosing
// bridge's own counters so they never collide with the bridge's own tool
// instances. Bridge-level wires that read from or write to the handle itself
// are redirected to the synthetic output/input modules, since the handle's
// own trunk carries no wires of its own — it is purely a call-site name.
func inlineDefines(bridge *ir.Bridge, defineDefs map[string]*ir.DefineDef, ctx *bridgeCtx) []Diagnostic {
	var diags []Diagnostic
	for _, h := range bridge.Handles {
		if h.Kind != ir.HandleDefine {
			continue
		}
		def, ok := defineDefs[h.Ref]
		if !ok {
			diags = append(diags, diag(h.Line, KindUnknownTool, "define %q not found for inlining", h.Ref))
			continue
		}
		inlineOne(bridge, def, h, ctx)
	}
	return diags
}

func inlineOne(bridge *ir.Bridge, def *ir.DefineDef, h ir.HandleBinding, ctx *bridgeCtx) {
	remap := map[ir.TrunkKey]ir.NodeRef{}
	rewrite := func(ref ir.NodeRef) ir.NodeRef {
		return remapDefineRef(ref, h.Handle, def.Name, remap, ctx)
	}

	for _, w := range def.Wires {
		nw := w
		nw.To = rewrite(w.To)
		if w.Kind == ir.WirePull {
			nw.From = rewrite(w.From)
		}
		if w.FallbackRef != nil {
			fr := rewrite(*w.FallbackRef)
			nw.FallbackRef = &fr
		}
		bridge.Wires = append(bridge.Wires, nw)
	}
	for _, pf := range def.PipeHandles {
		npf := pf
		npf.Trunk = rewrite(pf.Trunk)
		if pf.BaseTrunk != nil {
			bt := rewrite(*pf.BaseTrunk)
			npf.BaseTrunk = &bt
		}
		bridge.PipeHandles = append(bridge.PipeHandles, npf)
	}
	for _, dh := range def.Handles {
		if dh.Kind == ir.HandleTool {
			ndh := dh
			ndh.Trunk = rewrite(dh.Trunk)
			bridge.Handles = append(bridge.Handles, ndh)
		}
	}
	if len(def.ArrayIterators) > 0 && bridge.ArrayIterators == nil {
		bridge.ArrayIterators = map[string]string{}
	}
	for k, v := range def.ArrayIterators {
		bridge.ArrayIterators[k] = v
	}
	bridge.ArrayBlocks = append(bridge.ArrayBlocks, def.ArrayBlocks...)

	// Redirect the bridge's own wires that address the handle's call-site
	// trunk directly: reads become reads of the define's synthetic output,
	// writes become writes into the define's synthetic input.
	inModule := "__define_in_" + h.Handle
	outModule := "__define_out_" + h.Handle
	for i := range bridge.Wires {
		w := &bridge.Wires[i]
		if w.To.Trunk().Equal(h.Trunk) {
			w.To.Module, w.To.Instance = inModule, 0
		}
		if w.Kind == ir.WirePull && w.From.Trunk().Equal(h.Trunk) {
			w.From.Module, w.From.Instance = outModule, 0
		}
		if w.FallbackRef != nil && w.FallbackRef.Trunk().Equal(h.Trunk) {
			w.FallbackRef.Module, w.FallbackRef.Instance = outModule, 0
		}
	}
}

// remapDefineRef translates one NodeRef from a define body's own (synthetic,
// pre-inline) addressing into the enclosing bridge's addressing. The
// remap map memoizes tool/pipe-fork trunk reassignment so repeated
// references to the same internal call site inside the define keep
// resolving to the same new trunk.
func remapDefineRef(r ir.NodeRef, handle, defName string, remap map[ir.TrunkKey]ir.NodeRef, ctx *bridgeCtx) ir.NodeRef {
	trunk := r.Trunk()
	switch {
	case trunk.Module == "input" && trunk.Type == "define" && trunk.Field == defName:
		trunk.Module, trunk.Type, trunk.Field = "__define_in_"+handle, ctx.bridgeType, ctx.bridgeField
	case trunk.Module == "output" && trunk.Type == "define" && trunk.Field == defName:
		trunk.Module, trunk.Type, trunk.Field = "__define_out_"+handle, ctx.bridgeType, ctx.bridgeField
	case trunk.Module == "element" && trunk.Type == "define" && trunk.Field == defName:
		trunk.Type, trunk.Field = ctx.bridgeType, ctx.bridgeField
	case trunk.Module == "tool" && trunk.Type == "define" && trunk.Field == defName:
		key := trunk.Key()
		if fresh, ok := remap[key]; ok {
			trunk = fresh
		} else {
			var assigned ir.NodeRef
			if trunk.Instance >= ir.PipeForkInstanceBase {
				assigned = ctx.nextForkTrunk()
			} else {
				assigned = ctx.nextHandleTrunk()
			}
			remap[key] = assigned
			trunk = assigned
		}
	}
	trunk.Path = append([]string(nil), r.Path...)
	return trunk
}
