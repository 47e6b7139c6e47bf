package compile

import "goa.design/bridge/ir"

// handleEntry is the compiler's bookkeeping record for one local alias;
// entries introduced by an explicit `with` line, and tools referenced bare in
// a source expression, also produce an emitted ir.HandleBinding. Reserved aliases (input/output/context/const) are always
// present in the map, with or without an explicit `with` line.
type handleEntry struct {
	Kind  ir.HandleKind
	Ref   string // tool/define name, set when Kind is HandleTool/HandleDefine
	Trunk ir.NodeRef
}

type handleMap map[string]handleEntry

// elementTrunk is the constant per-bridge address of the current array
// element's payload. All array-mapping blocks in a bridge — at any nesting
// depth — resolve their iterator handle through this same trunk; nesting is
// disambiguated at runtime by which shadow tree is resolving, not by the
// trunk's fields (see ir.NodeRef.Element).
func elementTrunk(bridgeType, bridgeField string) ir.NodeRef {
	return ir.NodeRef{Module: "element", Type: bridgeType, Field: bridgeField, Element: true}
}

// newHandleMap seeds the four reserved handles for one bridge or define
// body. A define body is lowered standalone first, against the placeholder
// trunks ("define", the define's own name) built here; inlineDefines (see
// inline.go) later rewrites those placeholder input/output/element trunks
// into the synthetic __define_in_/__define_out_ modules scoped to whatever
// bridge actually uses the define.
func newHandleMap(bridgeType, bridgeField string) handleMap {
	return handleMap{
		"input":   {Kind: ir.HandleInput, Trunk: ir.NodeRef{Module: "input", Type: bridgeType, Field: bridgeField}},
		"output":  {Kind: ir.HandleOutput, Trunk: ir.NodeRef{Module: "output", Type: bridgeType, Field: bridgeField}},
		"context": {Kind: ir.HandleContext, Trunk: ir.NodeRef{Module: "context", Type: "Context", Field: "context"}},
		"const":   {Kind: ir.HandleConst, Trunk: ir.NodeRef{Module: "const", Type: "Const", Field: "const"}},
	}
}

// bridgeCtx carries the per-bridge (or per-define-body) monotonic counters
// used while lowering. A single instance counter is shared by every tool/
// define handle introduced via `with`, per DESIGN.md's resolution of the
// spec's "instance counters are bumped per (module, field) key" wording: all
// tool/define handles within one bridge already share the same (module,
// type, field) = ("tool", bridgeType, bridgeField) key, so a single
// monotonic counter scoped to the bridge is the literal reading of that
// rule, and it guarantees two different tools referenced once each still get
// distinct trunks.
type bridgeCtx struct {
	bridgeType, bridgeField string
	instance                int
	forkInstance            int

	// bareTools/bareOrder cache tool handles referenced by name directly in a
	// source expression, with no preceding `with` line (a.b a pipe stage or a
	// pull source can always name a declared tool bare). The cache is shared
	// across every handleMap clone a bridge body creates (e.g. for nested
	// array-mapping blocks) so the same bare name always resolves to the same
	// trunk no matter which scope first encounters it.
	bareTools map[string]handleEntry
	bareOrder []string
}

func newBridgeCtx(bridgeType, bridgeField string) *bridgeCtx {
	return &bridgeCtx{bridgeType: bridgeType, bridgeField: bridgeField, forkInstance: ir.PipeForkInstanceBase - 1}
}

// resolveHandle looks up name in the local scope hm, then in the bridge-wide
// bare-tool cache, and finally auto-registers it as a fresh tool handle if it
// names a declared tool. A segment used bare in a source expression (no
// `with` line introducing it) is valid wherever a declared tool name appears.
func resolveHandle(name string, hm handleMap, ctx *bridgeCtx, declaredTools map[string]bool) (handleEntry, bool) {
	if e, ok := hm[name]; ok {
		return e, true
	}
	if e, ok := ctx.bareTools[name]; ok {
		return e, true
	}
	if !declaredTools[name] {
		return handleEntry{}, false
	}
	e := handleEntry{Kind: ir.HandleTool, Ref: name, Trunk: ctx.nextHandleTrunk()}
	if ctx.bareTools == nil {
		ctx.bareTools = map[string]handleEntry{}
	}
	ctx.bareTools[name] = e
	ctx.bareOrder = append(ctx.bareOrder, name)
	return e, true
}

func (c *bridgeCtx) nextHandleTrunk() ir.NodeRef {
	c.instance++
	return ir.NodeRef{Module: "tool", Type: c.bridgeType, Field: c.bridgeField, Instance: c.instance}
}

func (c *bridgeCtx) nextForkTrunk() ir.NodeRef {
	c.forkInstance++
	return ir.NodeRef{Module: "tool", Type: c.bridgeType, Field: c.bridgeField, Instance: c.forkInstance}
}
