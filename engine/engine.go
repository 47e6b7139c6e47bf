// Package engine implements the request-scoped lazy resolver described by
// the compiler's output: ExecutionTree, trunk scheduling, wire pulling with
// cost-based overdefinition, shadow trees for array-mapped fields, and
// forced (fire-and-forget) execution.
package engine

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"goa.design/bridge/cache"
	"goa.design/bridge/ir"
	"goa.design/bridge/telemetry"
	"goa.design/bridge/tools"
)

// Engine holds everything built once from a compiled instruction list:
// resolved consts, tool definitions, per-bridge dataflow indexes, and the
// configured tool registry. It is immutable after BuildEngine returns and
// safe for concurrent use by many ExecutionTrees.
type Engine struct {
	tools       map[string]*ir.ToolDef
	bridges     map[string]*bridgeIndex
	constsValue ir.Value
	registry    tools.Registry
	opts        *Options
}

// BuildEngine compiles an instruction list into a runnable Engine. Mirrors
// the teacher's build_engine(schema, instructions, options) entry point at
// the type level: schema attachment is the host adapter's job (see
// package host), BuildEngine only wires the dataflow side.
func BuildEngine(instructions []ir.Instruction, opts ...Option) *Engine {
	o := newOptions(opts)
	e := &Engine{
		tools:   map[string]*ir.ToolDef{},
		bridges: map[string]*bridgeIndex{},
	}

	constKeys := make([]string, 0)
	constMap := map[string]ir.Value{}
	for _, ins := range instructions {
		switch ins.Kind {
		case ir.InstructionConst:
			v, err := ir.ParseJSONText(ins.Const.JSONText)
			if err != nil {
				v = ir.Null
			}
			if _, exists := constMap[ins.Const.Name]; !exists {
				constKeys = append(constKeys, ins.Const.Name)
			}
			constMap[ins.Const.Name] = v
		case ir.InstructionTool:
			e.tools[ins.Tool.Name] = ins.Tool
		case ir.InstructionBridge:
			key := ins.Bridge.Type + "." + ins.Bridge.Field
			e.bridges[key] = buildBridgeIndex(ins.Bridge)
		}
	}
	sort.Strings(constKeys)
	e.constsValue = ir.MapValue(constKeys, constMap)

	std := o.std
	e.registry = tools.New(o.tools, std)
	e.opts = o
	return e
}

// resolvedTool is a ToolDef's extends chain flattened into one effective
// function name plus the concatenation of every ancestor's deps/wires,
// parent first so a child's own wires can shadow an inherited target path.
type resolvedTool struct {
	fn    string
	deps  []ir.ToolDep
	wires []ir.ToolWire
}

func (e *Engine) resolveToolChain(name string) (*resolvedTool, bool) {
	def, ok := e.tools[name]
	if !ok {
		return nil, false
	}
	if def.Extends != nil {
		parent, ok := e.resolveToolChain(*def.Extends)
		if !ok {
			return nil, false
		}
		return &resolvedTool{
			fn:    parent.fn,
			deps:  append(append([]ir.ToolDep{}, parent.deps...), def.Deps...),
			wires: append(append([]ir.ToolWire{}, parent.wires...), def.Wires...),
		}, true
	}
	fn := ""
	if def.Fn != nil {
		fn = *def.Fn
	}
	return &resolvedTool{fn: fn, deps: def.Deps, wires: def.Wires}, true
}

// NewTree creates a request-scoped ExecutionTree rooted at the bridge bound
// to (bridgeType, bridgeField), fed the given input value, and immediately
// fires every force-tagged wire's source trunk fire-and-forget.
func (e *Engine) NewTree(ctx context.Context, bridgeType, bridgeField string, input ir.Value) *ExecutionTree {
	idx := e.bridges[bridgeType+"."+bridgeField]
	t := &ExecutionTree{
		engine:       e,
		idx:          idx,
		input:        input,
		state:        map[ir.TrunkKey]*future{},
		toolDepCache: map[string]*future{},
		requestID:    uuid.New(),
	}
	t.root = t
	if e.opts.contextFactory != nil {
		t.contextValue = e.opts.contextFactory(ctx)
	}
	if e.opts.traceLevel != telemetry.TraceOff {
		t.collector = telemetry.NewCollector()
		ctx = telemetry.WithCollector(ctx, t.collector)
	}
	if e.opts.cacheStore != nil {
		ctx = cache.WithStore(ctx, e.opts.cacheStore)
	}
	t.ctx = ctx
	if idx != nil {
		for _, src := range idx.forcedSources {
			t.getOrSchedule(src.Trunk())
		}
	}
	return t
}
