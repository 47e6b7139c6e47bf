package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"

	"goa.design/bridge/durable"
	"goa.design/bridge/ir"
	"goa.design/bridge/telemetry"
)

// runSchedule implements schedule(trunk) from §4.2.2, settling f with the
// trunk's resolved value or error. Always runs on the root tree in its own
// goroutine, started by getOrSchedule.
func (root *ExecutionTree) runSchedule(trunk ir.NodeRef, f *future) {
	ctx := root.ctx

	switch trunk.Module {
	case "input":
		f.resolve(root.input, nil)
		return
	case "context":
		f.resolve(root.contextValue, nil)
		return
	case "const":
		f.resolve(root.engine.constsValue, nil)
		return
	case "output":
		f.resolve(ir.Null, nil)
		return
	}

	if strings.HasPrefix(trunk.Module, "__define_in_") || strings.HasPrefix(trunk.Module, "__define_out_") {
		v, err := root.assembleTarget(ctx, trunk)
		f.resolve(v, err)
		return
	}

	toolName, ok := root.idx.toolNameByTrunk[trunk.Key()]
	if !ok {
		f.resolve(ir.Null, toolNotFound(fmt.Sprintf("%s.%s#%d", trunk.Module, trunk.Field, trunk.Instance)))
		return
	}
	v, err := root.invokeTool(ctx, trunk, toolName)
	f.resolve(v, err)
}

// assembleTarget resolves every wire addressing a synthetic define
// input/output module into one assembled mapping value, used both for a
// define's own internal "input" reads and for a non-lazy whole-object pull
// of a define's output.
func (root *ExecutionTree) assembleTarget(ctx context.Context, trunk ir.NodeRef) (ir.Value, error) {
	groups, order := root.idx.assembleGroups(trunk)
	result := ir.Null
	for _, pk := range order {
		v, err := root.resolveWireGroup(ctx, groups[pk])
		if err != nil {
			return ir.Null, err
		}
		if pk == "" {
			result = spreadInto(result, v)
			continue
		}
		result = setPath(result, strings.Split(pk, "."), v)
	}
	return result, nil
}

// invokeTool implements §4.2.2 steps 3-5 for an ordinary tool call site:
// pre-populate the input mapping from the resolved tool's own wires, apply
// bridge-level wires over it, invoke the registered function, and fall back
// to the tool's on_error wire on failure.
func (root *ExecutionTree) invokeTool(ctx context.Context, trunk ir.NodeRef, toolName string) (ir.Value, error) {
	chain, ok := root.engine.resolveToolChain(toolName)
	if !ok {
		return ir.Null, toolNotFound(toolName)
	}

	deps, err := root.resolveDeps(ctx, chain.deps)
	if err != nil {
		return ir.Null, err
	}

	input := ir.Null
	for _, w := range chain.wires {
		switch w.Kind {
		case ir.ToolWireConstant:
			if w.Target == "" || w.Value == nil {
				continue
			}
			v, perr := ir.ParseJSONText(*w.Value)
			if perr != nil {
				return ir.Null, toolFailure(perr)
			}
			input = setPath(input, strings.Split(w.Target, "."), v)
		case ir.ToolWirePull:
			if w.Target == "" || w.Source == nil {
				continue
			}
			if v, found := deps.pull(*w.Source); found {
				input = setPath(input, strings.Split(w.Target, "."), v)
			}
		}
	}

	groups, order := root.idx.groupedBridgeWires(trunk)
	for _, pk := range order {
		v, gerr := root.resolveWireGroup(ctx, groups[pk])
		if gerr != nil {
			return ir.Null, gerr
		}
		if pk == "" {
			input = spreadInto(input, v)
			continue
		}
		input = setPath(input, strings.Split(pk, "."), v)
	}

	var result ir.Value
	var callErr error
	if root.idx.isForced(trunk) && root.engine.opts.dispatcher != nil {
		result, callErr = root.dispatchForced(ctx, trunk, toolName, input)
	} else {
		result, callErr = root.callFunction(ctx, trunk, toolName, chain.fn, input)
	}
	if callErr == nil {
		return result, nil
	}
	if onErr := findOnError(chain.wires); onErr != nil {
		if onErr.Value != nil {
			return ir.ParseJSONText(*onErr.Value)
		}
		if onErr.Source != nil {
			if v, found := deps.pull(*onErr.Source); found {
				return v, nil
			}
		}
	}
	return ir.Null, callErr
}

// resolveDeps resolves a tool's declared deps concurrently, per §4.2.2's
// "tool wires are evaluated in parallel".
func (root *ExecutionTree) resolveDeps(ctx context.Context, deps []ir.ToolDep) (depBag, error) {
	bag := make(depBag, len(deps))
	if len(deps) == 0 {
		return bag, nil
	}
	type result struct {
		handle string
		v      ir.Value
		err    error
	}
	results := make(chan result, len(deps))
	for _, dep := range deps {
		dep := dep
		go func() {
			switch dep.Kind {
			case ir.DepContext:
				results <- result{dep.Handle, root.contextValue, nil}
			case ir.DepConst:
				results <- result{dep.Handle, root.engine.constsValue, nil}
			case ir.DepTool:
				v, err := root.resolveToolDep(ctx, dep.ToolName)
				results <- result{dep.Handle, v, err}
			default:
				results <- result{dep.Handle, ir.Null, nil}
			}
		}()
	}
	var firstErr error
	for range deps {
		r := <-results
		if r.err != nil && firstErr == nil {
			firstErr = r.err
		}
		bag[r.handle] = r.v
	}
	if firstErr != nil {
		return bag, toolFailure(firstErr)
	}
	return bag, nil
}

// resolveToolDep invokes a tool referenced as another tool's dependency,
// memoized by name in tool_dep_cache since a dep isn't addressed by any
// wire trunk — only one instance of it ever runs per request regardless of
// how many other tools depend on it.
func (root *ExecutionTree) resolveToolDep(ctx context.Context, name string) (ir.Value, error) {
	root.mu.Lock()
	f, ok := root.toolDepCache[name]
	if !ok {
		f = newFuture()
		root.toolDepCache[name] = f
		root.mu.Unlock()
		go func() {
			chain, ok := root.engine.resolveToolChain(name)
			if !ok {
				f.resolve(ir.Null, toolNotFound(name))
				return
			}
			deps, derr := root.resolveDeps(ctx, chain.deps)
			if derr != nil {
				f.resolve(ir.Null, derr)
				return
			}
			input := ir.Null
			for _, w := range chain.wires {
				switch w.Kind {
				case ir.ToolWireConstant:
					if w.Target == "" || w.Value == nil {
						continue
					}
					v, perr := ir.ParseJSONText(*w.Value)
					if perr == nil {
						input = setPath(input, strings.Split(w.Target, "."), v)
					}
				case ir.ToolWirePull:
					if w.Target == "" || w.Source == nil {
						continue
					}
					if v, found := deps.pull(*w.Source); found {
						input = setPath(input, strings.Split(w.Target, "."), v)
					}
				}
			}
			v, cerr := root.callFunction(ctx, ir.NodeRef{Module: "dep", Field: name}, name, chain.fn, input)
			f.resolve(v, cerr)
		}()
	} else {
		root.mu.Unlock()
	}
	return f.await(ctx)
}

// dispatchForced routes a force-tagged wire's tool call through the
// configured durable.Dispatcher instead of callFunction, deriving a stable
// WorkflowID from the tree's requestID and the trunk identity so repeated
// forced scheduling of the same trunk within one request (which never
// happens today, since getOrSchedule already memoizes by trunk, but would
// under a future retry path) dedupes onto the same durable execution.
func (root *ExecutionTree) dispatchForced(ctx context.Context, trunk ir.NodeRef, toolName string, input ir.Value) (ir.Value, error) {
	workflowID := fmt.Sprintf("%s-%s-%d", root.root.requestID, toolName, trunk.Instance)
	v, err := root.engine.opts.dispatcher.Dispatch(ctx, durable.Request{
		WorkflowID: workflowID,
		ToolName:   toolName,
		Input:      input,
	})
	if err != nil {
		return ir.Null, toolFailure(err)
	}
	return v, nil
}

// callFunction looks up fn in the tools registry and invokes it, opening an
// OTEL span and recording a ToolTrace when tracing is enabled. Matches the
// teacher's executor pattern of wrapping every tool call with a span plus a
// post-hoc trace record rather than threading tracing through the call
// signature itself.
func (root *ExecutionTree) callFunction(ctx context.Context, trunk ir.NodeRef, name, fn string, input ir.Value) (ir.Value, error) {
	if fn == "" {
		return ir.Null, missingToolFunction(name)
	}
	impl, ok := root.engine.registry.Lookup(fn)
	if !ok {
		return ir.Null, missingToolFunction(fn)
	}

	spanCtx, span := root.engine.opts.tracer.Start(ctx, "bridge.schedule")
	span.AddEvent("bridge.trunk", "bridge.trunk.module", trunk.Module, "bridge.trunk.field", trunk.Field, "bridge.trunk.instance", trunk.Instance)

	start := time.Now()
	v, err := impl(spanCtx, input)
	dur := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	if root.collector != nil {
		tr := telemetry.ToolTrace{
			RequestID:   root.root.requestID.String(),
			Tool:        name,
			Fn:          fn,
			DurationMs:  dur.Milliseconds(),
			StartedAtMs: start.UnixMilli(),
		}
		if root.engine.opts.traceLevel == telemetry.TraceFull {
			tr.Input = input.ToJSON()
			tr.Output = v.ToJSON()
		}
		if err != nil {
			tr.Error = err.Error()
		}
		root.collector.Add(tr)
	}

	if err != nil {
		return ir.Null, toolFailure(err)
	}
	return v, nil
}
