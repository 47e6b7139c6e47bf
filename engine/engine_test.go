package engine_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"goa.design/bridge/compile"
	"goa.design/bridge/durable"
	"goa.design/bridge/engine"
	"goa.design/bridge/ir"
	"goa.design/bridge/tools"
)

func mustCompile(t *testing.T, src string) []ir.Instruction {
	t.Helper()
	instrs, err := compile.Compile(src)
	require.NoError(t, err)
	return instrs
}

func TestResolveConstantWire(t *testing.T) {
	instrs := mustCompile(t, `version 1.4
bridge Query.answer {
  with output as o
  o.value = 42
}
`)
	e := engine.BuildEngine(instrs)
	tree := e.NewTree(context.Background(), "Query", "answer", ir.Null)
	res, err := tree.Resolve(context.Background(), []string{"value"}, false)
	require.NoError(t, err)
	require.Equal(t, engine.ResolveValue, res.Kind)
	require.Equal(t, ir.NumberValue(42), res.Value)
}

func TestResolveToolInvocationFromInput(t *testing.T) {
	instrs := mustCompile(t, `version 1.4
tool greet from std.greet { with const }
bridge Query.hello {
  with input as i
  with output as o
  with greet as g
  g.name <- i.name
  o.message <- g.message
}
`)
	e := engine.BuildEngine(instrs, engine.WithTools(tools.Registry{
		"std": tools.Registry{
			"greet": tools.Func(func(_ context.Context, input ir.Value) (ir.Value, error) {
				name, _ := input.Walk([]string{"name"})
				return ir.MapValue([]string{"message"}, map[string]ir.Value{
					"message": ir.StringValue("hi " + name.Str),
				}), nil
			}),
		},
	}))

	input := ir.MapValue([]string{"name"}, map[string]ir.Value{"name": ir.StringValue("ada")})
	tree := e.NewTree(context.Background(), "Query", "hello", input)
	res, err := tree.Resolve(context.Background(), []string{"message"}, false)
	require.NoError(t, err)
	require.Equal(t, ir.StringValue("hi ada"), res.Value)
}

func TestAtMostOnceInvocationPerTrunk(t *testing.T) {
	instrs := mustCompile(t, `version 1.4
tool counter from std.counter { with const }
bridge Query.twice {
  with output as o
  with counter as c
  o.a <- c.n
  o.b <- c.n
}
`)
	var calls int32
	e := engine.BuildEngine(instrs, engine.WithTools(tools.Registry{
		"std": tools.Registry{
			"counter": tools.Func(func(context.Context, ir.Value) (ir.Value, error) {
				atomic.AddInt32(&calls, 1)
				return ir.MapValue([]string{"n"}, map[string]ir.Value{"n": ir.NumberValue(1)}), nil
			}),
		},
	}))

	tree := e.NewTree(context.Background(), "Query", "twice", ir.Null)
	ra, err := tree.Resolve(context.Background(), []string{"a"}, false)
	require.NoError(t, err)
	rb, err := tree.Resolve(context.Background(), []string{"b"}, false)
	require.NoError(t, err)
	require.Equal(t, ir.NumberValue(1), ra.Value)
	require.Equal(t, ir.NumberValue(1), rb.Value)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

// Overdefinition reorders by cost, not declaration order: i.hint is a
// cost-0 source (bridge input) while api.label is cost-1 (an uncalled
// tool), so i.hint is observed first and, being non-null, short-circuits
// the group — the api tool never runs at all.
func TestOverdefinitionPrefersCheaperSourceOverToolCall(t *testing.T) {
	instrs := mustCompile(t, `version 1.4
tool api from std.fetch { with const }
bridge Query.label {
  with input as i
  with output as o
  with api
  o.label <- api.label || i.hint
}
`)
	var apiCalls int32
	e := engine.BuildEngine(instrs, engine.WithTools(tools.Registry{
		"std": tools.Registry{
			"fetch": tools.Func(func(context.Context, ir.Value) (ir.Value, error) {
				atomic.AddInt32(&apiCalls, 1)
				return ir.MapValue([]string{"label"}, map[string]ir.Value{"label": ir.StringValue("from-api")}), nil
			}),
		},
	}))
	input := ir.MapValue([]string{"hint"}, map[string]ir.Value{"hint": ir.StringValue("fallback-hint")})
	tree := e.NewTree(context.Background(), "Query", "label", input)
	res, err := tree.Resolve(context.Background(), []string{"label"}, false)
	require.NoError(t, err)
	require.Equal(t, ir.StringValue("fallback-hint"), res.Value)
	require.EqualValues(t, 0, atomic.LoadInt32(&apiCalls), "cheaper input source should short-circuit before the tool is ever scheduled")
}

func TestAggregateFailureCoalescesToLiteral(t *testing.T) {
	instrs := mustCompile(t, `version 1.4
tool p from std.fail { with const }
tool b from std.fail { with const }
bridge Query.label {
  with output as o
  with p
  with b
  o.label <- p.label || b.label ?? "safe-default"
}
`)
	e := engine.BuildEngine(instrs, engine.WithTools(tools.Registry{
		"std": tools.Registry{
			"fail": tools.Func(func(context.Context, ir.Value) (ir.Value, error) {
				return ir.Null, assertErr{}
			}),
		},
	}))
	tree := e.NewTree(context.Background(), "Query", "label", ir.Null)
	res, err := tree.Resolve(context.Background(), []string{"label"}, false)
	require.NoError(t, err)
	require.Equal(t, ir.StringValue("safe-default"), res.Value)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

// A single, non-overdefined wire must propagate the underlying failure as
// a plain ToolFailure, not wrap it in an AggregateFailure the way an
// overdefinition group's all-sources-threw case does.
func TestSingleWireFailurePropagatesWithoutAggregating(t *testing.T) {
	instrs := mustCompile(t, `version 1.4
tool api from std.fail { with const }
bridge Query.label {
  with output as o
  with api
  o.label <- api.label
}
`)
	e := engine.BuildEngine(instrs, engine.WithTools(tools.Registry{
		"std": tools.Registry{
			"fail": tools.Func(func(context.Context, ir.Value) (ir.Value, error) {
				return ir.Null, assertErr{}
			}),
		},
	}))
	tree := e.NewTree(context.Background(), "Query", "label", ir.Null)
	_, err := tree.Resolve(context.Background(), []string{"label"}, false)
	require.Error(t, err)

	var ee *engine.EngineError
	require.ErrorAs(t, err, &ee)
	require.Equal(t, engine.KindToolFailure, ee.Kind)
	require.ErrorIs(t, err, assertErr{})
}

func TestArrayMappingYieldsShadowTrees(t *testing.T) {
	instrs := mustCompile(t, `version 1.4
tool src from std.list { with const }
bridge Query.items {
  with output as o
  with src
  o.items <- src.list [] as j {
    .label <- j.name
  }
}
`)
	e := engine.BuildEngine(instrs, engine.WithTools(tools.Registry{
		"std": tools.Registry{
			"list": tools.Func(func(context.Context, ir.Value) (ir.Value, error) {
				return ir.MapValue([]string{"list"}, map[string]ir.Value{
					"list": ir.ListValue([]ir.Value{
						ir.MapValue([]string{"name"}, map[string]ir.Value{"name": ir.StringValue("a")}),
						ir.MapValue([]string{"name"}, map[string]ir.Value{"name": ir.StringValue("b")}),
					}),
				}), nil
			}),
		},
	}))
	tree := e.NewTree(context.Background(), "Query", "items", ir.Null)
	res, err := tree.Resolve(context.Background(), []string{"items"}, true)
	require.NoError(t, err)
	require.Equal(t, engine.ResolveArray, res.Kind)
	require.Len(t, res.Shadows, 2)

	first, err := res.Shadows[0].Resolve(context.Background(), []string{"label"}, false)
	require.NoError(t, err)
	require.Equal(t, ir.StringValue("a"), first.Value)

	second, err := res.Shadows[1].Resolve(context.Background(), []string{"label"}, false)
	require.NoError(t, err)
	require.Equal(t, ir.StringValue("b"), second.Value)
}

func TestForcedWireFiresWithoutFieldRead(t *testing.T) {
	instrs := mustCompile(t, `version 1.4
tool track from std.track { with const }
bridge Query.silent {
  with output as o
  with track
  o.unused <-! track.ok
}
`)
	var fired int32
	e := engine.BuildEngine(instrs, engine.WithTools(tools.Registry{
		"std": tools.Registry{
			"track": tools.Func(func(context.Context, ir.Value) (ir.Value, error) {
				atomic.AddInt32(&fired, 1)
				return ir.BoolValue(true), nil
			}),
		},
	}))
	e.NewTree(context.Background(), "Query", "silent", ir.Null)
	// Forced scheduling starts in a background goroutine at NewTree time, and
	// no field is ever resolved; poll until the tool has fired.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 1
	}, time.Second, time.Millisecond)
}

type fakeDispatcher struct {
	calls int32
	req   durable.Request
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req durable.Request) (ir.Value, error) {
	atomic.AddInt32(&f.calls, 1)
	f.req = req
	return ir.BoolValue(true), nil
}

func TestForcedWireRoutesThroughConfiguredDispatcher(t *testing.T) {
	instrs := mustCompile(t, `version 1.4
tool track from std.track { with const }
bridge Query.silent {
  with output as o
  with track
  o.unused <-! track.ok
}
`)
	var directCalls int32
	dispatcher := &fakeDispatcher{}
	e := engine.BuildEngine(instrs,
		engine.WithTools(tools.Registry{
			"std": tools.Registry{
				"track": tools.Func(func(context.Context, ir.Value) (ir.Value, error) {
					atomic.AddInt32(&directCalls, 1)
					return ir.BoolValue(true), nil
				}),
			},
		}),
		engine.WithDispatcher(dispatcher),
	)
	e.NewTree(context.Background(), "Query", "silent", ir.Null)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&dispatcher.calls) == 1
	}, time.Second, time.Millisecond)
	require.EqualValues(t, 0, atomic.LoadInt32(&directCalls), "forced wire should dispatch durably, not call the tool function directly")
	require.Equal(t, "track", dispatcher.req.ToolName)
}

func TestLazyDefineFieldResolutionSkipsUnneededTool(t *testing.T) {
	instrs := mustCompile(t, `version 1.4
tool weather from std.weather { with const }
define weatherInfo {
  with input as i
  with output as o
  with weather
  weather.city <- i.city
  o.city <- i.city
  o.temp <- weather.temp
}
bridge Query.getWeather {
  with input as i
  with output as o
  with weatherInfo as w
  w.city <- i.city
  o <- w
}
`)
	var calls int32
	e := engine.BuildEngine(instrs, engine.WithTools(tools.Registry{
		"std": tools.Registry{
			"weather": tools.Func(func(_ context.Context, input ir.Value) (ir.Value, error) {
				atomic.AddInt32(&calls, 1)
				city, _ := input.Walk([]string{"city"})
				return ir.MapValue([]string{"temp"}, map[string]ir.Value{
					"temp": ir.StringValue("warm in " + city.Str),
				}), nil
			}),
		},
	}))
	input := ir.MapValue([]string{"city"}, map[string]ir.Value{"city": ir.StringValue("NYC")})
	tree := e.NewTree(context.Background(), "Query", "getWeather", input)

	top, err := tree.Resolve(context.Background(), []string{}, false)
	require.NoError(t, err)
	require.Equal(t, engine.ResolveSelf, top.Kind)
	require.EqualValues(t, 0, atomic.LoadInt32(&calls), "weather tool must not fire until a field needing it is resolved")

	city, err := tree.Resolve(context.Background(), []string{"city"}, false)
	require.NoError(t, err)
	require.Equal(t, ir.StringValue("NYC"), city.Value)
	require.EqualValues(t, 0, atomic.LoadInt32(&calls), "resolving city alone must not invoke the weather tool")
}
