package host_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/bridge/compile"
	"goa.design/bridge/engine"
	"goa.design/bridge/host"
	"goa.design/bridge/ir"
	"goa.design/bridge/tools"
)

func mustCompile(t *testing.T, src string) []ir.Instruction {
	t.Helper()
	instrs, err := compile.Compile(src)
	require.NoError(t, err)
	return instrs
}

func TestResolveFlatFields(t *testing.T) {
	instrs := mustCompile(t, `version 1.4
bridge Query.answer {
  with output as o
  o.value = 42
  o.label = "hi"
}
`)
	e := engine.BuildEngine(instrs)
	tree := e.NewTree(context.Background(), "Query", "answer", ir.Null)

	paths, err := host.ParseSelection(`{ value label }`)
	require.NoError(t, err)

	result, err := host.Resolve(context.Background(), tree, paths)
	require.NoError(t, err)

	v, ok := result.Get("value")
	require.True(t, ok)
	require.Equal(t, ir.NumberValue(42), v)

	l, ok := result.Get("label")
	require.True(t, ok)
	require.Equal(t, ir.StringValue("hi"), l)
}

func TestResolveArrayField(t *testing.T) {
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

	paths, err := host.ParseSelection(`{ items { label } }`)
	require.NoError(t, err)

	result, err := host.Resolve(context.Background(), tree, paths)
	require.NoError(t, err)

	items, ok := result.Get("items")
	require.True(t, ok)
	require.Equal(t, ir.KindList, items.Kind)
	require.Len(t, items.List, 2)

	first, ok := items.List[0].Get("label")
	require.True(t, ok)
	require.Equal(t, ir.StringValue("a"), first)

	second, ok := items.List[1].Get("label")
	require.True(t, ok)
	require.Equal(t, ir.StringValue("b"), second)
}
