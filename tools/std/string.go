package std

import (
	"context"
	"fmt"
	"strings"

	"goa.design/bridge/ir"
	"goa.design/bridge/tools"
)

// newStringNamespace builds the trim/concat/join/pickFirst/toArray family of
// tools, grounded on spec.md §8 scenario 2's demo tools: small, pure string
// and list ops a .bridge author reaches for in a pipe chain without needing
// an operator-registered tool.
func newStringNamespace() tools.Registry {
	return tools.Registry{
		"trim": tools.Func(func(_ context.Context, input ir.Value) (ir.Value, error) {
			return ir.StringValue(strings.TrimSpace(input.Str)), nil
		}),
		"concat": tools.Func(func(_ context.Context, input ir.Value) (ir.Value, error) {
			if input.Kind != ir.KindList {
				return ir.StringValue(valueToString(input)), nil
			}
			var b strings.Builder
			for _, v := range input.List {
				b.WriteString(valueToString(v))
			}
			return ir.StringValue(b.String()), nil
		}),
		"join": tools.Func(func(_ context.Context, input ir.Value) (ir.Value, error) {
			items, _ := input.Get("items")
			sep, _ := input.Get("sep")
			parts := make([]string, len(items.List))
			for i, v := range items.List {
				parts[i] = valueToString(v)
			}
			return ir.StringValue(strings.Join(parts, sep.Str)), nil
		}),
		"pickFirst": tools.Func(func(_ context.Context, input ir.Value) (ir.Value, error) {
			if input.Kind != ir.KindList {
				return input, nil
			}
			for _, v := range input.List {
				if !v.IsNullOrUndefined() {
					return v, nil
				}
			}
			return ir.Null, nil
		}),
		"toArray": tools.Func(func(_ context.Context, input ir.Value) (ir.Value, error) {
			if input.Kind == ir.KindList {
				return input, nil
			}
			if input.IsNullOrUndefined() {
				return ir.ListValue(nil), nil
			}
			return ir.ListValue([]ir.Value{input}), nil
		}),
	}
}

func valueToString(v ir.Value) string {
	switch v.Kind {
	case ir.KindString:
		return v.Str
	case ir.KindNumber:
		return fmt.Sprintf("%g", v.Num)
	case ir.KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case ir.KindNull:
		return ""
	default:
		return fmt.Sprintf("%v", v.ToJSON())
	}
}
