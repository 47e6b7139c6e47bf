package compile

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"goa.design/bridge/ir"
)

// TestCompileRoundTripProperty checks the round-trip invariant
// (compile(serialize(compile(src))) == compile(src)) across randomly
// generated combinations of passthrough and wired bridges, tool counts, and
// coalesce shapes.
func TestCompileRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("compiling serialized output reproduces the same instructions", prop.ForAll(
		func(shape programShape) bool {
			src := shape.render()
			first, err := Compile(src)
			if err != nil {
				t.Logf("compile failed for generated source:\n%s\nerr: %v", src, err)
				return false
			}
			text, err := ir.Serialize(first)
			if err != nil {
				t.Logf("serialize failed: %v", err)
				return false
			}
			second, err := Compile(text)
			if err != nil {
				t.Logf("recompile failed for serialized source:\n%s\nerr: %v", text, err)
				return false
			}
			return reflect.DeepEqual(first, second)
		},
		genProgramShape(),
	))

	properties.TestingRun(t)
}

// programShape is a small generated combination of declarations exercising
// tool blocks, a define, a passthrough bridge, and a wired bridge with an
// optional pipe chain and coalesce chain.
type programShape struct {
	toolNames []string
	useDefine bool
	usePipe   bool
	useOr     bool
}

func (s programShape) render() string {
	src := "version 1.4\n"
	for _, name := range s.toolNames {
		src += fmt.Sprintf("tool %s from std.fetch {\n  with const\n}\n", name)
	}
	if s.useDefine {
		src += "define common {\n  with input as i\n  with output as o\n  o.value <- i.value\n}\n"
	}
	src += "bridge Query.echo with input\n"

	src += "bridge Query.value {\n  with input as i\n  with output as o\n"
	if s.useDefine {
		src += "  with common\n  o.shared <- common.value\n"
	}
	for _, name := range s.toolNames {
		src += fmt.Sprintf("  with %s\n", name)
	}
	src += "  o.value <- "
	switch {
	case s.usePipe && len(s.toolNames) >= 2:
		src += s.toolNames[0] + ":" + s.toolNames[1] + ":i.value"
	case len(s.toolNames) >= 1:
		src += s.toolNames[0] + ".value"
	default:
		src += "i.value"
	}
	if s.useOr && len(s.toolNames) >= 1 {
		src += " || i.fallback"
	}
	src += "\n}\n"
	return src
}

func genProgramShape() gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, 3),
		gen.Bool(),
		gen.Bool(),
		gen.Bool(),
	).Map(func(v []any) programShape {
		n := v[0].(int)
		names := make([]string, n)
		for i := range names {
			names[i] = fmt.Sprintf("tool%d", i)
		}
		return programShape{
			toolNames: names,
			useDefine: v[1].(bool),
			usePipe:   v[2].(bool),
			useOr:     v[3].(bool),
		}
	})
}
