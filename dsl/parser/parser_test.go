package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/bridge/dsl/ast"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	res := Parse(src, Strict)
	require.Empty(t, res.Diagnostics, "unexpected diagnostics: %v", res.Diagnostics)
	require.NotNil(t, res.Program)
	return res.Program
}

func TestParseVersionPragma(t *testing.T) {
	prog := mustParse(t, `version 1.4`)
	require.Equal(t, "1.4", prog.Version)
	require.Empty(t, prog.Decls)
}

func TestParseUnsupportedVersionDiagnoses(t *testing.T) {
	res := Parse(`version 1.0`, Recovery)
	require.NotEmpty(t, res.Diagnostics)
}

func TestParseConstDecl(t *testing.T) {
	prog := mustParse(t, `version 1.4
const retries = 3
const label = "hello"
const flags = [true, false, null]
`)
	require.Len(t, prog.Decls, 3)

	c0, ok := prog.Decls[0].(*ast.ConstDecl)
	require.True(t, ok)
	require.Equal(t, "retries", c0.Name)
	require.Equal(t, ast.JSONNumber, c0.Value.Kind)
	require.Equal(t, float64(3), c0.Value.Number)

	c2, ok := prog.Decls[2].(*ast.ConstDecl)
	require.True(t, ok)
	require.Equal(t, ast.JSONArray, c2.Value.Kind)
	require.Len(t, c2.Value.Array, 3)
}

func TestParseToolBlock(t *testing.T) {
	prog := mustParse(t, `version 1.4
tool pickFirst from std.pickFirst {
  with context
  with const
  on error = "fallback"
  .index = 0
}
`)
	require.Len(t, prog.Decls, 1)
	tb, ok := prog.Decls[0].(*ast.ToolBlock)
	require.True(t, ok)
	require.Equal(t, "pickFirst", tb.Name)
	require.Equal(t, "std.pickFirst", tb.Source)
	require.Len(t, tb.Lines, 4)
	require.Equal(t, ast.ToolLineWith, tb.Lines[0].Kind)
	require.Equal(t, "context", tb.Lines[0].WithHandle)
	require.Equal(t, ast.ToolLineOnError, tb.Lines[2].Kind)
	require.NotNil(t, tb.Lines[2].OnErrorValue)
	require.Equal(t, ast.ToolLineField, tb.Lines[3].Kind)
	require.Equal(t, []string{"index"}, tb.Lines[3].FieldPath)
}

func TestParseToolBlockDependency(t *testing.T) {
	prog := mustParse(t, `version 1.4
tool toArray from std.toArray {
  with i.value as value
  .source <- value
}
`)
	tb := prog.Decls[0].(*ast.ToolBlock)
	require.Equal(t, "i.value", tb.Lines[0].WithHandle)
	require.Equal(t, "value", tb.Lines[0].WithAlias)
	require.Equal(t, "value", tb.Lines[1].FieldFrom)
}

func TestParseBridgeBlockPassthrough(t *testing.T) {
	prog := mustParse(t, `version 1.4
bridge Order.total with input
`)
	bb := prog.Decls[0].(*ast.BridgeBlock)
	require.Equal(t, "Order", bb.Type)
	require.Equal(t, "total", bb.Field)
	require.Equal(t, "input", bb.PassthroughHandle)
	require.Empty(t, bb.Lines)
}

func TestParseBridgeBlockWires(t *testing.T) {
	prog := mustParse(t, `version 1.4
bridge Order.label {
  with input as i
  with output as o
  with context
  o.text <- i.value || "default" ?? "error-fallback"
}
`)
	bb := prog.Decls[0].(*ast.BridgeBlock)
	require.Len(t, bb.Lines, 4)
	require.Equal(t, ast.BridgeLineWith, bb.Lines[0].Kind)

	wireLine := bb.Lines[3]
	require.Equal(t, ast.BridgeLineWire, wireLine.Kind)
	w := wireLine.Wire
	require.Equal(t, "o", w.Target.Handle)
	require.Equal(t, []string{"text"}, w.Target.Path)
	require.False(t, w.Force)
	require.Equal(t, "i", w.Source.Segments[0].Handle)
	require.Len(t, w.OrAlts, 1)
	require.NotNil(t, w.CoalesceAlt)
}

func TestParseForceWire(t *testing.T) {
	prog := mustParse(t, `version 1.4
bridge Order.label {
  o.text <-! i.value
}
`)
	bb := prog.Decls[0].(*ast.BridgeBlock)
	w := bb.Lines[0].Wire
	require.True(t, w.Force)
}

func TestParsePipeForkSourceExpr(t *testing.T) {
	prog := mustParse(t, `version 1.4
bridge Order.label {
  o.value <- pickFirst:toArray:i.value
}
`)
	bb := prog.Decls[0].(*ast.BridgeBlock)
	w := bb.Lines[0].Wire
	require.Len(t, w.Source.Segments, 3)
	require.Equal(t, "pickFirst", w.Source.Segments[0].Handle)
	require.Equal(t, "toArray", w.Source.Segments[1].Handle)
	require.Equal(t, "i", w.Source.Segments[2].Handle)
}

func TestParseArrayMap(t *testing.T) {
	prog := mustParse(t, `version 1.4
bridge Order.items {
  o.items <- i.items [] as item {
    .label <- item.name
    .qty = 1
  }
}
`)
	bb := prog.Decls[0].(*ast.BridgeBlock)
	w := bb.Lines[0].Wire
	require.NotNil(t, w.ArrayMap)
	require.Equal(t, "item", w.ArrayMap.IterName)
	require.Len(t, w.ArrayMap.Elems, 2)
	require.Equal(t, []string{"label"}, w.ArrayMap.Elems[0].Wire.Target.Path)
	require.Equal(t, "item", w.ArrayMap.Elems[0].Wire.Source.Segments[0].Handle)
	require.NotNil(t, w.ArrayMap.Elems[1].Wire.ConstValue)
}

func TestParseNestedArrayMap(t *testing.T) {
	prog := mustParse(t, `version 1.4
bridge Order.items {
  o.items <- i.items [] as item {
    .tags <- item.tags [] as tag {
      .name <- tag.label
    }
  }
}
`)
	bb := prog.Decls[0].(*ast.BridgeBlock)
	outer := bb.Lines[0].Wire.ArrayMap
	require.Len(t, outer.Elems, 1)
	inner := outer.Elems[0].Wire.ArrayMap
	require.NotNil(t, inner)
	require.Equal(t, "tag", inner.IterName)
	require.Len(t, inner.Elems, 1)
}

func TestParseDefineBlock(t *testing.T) {
	prog := mustParse(t, `version 1.4
define common {
  with input as i
  with output as o
  o.value <- i.value
}
bridge Order.value {
  with common
}
`)
	require.Len(t, prog.Decls, 2)
	def, ok := prog.Decls[0].(*ast.DefineBlock)
	require.True(t, ok)
	require.Equal(t, "common", def.Name)
	require.Len(t, def.Lines, 3)
}

func TestRecoveryModeCollectsMultipleDiagnostics(t *testing.T) {
	res := Parse(`version 1.4
const
tool
bridge Order.x { o.y <- }
`, Recovery)
	require.GreaterOrEqual(t, len(res.Diagnostics), 2)
}

func TestCoalesceAltAcceptsObjectLiteral(t *testing.T) {
	prog := mustParse(t, `version 1.4
bridge Order.meta {
  o.meta <- i.meta ?? { status: "unknown", code: 0 }
}
`)
	bb := prog.Decls[0].(*ast.BridgeBlock)
	w := bb.Lines[0].Wire
	require.NotNil(t, w.CoalesceAlt)
	require.Equal(t, ast.AltLiteral, w.CoalesceAlt.Kind)
	require.Equal(t, ast.JSONObject, w.CoalesceAlt.Lit.Kind)
	require.Equal(t, []string{"status", "code"}, w.CoalesceAlt.Lit.Keys)
}
