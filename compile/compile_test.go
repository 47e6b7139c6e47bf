package compile

import (
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/bridge/ir"
)

func findBridge(t *testing.T, instrs []ir.Instruction, typ, field string) *ir.Bridge {
	t.Helper()
	for _, in := range instrs {
		if in.Kind == ir.InstructionBridge && in.Bridge.Type == typ && in.Bridge.Field == field {
			return in.Bridge
		}
	}
	t.Fatalf("bridge %s.%s not found", typ, field)
	return nil
}

// Scenario 1: passthrough wiring produces zero tool handles, two whole-field
// pull wires straight from input to output.
func TestCompileScenarioPassthroughWiring(t *testing.T) {
	instrs, err := Compile(`version 1.4
bridge Query.echo {
  with input as i
  with output as o
  o.text <- i.text
  o.count <- i.count
}
`)
	require.NoError(t, err)
	b := findBridge(t, instrs, "Query", "echo")
	require.Len(t, b.Handles, 2)
	require.Len(t, b.Wires, 2)
	for _, w := range b.Wires {
		require.Equal(t, ir.WirePull, w.Kind)
		require.Equal(t, "input", w.From.Module)
		require.Equal(t, "output", w.To.Module)
	}
}

// Scenario 2: a pipe chain lowers to two pipe-stage wires plus one consumer
// wire, with two distinct PipeFork instances ordered right to left.
func TestCompileScenarioPipeChain(t *testing.T) {
	instrs, err := Compile(`version 1.4
tool pickFirst from std.pickFirst {
  with const
}
tool toArray from std.toArray {
  with const
}
bridge Query.value {
  with input as i
  with output as o
  o.value <- pickFirst:toArray:i.value
}
`)
	require.NoError(t, err)
	b := findBridge(t, instrs, "Query", "value")
	require.Len(t, b.PipeHandles, 2)
	// toArray sits closest to the data source and is forked first; pickFirst
	// consumes toArray's result and is forked second.
	require.Equal(t, "toArray", b.PipeHandles[0].Handle)
	require.Equal(t, "pickFirst", b.PipeHandles[1].Handle)
	require.Equal(t, ir.PipeForkInstanceBase, b.PipeHandles[0].Trunk.Instance)
	require.Equal(t, ir.PipeForkInstanceBase+1, b.PipeHandles[1].Trunk.Instance)

	require.Len(t, b.Wires, 3)
	require.True(t, b.Wires[0].Pipe)
	require.True(t, b.Wires[1].Pipe)
	require.False(t, b.Wires[2].Pipe)
	require.Equal(t, b.PipeHandles[0].Trunk, b.Wires[0].To)
	require.Equal(t, b.PipeHandles[1].Trunk, b.Wires[1].To)
	require.Equal(t, b.PipeHandles[1].Trunk, b.Wires[2].From)
}

// Scenario 3: overdefinition lowers to two pull wires targeting the same
// trunk, in declaration order — the engine resolves cost at schedule time,
// compile time just records both candidates.
func TestCompileScenarioOverdefinition(t *testing.T) {
	instrs, err := Compile(`version 1.4
tool api from std.fetch {
  with const
}
bridge Query.label {
  with input as i
  with output as o
  with api
  o.label <- api.label
  o.label <- i.hint
}
`)
	require.NoError(t, err)
	b := findBridge(t, instrs, "Query", "label")
	require.Len(t, b.Wires, 2)
	require.True(t, b.Wires[0].To.Equal(b.Wires[1].To))
	require.Equal(t, "input", b.Wires[1].From.Module)
}

// Scenario 4: a "||" chain attaches every alternative as its own wire
// targeting the same trunk, in left-to-right declaration order, with the
// trailing literal's text carried as NullFallback on the chain's last wire.
func TestCompileScenarioOrChain(t *testing.T) {
	instrs, err := Compile(`version 1.4
tool p from std.fetch { with const }
tool b from std.fetch { with const }
bridge Query.label {
  with output as o
  with p
  with b
  o.label <- p.label || b.label || "default"
}
`)
	require.NoError(t, err)
	bridge := findBridge(t, instrs, "Query", "label")
	require.Len(t, bridge.Wires, 2)
	require.Nil(t, bridge.Wires[0].NullFallback)
	require.NotNil(t, bridge.Wires[1].NullFallback)
	require.Equal(t, `"default"`, *bridge.Wires[1].NullFallback)
}

// Scenario 5: "||" plus a trailing "??" attaches the error fallback to the
// same last wire the null fallback occupies.
func TestCompileScenarioOrAndCoalesce(t *testing.T) {
	instrs, err := Compile(`version 1.4
tool p from std.fetch { with const }
tool b from std.fetch { with const }
bridge Query.label {
  with output as o
  with p
  with b
  o.label <- p.label || b.label || "null-default" ?? "error-default"
}
`)
	require.NoError(t, err)
	bridge := findBridge(t, instrs, "Query", "label")
	require.Len(t, bridge.Wires, 2)
	last := bridge.Wires[len(bridge.Wires)-1]
	require.NotNil(t, last.NullFallback)
	require.NotNil(t, last.Fallback)
	require.Equal(t, `"error-default"`, *last.Fallback)
}

// Scenario 6: nested array mapping produces a contiguous, depth-first
// ArrayBlocks list, each level's element wires owned by its own block.
func TestCompileScenarioNestedArrayMap(t *testing.T) {
	instrs, err := Compile(`version 1.4
bridge Query.journeys {
  with input as i
  with output as o
  o.journeys <- i.journeys [] as j {
    .label <- j.label
    .stops <- j.stops [] as s {
      .name <- s.name
    }
  }
}
`)
	require.NoError(t, err)
	b := findBridge(t, instrs, "Query", "journeys")
	require.Len(t, b.ArrayBlocks, 2)
	require.Equal(t, "journeys", b.ArrayBlocks[0].PathKey)
	require.Equal(t, "j", b.ArrayBlocks[0].Iter)
	require.Equal(t, "stops", b.ArrayBlocks[1].PathKey)
	require.Equal(t, "s", b.ArrayBlocks[1].Iter)
	require.Equal(t, "j", b.ArrayIterators["journeys"])
	require.Equal(t, "s", b.ArrayIterators["stops"])
}

func TestCompileRejectsExplicitArrayIndexOnTarget(t *testing.T) {
	_, err := Compile(`version 1.4
bridge Query.items {
  with input as i
  o.items[0].name <- i.name
}
`)
	require.Error(t, err)
}

func TestCompileRejectsUndeclaredHandle(t *testing.T) {
	_, err := Compile(`version 1.4
bridge Query.x {
  with output as o
  o.x <- missing.field
}
`)
	require.Error(t, err)
}

func TestCompileRejectsUnsupportedVersion(t *testing.T) {
	_, err := Compile(`version 1.0`)
	require.Error(t, err)
	d, ok := err.(Diagnostic)
	require.True(t, ok)
	require.Equal(t, KindVersionMismatch, d.Kind)
}

func TestDiagnosticsCollectsMultipleErrors(t *testing.T) {
	res, err := Diagnostics(`version 1.4
bridge Query.a {
  o.x <- missing
}
bridge Query.b {
  o.y[0] <- also.missing
}
`)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(res.Diagnostics), 2)
}

// Define inlining: a define's internal input/output handles are rewritten to
// synthetic per-use-site modules, and a bridge-level wire reading the define
// handle directly is redirected to the synthetic output.
func TestCompileInlinesDefine(t *testing.T) {
	instrs, err := Compile(`version 1.4
define common {
  with input as i
  with output as o
  o.value <- i.value
}
bridge Query.value {
  with input as i
  with output as o
  with common
  common.value <- i.value
  o.result <- common.value
}
`)
	require.NoError(t, err)
	b := findBridge(t, instrs, "Query", "value")

	var sawIn, sawOut bool
	for _, w := range b.Wires {
		if w.To.Module == "__define_in_common" {
			sawIn = true
		}
		if w.Kind == ir.WirePull && w.From.Module == "__define_out_common" {
			sawOut = true
		}
	}
	require.True(t, sawIn, "expected a wire targeting the synthetic define-input module, got %+v", b.Wires)
	require.True(t, sawOut, "expected a wire reading the synthetic define-output module, got %+v", b.Wires)
}

// Round-trip: compiling, serializing, and recompiling yields the same
// instruction list.
func TestCompileRoundTrip(t *testing.T) {
	src := `version 1.4
const retries = 3
tool pickFirst from std.pickFirst {
  with const
}
tool toArray from std.toArray {
  with const
}
define common {
  with input as i
  with output as o
  o.value <- i.value
}
bridge Query.echo with input
bridge Query.value {
  with input as i
  with output as o
  o.value <- pickFirst:toArray:i.value || "fallback" ?? "error"
}
`
	first, err := Compile(src)
	require.NoError(t, err)

	text, err := ir.Serialize(first)
	require.NoError(t, err)

	second, err := Compile(text)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
