package compile

import (
	"strings"

	"goa.design/bridge/dsl/ast"
	"goa.design/bridge/dsl/parser"
	"goa.design/bridge/ir"
)

// DiagnosticsResult is the outcome of a Diagnostics call: the lowered
// instructions (possibly partial, if diagnostics were recorded along the
// way) plus every diagnostic collected in recovery mode.
type DiagnosticsResult struct {
	Instructions []ir.Instruction
	Diagnostics  []Diagnostic
}

// Compile lowers source into its ir.Instruction list, bailing on the first
// diagnostic. It is the entry point runtime hosts use to load a .bridge file.
func Compile(source string) ([]ir.Instruction, error) {
	res := parser.Parse(source, parser.Strict)
	if len(res.Diagnostics) > 0 {
		return nil, fromParseDiagnostic(res.Diagnostics[0])
	}
	instrs, diags := lowerProgram(res.Program, source)
	if len(diags) > 0 {
		return nil, diags[0]
	}
	return instrs, nil
}

// Diagnostics lowers source in recovery mode, accumulating every diagnostic
// instead of stopping at the first. Used by editor tooling that wants to
// surface every error in one pass rather than one-at-a-time.
func Diagnostics(source string) (DiagnosticsResult, error) {
	res := parser.Parse(source, parser.Recovery)
	var diags []Diagnostic
	for _, d := range res.Diagnostics {
		diags = append(diags, fromParseDiagnostic(d))
	}
	instrs, lowerDiags := lowerProgram(res.Program, source)
	diags = append(diags, lowerDiags...)
	return DiagnosticsResult{Instructions: instrs, Diagnostics: diags}, nil
}

// toolDefLiterals collects the raw JSON text of every constant-valued wire a
// lowered tool carries (field constants and a literal on_error), the
// candidates schema validation checks against that tool's `# schema:`
// directive, if any.
func toolDefLiterals(def *ir.ToolDef) []string {
	var out []string
	for _, w := range def.Wires {
		switch w.Kind {
		case ir.ToolWireConstant:
			if w.Value != nil {
				out = append(out, *w.Value)
			}
		case ir.ToolWireOnError:
			if w.Value != nil {
				out = append(out, *w.Value)
			}
		}
	}
	return out
}

func fromParseDiagnostic(d parser.Diagnostic) Diagnostic {
	kind := KindSyntaxError
	if strings.HasPrefix(d.Message, "unsupported bridge version") {
		kind = KindVersionMismatch
	}
	return Diagnostic{Line: d.Line, Kind: kind, Message: d.Message}
}

// lowerProgram walks decls in declaration order. Tool/define names are only
// visible to `with` lines appearing after their own declaration, so a single
// forward pass both resolves every reference and makes circular
// extends/define chains structurally impossible: a block can never name
// something declared later, so it can never revisit itself.
func lowerProgram(prog *ast.Program, source string) ([]ir.Instruction, []Diagnostic) {
	if prog == nil {
		return nil, nil
	}

	declaredTools := map[string]bool{}
	declaredDefines := map[string]bool{}
	defineDefs := map[string]*ir.DefineDef{}
	schemaDirectives := extractSchemaDirectives(source)

	var instrs []ir.Instruction
	var diags []Diagnostic

	for _, decl := range prog.Decls {
		switch d := decl.(type) {
		case *ast.ConstDecl:
			instrs = append(instrs, ir.Instruction{
				Kind:  ir.InstructionConst,
				Const: &ir.ConstDef{Name: d.Name, JSONText: renderJSONValue(d.Value), Line: d.Line},
			})

		case *ast.ToolBlock:
			def, tdiags := lowerToolBlock(d, declaredTools)
			diags = append(diags, tdiags...)
			declaredTools[d.Name] = true
			diags = append(diags, validateToolLiterals(d.Name, toolDefLiterals(def), schemaDirectives, d.Line)...)
			instrs = append(instrs, ir.Instruction{Kind: ir.InstructionTool, Tool: def})

		case *ast.DefineBlock:
			hm := newHandleMap("define", d.Name)
			ctx := newBridgeCtx("define", d.Name)
			body, bdiags := lowerBridgeBody(d.Lines, hm, ctx, declaredTools, declaredDefines)
			diags = append(diags, bdiags...)
			def := &ir.DefineDef{
				Name:           d.Name,
				Handles:        body.handles,
				Wires:          body.wires,
				ArrayIterators: body.arrayIterators,
				ArrayBlocks:    body.arrayBlocks,
				PipeHandles:    body.pipeHandles,
				Line:           d.Line,
			}
			declaredDefines[d.Name] = true
			defineDefs[d.Name] = def
			instrs = append(instrs, ir.Instruction{Kind: ir.InstructionDefine, Define: def})

		case *ast.BridgeBlock:
			bridge, bdiags := lowerBridgeBlock(d, declaredTools, declaredDefines, defineDefs)
			diags = append(diags, bdiags...)
			instrs = append(instrs, ir.Instruction{Kind: ir.InstructionBridge, Bridge: bridge})
		}
	}
	return instrs, diags
}

// lowerBridgeBlock lowers one bridge declaration — expanding the `with X`
// passthrough shorthand per SPEC_FULL.md §4.1 step 8 when present — then
// inlines every define handle the body introduced.
func lowerBridgeBlock(d *ast.BridgeBlock, declaredTools, declaredDefines map[string]bool, defineDefs map[string]*ir.DefineDef) (*ir.Bridge, []Diagnostic) {
	ctx := newBridgeCtx(d.Type, d.Field)
	hm := newHandleMap(d.Type, d.Field)

	if d.PassthroughHandle != "" {
		bridge, diags := lowerPassthrough(d, ctx, hm, declaredTools, declaredDefines)
		if bridge != nil {
			diags = append(diags, inlineDefines(bridge, defineDefs, ctx)...)
		}
		return bridge, diags
	}

	body, diags := lowerBridgeBody(d.Lines, hm, ctx, declaredTools, declaredDefines)
	bridge := &ir.Bridge{
		Type:           d.Type,
		Field:          d.Field,
		Handles:        body.handles,
		Wires:          body.wires,
		ArrayIterators: body.arrayIterators,
		ArrayBlocks:    body.arrayBlocks,
		PipeHandles:    body.pipeHandles,
		Line:           d.Line,
	}
	diags = append(diags, inlineDefines(bridge, defineDefs, ctx)...)
	return bridge, diags
}

// lowerPassthrough expands `bridge T.f with X` into the single handle plus
// the pair of whole-value wires (input into the handle, the handle's result
// out to output) that the long form would spell out explicitly.
func lowerPassthrough(d *ast.BridgeBlock, ctx *bridgeCtx, hm handleMap, declaredTools, declaredDefines map[string]bool) (*ir.Bridge, []Diagnostic) {
	line := ast.BridgeLine{Kind: ast.BridgeLineWith, WithHandle: d.PassthroughHandle, WithAlias: "__passthrough", Line: d.Line}
	entry, binding, derr := resolveWithLine(line, ctx, declaredTools, declaredDefines)
	if derr != nil {
		return nil, []Diagnostic{*derr}
	}
	hm["__passthrough"] = entry

	wires := []ir.Wire{
		{Kind: ir.WirePull, To: entry.Trunk, From: hm["input"].Trunk, Line: d.Line},
		{Kind: ir.WirePull, To: hm["output"].Trunk, From: entry.Trunk, Line: d.Line},
	}
	passthrough := d.PassthroughHandle
	bridge := &ir.Bridge{
		Type:        d.Type,
		Field:       d.Field,
		Handles:     []ir.HandleBinding{*binding},
		Wires:       wires,
		Passthrough: &passthrough,
		Line:        d.Line,
	}
	return bridge, nil
}
