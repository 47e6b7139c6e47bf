package compile

import (
	"goa.design/bridge/dsl/ast"
	"goa.design/bridge/ir"
)

// lowerToolBlock lowers one `tool Name from Source { ... }` block. If Source
// names an already-declared tool, the block extends it; otherwise Source is
// taken as a primitive function name. Tool wires keep their target/source as
// textual tokens — the engine resolves Source against the tool's Deps at
// schedule time (SPEC_FULL.md §4.1 step 1).
func lowerToolBlock(tb *ast.ToolBlock, declaredTools map[string]bool) (*ir.ToolDef, []Diagnostic) {
	def := &ir.ToolDef{Name: tb.Name, Line: tb.Line}
	if declaredTools[tb.Source] {
		def.Extends = &tb.Source
	} else {
		def.Fn = &tb.Source
	}

	var diags []Diagnostic
	depHandles := map[string]bool{"context": true, "const": true}
	for _, line := range tb.Lines {
		switch line.Kind {
		case ast.ToolLineWith:
			dep := ir.ToolDep{Handle: line.WithAlias}
			switch line.WithHandle {
			case "context":
				dep.Kind = ir.DepContext
			case "const":
				dep.Kind = ir.DepConst
			default:
				dep.Kind = ir.DepTool
				dep.ToolName = line.WithHandle
			}
			def.Deps = append(def.Deps, dep)
			depHandles[line.WithAlias] = true
		case ast.ToolLineOnError:
			w := ir.ToolWire{Kind: ir.ToolWireOnError}
			if line.OnErrorValue != nil {
				text := renderJSONValue(line.OnErrorValue)
				w.Value = &text
			} else {
				src := line.OnErrorSource
				w.Source = &src
			}
			def.Wires = append(def.Wires, w)
		case ast.ToolLineField:
			target := joinPath(line.FieldPath)
			if line.FieldValue != nil {
				text := renderBareValue(line.FieldValue)
				def.Wires = append(def.Wires, ir.ToolWire{Kind: ir.ToolWireConstant, Target: target, Value: &text})
			} else {
				if !depHandles[rootSegment(line.FieldFrom)] {
					diags = append(diags, diag(line.Line, KindUndeclaredHandle, "tool field %q pulls from undeclared dep %q", target, line.FieldFrom))
				}
				src := line.FieldFrom
				def.Wires = append(def.Wires, ir.ToolWire{Kind: ir.ToolWirePull, Target: target, Source: &src})
			}
		}
	}
	return def, diags
}

func joinPath(segs []string) string {
	out := segs[0]
	for _, s := range segs[1:] {
		out += "." + s
	}
	return out
}

func rootSegment(dotted string) string {
	for i := 0; i < len(dotted); i++ {
		if dotted[i] == '.' {
			return dotted[:i]
		}
	}
	return dotted
}
