package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// sourceVersion mirrors dsl/parser.SupportedVersion's grammar-level version
// pragma. Duplicated here (rather than imported) so ir never depends on the
// parser package.
const sourceVersion = "1.4"

// Serialize renders a compiled instruction list back into .bridge source
// text. The result is not byte-identical to any original source that
// produced the instructions — handle aliases, comments, and exact formatting
// are not recoverable from the IR — but compiling it reproduces the same
// instruction list: Compile(Serialize(instructions)) == instructions.
func Serialize(instructions []Instruction) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "version %s\n\n", sourceVersion)
	for _, ins := range instructions {
		switch ins.Kind {
		case InstructionConst:
			writeConst(&sb, ins.Const)
		case InstructionTool:
			if err := writeTool(&sb, ins.Tool); err != nil {
				return "", err
			}
		case InstructionDefine:
			fmt.Fprintf(&sb, "define %s {\n", ins.Define.Name)
			if err := writeBridgeBody(&sb, ins.Define.Handles, ins.Define.Wires, ins.Define.ArrayBlocks, ins.Define.PipeHandles, "  "); err != nil {
				return "", err
			}
			sb.WriteString("}\n\n")
		case InstructionBridge:
			if err := writeBridge(&sb, ins.Bridge); err != nil {
				return "", err
			}
		default:
			return "", fmt.Errorf("ir: serialize: unknown instruction kind %q", ins.Kind)
		}
	}
	return sb.String(), nil
}

func writeConst(sb *strings.Builder, c *ConstDef) {
	fmt.Fprintf(sb, "const %s = %s\n\n", c.Name, c.JSONText)
}

func writeTool(sb *strings.Builder, t *ToolDef) error {
	source := ""
	switch {
	case t.Extends != nil:
		source = *t.Extends
	case t.Fn != nil:
		source = *t.Fn
	default:
		return fmt.Errorf("ir: serialize: tool %q has neither fn nor extends", t.Name)
	}
	fmt.Fprintf(sb, "tool %s from %s {\n", t.Name, source)
	for _, dep := range t.Deps {
		switch dep.Kind {
		case DepContext:
			writeWithLine(sb, "  ", "context", dep.Handle)
		case DepConst:
			writeWithLine(sb, "  ", "const", dep.Handle)
		case DepTool:
			writeWithLine(sb, "  ", dep.ToolName, dep.Handle)
		}
	}
	for _, w := range t.Wires {
		switch w.Kind {
		case ToolWireOnError:
			if w.Value != nil {
				fmt.Fprintf(sb, "  on error = %s\n", *w.Value)
			} else if w.Source != nil {
				fmt.Fprintf(sb, "  on error <- %s\n", *w.Source)
			}
		case ToolWireConstant:
			fmt.Fprintf(sb, "  .%s = %s\n", w.Target, *w.Value)
		case ToolWirePull:
			fmt.Fprintf(sb, "  .%s <- %s\n", w.Target, *w.Source)
		}
	}
	sb.WriteString("}\n\n")
	return nil
}

// writeWithLine renders `with <origin> as <alias>`, collapsing the trailing
// "as alias" when the alias equals the origin the way the parser's default
// alias assignment does.
func writeWithLine(sb *strings.Builder, indent, origin, alias string) {
	if alias == "" || alias == origin {
		fmt.Fprintf(sb, "%swith %s\n", indent, origin)
		return
	}
	fmt.Fprintf(sb, "%swith %s as %s\n", indent, origin, alias)
}

func writeBridge(sb *strings.Builder, b *Bridge) error {
	if b.Passthrough != nil {
		fmt.Fprintf(sb, "bridge %s.%s with %s\n\n", b.Type, b.Field, *b.Passthrough)
		return nil
	}
	fmt.Fprintf(sb, "bridge %s.%s {\n", b.Type, b.Field)
	if err := writeBridgeBody(sb, b.Handles, b.Wires, b.ArrayBlocks, b.PipeHandles, "  "); err != nil {
		return err
	}
	sb.WriteString("}\n\n")
	return nil
}

// resolver looks up the handle name addressing a given trunk, used to render
// NodeRefs back into dotted addr text.
type resolver struct {
	byTrunk map[TrunkKey]string // trunk (Path-stripped) -> handle
	forks   map[TrunkKey]PipeFork
}

func newResolver(handles []HandleBinding, forks []PipeFork) *resolver {
	r := &resolver{byTrunk: map[TrunkKey]string{}, forks: map[TrunkKey]PipeFork{}}
	for _, h := range handles {
		r.byTrunk[h.Trunk.Key()] = h.Handle
	}
	for _, f := range forks {
		r.forks[f.Trunk.Key()] = f
		r.byTrunk[f.Trunk.Key()] = f.Handle
	}
	return r
}

func (r *resolver) addr(ref NodeRef) string {
	trunk := ref.Trunk()
	name, ok := r.byTrunk[trunk.Key()]
	if !ok {
		// No known handle (e.g. an element slot inside an array-mapping block,
		// or a trunk the caller synthesized); fall back to a positional
		// module.field token so the output still parses, even if the handle
		// name can't be recovered verbatim.
		name = trunk.Module
		if name == "" {
			name = trunk.Field
		}
	}
	if len(ref.Path) == 0 {
		return name
	}
	return name + "." + strings.Join(ref.Path, ".")
}

// sourceExprFor renders the (possibly pipe-forked) source expression feeding
// ref. If ref's trunk is a pipe fork, the chain is walked outward by finding
// the wire that feeds that fork's own input, recursing until a non-fork
// trunk is reached.
func sourceExprFor(ref NodeRef, wires []Wire, r *resolver) string {
	fork, isFork := r.forks[ref.Trunk().Key()]
	if !isFork {
		return r.addr(ref)
	}
	// Find the wire that feeds this fork's trunk (its input).
	for _, w := range wires {
		if w.Kind == WirePull && w.To.Trunk().Equal(fork.Trunk.Trunk()) {
			inner := sourceExprFor(w.From, wires, r)
			return fork.Handle + ":" + inner
		}
	}
	return fork.Handle + ":" + r.addr(ref)
}

func writeBridgeBody(sb *strings.Builder, handles []HandleBinding, wires []Wire, blocks []ArrayBlock, forks []PipeFork, indent string) error {
	for _, h := range handles {
		origin := handleOrigin(h)
		writeWithLine(sb, indent, origin, h.Handle)
	}

	r := newResolver(handles, forks)

	// Consumer wires are every non-pipe wire whose target isn't itself a
	// pipe-fork trunk (those are intermediate stages folded into the pipe
	// chain text by sourceExprFor).
	forkTrunks := map[TrunkKey]bool{}
	for _, f := range forks {
		forkTrunks[f.Trunk.Key()] = true
	}

	type group struct {
		target NodeRef
		wires  []Wire
	}
	var groups []group
	seen := map[string]int{}
	for _, w := range wires {
		if forkTrunks[w.To.Trunk().Key()] {
			continue
		}
		key := wireGroupKey(w.To)
		if idx, ok := seen[key]; ok {
			groups[idx].wires = append(groups[idx].wires, w)
			continue
		}
		seen[key] = len(groups)
		groups = append(groups, group{target: w.To, wires: []Wire{w}})
	}

	blockByPath := map[string]ArrayBlock{}
	for _, b := range blocks {
		blockByPath[b.PathKey] = b
	}

	elemCursor := 0
	for _, g := range groups {
		target := r.addr(g.target)
		if g.wires[0].Kind == WireConstant {
			fmt.Fprintf(sb, "%s%s = %s\n", indent, target, g.wires[0].Value)
			continue
		}

		first := g.wires[0]
		arrow := "<-"
		if first.Force {
			arrow = "<-!"
		}
		fmt.Fprintf(sb, "%s%s %s %s", indent, target, arrow, sourceExprFor(first.From, wires, r))

		pathKey := strings.Join(g.target.Path, ".")
		if blk, ok := blockByPath[pathKey]; ok {
			fmt.Fprintf(sb, " [] as %s {\n", blk.Iter)
			for i := 0; i < blk.ElemCount && elemCursor < len(wires); i, elemCursor = i+1, elemCursor+1 {
				if err := writeElemWire(sb, wires[elemCursor], wires, r, indent+"  "); err != nil {
					return err
				}
			}
			fmt.Fprintf(sb, "%s}", indent)
		}

		last := g.wires[len(g.wires)-1]
		for _, w := range g.wires[1:] {
			fmt.Fprintf(sb, " || %s", sourceExprFor(w.From, wires, r))
		}
		if last.NullFallback != nil {
			fmt.Fprintf(sb, " || %s", *last.NullFallback)
		}
		if last.Fallback != nil {
			fmt.Fprintf(sb, " ?? %s", *last.Fallback)
		} else if last.FallbackRef != nil {
			fmt.Fprintf(sb, " ?? %s", r.addr(*last.FallbackRef))
		}
		sb.WriteString("\n")
	}
	return nil
}

func writeElemWire(sb *strings.Builder, w Wire, all []Wire, r *resolver, indent string) error {
	path := strings.Join(w.To.Path, ".")
	if w.Kind == WireConstant {
		fmt.Fprintf(sb, "%s.%s = %s\n", indent, path, w.Value)
		return nil
	}
	fmt.Fprintf(sb, "%s.%s <- %s\n", indent, path, sourceExprFor(w.From, all, r))
	return nil
}

func handleOrigin(h HandleBinding) string {
	switch h.Kind {
	case HandleInput:
		return "input"
	case HandleOutput:
		return "output"
	case HandleContext:
		return "context"
	case HandleConst:
		return "const"
	default:
		return h.Ref
	}
}

func wireGroupKey(ref NodeRef) string {
	return ref.Module + "\x00" + ref.Type + "\x00" + ref.Field + "\x00" +
		strconv.Itoa(ref.Instance) + "\x00" + strconv.FormatBool(ref.Element) + "\x00" +
		strings.Join(ref.Path, "\x00")
}
