package ir

// InstructionKind discriminates the four instruction variants the compiler
// emits. The instruction list is ordered; later instructions may reference
// earlier ones by name.
type InstructionKind string

const (
	InstructionConst  InstructionKind = "const"
	InstructionTool   InstructionKind = "tool"
	InstructionDefine InstructionKind = "define"
	InstructionBridge InstructionKind = "bridge"
)

// Instruction is a tagged variant over the four compiled top-level forms.
// Exactly one of Const, Tool, Define, Bridge is non-nil, selected by Kind.
type Instruction struct {
	Kind   InstructionKind `json:"kind"`
	Const  *ConstDef       `json:"const,omitempty"`
	Tool   *ToolDef        `json:"tool,omitempty"`
	Define *DefineDef      `json:"define,omitempty"`
	Bridge *Bridge         `json:"bridge,omitempty"`
}

// ConstDef is an immutable named constant, evaluated once per request into a
// structured Value.
type ConstDef struct {
	Name     string `json:"name"`
	JSONText string `json:"json_text"`
	Line     int    `json:"line"`
}

// DepKind identifies what a ToolDep is bound to.
type DepKind string

const (
	DepContext DepKind = "context"
	DepConst   DepKind = "const"
	DepTool    DepKind = "tool"
)

// ToolDep is one of {context, const, tool(name)}, bound to a local handle
// inside a tool block.
type ToolDep struct {
	Kind   DepKind `json:"kind"`
	Handle string  `json:"handle"`
	// ToolName is set when Kind == DepTool: the name of the dependency tool.
	ToolName string `json:"tool_name,omitempty"`
}

// ToolWireKind discriminates the three shapes a ToolWire's target value can
// take.
type ToolWireKind string

const (
	ToolWireConstant ToolWireKind = "constant"
	ToolWirePull     ToolWireKind = "pull"
	ToolWireOnError  ToolWireKind = "on_error"
)

// ToolWire binds one dotted path of the tool's input mapping to either a
// literal JSON value or a pull from one of the tool's declared deps. Targets
// and sources are kept as textual tokens; the engine resolves Source against
// the tool's Deps at schedule time.
type ToolWire struct {
	Kind ToolWireKind `json:"kind"`
	// Target is the dotted input path, empty for the on_error wire.
	Target string `json:"target,omitempty"`
	// Value holds the literal JSON text for ToolWireConstant / an on_error
	// literal.
	Value *string `json:"value,omitempty"`
	// Source holds the dep handle (optionally dotted into the dep's own
	// value) for ToolWirePull / an on_error pull.
	Source *string `json:"source,omitempty"`
}

// ToolDef declares a callable tool: either a primitive (Fn set) or an
// extension of another declared tool (Extends set).
type ToolDef struct {
	Name string `json:"name"`
	// Fn is the primitive tool function name (dotted lookup into the tools
	// registry), set when this tool does not extend another.
	Fn *string `json:"fn,omitempty"`
	// Extends names another tool declared earlier in the instruction list.
	// Extends chains are linear; the compiler rejects cycles.
	Extends *string   `json:"extends,omitempty"`
	Deps    []ToolDep `json:"deps,omitempty"`
	Wires   []ToolWire `json:"wires,omitempty"`
	Line    int        `json:"line"`
}

// NodeRef is the canonical address of a value location: a tool call site, a
// handle, or a drilldown path into either.
type NodeRef struct {
	Module string `json:"module"`
	Type   string `json:"type"`
	Field  string `json:"field"`
	// Instance disambiguates multiple uses of the same tool (>=1) or marks a
	// pipe-fork call site (>=100000). Zero means "no instance" (handles like
	// input/output/context/const).
	Instance int `json:"instance,omitempty"`
	// Element is true when this ref addresses the per-element slot of an
	// array shadow tree.
	Element bool `json:"element,omitempty"`
	// Path is the drilldown from the trunk's own value. Digit-only segments
	// mean array indices.
	Path []string `json:"path,omitempty"`
}

// PipeForkInstanceBase is the smallest instance number reserved for
// synthetic pipe-fork trunks, per the engine invariant that pipe-fork
// instances are strictly unique within one bridge instance and never
// collide with ordinary tool-use instances.
const PipeForkInstanceBase = 100000

// Trunk returns a copy of the ref with Path cleared and Element left as-is,
// i.e. the identity used to key ExecutionTree.state and schedule().
func (r NodeRef) Trunk() NodeRef {
	return NodeRef{Module: r.Module, Type: r.Type, Field: r.Field, Instance: r.Instance, Element: r.Element}
}

// TrunkKey is the comparable identity of a NodeRef's trunk. NodeRef itself
// cannot be used as a map key — its Path field is a slice — so every trunk
// lookup table (ExecutionTree.state, the serializer's handle resolver,
// define-inlining's trunk remap) keys on TrunkKey instead.
type TrunkKey struct {
	Module   string
	Type     string
	Field    string
	Instance int
	Element  bool
}

// Key returns the comparable trunk identity of r, ignoring Path.
func (r NodeRef) Key() TrunkKey {
	return TrunkKey{Module: r.Module, Type: r.Type, Field: r.Field, Instance: r.Instance, Element: r.Element}
}

// Equal reports whether two refs address the same trunk and path.
func (r NodeRef) Equal(o NodeRef) bool {
	if r.Module != o.Module || r.Type != o.Type || r.Field != o.Field || r.Instance != o.Instance || r.Element != o.Element {
		return false
	}
	if len(r.Path) != len(o.Path) {
		return false
	}
	for i := range r.Path {
		if r.Path[i] != o.Path[i] {
			return false
		}
	}
	return true
}

// WireKind discriminates the two Wire shapes.
type WireKind string

const (
	WireConstant WireKind = "constant"
	WirePull     WireKind = "pull"
)

// Wire is a directed edge in the dataflow graph. Constant wires carry a raw
// JSON/bare literal; pull wires read From and write To, optionally through a
// pipe fork, optionally forced, with optional fallback behavior.
type Wire struct {
	Kind WireKind `json:"kind"`
	To   NodeRef  `json:"to"`

	// Value holds the literal text for WireConstant.
	Value string `json:"value,omitempty"`

	// From holds the source ref for WirePull.
	From NodeRef `json:"from,omitempty"`
	// Pipe marks a wire synthesized by a pipe-fork chain (a:b:c.x).
	Pipe bool `json:"pipe,omitempty"`
	// Force marks the first wire in a target group as eagerly scheduled at
	// request start (the <-! arrow).
	Force bool `json:"force,omitempty"`
	// NullFallback holds raw JSON text returned when resolution yields
	// null/undefined, attached to the last wire of a "||" chain.
	NullFallback *string `json:"null_fallback,omitempty"`
	// Fallback holds raw JSON text returned when resolution throws,
	// attached via "?? <literal>".
	Fallback *string `json:"fallback,omitempty"`
	// FallbackRef holds a NodeRef pulled when resolution throws, attached
	// via "?? <sourceExpr>".
	FallbackRef *NodeRef `json:"fallback_ref,omitempty"`

	Line int `json:"line,omitempty"`
}

// HandleKind identifies what local alias a HandleBinding resolves to.
type HandleKind string

const (
	HandleInput   HandleKind = "input"
	HandleOutput  HandleKind = "output"
	HandleContext HandleKind = "context"
	HandleConst   HandleKind = "const"
	HandleTool    HandleKind = "tool"
	HandleDefine  HandleKind = "define"
)

// HandleBinding is a local alias, scoped to one bridge or define body, for
// input/output/context/const/a tool/a define.
type HandleBinding struct {
	Handle string     `json:"handle"`
	Kind   HandleKind `json:"kind"`
	// Ref names the tool or define this handle is bound to, when Kind is
	// HandleTool or HandleDefine.
	Ref string `json:"ref,omitempty"`
	// Trunk is the resolved call-site identity for this handle (e.g. the
	// tool's NodeRef with its assigned Instance).
	Trunk NodeRef `json:"trunk"`
	Line  int     `json:"line,omitempty"`
}

// PipeFork is the synthetic call site created for an intermediary stage of a
// pipe chain (a:b:c.x). Each occurrence gets a unique Instance so two uses of
// the same tool in different pipes never collide.
type PipeFork struct {
	Handle   string  `json:"handle"`
	ToolName string  `json:"tool_name"`
	Trunk    NodeRef `json:"trunk"`
	// BaseTrunk is the trunk of the handle the fork ultimately decorates;
	// bridge wires targeting the base handle apply to the fork as defaults.
	BaseTrunk *NodeRef `json:"base_trunk,omitempty"`
}

// ArrayBlock records one `[] as iter { ... }` array-mapping block for
// serialization. PathKey is the joined (dot-separated) outer target path,
// matching a key of ArrayIterators. ElemCount is the number of element-tagged
// wires this block owns, consumed in declaration order immediately following
// the outer wire that carries this PathKey — lowering always emits a block's
// element wires contiguously, depth-first for nested blocks, so Serialize can
// slice them back out without re-deriving the nesting from the flat Wires
// list.
type ArrayBlock struct {
	PathKey   string `json:"path_key"`
	Iter      string `json:"iter"`
	ElemCount int    `json:"elem_count"`
}

// Bridge binds a response field of a host type to a set of handles and
// wires. ArrayIterators maps a joined (dot-separated) outer target path to
// the iterator handle name introduced by a "[] as name" array-mapping block.
type Bridge struct {
	Type  string `json:"type"`
	Field string `json:"field"`

	Handles        []HandleBinding   `json:"handles,omitempty"`
	Wires          []Wire            `json:"wires,omitempty"`
	ArrayIterators map[string]string `json:"array_iterators,omitempty"`
	// ArrayBlocks orders ArrayIterators for serialization; see ArrayBlock.
	ArrayBlocks []ArrayBlock `json:"array_blocks,omitempty"`
	PipeHandles []PipeFork   `json:"pipe_handles,omitempty"`
	// Passthrough holds the handle name when this bridge was expanded from
	// the `bridge T.f with X` shorthand.
	Passthrough *string `json:"passthrough,omitempty"`

	Line int `json:"line"`
}

// DefineDef is a reusable bridge body, same shape as a Bridge minus the
// type/field header, inlined at each `with <define> as h` use site.
type DefineDef struct {
	Name string `json:"name"`

	Handles        []HandleBinding   `json:"handles,omitempty"`
	Wires          []Wire            `json:"wires,omitempty"`
	ArrayIterators map[string]string `json:"array_iterators,omitempty"`
	ArrayBlocks    []ArrayBlock      `json:"array_blocks,omitempty"`
	PipeHandles    []PipeFork        `json:"pipe_handles,omitempty"`

	Line int `json:"line"`
}
