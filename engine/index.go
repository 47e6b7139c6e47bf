package engine

import (
	"strings"

	"goa.design/bridge/ir"
)

// bridgeIndex precomputes, once per compiled Bridge, the lookup tables
// schedule() and Resolve() need at request time: which tool a trunk is
// bound to, which trunks are pipe forks, and wires grouped by target trunk.
// Built once in BuildEngine and shared by every ExecutionTree for that
// bridge, since none of it depends on request data.
type bridgeIndex struct {
	bridge *ir.Bridge

	// toolNameByTrunk maps a handle or pipe-fork trunk to the tool name it
	// invokes.
	toolNameByTrunk map[ir.TrunkKey]string
	// forkByTrunk maps a pipe-fork trunk to its PipeFork metadata.
	forkByTrunk map[ir.TrunkKey]ir.PipeFork
	// wiresByTarget groups every wire in the bridge (including define-
	// inlined ones) by its To trunk.
	wiresByTarget map[ir.TrunkKey][]ir.Wire
	// forcedSources lists the From trunks of every force-tagged wire, scheduled
	// eagerly at request start.
	forcedSources []ir.NodeRef
	// forcedSet mirrors forcedSources as a set for O(1) membership checks
	// from invokeTool, which needs to know whether the trunk it is about to
	// call is force-tagged before deciding whether a durable.Dispatcher
	// should run the call instead of an in-process goroutine.
	forcedSet map[ir.TrunkKey]bool
}

// isForced reports whether trunk is the source of a force-tagged wire.
func (idx *bridgeIndex) isForced(trunk ir.NodeRef) bool {
	return idx.forcedSet[trunk.Key()]
}

func buildBridgeIndex(b *ir.Bridge) *bridgeIndex {
	idx := &bridgeIndex{
		bridge:          b,
		toolNameByTrunk: map[ir.TrunkKey]string{},
		forkByTrunk:     map[ir.TrunkKey]ir.PipeFork{},
		wiresByTarget:   map[ir.TrunkKey][]ir.Wire{},
		forcedSet:       map[ir.TrunkKey]bool{},
	}
	for _, h := range b.Handles {
		if h.Kind == ir.HandleTool {
			idx.toolNameByTrunk[h.Trunk.Key()] = h.Ref
		}
	}
	for _, f := range b.PipeHandles {
		idx.forkByTrunk[f.Trunk.Key()] = f
		idx.toolNameByTrunk[f.Trunk.Key()] = f.ToolName
	}
	for _, w := range b.Wires {
		k := w.To.Trunk().Key()
		idx.wiresByTarget[k] = append(idx.wiresByTarget[k], w)
		if w.Kind == ir.WirePull && w.Force {
			idx.forcedSources = append(idx.forcedSources, w.From)
			idx.forcedSet[w.From.Key()] = true
		}
	}
	return idx
}

// wiresAt returns the wires targeting trunk at exactly cleanPath.
func (idx *bridgeIndex) wiresAt(trunk ir.NodeRef, cleanPath []string) []ir.Wire {
	var out []ir.Wire
	for _, w := range idx.wiresByTarget[trunk.Key()] {
		if pathEqual(w.To.Path, cleanPath) {
			out = append(out, w)
		}
	}
	return out
}

// groupedBridgeWires builds the target-path -> wires groups schedule() feeds
// to resolveWireGroup for a tool invocation at trunk (§4.2.2 steps 1-2): if
// trunk is a pipe fork, wires targeting its base handle contribute defaults
// for any path the fork itself doesn't address; wires targeting trunk
// exactly fully replace the default for that path, preserving every
// overdefinition alternative declared against the same path.
func (idx *bridgeIndex) groupedBridgeWires(trunk ir.NodeRef) (map[string][]ir.Wire, []string) {
	final := map[string][]ir.Wire{}
	var order []string

	if fork, isFork := idx.forkByTrunk[trunk.Key()]; isFork && fork.BaseTrunk != nil {
		for _, w := range idx.wiresByTarget[fork.BaseTrunk.Trunk().Key()] {
			pk := strings.Join(w.To.Path, ".")
			if _, ok := final[pk]; !ok {
				order = append(order, pk)
			}
			final[pk] = append(final[pk], w)
		}
	}

	own := map[string][]ir.Wire{}
	var ownOrder []string
	for _, w := range idx.wiresByTarget[trunk.Key()] {
		pk := strings.Join(w.To.Path, ".")
		if _, ok := own[pk]; !ok {
			ownOrder = append(ownOrder, pk)
		}
		own[pk] = append(own[pk], w)
	}
	for _, pk := range ownOrder {
		if _, existed := final[pk]; !existed {
			order = append(order, pk)
		}
		final[pk] = own[pk]
	}
	return final, order
}

// assembleGroups mirrors groupedBridgeWires for trunks with no fork/base
// concept (the synthetic __define_in_/__define_out_ modules): every wire
// targeting trunk, grouped by path, in first-seen order.
func (idx *bridgeIndex) assembleGroups(trunk ir.NodeRef) (map[string][]ir.Wire, []string) {
	groups := map[string][]ir.Wire{}
	var order []string
	for _, w := range idx.wiresByTarget[trunk.Key()] {
		pk := strings.Join(w.To.Path, ".")
		if _, ok := groups[pk]; !ok {
			order = append(order, pk)
		}
		groups[pk] = append(groups[pk], w)
	}
	return groups, order
}

func pathEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// cleanPath strips numeric (list-index) segments from a host-supplied path,
// since wire targets are always authored against the unindexed shape.
func cleanPath(path []string) []string {
	out := make([]string, 0, len(path))
	for _, seg := range path {
		if isNumeric(seg) {
			continue
		}
		out = append(out, seg)
	}
	return out
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
