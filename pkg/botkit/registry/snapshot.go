package registry

import (
	"sort"

	"github.com/randalmurphal/botkit/pkg/botkit/node"
)

// Snapshot is an immutable, priority-ordered view of all active nodes.
//
// The dispatcher captures one snapshot at the start of each dispatch cycle
// and never looks at the registry again for that event, so a reload that
// lands mid-cycle cannot mix old and new nodes.
type Snapshot struct {
	version uint64
	nodes   []*node.Node
	tiers   [][]*node.Node
}

// emptySnapshot is published before the first load so Snapshot() never
// returns nil.
var emptySnapshot = &Snapshot{}

// seqNode pairs a node with its registration sequence for tie-breaking.
type seqNode struct {
	n   *node.Node
	seq uint64
}

// buildSnapshot orders nodes by (priority, registration sequence) and
// pre-groups them into priority tiers.
func buildSnapshot(version uint64, entries []seqNode) *Snapshot {
	sorted := make([]seqNode, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].n.Priority() != sorted[j].n.Priority() {
			return sorted[i].n.Priority() < sorted[j].n.Priority()
		}
		return sorted[i].seq < sorted[j].seq
	})

	nodes := make([]*node.Node, len(sorted))
	for i, e := range sorted {
		nodes[i] = e.n
	}

	var tiers [][]*node.Node
	for i := 0; i < len(nodes); {
		j := i
		for j < len(nodes) && nodes[j].Priority() == nodes[i].Priority() {
			j++
		}
		tiers = append(tiers, nodes[i:j:j])
		i = j
	}

	return &Snapshot{version: version, nodes: nodes, tiers: tiers}
}

// Version returns the snapshot's publication counter. It increases by one
// with every successful load, unload, or reload.
func (s *Snapshot) Version() uint64 { return s.version }

// Len returns the number of nodes in the snapshot.
func (s *Snapshot) Len() int { return len(s.nodes) }

// Nodes returns all nodes ordered by ascending priority, ties by
// registration order. Callers must not modify the returned slice.
func (s *Snapshot) Nodes() []*node.Node { return s.nodes }

// Tiers returns the nodes grouped by equal priority, tiers in ascending
// priority order. Callers must not modify the returned slices.
func (s *Snapshot) Tiers() [][]*node.Node { return s.tiers }
