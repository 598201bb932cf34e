package passes

import (
	"iter"

	"github.com/roach88/blocksched/internal/ir"
)

// grouping reports whether n is grouped into simultaneous readout.
func grouping(n *ir.Node) bool {
	return n.Kind.Grouping()
}

// blockTrigger reports whether n ends a deterministic block.
func blockTrigger(n *ir.Node) bool {
	return n.Conditioned() || n.Kind.Nested()
}

func emitEarly(n *ir.Node) bool {
	return grouping(n) || blockTrigger(n)
}

// BlockOrder yields the nodes of g in a dependency-respecting order that
// keeps deterministic blocks as large as possible.
//
// Nodes are processed in waves. Within a wave, measurements and resets and
// block triggers are collected and their descendants deferred to the next
// wave; nodes that feed a later boundary are yielded immediately; all other
// nodes are held back. At the end of the wave the groupings are yielded,
// then the triggers. A wave without any boundary flushes the held-back nodes
// and ends the sequence; otherwise the held-back nodes lead the next wave.
func BlockOrder(g *ir.Graph) iter.Seq[ir.NodeID] {
	return func(yield func(ir.NodeID) bool) {
		next := g.TopologicalOrder()
		for len(next) > 0 {
			curr := next
			next = nil
			deferred := map[ir.NodeID]bool{}
			var final, groups, triggers []ir.NodeID
			boundary := false

			for _, id := range curr {
				if deferred[id] {
					next = append(next, id)
					continue
				}
				n := g.Node(id)
				desc := g.Descendants(id)
				switch {
				case grouping(n):
					boundary = true
					groups = append(groups, id)
					for _, d := range desc {
						deferred[d] = true
					}
				case blockTrigger(n):
					boundary = true
					triggers = append(triggers, id)
					for _, d := range desc {
						deferred[d] = true
					}
				case feedsBoundary(g, desc):
					if !yield(id) {
						return
					}
				default:
					final = append(final, id)
				}
			}

			for _, id := range groups {
				if !yield(id) {
					return
				}
			}
			for _, id := range triggers {
				if !yield(id) {
					return
				}
			}

			if !boundary {
				for _, id := range final {
					if !yield(id) {
						return
					}
				}
				return
			}
			next = append(final, next...)
		}
	}
}

func feedsBoundary(g *ir.Graph, desc []ir.NodeID) bool {
	for _, d := range desc {
		if emitEarly(g.Node(d)) {
			return true
		}
	}
	return false
}
