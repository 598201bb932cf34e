package engine

import (
	"fmt"

	"github.com/roach88/blocksched/internal/ir"
)

// DefaultMaxNodes is the default maximum number of nodes per circuit,
// counting the nodes of nested block graphs.
const DefaultMaxNodes = 100_000

// NodeQuota bounds the size of circuits an engine accepts. Padding adds at
// most a few instructions per wire and node, so bounding the input bounds
// the run.
type NodeQuota struct {
	maxNodes int
}

// NewNodeQuota creates a quota with the given limit. A limit of 0 or less
// disables the check.
func NewNodeQuota(maxNodes int) *NodeQuota {
	return &NodeQuota{maxNodes: maxNodes}
}

// Check counts the nodes of g and its nested blocks and returns a node quota
// error when they exceed the limit. Counting stops as soon as the limit is
// passed.
func (q *NodeQuota) Check(g *ir.Graph) error {
	if q.maxNodes <= 0 {
		return nil
	}
	n := q.count(g, 0)
	if n > q.maxNodes {
		return &RunError{
			Code:    ErrCodeNodeQuota,
			Message: fmt.Sprintf("circuit %s has more than %d nodes", g.Name, q.maxNodes),
			Details: map[string]string{
				"circuit": g.Name,
				"limit":   fmt.Sprint(q.maxNodes),
			},
		}
	}
	return nil
}

func (q *NodeQuota) count(g *ir.Graph, acc int) int {
	for _, n := range g.Nodes() {
		acc++
		if acc > q.maxNodes {
			return acc
		}
		for _, b := range n.Blocks {
			if acc = q.count(b, acc); acc > q.maxNodes {
				return acc
			}
		}
	}
	return acc
}

// MaxNodes returns the limit.
func (q *NodeQuota) MaxNodes() int {
	return q.maxNodes
}
