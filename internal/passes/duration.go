package passes

import (
	"fmt"

	"github.com/roach88/blocksched/internal/durations"
	"github.com/roach88/blocksched/internal/ir"
)

// resolver derives instruction lengths for the scheduler and the padder.
type resolver struct {
	root     *ir.Graph
	provider durations.Provider
}

// nominal returns the length of n in ticks. Calibrations on the node's graph
// (or the root graph) win over an explicit duration on the node, which wins
// over the provider.
func (r *resolver) nominal(g *ir.Graph, n *ir.Node) (int64, error) {
	if n.Kind == ir.KindBarrier {
		return 0, nil
	}
	if d, ok := g.Calibration(n); ok {
		return d, nil
	}
	if r.root != nil && r.root != g {
		if d, ok := r.root.Calibration(n); ok {
			return d, nil
		}
	}
	if n.Duration != nil {
		if !n.Duration.Bound() {
			return 0, NewDurationUnboundError(g.Name, n.String(), n.Duration.Symbol)
		}
		return n.Duration.Ticks, nil
	}
	return r.lookup(g, n.Name, n.Qubits, n.Params, n.String())
}

// padding returns the length of n as seen by the padder. Conditioned and
// nested-block nodes take a non-deterministic time and count as zero.
func (r *resolver) padding(g *ir.Graph, n *ir.Node) (int64, error) {
	if n.Conditioned() || n.Kind.Nested() {
		return 0, nil
	}
	return r.nominal(g, n)
}

func (r *resolver) lookup(g *ir.Graph, name string, qubits []int, params []float64, node string) (int64, error) {
	if r.provider == nil {
		return 0, NewDurationMissingError(g.Name, node, nil)
	}
	d, err := r.provider.Lookup(name, qubits, params)
	switch {
	case err == nil:
		return d, nil
	case durations.IsDurationMissing(err):
		return 0, NewDurationMissingError(g.Name, node, err)
	default:
		return 0, fmt.Errorf("duration of %s: %w", node, err)
	}
}
