package passes

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/blocksched/internal/durations"
	"github.com/roach88/blocksched/internal/ir"
	"github.com/roach88/blocksched/internal/testutil"
)

// scheduleWith runs the scheduler on g against provider.
func scheduleWith(t *testing.T, g *ir.Graph, provider durations.Provider) *PassContext {
	t.Helper()
	pc := NewPassContext(provider)
	_, err := NewScheduler(nil).Run(t.Context(), pc, g)
	require.NoError(t, err)
	return pc
}

// schedule runs the scheduler on g against the standard durations.
func schedule(t *testing.T, g *ir.Graph) *PassContext {
	t.Helper()
	return scheduleWith(t, g, testutil.StandardDurations())
}

// schedulePad schedules g and pads it with policy.
func schedulePad(t *testing.T, g *ir.Graph, policy Policy) (*ir.Graph, *PassContext) {
	t.Helper()
	pc := schedule(t, g)
	out, err := NewPadder(policy).Run(t.Context(), pc, g)
	require.NoError(t, err)
	return out, pc
}

// slotOf returns the slot of node id of g.
func slotOf(t *testing.T, pc *PassContext, g *ir.Graph, id ir.NodeID) Slot {
	t.Helper()
	s, ok := pc.NodeStartTime[g.Ref(id)]
	require.True(t, ok, "node %d of %s has no slot", id, g.Name)
	return s
}

// wire returns the operation labels on qubit q of g.
func wire(g *ir.Graph, q int) []string {
	return ir.WireSequences(g)[ir.QubitWire(q).String()]
}

// requireCovered asserts that every node of g and its nested blocks has a
// slot.
func requireCovered(t *testing.T, pc *PassContext, g *ir.Graph) {
	t.Helper()
	for _, n := range g.Nodes() {
		_, ok := pc.NodeStartTime[g.Ref(n.ID)]
		require.True(t, ok, "%s in %s has no slot", n, g.Name)
		for _, b := range n.Blocks {
			requireCovered(t, pc, b)
		}
	}
}

// requireWireCoverage checks a padded graph and its nested blocks wire by
// wire: block indices never decrease, the first node of a block starts at
// zero, each later node starts where its predecessor ended, and every wire
// of a block ends at the same time. Lengths are the ones the padder uses.
func requireWireCoverage(t *testing.T, pc *PassContext, g *ir.Graph, provider durations.Provider) {
	t.Helper()
	res := &resolver{root: g, provider: provider}
	var check func(g *ir.Graph)
	check = func(g *ir.Graph) {
		ends := map[int]map[int]int64{} // block -> qubit -> end
		for _, q := range g.Qubits() {
			block, end := -1, int64(0)
			for _, id := range g.WireOps(ir.QubitWire(q)) {
				n := g.Node(id)
				s := slotOf(t, pc, g, id)
				require.GreaterOrEqual(t, s.Block, block, "%s on q%d of %s goes back a block", n, q, g.Name)
				if s.Block != block {
					block, end = s.Block, 0
				}
				require.Equal(t, end, s.Start, "%s on q%d of %s in block %d", n, q, g.Name, s.Block)
				d, err := res.padding(g, n)
				require.NoError(t, err)
				end = s.Start + d
				if ends[block] == nil {
					ends[block] = map[int]int64{}
				}
				ends[block][q] = end
			}
		}
		for block, byQubit := range ends {
			var want int64 = -1
			for q, end := range byQubit {
				if want < 0 {
					want = end
				}
				require.Equal(t, want, end, "q%d of %s ends block %d early or late", q, g.Name, block)
			}
		}
		for _, n := range g.Nodes() {
			for _, b := range n.Blocks {
				check(b)
			}
		}
	}
	check(g)
}

func xx() []ir.Node {
	return []ir.Node{ir.Gate("x", 0), ir.Gate("x", 0)}
}

func xy4() []ir.Node {
	return []ir.Node{ir.Gate("x", 0), ir.Gate("y", 0), ir.Gate("x", 0), ir.Gate("y", 0)}
}

func mustDD(t *testing.T, sequence []ir.Node, opts ...DDOption) *DynamicalDecoupling {
	t.Helper()
	dd, err := NewDynamicalDecoupling(testutil.StandardDurations(), sequence, opts...)
	require.NoError(t, err)
	return dd
}
