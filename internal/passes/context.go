package passes

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/roach88/blocksched/internal/durations"
	"github.com/roach88/blocksched/internal/ir"
)

// Slot is the scheduled position of one node: an execution block and a start
// time relative to that block's origin.
type Slot struct {
	Block int   `json:"block"`
	Start int64 `json:"start"`
}

// Schedule maps every scheduled node, including the nodes of nested block
// graphs, to its slot.
type Schedule map[ir.NodeRef]Slot

// BlockGraphs maps each nested-block node to its scheduled block graphs, in
// the node's block order.
type BlockGraphs map[ir.NodeRef][]*ir.Graph

// PassContext carries results between passes. The scheduler publishes
// NodeStartTime and NodeBlockGraphs; every padder consumes them and replaces
// them with the schedule of its output graph.
type PassContext struct {
	NodeStartTime   Schedule
	NodeBlockGraphs BlockGraphs

	// TimeUnit is stamped on padded graphs. Defaults to "dt".
	TimeUnit string

	// Durations resolves instruction lengths for passes that were not given
	// their own provider.
	Durations durations.Provider
}

// NewPassContext creates an empty context backed by provider.
func NewPassContext(provider durations.Provider) *PassContext {
	return &PassContext{TimeUnit: durations.UnitDT, Durations: provider}
}

func (pc *PassContext) timeUnit() string {
	if pc.TimeUnit == "" {
		return durations.UnitDT
	}
	return pc.TimeUnit
}

// ScheduledNode is one row of a flattened schedule.
type ScheduledNode struct {
	Ref  ir.NodeRef
	Path string
	Slot Slot
}

// Flatten lists the slots of g and its nested block graphs in traversal
// order: nodes of g in insertion order, each nested node followed by the
// rows of its block graphs. Path locates the graph as "root", "root/3.0"
// (block 0 of node 3) and so on.
func (s Schedule) Flatten(g *ir.Graph, blocks BlockGraphs) []ScheduledNode {
	var out []ScheduledNode
	var walk func(g *ir.Graph, path string)
	walk = func(g *ir.Graph, path string) {
		for _, n := range g.Nodes() {
			ref := g.Ref(n.ID)
			if slot, ok := s[ref]; ok {
				out = append(out, ScheduledNode{Ref: ref, Path: path, Slot: slot})
			}
			for i, b := range blocks[ref] {
				walk(b, fmt.Sprintf("%s/%d.%d", path, n.ID, i))
			}
		}
	}
	walk(g, "root")
	return out
}

// Blocks returns the distinct block indices used by nodes of g, ascending.
func (s Schedule) Blocks(g *ir.Graph) []int {
	set := map[int]bool{}
	for ref, slot := range s {
		if ref.Graph == g {
			set[slot.Block] = true
		}
	}
	return slices.Sorted(maps.Keys(set))
}

// Fingerprint returns a content hash of the schedule of g and its nested
// graphs.
func (s Schedule) Fingerprint(g *ir.Graph, blocks BlockGraphs) (string, error) {
	rows := s.Flatten(g, blocks)
	entries := make([]any, len(rows))
	for i, r := range rows {
		entries[i] = map[string]any{
			"path":  r.Path,
			"node":  int(r.Ref.ID),
			"block": r.Slot.Block,
			"start": r.Slot.Start,
		}
	}
	return ir.ScheduleHash(entries)
}

// Pass is one step of the scheduling pipeline.
type Pass interface {
	Name() string
	Run(ctx context.Context, pc *PassContext, g *ir.Graph) (*ir.Graph, error)
}

// Manager runs passes in order, threading one PassContext through them.
type Manager struct {
	passes []Pass
}

// NewManager creates a manager for the given passes.
func NewManager(passes ...Pass) *Manager {
	return &Manager{passes: passes}
}

// Run applies every pass to g and returns the final graph. The context is
// checked between passes; a pass itself always runs to completion.
func (m *Manager) Run(ctx context.Context, pc *PassContext, g *ir.Graph) (*ir.Graph, error) {
	for _, p := range m.passes {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("pass %s: %w", p.Name(), err)
		}
		out, err := p.Run(ctx, pc, g)
		if err != nil {
			return nil, fmt.Errorf("pass %s: %w", p.Name(), err)
		}
		slog.Debug("pass complete",
			"pass", p.Name(),
			"graph", g.Name,
			"nodes", out.Len(),
		)
		g = out
	}
	return g, nil
}
