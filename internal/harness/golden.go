package harness

import (
	"cmp"
	"slices"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/blocksched/internal/engine"
	"github.com/roach88/blocksched/internal/ir"
	"github.com/roach88/blocksched/internal/render"
)

// SlotSnapshot is one padded node in a golden snapshot.
type SlotSnapshot struct {
	Graph string `json:"graph"`
	Op    string `json:"op"`
	Block int    `json:"block"`
	Start int64  `json:"start"`
}

// RunSnapshot captures the padded schedule of one scenario run.
// Node ids and hashes are left out so the snapshot only changes when the
// schedule itself does.
type RunSnapshot struct {
	Scenario string         `json:"scenario"`
	Circuit  string         `json:"circuit"`
	Policy   string         `json:"policy"`
	RunID    string         `json:"run_id"`
	Seq      int64          `json:"seq"`
	Blocks   int            `json:"blocks"`
	Rows     []SlotSnapshot `json:"rows"`
}

// NewRunSnapshot builds the snapshot of res. Rows are ordered by graph,
// block, start and op.
func NewRunSnapshot(scenario string, res *engine.Result) *RunSnapshot {
	s := &RunSnapshot{
		Scenario: scenario,
		Circuit:  res.Circuit,
		Policy:   res.Policy.Name,
		RunID:    res.RunID,
		Seq:      res.Seq,
		Blocks:   res.Blocks,
	}
	for _, r := range res.Schedule() {
		s.Rows = append(s.Rows, SlotSnapshot{
			Graph: r.Ref.Graph.Name,
			Op:    r.Ref.Node().String(),
			Block: r.Slot.Block,
			Start: r.Slot.Start,
		})
	}
	slices.SortFunc(s.Rows, func(a, b SlotSnapshot) int {
		return cmp.Or(
			cmp.Compare(a.Graph, b.Graph),
			cmp.Compare(a.Block, b.Block),
			cmp.Compare(a.Start, b.Start),
			cmp.Compare(a.Op, b.Op),
		)
	})
	return s
}

// toCanonicalMap converts a RunSnapshot to a map[string]any for canonical JSON serialization.
// ir.MarshalCanonical only handles primitives, slices and maps.
func (s *RunSnapshot) toCanonicalMap() map[string]any {
	rows := make([]any, len(s.Rows))
	for i, r := range s.Rows {
		rows[i] = map[string]any{
			"graph": r.Graph,
			"op":    r.Op,
			"block": r.Block,
			"start": r.Start,
		}
	}
	return map[string]any{
		"scenario": s.Scenario,
		"circuit":  s.Circuit,
		"policy":   s.Policy,
		"run_id":   s.RunID,
		"seq":      s.Seq,
		"blocks":   s.Blocks,
		"rows":     rows,
	}
}

// MarshalCanonical renders the snapshot as canonical JSON.
func (s *RunSnapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the padded schedule against
// two golden files in testdata/golden: {scenario.Name}.golden holds the
// canonical snapshot and {scenario.Name}.timeline.golden the plain
// timeline.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the scenario result; a scenario that fails its assertions or its
// run has no goldens to compare and is returned as is.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		return nil, err
	}
	if result.Run == nil {
		return result, nil
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an already computed result against the golden files
// of name, without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot, err := NewRunSnapshot(name, result.Run).MarshalCanonical()
	if err != nil {
		return err
	}
	res := result.Run
	timeline := render.New(render.WithColor(false)).
		Timeline(res.Output, res.Pass.NodeStartTime, res.Pass.NodeBlockGraphs)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snapshot)
	g.Assert(t, name+".timeline", []byte(timeline))
	return nil
}
