package harness

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/blocksched/internal/engine"
	"github.com/roach88/blocksched/internal/ir"
	"github.com/roach88/blocksched/internal/render"
)

// AssertionError is a failed assertion together with the padded timeline it
// was evaluated against.
type AssertionError struct {
	Type     string
	Expected any
	Actual   any
	Timeline string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&sb, "  Expected: %v\n", e.Expected)
	fmt.Fprintf(&sb, "  Actual: %v\n", e.Actual)
	if e.Timeline != "" {
		sb.WriteString("\nTimeline:\n")
		sb.WriteString(e.Timeline)
	}
	return sb.String()
}

// slotRow is one scheduled node of the padded output.
type slotRow struct {
	graph string
	node  *ir.Node
	block int
	start int64
}

// assertionContext carries what assertions need beyond the result itself.
type assertionContext struct {
	ctx      context.Context
	engine   *engine.Engine
	rows     []slotRow
	timeline string
}

func newAssertionContext(ctx context.Context, eng *engine.Engine, res *engine.Result) *assertionContext {
	actx := &assertionContext{ctx: ctx, engine: eng}
	for _, r := range res.Schedule() {
		actx.rows = append(actx.rows, slotRow{
			graph: r.Ref.Graph.Name,
			node:  r.Ref.Node(),
			block: r.Slot.Block,
			start: r.Slot.Start,
		})
	}
	actx.timeline = render.New(render.WithColor(false)).
		Timeline(res.Output, res.Pass.NodeStartTime, res.Pass.NodeBlockGraphs)
	return actx
}

// EvaluateAssertions checks every assertion against res and returns the
// failure messages. An empty slice means all assertions passed.
func EvaluateAssertions(ctx context.Context, eng *engine.Engine, res *engine.Result, assertions []Assertion) []string {
	actx := newAssertionContext(ctx, eng, res)
	var errs []string
	for i, a := range assertions {
		if err := evaluate(actx, res, &a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluate(actx *assertionContext, res *engine.Result, a *Assertion) error {
	switch a.Type {
	case AssertWireSequence:
		return assertWireSequence(actx, res, a)
	case AssertSlot:
		return assertSlot(actx, res, a)
	case AssertBlockCount:
		return assertBlockCount(actx, res, a)
	case AssertNodeCount:
		return assertNodeCount(actx, res, a)
	case AssertStored:
		return assertStored(actx, res)
	case AssertReplay:
		return assertReplay(actx, res)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertWireSequence(actx *assertionContext, res *engine.Result, a *Assertion) error {
	q := *a.Qubit
	w := ir.QubitWire(q)
	if !res.Output.HasWire(w) {
		return fmt.Errorf("qubit %d is not a wire of %s", q, res.Output.Name)
	}
	var got []string
	for _, id := range res.Output.WireOps(w) {
		got = append(got, render.Label(res.Output.Node(id)))
	}
	if !slices.Equal(got, a.Ops) {
		return &AssertionError{
			Type:     AssertWireSequence,
			Expected: fmt.Sprintf("q%d %v", q, a.Ops),
			Actual:   fmt.Sprintf("q%d %v", q, got),
			Timeline: actx.timeline,
		}
	}
	return nil
}

// graphName returns the graph an assertion targets.
func graphName(res *engine.Result, a *Assertion) string {
	if a.Graph == "" {
		return res.Output.Name
	}
	return a.Graph
}

func assertSlot(actx *assertionContext, res *engine.Result, a *Assertion) error {
	graph := graphName(res, a)
	var matches []slotRow
	for _, r := range actx.rows {
		if r.graph == graph && render.Label(r.node) == a.Label {
			matches = append(matches, r)
		}
	}
	// Occurrences count in time order.
	slices.SortStableFunc(matches, func(x, y slotRow) int {
		return cmp.Or(
			cmp.Compare(x.block, y.block),
			cmp.Compare(x.start, y.start),
			cmp.Compare(x.node.ID, y.node.ID),
		)
	})
	occurrence := max(a.Occurrence, 1)
	if len(matches) < occurrence {
		return &AssertionError{
			Type:     AssertSlot,
			Expected: fmt.Sprintf("%s #%d in %s", a.Label, occurrence, graph),
			Actual:   fmt.Sprintf("%d node(s) with that label", len(matches)),
			Timeline: actx.timeline,
		}
	}
	r := matches[occurrence-1]
	if (a.Block != nil && *a.Block != r.block) || (a.Start != nil && *a.Start != r.start) {
		return &AssertionError{
			Type:     AssertSlot,
			Expected: fmt.Sprintf("%s at %s", a.Label, formatSlot(a.Block, a.Start)),
			Actual:   fmt.Sprintf("%s at block %d start %d", a.Label, r.block, r.start),
			Timeline: actx.timeline,
		}
	}
	return nil
}

func formatSlot(block *int, start *int64) string {
	var parts []string
	if block != nil {
		parts = append(parts, fmt.Sprintf("block %d", *block))
	}
	if start != nil {
		parts = append(parts, fmt.Sprintf("start %d", *start))
	}
	return strings.Join(parts, " ")
}

func assertBlockCount(actx *assertionContext, res *engine.Result, a *Assertion) error {
	if res.Blocks != *a.Count {
		return &AssertionError{
			Type:     AssertBlockCount,
			Expected: *a.Count,
			Actual:   res.Blocks,
			Timeline: actx.timeline,
		}
	}
	return nil
}

func assertNodeCount(actx *assertionContext, res *engine.Result, a *Assertion) error {
	graph := graphName(res, a)
	n := 0
	for _, r := range actx.rows {
		if r.graph != graph {
			continue
		}
		if a.Kind != "" && r.node.Kind.String() != a.Kind {
			continue
		}
		if a.Label != "" && render.Label(r.node) != a.Label {
			continue
		}
		n++
	}
	if n != *a.Count {
		return &AssertionError{
			Type:     AssertNodeCount,
			Expected: fmt.Sprintf("%d node(s) kind=%q label=%q in %s", *a.Count, a.Kind, a.Label, graph),
			Actual:   n,
			Timeline: actx.timeline,
		}
	}
	return nil
}

func assertStored(actx *assertionContext, res *engine.Result) error {
	st := actx.engine.Store()
	if st == nil {
		return fmt.Errorf("engine has no store")
	}
	run, err := st.ReadRun(actx.ctx, res.RunID)
	if err != nil {
		return fmt.Errorf("read run %q: %w", res.RunID, err)
	}
	got := []string{run.GraphHash, run.PaddedHash, run.ScheduleHash}
	want := []string{res.GraphHash, res.PaddedHash, res.ScheduleHash}
	if !slices.Equal(got, want) {
		return &AssertionError{Type: AssertStored, Expected: want, Actual: got}
	}
	if len(run.Slots) != len(actx.rows) {
		return &AssertionError{Type: AssertStored, Expected: len(actx.rows), Actual: len(run.Slots)}
	}
	return nil
}

func assertReplay(actx *assertionContext, res *engine.Result) error {
	rr, err := actx.engine.Replay(actx.ctx, res.RunID)
	if err != nil {
		return fmt.Errorf("replay %q: %w", res.RunID, err)
	}
	if !rr.Match() {
		return &AssertionError{Type: AssertReplay, Expected: "no mismatches", Actual: rr.Mismatches}
	}
	return nil
}
