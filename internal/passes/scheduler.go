package passes

import (
	"context"
	"log/slog"

	"github.com/roach88/blocksched/internal/durations"
	"github.com/roach88/blocksched/internal/ir"
)

// Scheduler assigns every node an execution block and an as-soon-as-possible
// start time within it.
//
// Blocks are split wherever the hardware cannot predict when the next
// instruction may start:
//   - after a group of simultaneous measurements and resets, when a later
//     node touches one of the measured qubits
//   - before a conditioned or nested-block node, unless already inside a
//     block of conditional work
//   - before unconditioned work that follows conditional work
//
// Measurements and resets on disjoint qubits within a block are aligned to a
// common start time. The nodes of nested block graphs are scheduled with
// fresh state into the same Schedule.
type Scheduler struct {
	durations durations.Provider
}

// NewScheduler creates a scheduler. A nil provider falls back to the
// PassContext durations.
func NewScheduler(provider durations.Provider) *Scheduler {
	return &Scheduler{durations: provider}
}

// Name implements Pass.
func (s *Scheduler) Name() string { return "schedule" }

// Run schedules g and publishes NodeStartTime and NodeBlockGraphs into pc.
// g is returned unchanged. On error nothing is published.
func (s *Scheduler) Run(ctx context.Context, pc *PassContext, g *ir.Graph) (*ir.Graph, error) {
	if !g.IsPhysical() {
		var quantum int
		for _, r := range g.Registers {
			if r.Class == ir.Quantum {
				quantum++
			}
		}
		return nil, NewUnmappedWireLayoutError(g.Name, quantum)
	}

	provider := s.durations
	if provider == nil {
		provider = pc.Durations
	}
	res := &resolver{root: g, provider: provider}
	sched := Schedule{}
	blocks := BlockGraphs{}

	run := newScheduleRun(res, g, sched, blocks)
	if err := run.schedule(); err != nil {
		return nil, err
	}

	pc.NodeStartTime = sched
	pc.NodeBlockGraphs = blocks
	if pc.TimeUnit == "" {
		pc.TimeUnit = durations.UnitDT
	}

	slog.Debug("scheduled graph",
		"graph", g.Name,
		"nodes", len(sched),
		"blocks", run.block+1,
	)
	return g, nil
}

// scheduleRun holds the state of scheduling one graph. Nested block graphs
// get their own run sharing the output maps.
type scheduleRun struct {
	res    *resolver
	g      *ir.Graph
	sched  Schedule
	blocks BlockGraphs

	block       int
	conditional bool
	idle        map[ir.Wire]int64

	// Pending measurement group of the current block.
	measures     []ir.NodeRef
	measureWires map[int]bool
	hasReset     bool

	// extent is the latest end time seen in the current block.
	extent int64
}

func newScheduleRun(res *resolver, g *ir.Graph, sched Schedule, blocks BlockGraphs) *scheduleRun {
	return &scheduleRun{
		res:          res,
		g:            g,
		sched:        sched,
		blocks:       blocks,
		idle:         map[ir.Wire]int64{},
		measureWires: map[int]bool{},
	}
}

func (r *scheduleRun) schedule() error {
	for id := range BlockOrder(r.g) {
		if err := r.visit(r.g.Ref(id)); err != nil {
			return err
		}
	}
	return nil
}

func (r *scheduleRun) visit(ref ir.NodeRef) error {
	n := ref.Node()
	if n.Conditioned() || n.Kind.Nested() {
		if n.Conditioned() && !n.Kind.Conditionable() {
			return NewUnsupportedConditionError(r.g.Name, n.String(), n.Kind.String())
		}
		return r.visitConditional(ref, n)
	}

	// Unconditioned work never shares a block with conditional work.
	if r.conditional {
		r.beginBlock()
	}

	switch n.Kind {
	case ir.KindMeasure:
		return r.visitMeasure(ref, n, false)
	case ir.KindReset:
		return r.visitMeasure(ref, n, true)
	case ir.KindGate, ir.KindBarrier, ir.KindDelay:
		return r.visitGeneric(ref, n)
	default:
		return NewUnsupportedKindError(r.g.Name, n.String(), n.Kind.String())
	}
}

func (r *scheduleRun) visitConditional(ref ir.NodeRef, n *ir.Node) error {
	// Consecutive conditional nodes share one block so the controller can
	// dispatch them together.
	if !r.conditional {
		r.beginBlock()
	}
	r.conditional = true

	var dur int64
	var err error
	if n.Kind.Nested() {
		dur, err = r.scheduleBlocks(ref, n)
	} else {
		dur, err = r.res.nominal(r.g, n)
	}
	if err != nil {
		return err
	}

	t0q := r.readyAt(n.Qubits, nil)
	var t0c int64
	if n.Condition != nil {
		t0c = r.readyAt(nil, n.Condition.Clbits)
	}
	// The condition may be read late, but never before the qubits are free.
	if t0q > t0c {
		t0c = t0q
	}
	if n.Condition != nil {
		for _, c := range n.Condition.Clbits {
			r.idle[ir.ClbitWire(c)] = t0c
		}
	}

	t0 := max(t0q, t0c)
	r.update(ref, n, t0, t0+dur)
	return nil
}

// scheduleBlocks schedules each block graph of n and returns the length of
// the longest final block among them.
func (r *scheduleRun) scheduleBlocks(ref ir.NodeRef, n *ir.Node) (int64, error) {
	var dur int64
	for _, body := range n.Blocks {
		sub := newScheduleRun(r.res, body, r.sched, r.blocks)
		if err := sub.schedule(); err != nil {
			return 0, err
		}
		dur = max(dur, sub.extent)
	}
	r.blocks[ref] = n.Blocks
	return dur, nil
}

func (r *scheduleRun) visitMeasure(ref ir.NodeRef, n *ir.Node, reset bool) error {
	t0q := r.readyAt(n.Qubits, nil)

	if r.groupOverlaps(n.Qubits) {
		if r.hasReset {
			// A reset cannot share its block with an overlapping readout.
			r.beginBlock()
			t0q = 0
		} else {
			r.flushMeasures()
		}
	} else {
		for _, m := range r.measures {
			t0q = max(t0q, r.sched[m].Start)
		}
	}

	if reset {
		r.hasReset = true
	}
	r.measures = append(r.measures, ref)
	for _, q := range n.Qubits {
		r.measureWires[q] = true
	}

	// Resets are implemented as a readout followed by a conditional flip, so
	// the whole group is timed by the measurement on the visiting node's
	// qubits.
	dur, err := r.res.lookup(r.g, "measure", n.Qubits, nil, n.String())
	if err != nil {
		return err
	}
	for _, m := range r.measures {
		r.update(m, m.Node(), t0q, t0q+dur)
	}
	return nil
}

func (r *scheduleRun) visitGeneric(ref ir.NodeRef, n *ir.Node) error {
	dur, err := r.res.nominal(r.g, n)
	if err != nil {
		return err
	}

	var t0 int64
	if r.groupOverlaps(n.Qubits) {
		r.beginBlock()
	} else {
		t0 = r.readyAt(n.Qubits, n.Clbits)
	}
	r.update(ref, n, t0, t0+dur)
	return nil
}

// readyAt returns the time at which all given wires are idle.
func (r *scheduleRun) readyAt(qubits, clbits []int) int64 {
	var t int64
	for _, q := range qubits {
		t = max(t, r.idle[ir.QubitWire(q)])
	}
	for _, c := range clbits {
		t = max(t, r.idle[ir.ClbitWire(c)])
	}
	return t
}

func (r *scheduleRun) update(ref ir.NodeRef, n *ir.Node, t0, t1 int64) {
	for _, q := range n.Qubits {
		r.idle[ir.QubitWire(q)] = t1
	}
	for _, c := range n.Clbits {
		r.idle[ir.ClbitWire(c)] = t1
	}
	r.sched[ref] = Slot{Block: r.block, Start: t0}
	r.extent = max(r.extent, t1)
}

func (r *scheduleRun) groupOverlaps(qubits []int) bool {
	for _, q := range qubits {
		if r.measureWires[q] {
			return true
		}
	}
	return false
}

func (r *scheduleRun) beginBlock() {
	r.block++
	r.conditional = false
	r.idle = map[ir.Wire]int64{}
	r.extent = 0
	r.flushMeasures()
}

func (r *scheduleRun) flushMeasures() {
	r.measures = nil
	r.measureWires = map[int]bool{}
	r.hasReset = false
}
