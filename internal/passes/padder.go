package passes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/blocksched/internal/ir"
)

// Padder rewrites a scheduled graph so that every qubit is occupied from the
// start to the end of every block. Idle gaps are handed to a Policy and block
// boundaries are marked with full-width barriers.
//
// Delays in the input are treated as idle time: they are not copied, and the
// time they covered is filled again by the policy. Nested block graphs are
// padded recursively. A conditional whose condition bits were last written
// by a measurement on exactly its own qubits, and whose blocks hold only
// plain gates and delays, takes the fast path: it gets no barrier in front
// of it and keeps its own qubits instead of being widened to all of them.
type Padder struct {
	policy Policy
}

// NewPadder creates a padder that fills gaps with policy.
func NewPadder(policy Policy) *Padder {
	return &Padder{policy: policy}
}

// Name implements Pass.
func (p *Padder) Name() string { return "pad-" + p.policy.Name() }

// Run pads g using the schedule in pc and returns a new graph. On success
// pc.NodeStartTime and pc.NodeBlockGraphs are replaced with the schedule of
// the padded graph. g is not modified.
func (p *Padder) Run(ctx context.Context, pc *PassContext, g *ir.Graph) (*ir.Graph, error) {
	if pc.NodeStartTime == nil {
		return nil, NewNotScheduledError(g.Name, "the schedule pass")
	}

	run := &padRun{
		policy:     p.policy,
		res:        &resolver{root: g, provider: pc.Durations},
		sched:      pc.NodeStartTime,
		blocks:     pc.NodeBlockGraphs,
		unit:       pc.timeUnit(),
		outSched:   Schedule{},
		outBlocks:  BlockGraphs{},
		lastWriter: map[ir.Wire]ir.NodeRef{},
		fastPath:   map[ir.NodeRef]bool{},
	}

	out, err := run.visitBlock(g, g.Qubits(), true)
	if err != nil {
		return nil, err
	}

	pc.NodeStartTime = run.outSched
	pc.NodeBlockGraphs = run.outBlocks

	slog.Debug("padded graph",
		"graph", g.Name,
		"policy", p.policy.Name(),
		"nodes_in", g.Len(),
		"nodes_out", out.Len(),
		"fast_path", len(run.fastPath),
	)
	return out, nil
}

// padRun holds the state shared by all frames of one padder invocation.
type padRun struct {
	policy Policy
	res    *resolver
	sched  Schedule
	blocks BlockGraphs
	unit   string

	outSched  Schedule
	outBlocks BlockGraphs

	// lastWriter maps a wire to the last output node applied on it.
	lastWriter map[ir.Wire]ir.NodeRef
	// fastPath holds input nodes that take the fast path.
	fastPath map[ir.NodeRef]bool
}

// frame is one graph being rebuilt: the root graph or a nested block graph.
type frame struct {
	src *ir.Graph
	out *ir.Graph

	idle          map[int]int64
	blockDuration int64
	block         int

	// prev is the last input node visited in this frame.
	prev    ir.NodeRef
	hasPrev bool
}

// visitBlock pads src into a new graph over the given qubits. root marks the
// top-level graph, which is always closed with a barrier.
func (r *padRun) visitBlock(src *ir.Graph, qubits []int, root bool) (*ir.Graph, error) {
	out := src.EmptyLike(qubits, src.Clbits())
	out.Unit = r.unit
	f := &frame{src: src, out: out, idle: map[int]int64{}}

	for id := range BlockOrder(src) {
		if err := r.visitNode(f, src.Ref(id)); err != nil {
			return nil, err
		}
	}

	duration, block := f.blockDuration, f.block
	if err := r.terminate(f, duration, block); err != nil {
		return nil, err
	}

	// A trailing fast-path node had no barrier inline; anchor it here.
	force := f.hasPrev && r.fastPath[f.prev]
	if force || (root && r.needsClosingBarrier(out)) {
		if err := r.barrier(f, Slot{Block: block, Start: duration}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *padRun) needsClosingBarrier(out *ir.Graph) bool {
	if out.Len() == 0 {
		return false
	}
	last := out.Node(ir.NodeID(out.Len() - 1))
	return !(last.Kind == ir.KindBarrier && fullWidth(out, last))
}

func (r *padRun) visitNode(f *frame, ref ir.NodeRef) error {
	n := ref.Node()
	var err error
	switch n.Kind {
	case ir.KindIfElse:
		if r.fastPathEligible(f, n) {
			r.fastPath[ref] = true
		}
		err = r.visitNested(f, ref, n)
	case ir.KindControlFlow:
		err = r.visitNested(f, ref, n)
	case ir.KindDelay:
		err = r.visitDelay(f, ref, n)
	case ir.KindGate, ir.KindMeasure, ir.KindReset, ir.KindBarrier:
		err = r.visitGeneric(f, ref, n)
	default:
		err = NewUnsupportedKindError(f.src.Name, n.String(), n.Kind.String())
	}
	if err != nil {
		return err
	}
	f.prev = ref
	f.hasPrev = true
	return nil
}

func (r *padRun) slot(f *frame, ref ir.NodeRef) (Slot, error) {
	s, ok := r.sched[ref]
	if !ok {
		return Slot{}, NewUnscheduledNodeError(f.src.Name, ref.Node().String(), "node has no schedule entry")
	}
	return s, nil
}

// fastPathEligible reports whether a conditional can skip synchronization:
// every condition bit was last written by a measurement on exactly the
// node's qubits that is still in this frame's graph, and its blocks hold
// only unconditioned gates and delays.
func (r *padRun) fastPathEligible(f *frame, n *ir.Node) bool {
	if !n.Conditioned() {
		return false
	}
	for _, c := range n.Condition.Clbits {
		w, ok := r.lastWriter[ir.ClbitWire(c)]
		if !ok || w.Graph != f.out {
			return false
		}
		writer := w.Node()
		if writer.Kind != ir.KindMeasure || !sameSet(writer.Qubits, n.Qubits) {
			return false
		}
	}
	for _, body := range n.Blocks {
		for _, inner := range body.Nodes() {
			if inner.Conditioned() {
				return false
			}
			if inner.Kind != ir.KindGate && inner.Kind != ir.KindDelay {
				return false
			}
		}
	}
	return true
}

func (r *padRun) visitNested(f *frame, ref ir.NodeRef, n *ir.Node) error {
	s, err := r.slot(f, ref)
	if err != nil {
		return err
	}
	fast := r.fastPath[ref]

	end := s.Start
	if s.Block > f.block {
		end = f.blockDuration
	} else {
		end = max(end, f.blockDuration)
	}
	if err := r.terminate(f, end, f.block); err != nil {
		return err
	}
	f.block = s.Block
	if r.needsBarrier(f, ref, n) {
		if err := r.barrier(f, s); err != nil {
			return err
		}
	}

	bodies, ok := r.blocks[ref]
	if !ok || len(bodies) != len(n.Blocks) {
		return NewUnscheduledNodeError(f.src.Name, n.String(), "nested node has no scheduled block graphs")
	}
	padded := make([]*ir.Graph, len(bodies))
	for i, body := range bodies {
		qubits := f.out.Qubits()
		if fast {
			qubits = body.Qubits()
		}
		p, err := r.visitBlock(body, qubits, false)
		if err != nil {
			return fmt.Errorf("block %d of %s: %w", i, n.Name, err)
		}
		padded[i] = p
	}

	node := n.Clone()
	node.Blocks = padded
	if !fast {
		node.Qubits = f.out.Qubits()
	}
	newRef, err := r.apply(f, node, s)
	if err != nil {
		return err
	}
	r.outBlocks[newRef] = padded
	return nil
}

func (r *padRun) visitDelay(f *frame, ref ir.NodeRef, n *ir.Node) error {
	s, err := r.slot(f, ref)
	if err != nil {
		return err
	}
	if err := r.enterBlock(f, ref, n, s); err != nil {
		return err
	}
	d, err := r.res.padding(f.src, n)
	if err != nil {
		return err
	}
	f.blockDuration = max(f.blockDuration, s.Start+d)
	return nil
}

func (r *padRun) visitGeneric(f *frame, ref ir.NodeRef, n *ir.Node) error {
	s, err := r.slot(f, ref)
	if err != nil {
		return err
	}
	if err := r.enterBlock(f, ref, n, s); err != nil {
		return err
	}
	d, err := r.res.padding(f.src, n)
	if err != nil {
		return err
	}
	t1 := s.Start + d
	f.blockDuration = max(f.blockDuration, t1)

	for _, q := range n.Qubits {
		if s.Start > f.idle[q] {
			if err := r.pad(f, s.Block, q, f.idle[q], s.Start, n); err != nil {
				return err
			}
		}
		f.idle[q] = t1
	}

	newRef, err := r.apply(f, n.Clone(), s)
	if err != nil {
		return err
	}
	for _, q := range n.Qubits {
		r.lastWriter[ir.QubitWire(q)] = newRef
	}
	for _, c := range n.Clbits {
		r.lastWriter[ir.ClbitWire(c)] = newRef
	}
	return nil
}

// enterBlock closes the current block when s lies in a later one.
func (r *padRun) enterBlock(f *frame, ref ir.NodeRef, n *ir.Node, s Slot) error {
	if s.Block > f.block {
		if err := r.terminate(f, f.blockDuration, f.block); err != nil {
			return err
		}
		if r.needsBarrier(f, ref, n) {
			if err := r.barrier(f, s); err != nil {
				return err
			}
		}
	}
	f.block = s.Block
	return nil
}

// terminate fills every qubit of the frame up to duration and resets the
// block-local idle tracking.
func (r *padRun) terminate(f *frame, duration int64, block int) error {
	f.blockDuration = 0
	for _, q := range f.out.Qubits() {
		if duration > f.idle[q] {
			if err := r.pad(f, block, q, f.idle[q], duration, nil); err != nil {
				return err
			}
		}
	}
	f.idle = map[int]int64{}
	return nil
}

func (r *padRun) pad(f *frame, block, qubit int, start, end int64, next *ir.Node) error {
	gap := Gap{Block: block, Qubit: qubit, Start: start, End: end, Next: next}
	if id, ok := f.out.Last(ir.QubitWire(qubit)); ok {
		gap.Prev = f.out.Node(id)
	}
	e := &Emitter{run: r, frame: f, block: block}
	if err := r.policy.Pad(e, gap); err != nil {
		return fmt.Errorf("pad q%d [%d, %d) in block %d: %w", qubit, start, end, block, err)
	}
	return nil
}

// needsBarrier reports whether a block-terminating barrier must precede n.
// It is omitted at the start of a frame, between two nested-block nodes,
// next to a node that already spans every qubit, and before a fast-path
// node.
func (r *padRun) needsBarrier(f *frame, ref ir.NodeRef, n *ir.Node) bool {
	if !f.hasPrev {
		return false
	}
	prev := f.prev.Node()
	if prev.Kind.Nested() && n.Kind.Nested() {
		return false
	}
	if r.widened(f, f.prev, prev) || terminating(f.out, n) {
		return false
	}
	return !r.fastPath[ref]
}

// terminating reports whether n is a barrier or nested-block node that
// already spans every qubit of g.
func terminating(g *ir.Graph, n *ir.Node) bool {
	return (n.Kind == ir.KindBarrier || n.Kind.Nested()) && fullWidth(g, n)
}

// widened reports whether a visited node spans every qubit of the frame in
// the output: nested-block nodes off the fast path are re-attached to all
// qubits.
func (r *padRun) widened(f *frame, ref ir.NodeRef, n *ir.Node) bool {
	if n.Kind.Nested() && !r.fastPath[ref] {
		return true
	}
	return terminating(f.out, n)
}

func (r *padRun) barrier(f *frame, s Slot) error {
	_, err := r.apply(f, ir.Barrier(f.out.Qubits()...), s)
	return err
}

// apply appends n to the frame's output graph and records its slot.
func (r *padRun) apply(f *frame, n ir.Node, s Slot) (ir.NodeRef, error) {
	id, err := f.out.Apply(n)
	if err != nil {
		return ir.NodeRef{}, fmt.Errorf("pad %s: %w", f.src.Name, err)
	}
	ref := f.out.Ref(id)
	r.outSched[ref] = s
	return ref, nil
}

func fullWidth(g *ir.Graph, n *ir.Node) bool {
	seen := map[int]bool{}
	for _, q := range n.Qubits {
		if g.HasWire(ir.QubitWire(q)) {
			seen[q] = true
		}
	}
	return len(seen) == g.NumQubits()
}

func sameSet(a, b []int) bool {
	sa := map[int]bool{}
	for _, x := range a {
		sa[x] = true
	}
	sb := map[int]bool{}
	for _, x := range b {
		sb[x] = true
	}
	if len(sa) != len(sb) {
		return false
	}
	for x := range sa {
		if !sb[x] {
			return false
		}
	}
	return true
}
