package passes

import (
	"fmt"
	"math"
	"slices"

	"github.com/roach88/blocksched/internal/durations"
	"github.com/roach88/blocksched/internal/ir"
)

// Gap is an idle interval on one qubit that a Policy must fill.
type Gap struct {
	Block int
	Qubit int
	Start int64
	End   int64

	// Next is the node that follows the gap, nil at a block end.
	Next *ir.Node

	// Prev is the last node on the qubit in the graph being built, nil when
	// the qubit has no node yet.
	Prev *ir.Node
}

// Len returns the length of the gap in ticks.
func (g Gap) Len() int64 { return g.End - g.Start }

// Policy fills idle gaps. Pad must emit instructions whose lengths sum to
// exactly gap.Len(); the padder does not check this.
type Policy interface {
	Name() string
	Pad(e *Emitter, gap Gap) error
}

// Emitter appends scheduled instructions to the graph being padded.
type Emitter struct {
	run   *padRun
	frame *frame
	block int
}

// Apply appends n at start within the gap's block.
func (e *Emitter) Apply(n ir.Node, start int64) error {
	_, err := e.run.apply(e.frame, n, Slot{Block: e.block, Start: start})
	return err
}

// Delay appends an idle-fill instruction of ticks on qubit at start.
func (e *Emitter) Delay(qubit int, start, ticks int64) error {
	return e.Apply(ir.Delay(qubit, ticks), start)
}

// DelayPolicy fills every gap with a single delay.
type DelayPolicy struct{}

// Name implements Policy.
func (DelayPolicy) Name() string { return "delay" }

// Pad implements Policy.
func (DelayPolicy) Pad(e *Emitter, gap Gap) error {
	return e.Delay(gap.Qubit, gap.Start, gap.Len())
}

// Extra slack distributions for DynamicalDecoupling.
const (
	SlackMiddle = "middle"
	SlackEdges  = "edges"
)

// DynamicalDecoupling fills gaps with a sequence of gates separated by
// delays. Gaps too short for the sequence, gaps on qubits outside the
// selected set, and (by default) gaps right after a reset or at the start of
// a qubit get a plain delay.
type DynamicalDecoupling struct {
	durations    durations.Provider
	sequence     []ir.Node
	qubits       map[int]bool
	spacing      []float64
	skipReset    bool
	alignment    int64
	distribution string
}

// DDOption configures a DynamicalDecoupling policy.
type DDOption func(*DynamicalDecoupling)

// WithQubits restricts decoupling to the given qubits.
func WithQubits(qubits ...int) DDOption {
	return func(d *DynamicalDecoupling) {
		d.qubits = map[int]bool{}
		for _, q := range qubits {
			d.qubits[q] = true
		}
	}
}

// WithSpacing sets the fraction of the free time placed before each gate and
// after the last one. It must sum to 1 and have one entry per gate, plus an
// optional trailing entry.
func WithSpacing(spacing ...float64) DDOption {
	return func(d *DynamicalDecoupling) {
		d.spacing = slices.Clone(spacing)
	}
}

// WithSkipResetQubits controls whether qubits that were just reset or were
// never touched are left undecoupled. Defaults to true.
func WithSkipResetQubits(skip bool) DDOption {
	return func(d *DynamicalDecoupling) {
		d.skipReset = skip
	}
}

// WithPulseAlignment rounds every delay down to a multiple of ticks.
func WithPulseAlignment(ticks int64) DDOption {
	return func(d *DynamicalDecoupling) {
		d.alignment = ticks
	}
}

// WithExtraSlackDistribution sets where rounding leftovers go: SlackMiddle
// (the default) or SlackEdges.
func WithExtraSlackDistribution(mode string) DDOption {
	return func(d *DynamicalDecoupling) {
		d.distribution = mode
	}
}

// NewDynamicalDecoupling creates a decoupling policy for sequence. Gate
// lengths are looked up in provider per qubit; the qubits of the sequence
// nodes are ignored.
func NewDynamicalDecoupling(provider durations.Provider, sequence []ir.Node, opts ...DDOption) (*DynamicalDecoupling, error) {
	d := &DynamicalDecoupling{
		durations:    provider,
		sequence:     slices.Clone(sequence),
		skipReset:    true,
		alignment:    1,
		distribution: SlackMiddle,
	}
	for _, opt := range opts {
		opt(d)
	}

	n := len(d.sequence)
	if n == 0 {
		return nil, fmt.Errorf("dynamical decoupling: empty sequence")
	}
	if d.alignment <= 0 {
		return nil, fmt.Errorf("dynamical decoupling: pulse alignment must be positive, got %d", d.alignment)
	}
	if d.distribution != SlackMiddle && d.distribution != SlackEdges {
		return nil, fmt.Errorf("dynamical decoupling: unknown slack distribution %q", d.distribution)
	}
	for _, g := range d.sequence {
		if g.Kind != ir.KindGate {
			return nil, fmt.Errorf("dynamical decoupling: %s is not a gate", g.Name)
		}
	}
	if ok, identity := pauliProduct(d.sequence); ok && !identity {
		return nil, fmt.Errorf("dynamical decoupling: sequence %s does not compose to the identity", sequenceNames(d.sequence))
	}

	if d.spacing == nil {
		d.spacing = balancedSpacing(n)
	}
	if len(d.spacing) == n {
		d.spacing = append(d.spacing, 0)
	}
	if len(d.spacing) != n+1 {
		return nil, fmt.Errorf("dynamical decoupling: spacing has %d entries for %d gates", len(d.spacing), n)
	}
	var sum float64
	for _, s := range d.spacing {
		if s < 0 {
			return nil, fmt.Errorf("dynamical decoupling: negative spacing %g", s)
		}
		sum += s
	}
	if math.Abs(sum-1) > 1e-6 {
		return nil, fmt.Errorf("dynamical decoupling: spacing sums to %g, want 1", sum)
	}
	return d, nil
}

// pauliProduct multiplies a sequence of Pauli gates, ignoring phase. ok is
// false when any gate is not a parameterless Pauli, in which case the product
// is not checked.
func pauliProduct(sequence []ir.Node) (ok, identity bool) {
	var x, z bool
	for _, g := range sequence {
		if len(g.Params) > 0 {
			return false, false
		}
		switch g.Name {
		case "id", "i":
		case "x":
			x = !x
		case "z":
			z = !z
		case "y":
			x, z = !x, !z
		default:
			return false, false
		}
	}
	return true, !x && !z
}

func sequenceNames(sequence []ir.Node) []string {
	names := make([]string, len(sequence))
	for i, g := range sequence {
		names[i] = g.Name
	}
	return names
}

// balancedSpacing puts half a slot at both ends: 1/2n, 1/n, ..., 1/n, 1/2n.
func balancedSpacing(n int) []float64 {
	mid := 1 / float64(n)
	out := make([]float64, n+1)
	for i := range out {
		out[i] = mid
	}
	out[0] = mid / 2
	out[n] = mid / 2
	return out
}

// Name implements Policy.
func (d *DynamicalDecoupling) Name() string { return "dd" }

// Pad implements Policy.
func (d *DynamicalDecoupling) Pad(e *Emitter, gap Gap) error {
	if d.qubits != nil && !d.qubits[gap.Qubit] {
		return e.Delay(gap.Qubit, gap.Start, gap.Len())
	}
	if d.skipReset && (gap.Prev == nil || gap.Prev.Kind == ir.KindReset) {
		return e.Delay(gap.Qubit, gap.Start, gap.Len())
	}

	lengths := make([]int64, len(d.sequence))
	var busy int64
	for i, g := range d.sequence {
		l, err := d.durations.Lookup(g.Name, []int{gap.Qubit}, g.Params)
		if err != nil {
			return fmt.Errorf("dynamical decoupling gate %s on q%d: %w", g.Name, gap.Qubit, err)
		}
		lengths[i] = l
		busy += l
	}

	slack := gap.Len() - busy
	if slack <= 0 {
		return e.Delay(gap.Qubit, gap.Start, gap.Len())
	}

	taus := d.taus(slack)
	t := gap.Start
	for i, g := range d.sequence {
		if taus[i] > 0 {
			if err := e.Delay(gap.Qubit, t, taus[i]); err != nil {
				return err
			}
			t += taus[i]
		}
		gate := g.Clone()
		gate.Qubits = []int{gap.Qubit}
		if err := e.Apply(gate, t); err != nil {
			return err
		}
		t += lengths[i]
	}
	if last := taus[len(taus)-1]; last > 0 {
		return e.Delay(gap.Qubit, t, last)
	}
	return nil
}

// taus splits slack into the delays around the gates. Rounding leftovers go
// to the middle delay or are split between the first and last.
func (d *DynamicalDecoupling) taus(slack int64) []int64 {
	taus := make([]int64, len(d.spacing))
	var used int64
	for i, s := range d.spacing {
		taus[i] = d.constrain(float64(slack) * s)
		used += taus[i]
	}
	unused := slack - used
	last := len(taus) - 1

	switch d.distribution {
	case SlackEdges:
		begin := d.constrain(float64(unused) / 2)
		taus[0] += begin
		taus[last] += unused - begin
	default:
		toMiddle := d.constrain(float64(unused))
		taus[(len(taus)-1)/2] += toMiddle
		if rest := unused - toMiddle; rest != 0 {
			taus[last] += rest
		}
	}
	return taus
}

func (d *DynamicalDecoupling) constrain(v float64) int64 {
	return d.alignment * int64(math.Floor(v/float64(d.alignment)))
}
