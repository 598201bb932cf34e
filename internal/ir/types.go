package ir

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Kind is the closed set of operation kinds the passes understand.
type Kind int

const (
	// KindGate is a plain unitary gate.
	KindGate Kind = iota
	// KindMeasure reads a qubit into a classical bit.
	KindMeasure
	// KindReset returns a qubit to |0>. Hardware implements it as a measure
	// followed by a conditional flip, so it ends a deterministic block.
	KindReset
	// KindDelay represents idle time on its wires, not real work.
	KindDelay
	// KindBarrier synchronizes its wires. Zero duration.
	KindBarrier
	// KindIfElse is a two-branch conditional holding nested block graphs.
	KindIfElse
	// KindControlFlow is any other construct holding nested block graphs
	// (loops, switch bodies).
	KindControlFlow
)

var kindNames = map[Kind]string{
	KindGate:        "gate",
	KindMeasure:     "measure",
	KindReset:       "reset",
	KindDelay:       "delay",
	KindBarrier:     "barrier",
	KindIfElse:      "if_else",
	KindControlFlow: "control_flow",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// Nested reports whether nodes of this kind carry block graphs.
func (k Kind) Nested() bool {
	return k == KindIfElse || k == KindControlFlow
}

// Grouping reports whether the kind is grouped into simultaneous readout
// (measure and reset).
func (k Kind) Grouping() bool {
	return k == KindMeasure || k == KindReset
}

// Conditionable reports whether a node of this kind may carry a classical
// condition.
func (k Kind) Conditionable() bool {
	switch k {
	case KindGate, KindDelay, KindIfElse, KindControlFlow:
		return true
	default:
		return false
	}
}

// KindForName maps an instruction name to its kind. Names not listed are
// plain gates.
func KindForName(name string) Kind {
	switch name {
	case "measure":
		return KindMeasure
	case "reset":
		return KindReset
	case "delay":
		return KindDelay
	case "barrier":
		return KindBarrier
	case "if_else":
		return KindIfElse
	case "for_loop", "while_loop", "switch_case", "box":
		return KindControlFlow
	default:
		return KindGate
	}
}

// WireClass distinguishes quantum from classical wires.
type WireClass int

const (
	Quantum WireClass = iota
	Classical
)

// Wire is a quantum or classical data line. Index is the physical index in
// the root graph; nested block graphs reuse root indices.
type Wire struct {
	Class WireClass
	Index int
}

// QubitWire returns the quantum wire with index i.
func QubitWire(i int) Wire { return Wire{Class: Quantum, Index: i} }

// ClbitWire returns the classical wire with index i.
func ClbitWire(i int) Wire { return Wire{Class: Classical, Index: i} }

func (w Wire) String() string {
	if w.Class == Classical {
		return "c" + strconv.Itoa(w.Index)
	}
	return "q" + strconv.Itoa(w.Index)
}

// Duration is an instruction length in ticks. Symbol is non-empty while the
// length is still parametric and cannot be scheduled.
type Duration struct {
	Ticks  int64
	Symbol string
}

// Bound reports whether the duration is a concrete number of ticks.
func (d Duration) Bound() bool { return d.Symbol == "" }

func (d Duration) String() string {
	if !d.Bound() {
		return d.Symbol
	}
	return strconv.FormatInt(d.Ticks, 10)
}

// Ticks returns a bound duration of n ticks.
func Ticks(n int64) *Duration { return &Duration{Ticks: n} }

// Symbolic returns an unbound duration named sym.
func Symbolic(sym string) *Duration { return &Duration{Symbol: sym} }

// Condition gates a node on the value of classical bits.
type Condition struct {
	Clbits []int `json:"clbits"`
	Value  int64 `json:"value"`
}

// NodeID addresses a node inside one Graph's arena.
type NodeID int

// Node is one operation instance.
type Node struct {
	ID        NodeID
	Kind      Kind
	Name      string
	Qubits    []int
	Clbits    []int
	Params    []float64
	Condition *Condition
	// Blocks holds nested block graphs for KindIfElse (then, else) and
	// KindControlFlow (body).
	Blocks []*Graph
	// Duration, when set, overrides the duration table.
	Duration *Duration
}

// Conditioned reports whether the node reads classical bits before running.
func (n *Node) Conditioned() bool {
	return n.Condition != nil && len(n.Condition.Clbits) > 0
}

// Wires returns every wire the node occupies: qubits, clbits and condition
// bits, deduplicated, in that order.
func (n *Node) Wires() []Wire {
	out := make([]Wire, 0, len(n.Qubits)+len(n.Clbits))
	seen := make(map[Wire]bool, cap(out))
	add := func(w Wire) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	for _, q := range n.Qubits {
		add(QubitWire(q))
	}
	for _, c := range n.Clbits {
		add(ClbitWire(c))
	}
	if n.Condition != nil {
		for _, c := range n.Condition.Clbits {
			add(ClbitWire(c))
		}
	}
	return out
}

// Clone returns a deep copy of the node. Block graphs are shared, not
// copied.
func (n Node) Clone() Node {
	n.Qubits = slices.Clone(n.Qubits)
	n.Clbits = slices.Clone(n.Clbits)
	n.Params = slices.Clone(n.Params)
	n.Blocks = slices.Clone(n.Blocks)
	if n.Condition != nil {
		c := *n.Condition
		c.Clbits = slices.Clone(c.Clbits)
		n.Condition = &c
	}
	if n.Duration != nil {
		d := *n.Duration
		n.Duration = &d
	}
	return n
}

// String renders the node as name(params) q[..] c[..].
func (n *Node) String() string {
	var b strings.Builder
	b.WriteString(n.Name)
	if len(n.Params) > 0 {
		b.WriteByte('(')
		b.WriteString(FormatParams(n.Params))
		b.WriteByte(')')
	}
	if n.Kind == KindDelay && n.Duration != nil {
		b.WriteByte('[')
		b.WriteString(n.Duration.String())
		b.WriteByte(']')
	}
	b.WriteString(" q")
	b.WriteString(formatInts(n.Qubits))
	if len(n.Clbits) > 0 {
		b.WriteString(" c")
		b.WriteString(formatInts(n.Clbits))
	}
	if n.Conditioned() {
		fmt.Fprintf(&b, " if c%s==%d", formatInts(n.Condition.Clbits), n.Condition.Value)
	}
	return b.String()
}

// FormatParams renders parameters with the shortest exact representation.
func FormatParams(params []float64) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = strconv.FormatFloat(p, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func formatInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// Register is a named run of wires on the root graph.
type Register struct {
	Name  string    `json:"name"`
	Class WireClass `json:"class"`
	Size  int       `json:"size"`
}

// CalibrationKey identifies a device-specific calibration of an instruction
// on given qubits with given parameters.
type CalibrationKey struct {
	Name   string
	Qubits string
	Params string
}

// CalKey builds the calibration key for name on qubits with params.
func CalKey(name string, qubits []int, params []float64) CalibrationKey {
	return CalibrationKey{Name: name, Qubits: formatInts(qubits), Params: FormatParams(params)}
}

// NodeRef is a stable handle for a node across the graphs of one program.
// Passes key their bookkeeping maps by NodeRef so nested block graphs with
// their own arenas never collide.
type NodeRef struct {
	Graph *Graph
	ID    NodeID
}

// Node resolves the reference.
func (r NodeRef) Node() *Node { return r.Graph.Node(r.ID) }

func (r NodeRef) String() string {
	name := "<nil>"
	if r.Graph != nil {
		name = r.Graph.Name
	}
	return fmt.Sprintf("%s#%d", name, r.ID)
}
