package testutil

import (
	"math"

	"github.com/roach88/blocksched/internal/durations"
	"github.com/roach88/blocksched/internal/ir"
)

// StandardEntries is the duration table most scheduling tests run against.
// With measurement patching on, measure becomes 1000 and reset follows it.
func StandardEntries() []durations.Entry {
	return []durations.Entry{
		{Name: "x", Duration: 50},
		{Name: "y", Duration: 50},
		{Name: "h", Qubits: []int{0}, Duration: 50},
		{Name: "u", Duration: 100},
		{Name: "rx", Duration: 100},
		{Name: "cx", Qubits: []int{0, 1}, Duration: 700},
		{Name: "cx", Qubits: []int{1, 0}, Duration: 700},
		{Name: "cx", Qubits: []int{1, 2}, Duration: 200},
		{Name: "cx", Qubits: []int{2, 1}, Duration: 200},
		{Name: "cx", Qubits: []int{2, 3}, Duration: 300},
		{Name: "cx", Qubits: []int{3, 2}, Duration: 300},
		{Name: "measure", Duration: 840},
		{Name: "reset", Duration: 1340},
	}
}

// StandardDurations returns a patched table loaded with StandardEntries.
func StandardDurations(opts ...durations.Option) *durations.Table {
	t := durations.NewTable(opts...)
	if err := t.Update(StandardEntries(), 0); err != nil {
		panic(err)
	}
	return t
}

// GHZ4 builds h(0) followed by a cx ladder over four qubits.
func GHZ4() *ir.Graph {
	g := ir.New("ghz4", 4, 0)
	g.MustApply(ir.Gate("h", 0))
	g.MustApply(ir.Gate("cx", 0, 1))
	g.MustApply(ir.Gate("cx", 1, 2))
	g.MustApply(ir.Gate("cx", 2, 3))
	return g
}

// MidMeasure builds a three-qubit circuit with a measurement in the middle:
// cx(0,1) cx(1,2) u(pi,0,pi) q0, measure q2 -> c0, cx(1,2) cx(0,1).
func MidMeasure() *ir.Graph {
	g := ir.New("midmeas", 3, 1)
	g.MustApply(ir.Gate("cx", 0, 1))
	g.MustApply(ir.Gate("cx", 1, 2))
	g.MustApply(ir.ParamGate("u", []float64{math.Pi, 0, math.Pi}, 0))
	g.MustApply(ir.Measure(2, 0))
	g.MustApply(ir.Gate("cx", 1, 2))
	g.MustApply(ir.Gate("cx", 0, 1))
	return g
}

// FastPathIf builds x q2, measure q2 -> c0 and a conditional x on q2 reading
// c0, over three qubits.
func FastPathIf() *ir.Graph {
	g := ir.New("fastpath", 3, 1)
	g.MustApply(ir.Gate("x", 2))
	g.MustApply(ir.Measure(2, 0))
	body := ir.NewBlock("fastpath.then", []int{2}, nil)
	body.MustApply(ir.Gate("x", 2))
	g.MustApply(ir.If(0, 1, []int{2}, body))
	return g
}
