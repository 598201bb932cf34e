package circuit

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/blocksched/internal/ir"
)

// Build converts the document into a root graph. Nested bodies become block
// graphs over the wires of the operation that holds them, plus its
// condition bits.
func (d *Document) Build() (*ir.Graph, error) {
	if err := Validate(d); err != nil {
		return nil, err
	}

	g := ir.New(d.Name, d.Qubits, d.Clbits)
	for _, r := range d.Registers {
		g.Registers = append(g.Registers, ir.Register{Name: r.Name, Class: ir.Quantum, Size: r.Size})
	}
	if d.Unit != "" {
		g.Unit = d.Unit
	}
	maps.Copy(g.Metadata, d.Metadata)
	for _, c := range d.Calibrations {
		g.Calibrations[ir.CalKey(c.Name, c.Qubits, c.Params)] = c.Duration
	}

	if err := buildOps(g, "ops", d.Ops); err != nil {
		return nil, err
	}
	return g, nil
}

func buildOps(g *ir.Graph, field string, ops []Op) error {
	for i := range ops {
		path := fmt.Sprintf("%s[%d]", field, i)
		n, err := buildOp(g, path, &ops[i])
		if err != nil {
			return err
		}
		if _, err := g.Apply(n); err != nil {
			return &DocumentError{Field: path, Message: err.Error(), Err: err}
		}
	}
	return nil
}

type body struct {
	name string
	ops  []Op
}

func buildOp(g *ir.Graph, field string, op *Op) (ir.Node, error) {
	n := ir.Node{
		Kind:   ir.KindForName(op.Op),
		Name:   op.Op,
		Qubits: slices.Clone(op.Qubits),
		Clbits: slices.Clone(op.Clbits),
		Params: slices.Clone(op.Params),
	}
	if n.Kind == ir.KindBarrier && len(n.Qubits) == 0 {
		n.Qubits = g.Qubits()
	}
	switch {
	case op.Duration != nil:
		n.Duration = ir.Ticks(*op.Duration)
	case op.DurationParam != "":
		n.Duration = ir.Symbolic(op.DurationParam)
	}
	if op.If != nil {
		n.Condition = &ir.Condition{Clbits: slices.Clone(op.If.Clbits), Value: op.If.Value}
	}

	var bodies []body
	switch n.Kind {
	case ir.KindIfElse:
		bodies = append(bodies, body{"then", op.Then})
		if len(op.Else) > 0 {
			bodies = append(bodies, body{"else", op.Else})
		}
	case ir.KindControlFlow:
		bodies = append(bodies, body{"body", op.Body})
	}

	for _, b := range bodies {
		clbits := slices.Clone(n.Clbits)
		if n.Condition != nil {
			for _, c := range n.Condition.Clbits {
				if !slices.Contains(clbits, c) {
					clbits = append(clbits, c)
				}
			}
		}
		block := ir.NewBlock(fmt.Sprintf("%s.%s", g.Name, b.name), n.Qubits, clbits)
		block.Unit = g.Unit
		if err := buildOps(block, field+"."+b.name, b.ops); err != nil {
			return ir.Node{}, err
		}
		n.Blocks = append(n.Blocks, block)
	}
	return n, nil
}

// FromGraph converts a graph back into a document. Durations are not part
// of a graph and are left empty; explicit node durations, including those
// of padding delays, are kept.
func FromGraph(g *ir.Graph) *Document {
	d := &Document{
		Name:   g.Name,
		Qubits: span(g.Qubits()),
		Clbits: span(g.Clbits()),
		Unit:   g.Unit,
		Ops:    opsFromGraph(g),
	}
	if len(g.Metadata) > 0 {
		d.Metadata = maps.Clone(g.Metadata)
	}
	for _, r := range g.Registers {
		if r.Class == ir.Quantum && r.Name != "q" {
			d.Registers = append(d.Registers, Register{Name: r.Name, Size: r.Size})
		}
	}

	keys := slices.SortedFunc(maps.Keys(g.Calibrations), func(a, b ir.CalibrationKey) int {
		return strings.Compare(a.Name+a.Qubits+a.Params, b.Name+b.Qubits+b.Params)
	})
	for _, k := range keys {
		d.Calibrations = append(d.Calibrations, Calibration{
			Name:     k.Name,
			Qubits:   parseInts(k.Qubits),
			Params:   parseFloats(k.Params),
			Duration: g.Calibrations[k],
		})
	}
	return d
}

func opsFromGraph(g *ir.Graph) []Op {
	var ops []Op
	for _, n := range g.Nodes() {
		op := Op{
			Op:     n.Name,
			Qubits: slices.Clone(n.Qubits),
			Clbits: slices.Clone(n.Clbits),
			Params: slices.Clone(n.Params),
		}
		if n.Duration != nil && n.Kind != ir.KindBarrier {
			if n.Duration.Bound() {
				ticks := n.Duration.Ticks
				op.Duration = &ticks
			} else {
				op.DurationParam = n.Duration.Symbol
			}
		}
		if n.Conditioned() {
			op.If = &Condition{Clbits: slices.Clone(n.Condition.Clbits), Value: n.Condition.Value}
		}
		switch n.Kind {
		case ir.KindIfElse:
			if len(n.Blocks) > 0 {
				op.Then = opsFromGraph(n.Blocks[0])
			}
			if len(n.Blocks) > 1 {
				op.Else = opsFromGraph(n.Blocks[1])
			}
		case ir.KindControlFlow:
			if len(n.Blocks) > 0 {
				op.Body = opsFromGraph(n.Blocks[0])
			}
		}
		ops = append(ops, op)
	}
	return ops
}

// span returns one past the highest index, the register size needed to hold
// every wire.
func span(wires []int) int {
	if len(wires) == 0 {
		return 0
	}
	return slices.Max(wires) + 1
}

// parseInts reads the "[0,1]" form produced by ir.CalKey.
func parseInts(s string) []int {
	s = strings.Trim(s, "[]")
	if s == "" {
		return []int{}
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		if v, err := strconv.Atoi(part); err == nil {
			out = append(out, v)
		}
	}
	return out
}

func parseFloats(s string) []float64 {
	if s == "" {
		return nil
	}
	var out []float64
	for _, part := range strings.Split(s, ",") {
		if v, err := strconv.ParseFloat(part, 64); err == nil {
			out = append(out, v)
		}
	}
	return out
}
