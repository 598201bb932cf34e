package render

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/blocksched/internal/ir"
	"github.com/roach88/blocksched/internal/passes"
)

// Renderer draws timelines.
type Renderer struct {
	color  bool
	delays bool
	st     styles
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithColor turns styling on or off. Defaults to on.
func WithColor(on bool) Option {
	return func(r *Renderer) {
		r.color = on
	}
}

// WithDelays controls whether delay instructions are drawn. Defaults to on.
func WithDelays(on bool) Option {
	return func(r *Renderer) {
		r.delays = on
	}
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{color: true, delays: true}
	for _, opt := range opts {
		opt(r)
	}
	if r.color {
		r.st = colorStyles()
	} else {
		r.st = plainStyles()
	}
	return r
}

// Timeline draws g and its nested block graphs using sched and blocks, as
// published by the scheduler or a padder. Nodes without a slot are skipped.
func (r *Renderer) Timeline(g *ir.Graph, sched passes.Schedule, blocks passes.BlockGraphs) string {
	var b strings.Builder
	title := fmt.Sprintf("%s [%s]", g.Name, unitOf(g))
	if r.color {
		b.WriteString(r.st.frame.Render(r.st.title.Render(title)))
	} else {
		b.WriteString(title)
	}
	b.WriteByte('\n')
	r.graph(&b, g, sched, blocks, "")
	return b.String()
}

func unitOf(g *ir.Graph) string {
	if g.Unit == "" {
		return "dt"
	}
	return g.Unit
}

func (r *Renderer) graph(b *strings.Builder, g *ir.Graph, sched passes.Schedule, blocks passes.BlockGraphs, indent string) {
	for _, block := range sched.Blocks(g) {
		r.block(b, g, sched, block, indent)
	}

	for _, n := range g.Nodes() {
		subs := blocks[g.Ref(n.ID)]
		for i, sub := range subs {
			head := fmt.Sprintf("%s%s (node %d block %d of %s)", indent+"  ", sub.Name, n.ID, i, g.Name)
			b.WriteString(r.st.subtitle.Render(head))
			b.WriteByte('\n')
			r.graph(b, sub, sched, blocks, indent+"  ")
		}
	}
}

type cell struct {
	text  string
	width int
}

// block draws one execution block of g as a grid of start-time columns by
// qubit lanes.
func (r *Renderer) block(b *strings.Builder, g *ir.Graph, sched passes.Schedule, block int, indent string) {
	qubits := g.Qubits()
	lanes := make([]map[int64]cell, len(qubits))
	var starts []int64

	for i, q := range qubits {
		lanes[i] = map[int64]cell{}
		for _, id := range g.WireOps(ir.QubitWire(q)) {
			slot, ok := sched[g.Ref(id)]
			if !ok || slot.Block != block {
				continue
			}
			n := g.Node(id)
			if n.Kind == ir.KindDelay && !r.delays {
				continue
			}
			// Zero-length nodes share a start with their successor.
			text := r.styled(n, Label(n))
			if prev, ok := lanes[i][slot.Start]; ok {
				text = prev.text + " " + text
			}
			lanes[i][slot.Start] = cell{text: text, width: lipgloss.Width(text)}
			starts = append(starts, slot.Start)
		}
	}
	slices.Sort(starts)
	starts = slices.Compact(starts)

	labelW := len("block ") + len(strconv.Itoa(block))
	for _, q := range qubits {
		labelW = max(labelW, len("  q")+len(strconv.Itoa(q)))
	}
	widths := make([]int, len(starts))
	for c, t := range starts {
		widths[c] = len(strconv.FormatInt(t, 10))
		for _, lane := range lanes {
			if x, ok := lane[t]; ok {
				widths[c] = max(widths[c], x.width)
			}
		}
	}

	row := func(label string, labelText string, cells func(c int) cell) {
		var line strings.Builder
		line.WriteString(indent)
		line.WriteString(labelText)
		line.WriteString(strings.Repeat(" ", labelW-len(label)))
		for c := range starts {
			x := cells(c)
			line.WriteString("  ")
			line.WriteString(x.text)
			line.WriteString(strings.Repeat(" ", widths[c]-x.width))
		}
		b.WriteString(strings.TrimRight(line.String(), " "))
		b.WriteByte('\n')
	}

	head := fmt.Sprintf("block %d", block)
	row(head, r.st.block.Render(head), func(c int) cell {
		s := strconv.FormatInt(starts[c], 10)
		return cell{text: r.st.time.Render(s), width: len(s)}
	})
	for i, q := range qubits {
		label := fmt.Sprintf("  q%d", q)
		row(label, "  "+r.st.lane.Render(label[2:]), func(c int) cell {
			return lanes[i][starts[c]]
		})
	}
}

func (r *Renderer) styled(n *ir.Node, text string) string {
	if n.Conditioned() {
		return r.st.cond.Render(text)
	}
	switch n.Kind {
	case ir.KindDelay:
		return r.st.delay.Render(text)
	case ir.KindMeasure, ir.KindReset:
		return r.st.measure.Render(text)
	case ir.KindBarrier:
		return r.st.barrier.Render(text)
	case ir.KindIfElse, ir.KindControlFlow:
		return r.st.nested.Render(text)
	default:
		return r.st.gate.Render(text)
	}
}

// Label is the compact form of n used in timeline cells: name, parameters,
// delay length, the qubits of multi-qubit operations after "@", measured
// clbits after "->" and a condition after "?".
//
//	h  cx@0,1  delay[500]  measure->c0  x?c0=1
func Label(n *ir.Node) string {
	var b strings.Builder
	b.WriteString(n.Name)
	if len(n.Params) > 0 {
		b.WriteByte('(')
		b.WriteString(ir.FormatParams(n.Params))
		b.WriteByte(')')
	}
	if n.Kind == ir.KindDelay && n.Duration != nil {
		fmt.Fprintf(&b, "[%s]", n.Duration)
	}
	if len(n.Qubits) > 1 {
		b.WriteByte('@')
		b.WriteString(joinInts(n.Qubits))
	}
	if n.Kind == ir.KindMeasure && len(n.Clbits) > 0 {
		b.WriteString("->c")
		b.WriteString(joinInts(n.Clbits))
	}
	if n.Conditioned() {
		fmt.Fprintf(&b, "?c%s=%d", joinInts(n.Condition.Clbits), n.Condition.Value)
	}
	return b.String()
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}
