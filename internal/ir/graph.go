package ir

import (
	"fmt"
	"maps"
	"slices"
)

// Graph is a DAG of operations with per-wire data dependencies.
//
// Every wire has implicit input and output sentinels: a node with no
// predecessor on a wire follows the input sentinel, and the last node on a
// wire precedes the output sentinel.
type Graph struct {
	Name         string
	Metadata     map[string]string
	Unit         string
	GlobalPhase  float64
	Calibrations map[CalibrationKey]int64
	Registers    []Register

	qubits []int
	clbits []int
	hasQ   map[int]bool
	hasC   map[int]bool

	nodes []*Node
	wires map[Wire][]NodeID
	// pos[id][w] is the index of node id inside wires[w].
	pos []map[Wire]int
}

// New creates a root graph over one quantum register "q" of numQubits wires
// and one classical register "c" of numClbits wires.
func New(name string, numQubits, numClbits int) *Graph {
	g := NewBlock(name, seq(numQubits), seq(numClbits))
	g.Registers = append(g.Registers, Register{Name: "q", Class: Quantum, Size: numQubits})
	if numClbits > 0 {
		g.Registers = append(g.Registers, Register{Name: "c", Class: Classical, Size: numClbits})
	}
	return g
}

// NewBlock creates a graph over an explicit set of physical wires with no
// registers. Nested block graphs are built this way.
func NewBlock(name string, qubits, clbits []int) *Graph {
	g := &Graph{
		Name:         name,
		Metadata:     map[string]string{},
		Unit:         "dt",
		Calibrations: map[CalibrationKey]int64{},
		wires:        map[Wire][]NodeID{},
		hasQ:         map[int]bool{},
		hasC:         map[int]bool{},
	}
	for _, q := range qubits {
		g.AddQubit(q)
	}
	for _, c := range clbits {
		g.AddClbit(c)
	}
	return g
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// AddQubit adds a quantum wire. Adding an existing wire is a no-op.
func (g *Graph) AddQubit(q int) {
	if g.hasQ[q] {
		return
	}
	g.hasQ[q] = true
	g.qubits = append(g.qubits, q)
}

// AddClbit adds a classical wire. Adding an existing wire is a no-op.
func (g *Graph) AddClbit(c int) {
	if g.hasC[c] {
		return
	}
	g.hasC[c] = true
	g.clbits = append(g.clbits, c)
}

// Qubits returns the graph's quantum wires in declaration order.
func (g *Graph) Qubits() []int { return slices.Clone(g.qubits) }

// Clbits returns the graph's classical wires in declaration order.
func (g *Graph) Clbits() []int { return slices.Clone(g.clbits) }

// NumQubits returns the number of quantum wires.
func (g *Graph) NumQubits() int { return len(g.qubits) }

// HasWire reports whether w belongs to the graph.
func (g *Graph) HasWire(w Wire) bool {
	if w.Class == Classical {
		return g.hasC[w.Index]
	}
	return g.hasQ[w.Index]
}

// Len returns the number of operation nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the node with the given id, or nil if out of range.
func (g *Graph) Node(id NodeID) *Node {
	if int(id) < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// Contains reports whether id addresses a node of this graph.
func (g *Graph) Contains(id NodeID) bool { return g.Node(id) != nil }

// Ref returns the stable handle of node id.
func (g *Graph) Ref(id NodeID) NodeRef { return NodeRef{Graph: g, ID: id} }

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node { return slices.Clone(g.nodes) }

// Apply appends an operation at the back of every wire it touches and
// returns its id. The node is copied; its ID field is overwritten.
func (g *Graph) Apply(n Node) (NodeID, error) {
	if !n.Kind.Valid() {
		return 0, fmt.Errorf("apply %s: unknown operation kind %d", n.Name, int(n.Kind))
	}
	wires := n.Wires()
	for _, w := range wires {
		if !g.HasWire(w) {
			return 0, fmt.Errorf("apply %s: wire %s not in graph %q", n.Name, w, g.Name)
		}
	}

	node := n.Clone()
	node.ID = NodeID(len(g.nodes))
	g.nodes = append(g.nodes, &node)

	positions := make(map[Wire]int, len(wires))
	for _, w := range wires {
		positions[w] = len(g.wires[w])
		g.wires[w] = append(g.wires[w], node.ID)
	}
	g.pos = append(g.pos, positions)
	return node.ID, nil
}

// MustApply is like Apply but panics on error.
// Use only in tests or when inputs are known to be valid.
func (g *Graph) MustApply(n Node) NodeID {
	id, err := g.Apply(n)
	if err != nil {
		panic(err)
	}
	return id
}

// WireOps returns the nodes on wire w in order.
func (g *Graph) WireOps(w Wire) []NodeID { return slices.Clone(g.wires[w]) }

// Last returns the node immediately before w's output sentinel. ok is false
// when the wire is empty, i.e. the predecessor is the input sentinel.
func (g *Graph) Last(w Wire) (NodeID, bool) {
	ops := g.wires[w]
	if len(ops) == 0 {
		return 0, false
	}
	return ops[len(ops)-1], true
}

// Predecessors returns the distinct operation nodes immediately before id on
// any of its wires, in ascending id order.
func (g *Graph) Predecessors(id NodeID) []NodeID {
	return g.neighbors(id, -1)
}

// Successors returns the distinct operation nodes immediately after id on
// any of its wires, in ascending id order.
func (g *Graph) Successors(id NodeID) []NodeID {
	return g.neighbors(id, 1)
}

func (g *Graph) neighbors(id NodeID, step int) []NodeID {
	if !g.Contains(id) {
		return nil
	}
	set := map[NodeID]bool{}
	for w, p := range g.pos[id] {
		ops := g.wires[w]
		if j := p + step; j >= 0 && j < len(ops) {
			set[ops[j]] = true
		}
	}
	return slices.Sorted(maps.Keys(set))
}

// Descendants returns every node reachable from id, in ascending id order.
func (g *Graph) Descendants(id NodeID) []NodeID {
	seen := map[NodeID]bool{}
	stack := g.Successors(id)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[n] {
			continue
		}
		seen[n] = true
		stack = append(stack, g.Successors(n)...)
	}
	return slices.Sorted(maps.Keys(seen))
}

// TopologicalOrder returns the node ids in dependency order. Ties are broken
// by insertion order, which makes the order unique and equal to insertion
// order.
func (g *Graph) TopologicalOrder() []NodeID {
	out := make([]NodeID, len(g.nodes))
	for i := range out {
		out[i] = NodeID(i)
	}
	return out
}

// EmptyLike returns a graph with g's metadata and registers over the given
// wires, and no operations.
func (g *Graph) EmptyLike(qubits, clbits []int) *Graph {
	out := NewBlock(g.Name, qubits, clbits)
	out.Metadata = maps.Clone(g.Metadata)
	out.Unit = g.Unit
	out.GlobalPhase = g.GlobalPhase
	out.Calibrations = maps.Clone(g.Calibrations)
	out.Registers = slices.Clone(g.Registers)
	return out
}

// Calibration returns the calibrated duration of n on this graph, if any.
func (g *Graph) Calibration(n *Node) (int64, bool) {
	if len(g.Calibrations) == 0 {
		return 0, false
	}
	d, ok := g.Calibrations[CalKey(n.Name, n.Qubits, n.Params)]
	return d, ok
}

// IsPhysical reports whether the graph is laid out over a single flat
// physical quantum register named "q".
func (g *Graph) IsPhysical() bool {
	var quantum []Register
	for _, r := range g.Registers {
		if r.Class == Quantum {
			quantum = append(quantum, r)
		}
	}
	return len(quantum) == 1 && quantum[0].Name == "q"
}
