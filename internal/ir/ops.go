package ir

// Gate returns a plain gate node on the given qubits.
func Gate(name string, qubits ...int) Node {
	return Node{Kind: KindGate, Name: name, Qubits: qubits}
}

// ParamGate returns a parameterized gate node.
func ParamGate(name string, params []float64, qubits ...int) Node {
	return Node{Kind: KindGate, Name: name, Qubits: qubits, Params: params}
}

// Measure returns a measurement of qubit q into clbit c.
func Measure(q, c int) Node {
	return Node{Kind: KindMeasure, Name: "measure", Qubits: []int{q}, Clbits: []int{c}}
}

// Reset returns a reset of the given qubits.
func Reset(qubits ...int) Node {
	return Node{Kind: KindReset, Name: "reset", Qubits: qubits}
}

// Delay returns an idle-fill instruction of ticks on qubit q.
func Delay(q int, ticks int64) Node {
	return Node{Kind: KindDelay, Name: "delay", Qubits: []int{q}, Duration: Ticks(ticks)}
}

// Barrier returns a synchronization marker across the given qubits.
func Barrier(qubits ...int) Node {
	return Node{Kind: KindBarrier, Name: "barrier", Qubits: qubits, Duration: Ticks(0)}
}

// IfElse returns a two-branch conditional on the given qubits. elseBody may
// be nil.
func IfElse(cond Condition, qubits, clbits []int, thenBody, elseBody *Graph) Node {
	blocks := []*Graph{thenBody}
	if elseBody != nil {
		blocks = append(blocks, elseBody)
	}
	return Node{
		Kind:      KindIfElse,
		Name:      "if_else",
		Qubits:    qubits,
		Clbits:    clbits,
		Condition: &cond,
		Blocks:    blocks,
	}
}

// If is the common single-bit form of IfElse with no else branch.
func If(clbit int, value int64, qubits []int, body *Graph) Node {
	return IfElse(Condition{Clbits: []int{clbit}, Value: value}, qubits, nil, body, nil)
}

// CIf attaches a classical condition to n and returns it.
func CIf(n Node, clbit int, value int64) Node {
	n.Condition = &Condition{Clbits: []int{clbit}, Value: value}
	return n
}
