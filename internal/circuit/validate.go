package circuit

import (
	"fmt"

	"github.com/roach88/blocksched/internal/durations"
	"github.com/roach88/blocksched/internal/ir"
)

// Validate checks a decoded document for structural errors that the
// decoders cannot catch: wire indices out of range, operations missing
// required parts, and nested bodies on operations that take none. It
// returns the first problem found.
func Validate(d *Document) error {
	if d.Name == "" {
		return fieldError("name", "name is required")
	}
	if d.Qubits < 1 {
		return fieldError("qubits", "at least one qubit is required, got %d", d.Qubits)
	}
	if d.Clbits < 0 {
		return fieldError("clbits", "must not be negative, got %d", d.Clbits)
	}
	if d.Unit != "" && d.Unit != durations.UnitDT && d.Unit != durations.UnitSeconds {
		return fieldError("unit", "unknown time unit %q", d.Unit)
	}
	for i, r := range d.Registers {
		field := fmt.Sprintf("registers[%d]", i)
		if r.Name == "" || r.Name == "q" {
			return fieldError(field, "register name must be set and differ from %q", "q")
		}
		if r.Size < 1 {
			return fieldError(field, "size must be positive, got %d", r.Size)
		}
	}
	for i, c := range d.Calibrations {
		field := fmt.Sprintf("calibrations[%d]", i)
		if c.Name == "" {
			return fieldError(field, "name is required")
		}
		if err := checkWires(field+".qubits", c.Qubits, d.Qubits); err != nil {
			return err
		}
		if c.Duration < 0 {
			return fieldError(field, "duration must not be negative")
		}
	}
	for i, e := range d.Durations {
		field := fmt.Sprintf("durations[%d]", i)
		if e.Name == "" {
			return fieldError(field, "name is required")
		}
		if e.Duration < 0 {
			return fieldError(field, "duration must not be negative")
		}
	}
	return validateOps("ops", d.Ops, d.Qubits, d.Clbits)
}

func validateOps(field string, ops []Op, qubits, clbits int) error {
	for i := range ops {
		if err := validateOp(fmt.Sprintf("%s[%d]", field, i), &ops[i], qubits, clbits); err != nil {
			return err
		}
	}
	return nil
}

func validateOp(field string, op *Op, qubits, clbits int) error {
	if op.Op == "" {
		return fieldError(field+".op", "operation name is required")
	}
	if err := checkWires(field+".qubits", op.Qubits, qubits); err != nil {
		return err
	}
	if err := checkWires(field+".clbits", op.Clbits, clbits); err != nil {
		return err
	}
	if op.If != nil {
		if len(op.If.Clbits) == 0 {
			return fieldError(field+".if", "condition needs at least one classical bit")
		}
		if err := checkWires(field+".if.clbits", op.If.Clbits, clbits); err != nil {
			return err
		}
	}
	if op.Duration != nil && op.DurationParam != "" {
		return fieldError(field, "duration and duration_param are mutually exclusive")
	}

	kind := ir.KindForName(op.Op)
	nested := len(op.Then) > 0 || len(op.Else) > 0 || len(op.Body) > 0
	switch kind {
	case ir.KindMeasure:
		if len(op.Qubits) != 1 || len(op.Clbits) != 1 {
			return fieldError(field, "measure takes exactly one qubit and one clbit")
		}
	case ir.KindReset:
		if len(op.Qubits) == 0 {
			return fieldError(field+".qubits", "reset needs at least one qubit")
		}
	case ir.KindDelay:
		if len(op.Qubits) == 0 {
			return fieldError(field+".qubits", "delay needs at least one qubit")
		}
		if op.Duration == nil && op.DurationParam == "" {
			return fieldError(field, "delay needs duration or duration_param")
		}
	case ir.KindIfElse:
		if op.If == nil {
			return fieldError(field+".if", "if_else needs a condition")
		}
		if len(op.Then) == 0 {
			return fieldError(field+".then", "if_else needs a non-empty then block")
		}
		if len(op.Body) > 0 {
			return fieldError(field+".body", "if_else takes then/else, not body")
		}
		if err := validateOps(field+".then", op.Then, qubits, clbits); err != nil {
			return err
		}
		return validateOps(field+".else", op.Else, qubits, clbits)
	case ir.KindControlFlow:
		if len(op.Body) == 0 {
			return fieldError(field+".body", "%s needs a non-empty body", op.Op)
		}
		if len(op.Then) > 0 || len(op.Else) > 0 {
			return fieldError(field, "%s takes body, not then/else", op.Op)
		}
		return validateOps(field+".body", op.Body, qubits, clbits)
	}
	if nested {
		return fieldError(field, "%s does not take nested operations", op.Op)
	}
	if len(op.Qubits) == 0 && kind != ir.KindBarrier {
		return fieldError(field+".qubits", "%s needs at least one qubit", op.Op)
	}
	return nil
}

func checkWires(field string, wires []int, size int) error {
	seen := map[int]bool{}
	for _, w := range wires {
		if w < 0 || w >= size {
			return fieldError(field, "index %d out of range [0, %d)", w, size)
		}
		if seen[w] {
			return fieldError(field, "duplicate index %d", w)
		}
		seen[w] = true
	}
	return nil
}
