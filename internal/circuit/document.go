package circuit

import (
	"github.com/roach88/blocksched/internal/durations"
)

// Document is the serialized form of a circuit.
type Document struct {
	// Name identifies the circuit in logs, the run store and golden files.
	Name string `yaml:"name" json:"name"`

	// Qubits and Clbits size the default registers "q" and "c".
	Qubits int `yaml:"qubits" json:"qubits"`
	Clbits int `yaml:"clbits,omitempty" json:"clbits,omitempty"`

	// Registers lists additional quantum registers. A circuit with any is
	// not laid out on physical qubits and cannot be scheduled.
	Registers []Register `yaml:"registers,omitempty" json:"registers,omitempty"`

	Unit     string            `yaml:"unit,omitempty" json:"unit,omitempty"`
	Metadata map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`

	// Calibrations pin the length of specific instructions on this
	// circuit. They win over Durations.
	Calibrations []Calibration `yaml:"calibrations,omitempty" json:"calibrations,omitempty"`

	// Durations is the duration table to schedule against. DT is the
	// length of one tick in seconds, needed for entries in seconds.
	Durations []durations.Entry `yaml:"durations,omitempty" json:"durations,omitempty"`
	DT        float64           `yaml:"dt,omitempty" json:"dt,omitempty"`

	Ops []Op `yaml:"ops" json:"ops"`
}

// Register is an extra named quantum register.
type Register struct {
	Name string `yaml:"name" json:"name"`
	Size int    `yaml:"size" json:"size"`
}

// Calibration fixes the duration of one instruction on given qubits.
type Calibration struct {
	Name     string    `yaml:"name" json:"name"`
	Qubits   []int     `yaml:"qubits,flow" json:"qubits"`
	Params   []float64 `yaml:"params,flow,omitempty" json:"params,omitempty"`
	Duration int64     `yaml:"duration" json:"duration"`
}

// Op is one operation. The kind follows from the name: measure, reset,
// delay, barrier and if_else are special, for_loop, while_loop,
// switch_case and box hold a body, anything else is a gate.
type Op struct {
	Op     string    `yaml:"op" json:"op"`
	Qubits []int     `yaml:"qubits,flow,omitempty" json:"qubits,omitempty"`
	Clbits []int     `yaml:"clbits,flow,omitempty" json:"clbits,omitempty"`
	Params []float64 `yaml:"params,flow,omitempty" json:"params,omitempty"`

	// Duration sets an explicit length in ticks. DurationParam marks the
	// length as a still-unbound parameter.
	Duration      *int64 `yaml:"duration,omitempty" json:"duration,omitempty"`
	DurationParam string `yaml:"duration_param,omitempty" json:"duration_param,omitempty"`

	If *Condition `yaml:"if,omitempty" json:"if,omitempty"`

	Then []Op `yaml:"then,omitempty" json:"then,omitempty"`
	Else []Op `yaml:"else,omitempty" json:"else,omitempty"`
	Body []Op `yaml:"body,omitempty" json:"body,omitempty"`
}

// Condition gates an operation on the value of classical bits.
type Condition struct {
	Clbits []int `yaml:"clbits,flow" json:"clbits"`
	Value  int64 `yaml:"value" json:"value"`
}

// Table builds the duration table described by the document. A document
// without durations yields an empty table.
func (d *Document) Table(opts ...durations.Option) (*durations.Table, error) {
	t := durations.NewTable(opts...)
	if len(d.Durations) == 0 {
		return t, nil
	}
	if err := t.Update(d.Durations, d.DT); err != nil {
		return nil, &DocumentError{Field: "durations", Message: err.Error(), Err: err}
	}
	return t, nil
}
