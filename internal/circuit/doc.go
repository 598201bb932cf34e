// Package circuit reads and writes circuit documents.
//
// A circuit document describes one operation graph together with the
// duration table it should be scheduled against. Documents come in two
// syntaxes with the same shape:
//
//   - YAML, decoded strictly: unknown fields are rejected
//   - CUE, with the document under a top-level "circuit" field, unified
//     with the embedded #Circuit schema before decoding
//
// Example (YAML):
//
//	name: bell
//	qubits: 2
//	clbits: 2
//	durations:
//	  - {name: h, duration: 50}
//	  - {name: cx, duration: 700}
//	  - {name: measure, duration: 840}
//	ops:
//	  - {op: h, qubits: [0]}
//	  - {op: cx, qubits: [0, 1]}
//	  - {op: measure, qubits: [0], clbits: [0]}
//	  - op: if_else
//	    qubits: [1]
//	    if: {clbits: [0], value: 1}
//	    then:
//	      - {op: x, qubits: [1]}
//
// Document.Build turns a document into an ir.Graph; FromGraph goes the
// other way so padded graphs can be written back out.
package circuit
