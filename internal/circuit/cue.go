package circuit

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaCUE string

// ParseCUE decodes a CUE circuit document. The document lives under the
// top-level "circuit" field and must satisfy the #Circuit schema. filename
// is used for error positions only.
//
//	circuit: {
//		name:   "bell"
//		qubits: 2
//		ops: [{op: "h", qubits: [0]}, {op: "cx", qubits: [0, 1]}]
//	}
func ParseCUE(data []byte, filename string) (*Document, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile circuit schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	circuitVal := v.LookupPath(cue.ParsePath("circuit"))
	if !circuitVal.Exists() {
		return nil, &DocumentError{
			Field:   "circuit",
			Message: "top-level circuit field is required",
			Pos:     v.Pos(),
		}
	}

	unified := schema.LookupPath(cue.ParsePath("#Circuit")).Unify(circuitVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var doc Document
	if err := unified.Decode(&doc); err != nil {
		return nil, formatCUEError(err)
	}
	if err := Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
