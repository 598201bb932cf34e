package circuit

import (
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// DocumentError reports an invalid circuit document. Field is a path into
// the document such as "ops[3].then[0].qubits".
type DocumentError struct {
	Field   string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *DocumentError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *DocumentError) Unwrap() error { return e.Err }

func fieldError(field, format string, args ...any) *DocumentError {
	return &DocumentError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// formatCUEError extracts the first positioned error from a CUE error list.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	path := "cue"
	if p := first.Path(); len(p) > 0 {
		path = joinPath(p)
	}
	msg := first.Error()
	if len(errs) > 1 {
		msg = fmt.Sprintf("%s (and %d more errors)", msg, len(errs)-1)
	}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		return &DocumentError{Field: path, Message: msg, Pos: positions[0], Err: err}
	}
	return &DocumentError{Field: path, Message: msg, Err: err}
}

func joinPath(p []string) string {
	out := ""
	for i, s := range p {
		if i > 0 && (s == "" || s[0] < '0' || s[0] > '9') {
			out += "."
		}
		if s != "" && s[0] >= '0' && s[0] <= '9' {
			out += "[" + s + "]"
			continue
		}
		out += s
	}
	return out
}
