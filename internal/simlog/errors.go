package simlog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInputNotFound reports that the simulation log does not exist, usually
// because the simulator has not been run yet.
var ErrInputNotFound = errors.New("simulation log not found")

// MalformedInputError locates the first structurally invalid record.
// Record is the zero-based position in the log (-1 for the document itself);
// Step is the record's step index when it could be read (-1 otherwise).
type MalformedInputError struct {
	Record int
	Step   int
	Entity string
	Field  string
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	var b strings.Builder
	b.WriteString("malformed input")
	if e.Record >= 0 {
		fmt.Fprintf(&b, ": record %d", e.Record)
	}
	if e.Step >= 0 {
		fmt.Fprintf(&b, " (step %d)", e.Step)
	}
	if e.Entity != "" {
		b.WriteString(": ")
		b.WriteString(e.Entity)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": field %q", e.Field)
	}
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// IsMalformed reports whether err carries a *MalformedInputError.
func IsMalformed(err error) bool {
	var m *MalformedInputError
	return errors.As(err, &m)
}
