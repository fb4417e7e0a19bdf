package error

import (
	"errors"
	"fmt"
	"strings"
)

type Severity string

const (
	SeverityWarning = Severity("warning")
	SeverityError   = Severity("error")
)

// Diagnostic is a single message collected while compiling a grammar or parsing an input.
// Row and Col are 1-based; zero means the message has no source position.
type Diagnostic struct {
	Severity Severity
	Message  string
	Row      int
	Col      int
}

func (d *Diagnostic) String() string {
	if d.Row > 0 {
		return fmt.Sprintf("%v:%v: %v: %v", d.Row, d.Col, d.Severity, d.Message)
	}
	return fmt.Sprintf("%v: %v", d.Severity, d.Message)
}

// positioned is implemented by errors that know where in the source they occurred.
// The position is 0-based, the same as a token position.
type positioned interface {
	Position() (int, int)
}

// Diagnostics accumulates messages. The compiler and the parser each take one explicitly;
// nothing is shared between them unless the caller merges the values.
type Diagnostics struct {
	entries []*Diagnostic
}

func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

func (d *Diagnostics) Warnf(format string, a ...interface{}) {
	d.entries = append(d.entries, &Diagnostic{
		Severity: SeverityWarning,
		Message:  fmt.Sprintf(format, a...),
	})
}

func (d *Diagnostics) Errorf(format string, a ...interface{}) {
	d.entries = append(d.entries, &Diagnostic{
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, a...),
	})
}

// Report records err with the error severity. When err carries a source position,
// the diagnostic inherits it.
func (d *Diagnostics) Report(err error) {
	if err == nil {
		return
	}

	var specErrs SpecErrors
	if errors.As(err, &specErrs) {
		for _, e := range specErrs {
			msg := e.Cause.Error()
			if e.Detail != "" {
				msg = fmt.Sprintf("%v: %v", msg, e.Detail)
			}
			d.entries = append(d.entries, &Diagnostic{
				Severity: SeverityError,
				Message:  msg,
				Row:      e.Row,
				Col:      e.Col,
			})
		}
		return
	}

	diag := &Diagnostic{
		Severity: SeverityError,
		Message:  err.Error(),
	}
	var p positioned
	if errors.As(err, &p) {
		row, col := p.Position()
		diag.Row = row + 1
		diag.Col = col + 1
	}
	d.entries = append(d.entries, diag)
}

// Merge appends all entries of o to d.
func (d *Diagnostics) Merge(o *Diagnostics) {
	if o == nil {
		return
	}
	d.entries = append(d.entries, o.entries...)
}

func (d *Diagnostics) Entries() []*Diagnostic {
	return d.entries
}

func (d *Diagnostics) Len() int {
	return len(d.entries)
}

func (d *Diagnostics) HasErrors() bool {
	for _, e := range d.entries {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (d *Diagnostics) String() string {
	var b strings.Builder
	for i, e := range d.entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(e.String())
	}
	return b.String()
}
