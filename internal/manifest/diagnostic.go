// Package manifest validates mod manifest documents against a typed schema.
//
// Validation never returns a Go error for bad documents: callers get a
// definitive pass/fail plus a list of diagnostics they can render or log.
package manifest

import "fmt"

// Severity of a diagnostic line.
type Severity int

const (
	SevError Severity = iota
	SevWarning
)

// Diagnostic is one validation finding.
type Diagnostic struct {
	Severity Severity
	Field    string
	Message  string
}

func (d Diagnostic) String() string {
	sev := "error"
	if d.Severity == SevWarning {
		sev = "warning"
	}
	if d.Field == "" {
		return fmt.Sprintf("%s: %s", sev, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", sev, d.Field, d.Message)
}

// Sink receives diagnostics as they are produced. Callers that only care
// about the final slice can ignore it.
type Sink func(Diagnostic)

type diags struct {
	list []Diagnostic
	sink Sink
}

func (d *diags) errf(field, format string, a ...any) {
	d.add(Diagnostic{Severity: SevError, Field: field, Message: fmt.Sprintf(format, a...)})
}

func (d *diags) warnf(field, format string, a ...any) {
	d.add(Diagnostic{Severity: SevWarning, Field: field, Message: fmt.Sprintf(format, a...)})
}

func (d *diags) add(diag Diagnostic) {
	d.list = append(d.list, diag)
	if d.sink != nil {
		d.sink(diag)
	}
}

func (d *diags) hasErrors() bool {
	for _, diag := range d.list {
		if diag.Severity == SevError {
			return true
		}
	}
	return false
}
