package domain

import "fmt"

// ConfigurationError means the column mapping configuration itself is
// unusable. It is the only error class that aborts a run, raised before
// any file is processed.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid mapping configuration: %s", e.Reason)
	}
	return fmt.Sprintf("invalid mapping configuration for %q: %s", e.Field, e.Reason)
}

// MalformedValueError is a per-row soft error: a cell that should carry an
// amount could not be parsed. The row is skipped and the error recorded as
// a diagnostic; the file keeps processing.
type MalformedValueError struct {
	Source string
	Row    int
	Column string
	Value  string
}

func (e *MalformedValueError) Error() string {
	return fmt.Sprintf("malformed value %q in column %q at row %d of %s", e.Value, e.Column, e.Row, e.Source)
}

// Diagnostic converts the error into its report representation.
func (e *MalformedValueError) Diagnostic() Diagnostic {
	return Diagnostic{
		Code:   DiagMalformedValue,
		Source: e.Source,
		Row:    e.Row,
		Detail: fmt.Sprintf("cannot parse %q in column %q as a number", e.Value, e.Column),
	}
}
