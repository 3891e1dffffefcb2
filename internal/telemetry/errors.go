package telemetry

import (
	"fmt"
	"strings"
)

// SchemaError reports required columns missing from an input table.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("telemetry schema: missing required column(s): %s", strings.Join(e.Missing, ", "))
}

// FormatError reports a value that could not be parsed. Row is the zero-based
// index of the data row, not counting any header.
type FormatError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("telemetry row %d: invalid %s %q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
