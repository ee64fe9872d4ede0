package records

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn is returned when a required header is absent.
	ErrMissingColumn = errors.New("missing required column")
	// ErrNoSheet is returned when a workbook has no readable sheet.
	ErrNoSheet = errors.New("workbook has no sheets")
	// ErrUnsupportedFormat is returned for table files we cannot read.
	ErrUnsupportedFormat = errors.New("unsupported table format")
)

// RowError reports a malformed value in a source row. Line is the 1-based
// line of the row in the source file, header included.
type RowError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d, column %q (value %q): %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
