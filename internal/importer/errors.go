package importer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidBatchSize is returned by Run for a negative batch size.
	ErrInvalidBatchSize = errors.New("batch size must be >= 0")

	// ErrNotInDestination marks a mapping whose destination column is not
	// part of the destination shape.
	ErrNotInDestination = errors.New("column not in destination")

	// ErrValueTooLong marks a text value wider than its destination column.
	ErrValueTooLong = errors.New("value exceeds column length")

	// ErrConversion marks a value that cannot be represented in the
	// destination column's type.
	ErrConversion = errors.New("cannot convert value")
)

// SchemaError reports that the destination table could not be shaped: it is
// missing, unreadable or its name is invalid. It is fatal and returned before
// any row is read.
type SchemaError struct {
	Table string
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("importer: schema %s: %v", e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// DataConversionError is one field of one row that could not be read or
// converted. Row is 1-based in cursor order.
type DataConversionError struct {
	Table  string
	Column string
	Source string
	Row    int64
	Value  any
	Err    error
}

func (e *DataConversionError) Error() string {
	if e.Source != "" && e.Source != e.Column {
		return fmt.Sprintf("importer: %s row %d column %s (from %s): %v", e.Table, e.Row, e.Column, e.Source, e.Err)
	}
	return fmt.Sprintf("importer: %s row %d column %s: %v", e.Table, e.Row, e.Column, e.Err)
}

func (e *DataConversionError) Unwrap() error { return e.Err }

// CountError reports that the post-import row count could not be read.
type CountError struct {
	Table string
	Err   error
}

func (e *CountError) Error() string {
	return fmt.Sprintf("importer: count %s: %v", e.Table, e.Err)
}

func (e *CountError) Unwrap() error { return e.Err }

// ReadError reports that the pump stopped early because the cursor failed or
// the context was canceled. Rows is the number of rows consumed before the
// failure.
type ReadError struct {
	Table string
	Rows  int64
	Err   error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("importer: read %s after %d rows: %v", e.Table, e.Rows, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
