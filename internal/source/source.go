// Package source defines the forward-only row cursor consumed by the import
// engine and small in-memory implementations of it.
//
// A Cursor is read once, in order. Values are looked up by column name so the
// engine can apply column mappings without knowing the source layout.
package source

import (
	"errors"
	"fmt"
	"strings"
)

// Cursor is a forward-only reader over rows.
//
// Next advances to the next row and reports whether one is available. When it
// returns false, Err reports whether iteration stopped because of a failure.
// Value returns the current row's value for a column; reading a column that
// does not exist or cannot be decoded for this row returns an error without
// ending iteration.
type Cursor interface {
	Columns() []string
	Next() bool
	Value(column string) (any, error)
	Err() error
	Close() error
}

// ErrUnknownColumn is returned by Value for names the cursor does not have.
var ErrUnknownColumn = errors.New("unknown column")

// ErrNoRow is returned by Value when Next has not been called or has
// returned false.
var ErrNoRow = errors.New("no current row")

// Index maps column names to positions. Lookups try an exact match first and
// fall back to a case-insensitive one.
type Index struct {
	exact map[string]int
	fold  map[string]int
}

// NewIndex builds an Index for cols. When two names differ only by case the
// first one wins the case-insensitive lookup.
func NewIndex(cols []string) Index {
	ix := Index{exact: make(map[string]int, len(cols)), fold: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := ix.exact[c]; !dup {
			ix.exact[c] = i
		}
		k := strings.ToLower(c)
		if _, dup := ix.fold[k]; !dup {
			ix.fold[k] = i
		}
	}
	return ix
}

// Lookup returns the position of name or an ErrUnknownColumn error.
func (ix Index) Lookup(name string) (int, error) {
	if i, ok := ix.exact[name]; ok {
		return i, nil
	}
	if i, ok := ix.fold[strings.ToLower(name)]; ok {
		return i, nil
	}
	return -1, fmt.Errorf("%w %q", ErrUnknownColumn, name)
}
