package source

import "fmt"

// Table is an in-memory table: named columns and rows of values aligned to
// them.
type Table struct {
	columns []string
	rows    [][]any
}

// NewTable returns an empty table with the given columns.
func NewTable(columns ...string) *Table {
	return &Table{columns: append([]string(nil), columns...)}
}

// Append adds one row. It fails when the value count does not match the
// column count.
func (t *Table) Append(values ...any) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("table: row has %d values, want %d", len(values), len(t.columns))
	}
	t.rows = append(t.rows, append([]any(nil), values...))
	return nil
}

// Columns returns the column names.
func (t *Table) Columns() []string { return t.columns }

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Cursor returns a new cursor positioned before the first row.
func (t *Table) Cursor() Cursor {
	return &tableCursor{t: t, ix: NewIndex(t.columns), pos: -1}
}

type tableCursor struct {
	t      *Table
	ix     Index
	pos    int
	closed bool
}

func (c *tableCursor) Columns() []string { return c.t.columns }

func (c *tableCursor) Next() bool {
	if c.closed || c.pos >= len(c.t.rows) {
		return false
	}
	c.pos++
	return c.pos < len(c.t.rows)
}

func (c *tableCursor) Value(column string) (any, error) {
	if c.closed || c.pos < 0 || c.pos >= len(c.t.rows) {
		return nil, ErrNoRow
	}
	i, err := c.ix.Lookup(column)
	if err != nil {
		return nil, err
	}
	return c.t.rows[c.pos][i], nil
}

func (c *tableCursor) Err() error { return nil }

func (c *tableCursor) Close() error {
	c.closed = true
	return nil
}
