// Package sqlsource adapts *sql.Rows to source.Cursor so the result of any
// query, on any registered database/sql driver, can be imported.
package sqlsource

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"dataimport/internal/source"
)

// drivers maps storage kinds to database/sql driver names. Postgres reads go
// through lib/pq; the destination side uses pgx COPY.
var drivers = map[string]string{
	"postgres": "postgres",
	"mssql":    "sqlserver",
	"sqlite":   "sqlite",
	"mysql":    "mysql",
}

// DriverFor returns the database/sql driver name for a storage kind. Unknown
// kinds are returned unchanged so any registered driver name also works.
func DriverFor(kind string) string {
	if d, ok := drivers[kind]; ok {
		return d
	}
	return kind
}

// Cursor reads a *sql.Rows result set one row at a time.
type Cursor struct {
	rows    *sql.Rows
	cols    []string
	ix      source.Index
	vals    []any
	ptrs    []any
	current bool
	err     error
	onClose func() error
}

var _ source.Cursor = (*Cursor)(nil)

// New wraps rows. The caller keeps ownership of the *sql.DB; Close closes
// only rows.
func New(rows *sql.Rows) (*Cursor, error) {
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("sqlsource: columns: %w", err)
	}
	c := &Cursor{
		rows: rows,
		cols: cols,
		ix:   source.NewIndex(cols),
		vals: make([]any, len(cols)),
		ptrs: make([]any, len(cols)),
	}
	for i := range c.vals {
		c.ptrs[i] = &c.vals[i]
	}
	return c, nil
}

// Open connects with the driver registered for kind, runs query and returns
// a Cursor that also closes the connection pool on Close.
func Open(ctx context.Context, kind, dsn, query string, args ...any) (*Cursor, error) {
	db, err := sql.Open(DriverFor(kind), dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlsource: open %s: %w", kind, err)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlsource: query: %w", err)
	}
	c, err := New(rows)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	c.onClose = db.Close
	return c, nil
}

// Columns implements source.Cursor.
func (c *Cursor) Columns() []string { return c.cols }

// Next scans the next row. A scan failure ends iteration and is reported by
// Err.
func (c *Cursor) Next() bool {
	c.current = false
	if c.err != nil || !c.rows.Next() {
		if c.err == nil {
			c.err = c.rows.Err()
		}
		return false
	}
	for i := range c.vals {
		c.vals[i] = nil
	}
	if err := c.rows.Scan(c.ptrs...); err != nil {
		c.err = fmt.Errorf("sqlsource: scan: %w", err)
		return false
	}
	c.current = true
	return true
}

// Value implements source.Cursor. database/sql copies []byte values when
// scanning into *any, so returned slices stay valid after Next.
func (c *Cursor) Value(column string) (any, error) {
	if !c.current {
		return nil, source.ErrNoRow
	}
	i, err := c.ix.Lookup(column)
	if err != nil {
		return nil, err
	}
	return c.vals[i], nil
}

// Err implements source.Cursor.
func (c *Cursor) Err() error { return c.err }

// Close closes the result set and, for cursors from Open, the pool.
func (c *Cursor) Close() error {
	c.current = false
	err := c.rows.Close()
	if c.onClose != nil {
		if cerr := c.onClose(); err == nil {
			err = cerr
		}
		c.onClose = nil
	}
	return err
}
