package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// Column is the destination metadata reported by a Probe.
type Column struct {
	Name string
	// DatabaseType is the upper-cased base type name without parameters,
	// e.g. "NVARCHAR" or "INTEGER". Empty when the driver does not report it.
	DatabaseType string
	// Length is the maximum character or byte length for sized types and 0
	// when unbounded or unknown.
	Length int64
	Nullable bool
}

// ProbeSQL runs query on db and converts the result set's column types. It is
// shared by the database/sql based backends.
func ProbeSQL(ctx context.Context, db *sql.DB, query string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}
	cols := make([]Column, len(types))
	for i, ct := range types {
		base, declLen := SplitTypeName(ct.DatabaseTypeName())
		c := Column{Name: ct.Name(), DatabaseType: base, Nullable: true}
		if n, ok := ct.Nullable(); ok {
			c.Nullable = n
		}
		if n, ok := ct.Length(); ok && n > 0 && n < 1<<30 {
			c.Length = n
		} else if declLen > 0 {
			c.Length = declLen
		}
		cols[i] = c
	}
	// Drain to surface deferred errors; the query never returns rows.
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cols, nil
}

// CountSQL runs a single-value count query on db.
func CountSQL(ctx context.Context, db *sql.DB, query string) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// SplitTypeName normalizes a declared type such as "varchar(10)" into
// ("VARCHAR", 10). Multi-argument or non-numeric parameters yield length 0.
func SplitTypeName(decl string) (string, int64) {
	decl = strings.ToUpper(strings.TrimSpace(decl))
	open := strings.IndexByte(decl, '(')
	if open < 0 {
		return decl, 0
	}
	base := strings.TrimSpace(decl[:open])
	end := strings.IndexByte(decl[open:], ')')
	if end < 0 {
		return base, 0
	}
	arg := strings.TrimSpace(decl[open+1 : open+end])
	n, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || n <= 0 {
		return base, 0
	}
	return base, n
}
