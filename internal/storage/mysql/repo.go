// Package mysql implements a MySQL-backed storage.Repository. Each batch is
// written as multi-row INSERT statements inside one transaction.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"dataimport/internal/storage"
)

// maxPlaceholders is the server-side limit on bound parameters per statement.
const maxPlaceholders = 65535

// Config holds MySQL repository configuration.
type Config struct {
	DSN string
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	mc, err := mysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql dsn: %w", err)
	}
	// time.Time values round-trip only with parseTime.
	mc.ParseTime = true
	connector, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	close := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, close, nil
}

// Dialect implements storage.Repository.
func (r *Repository) Dialect() storage.Dialect { return storage.Backticks }

// Probe returns the destination column metadata for a zero-row query.
func (r *Repository) Probe(ctx context.Context, query string) ([]storage.Column, error) {
	cols, err := storage.ProbeSQL(ctx, r.db, query)
	if err != nil {
		return nil, fmt.Errorf("mysql probe: %w", err)
	}
	return cols, nil
}

// CopyFrom inserts rows in chunks that stay under the placeholder limit, all
// inside one transaction.
func (r *Repository) CopyFrom(ctx context.Context, table storage.Table, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("mysql: CopyFrom: columns must not be empty")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	per := chunkRows(len(columns))
	var total int64
	for start := 0; start < len(rows); start += per {
		end := min(start+per, len(rows))
		chunk := rows[start:end]

		args := make([]any, 0, len(chunk)*len(columns))
		for i, row := range chunk {
			if len(row) != len(columns) {
				return 0, fmt.Errorf("mysql: row %d length %d != columns length %d", start+i, len(row), len(columns))
			}
			args = append(args, row...)
		}
		res, err := tx.ExecContext(ctx, insertSQL(table, columns, len(chunk)), args...)
		if err != nil {
			return 0, fmt.Errorf("insert rows %d-%d: %w", start, end-1, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return total, nil
}

// chunkRows returns how many rows of width cols fit in one statement.
func chunkRows(cols int) int {
	if cols <= 0 {
		return 1
	}
	return max(maxPlaceholders/cols, 1)
}

// insertSQL builds INSERT INTO t (cols) VALUES (?,..),(?,..) for n rows.
func insertSQL(table storage.Table, columns []string, n int) string {
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(table.Quoted)
	b.WriteString(" (")
	b.WriteString(strings.Join(storage.Backticks.QuoteIdents(columns), ","))
	b.WriteString(") VALUES ")
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(tuple)
	}
	return b.String()
}

// Exec executes a SQL statement against the pool.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("mysql exec: %w", err)
	}
	return nil
}

// Count runs a COUNT query.
func (r *Repository) Count(ctx context.Context, query string) (int64, error) {
	n, err := storage.CountSQL(ctx, r.db, query)
	if err != nil {
		return 0, fmt.Errorf("mysql count: %w", err)
	}
	return n, nil
}
