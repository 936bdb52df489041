// Package mssql implements a Microsoft SQL Server repository using the
// go-mssqldb bulk copy API (the TDS "insert bulk" path).
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"dataimport/internal/storage"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN string
	// Tablock takes a bulk update lock on the destination for each batch.
	Tablock bool
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	close := func() { _ = db.Close() }
	return &Repository{db: db, cfg: cfg}, close, nil
}

// Dialect implements storage.Repository.
func (r *Repository) Dialect() storage.Dialect { return storage.Brackets }

// Probe returns the destination column metadata for a zero-row query.
func (r *Repository) Probe(ctx context.Context, query string) ([]storage.Column, error) {
	cols, err := storage.ProbeSQL(ctx, r.db, query)
	if err != nil {
		return nil, fmt.Errorf("mssql probe: %w", err)
	}
	return cols, nil
}

// CopyFrom bulk-copies rows into table inside a transaction. The prepared
// bulk statement and the transaction are released on every return path.
func (r *Repository) CopyFrom(ctx context.Context, table storage.Table, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
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

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(table.Quoted, r.bulkOptions(), columns...))
	if err != nil {
		return 0, fmt.Errorf("prepare bulk: %w", err)
	}
	defer stmt.Close()

	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			return 0, fmt.Errorf("bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return n, nil
}

func (r *Repository) bulkOptions() mssql.BulkOptions {
	return mssql.BulkOptions{Tablock: r.cfg.Tablock}
}

// Exec executes a SQL statement against the pool.
func (r *Repository) Exec(ctx context.Context, sqlText string) error {
	if _, err := r.db.ExecContext(ctx, sqlText); err != nil {
		return fmt.Errorf("mssql exec: %w", err)
	}
	return nil
}

// Count runs a COUNT query.
func (r *Repository) Count(ctx context.Context, query string) (int64, error) {
	n, err := storage.CountSQL(ctx, r.db, query)
	if err != nil {
		return 0, fmt.Errorf("mssql count: %w", err)
	}
	return n, nil
}
