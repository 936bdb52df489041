// Package postgres implements a Postgres repository using pgx v5. Bulk writes
// use the COPY protocol through the pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"dataimport/internal/storage"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN string // connection string for pgxpool
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// NewRepository constructs a Repository and returns a Close function for cleanup.
func NewRepository(ctx context.Context, cfg Config) (*Repository, func(), error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	close := func() { pool.Close() }
	return &Repository{pool: pool, cfg: cfg}, close, nil
}

// Dialect implements storage.Repository.
func (r *Repository) Dialect() storage.Dialect { return storage.DoubleQuotes }

// Probe runs query on one pooled connection and maps the field descriptions
// through that connection's type map.
func (r *Repository) Probe(ctx context.Context, query string) ([]storage.Column, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres probe: acquire: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres probe: %w", pgDetail(err))
	}
	defer rows.Close()

	cols := describeFields(conn.Conn().TypeMap(), rows.FieldDescriptions())
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres probe: %w", pgDetail(err))
	}
	return cols, nil
}

// describeFields converts wire field descriptions into storage columns.
// varchar(n) and char(n) carry n+4 in the type modifier.
func describeFields(tm *pgtype.Map, fds []pgconn.FieldDescription) []storage.Column {
	cols := make([]storage.Column, len(fds))
	for i, fd := range fds {
		name := ""
		if typ, ok := tm.TypeForOID(fd.DataTypeOID); ok {
			name = typ.Name
		}
		base, _ := storage.SplitTypeName(name)
		c := storage.Column{Name: fd.Name, DatabaseType: base, Nullable: true}
		if (base == "VARCHAR" || base == "BPCHAR") && fd.TypeModifier > 4 {
			c.Length = int64(fd.TypeModifier - 4)
		}
		cols[i] = c
	}
	return cols
}

// CopyFrom streams rows into table with COPY. pgx acquires and releases the
// pooled connection internally.
func (r *Repository) CopyFrom(ctx context.Context, table storage.Table, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := r.pool.CopyFrom(ctx, pgx.Identifier(table.Parts), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("copy into %s: %w", table.Quoted, pgDetail(err))
	}
	return n, nil
}

// Exec executes a SQL statement against the pool.
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("postgres exec: %w", pgDetail(err))
	}
	return nil
}

// Count runs a COUNT query.
func (r *Repository) Count(ctx context.Context, query string) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres count: %w", pgDetail(err))
	}
	return n, nil
}

// pgDetail folds the server detail and SQLSTATE into the message while
// keeping the original error in the chain.
func pgDetail(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%s (%s): %w", pgErr.Detail, pgErr.SQLState(), err)
	}
	return err
}
