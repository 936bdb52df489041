// Package storage contains the backend-agnostic contract used by the import
// engine and a small registry of backend factories keyed by kind.
//
// Backends (mssql, postgres, sqlite, mysql) register themselves in init, so a
// caller only needs a blank import of the backend package (or storage/all)
// and a Config to obtain a Repository:
//
//	repo, err := storage.New(ctx, storage.Config{Kind: "postgres", DSN: dsn})
//	if err != nil { ... }
//	defer repo.Close()
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Repository is a connection to one destination database. It is table
// agnostic: every call receives the statement or table it operates on, so one
// Repository can serve several imports.
type Repository interface {
	// Dialect reports how the backend quotes identifiers.
	Dialect() Dialect

	// Probe runs a zero-row query and returns the column metadata of its
	// result set.
	Probe(ctx context.Context, query string) ([]Column, error)

	// CopyFrom bulk-loads rows (aligned to columns) into table using the
	// backend's fastest primitive and returns the rows reported as written.
	// The statement, transaction or pooled connection used for the write is
	// released before CopyFrom returns, on every path.
	CopyFrom(ctx context.Context, table Table, columns []string, rows [][]any) (int64, error)

	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, sql string) error

	// Count runs a single-value COUNT query.
	Count(ctx context.Context, query string) (int64, error)

	// Close releases the underlying pool.
	Close()
}

// Config selects and configures a backend.
type Config struct {
	// Kind is the registered backend name, e.g. "mssql" or "postgres".
	Kind string

	// DSN is passed to the backend driver unchanged.
	DSN string

	// Tablock requests a table-level lock during bulk writes on backends that
	// support it (mssql). Ignored elsewhere.
	Tablock bool
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register installs the factory for kind. Registering the same kind twice
// replaces the previous factory.
func Register(kind string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = f
}

// New opens a Repository using the factory registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	registryMu.RLock()
	f, ok := registry[cfg.Kind]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns a sorted snapshot of the registered kinds.
func ListKinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
