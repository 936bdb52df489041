//go:build integration

package mssql

import (
	"context"
	"os"
	"testing"
	"time"

	"dataimport/internal/storage"
)

// getTestDSN reads the MSSQL_TEST_DSN environment variable.
// If it is empty, the caller should skip the test.
func getTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("MSSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MSSQL_TEST_DSN not set; skipping MSSQL integration tests")
	}
	return dsn
}

// TestNewRepositoryIntegration verifies that NewRepository can successfully
// connect to a real SQL Server and that the returned Close function works.
func TestNewRepositoryIntegration(t *testing.T) {
	dsn := getTestDSN(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	repo, closeFn, err := NewRepository(ctx, Config{DSN: dsn})
	if err != nil {
		t.Fatalf("NewRepository() error = %v, want nil", err)
	}
	if repo == nil || closeFn == nil {
		t.Fatalf("NewRepository() returned nil repo or closeFn")
	}
	closeFn()
}

// TestProbeCopyCountIntegration runs the probe, bulk copy, clear and count
// statements against a real SQL Server table.
func TestProbeCopyCountIntegration(t *testing.T) {
	dsn := getTestDSN(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	repo, closeFn, err := NewRepository(ctx, Config{DSN: dsn})
	if err != nil {
		t.Fatalf("NewRepository() error = %v, want nil", err)
	}
	defer closeFn()

	_ = repo.Exec(ctx, "IF OBJECT_ID('dbo.repo_copyfrom_test', 'U') IS NOT NULL DROP TABLE dbo.repo_copyfrom_test;")
	if err := repo.Exec(ctx, `
		CREATE TABLE dbo.repo_copyfrom_test (
			id INT NOT NULL,
			name NVARCHAR(100) NULL
		);`); err != nil {
		t.Fatalf("Exec(CREATE TABLE) error = %v", err)
	}
	defer func() { _ = repo.Exec(context.Background(), "DROP TABLE dbo.repo_copyfrom_test") }()

	tbl, err := storage.ParseTable(repo.Dialect(), "dbo.repo_copyfrom_test")
	if err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	stmts := storage.StatementsFor(tbl)

	cols, err := repo.Probe(ctx, stmts.Probe)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if len(cols) != 2 || cols[1].DatabaseType != "NVARCHAR" || cols[1].Length != 100 {
		t.Fatalf("Probe() = %+v, want id INT, name NVARCHAR(100)", cols)
	}

	rows := [][]any{{int64(1), "alice"}, {int64(2), "bob"}, {int64(3), nil}}
	n, err := repo.CopyFrom(ctx, tbl, []string{"id", "name"}, rows)
	if err != nil {
		t.Fatalf("CopyFrom() error = %v, want nil", err)
	}
	if n != int64(len(rows)) {
		t.Fatalf("CopyFrom() inserted = %d, want %d", n, len(rows))
	}

	got, err := repo.Count(ctx, stmts.Count)
	if err != nil || got != 3 {
		t.Fatalf("Count() = %d, %v; want 3", got, err)
	}
	if err := repo.Exec(ctx, stmts.Clear(storage.ClearTruncate)); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if got, _ := repo.Count(ctx, stmts.Count); got != 0 {
		t.Fatalf("Count() after truncate = %d, want 0", got)
	}
}
