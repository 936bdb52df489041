package importer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"dataimport/internal/source"
	"dataimport/internal/storage"
	_ "dataimport/internal/storage/sqlite"
)

func openSQLite(t *testing.T, ddl string) storage.Repository {
	t.Helper()
	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("storage.New(sqlite): %v", err)
	}
	t.Cleanup(repo.Close)
	if err := repo.Exec(ctx, ddl); err != nil {
		t.Fatalf("exec %q: %v", ddl, err)
	}
	return repo
}

func TestSQLiteEndToEnd(t *testing.T) {
	t.Parallel()

	repo := openSQLite(t, `CREATE TABLE "sales lines" (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sku VARCHAR(8) NOT NULL,
		qty INTEGER,
		price REAL,
		sold_on DATE
	)`)
	ctx := context.Background()

	// Leftovers from an earlier run must be cleared by the first batch.
	if err := repo.Exec(ctx, `INSERT INTO "sales lines" (sku, qty) VALUES ('OLD', 1)`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tbl := source.NewTable("SKU", "Quantity", "Price", "Date")
	for i := 1; i <= 25; i++ {
		qty := any(fmt.Sprint(i))
		if i == 13 {
			qty = "thirteen"
		}
		if err := tbl.Append(fmt.Sprintf("S-%03d", i), qty, "9.50", "2025-01-02"); err != nil {
			t.Fatal(err)
		}
	}

	cfg := Config{
		Table:     `"sales lines"`,
		BatchSize: 10,
		Truncate:  true,
		Logger:    quietLogger(),
		Mappings: []Mapping{
			{Source: "SKU", Destination: "sku"},
			{Source: "Quantity", Destination: "qty"},
			{Source: "Price", Destination: "price"},
			{Source: "Date", Destination: "sold_on"},
		},
	}
	rec := &recorder{}

	for run := 1; run <= 2; run++ {
		rec.events = nil
		sum, err := ImportTable(ctx, repo, tbl, cfg, rec)
		if err != nil {
			t.Fatalf("run %d: ImportTable() error = %v", run, err)
		}
		if sum.RowsVerified != 25 || sum.Batches != 3 || sum.DataErrors != 1 {
			t.Fatalf("run %d: summary = %+v", run, sum)
		}
		done := rec.events[len(rec.events)-1].(Completed)
		if done.TotalRows != 25 {
			t.Fatalf("run %d: Completed.TotalRows = %d, want 25", run, done.TotalRows)
		}
	}

	n, err := repo.Count(ctx, `SELECT COUNT(*) FROM "sales lines" WHERE qty IS NULL`)
	if err != nil || n != 1 {
		t.Fatalf("null qty rows = %d, %v; want 1", n, err)
	}
	if n, _ := repo.Count(ctx, `SELECT COUNT(*) FROM "sales lines" WHERE sku = 'OLD'`); n != 0 {
		t.Fatalf("seed row survived truncate")
	}
}

func TestSQLiteImportRows(t *testing.T) {
	t.Parallel()

	repo := openSQLite(t, `CREATE TABLE people (name TEXT NOT NULL, age INTEGER)`)
	recs := []source.Record{
		{"name": "ada", "age": 36},
		{"name": "alan"},
		{"name": "grace", "age": "85"},
	}

	rec := &recorder{}
	sum, err := ImportRows(context.Background(), repo, recs, Config{Table: "people", Logger: quietLogger()}, rec)
	if err != nil {
		t.Fatalf("ImportRows() error = %v", err)
	}
	if sum.RowsVerified != 3 {
		t.Fatalf("RowsVerified = %d, want 3", sum.RowsVerified)
	}
	var missing *DataConversionError
	for _, e := range rec.events {
		if d, ok := e.(DataError); ok {
			missing = d.Err
		}
	}
	if missing == nil || missing.Row != 2 || !errors.Is(missing, source.ErrUnknownColumn) {
		t.Fatalf("DataError = %v, want unknown column on row 2", missing)
	}
}

func TestSQLiteFailedBatchDoesNotStopImport(t *testing.T) {
	t.Parallel()

	repo := openSQLite(t, `CREATE TABLE items (code TEXT NOT NULL, n INTEGER)`)

	// Row 3 has a NULL code, so the second batch (rows 3-4) violates NOT NULL
	// and rolls back as a unit.
	recs := []source.Record{
		{"code": "a", "n": 1}, {"code": "b", "n": 2},
		{"code": nil, "n": 3}, {"code": "d", "n": 4},
		{"code": "e", "n": 5},
	}
	rec := &recorder{}
	sum, err := ImportRows(context.Background(), repo, recs, Config{Table: "items", BatchSize: 2, Logger: quietLogger()}, rec)
	if err != nil {
		t.Fatalf("ImportRows() error = %v", err)
	}
	if sum.FailedBatches != 1 || sum.RowsVerified != 3 {
		t.Fatalf("summary = %+v, want 1 failed batch and 3 rows", sum)
	}
	if rec.count(KindImportError) != 1 || rec.count(KindCompleted) != 1 {
		t.Fatalf("events = %v", rec.kinds())
	}
}

func TestSQLiteMissingTable(t *testing.T) {
	t.Parallel()

	repo := openSQLite(t, `CREATE TABLE present (x INTEGER)`)
	_, err := ImportRows(context.Background(), repo, nil, Config{Table: "absent", Logger: quietLogger()})
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("ImportRows() error = %v, want *SchemaError", err)
	}
}
