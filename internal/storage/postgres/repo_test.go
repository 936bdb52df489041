package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"dataimport/internal/storage"
)

func TestDescribeFields(t *testing.T) {
	t.Parallel()

	fds := []pgconn.FieldDescription{
		{Name: "id", DataTypeOID: pgtype.Int4OID, TypeModifier: -1},
		{Name: "name", DataTypeOID: pgtype.VarcharOID, TypeModifier: 14},
		{Name: "code", DataTypeOID: pgtype.BPCharOID, TypeModifier: 7},
		{Name: "note", DataTypeOID: pgtype.TextOID, TypeModifier: -1},
		{Name: "at", DataTypeOID: pgtype.TimestamptzOID, TypeModifier: -1},
		{Name: "mystery", DataTypeOID: 999999, TypeModifier: -1},
	}

	got := describeFields(pgtype.NewMap(), fds)

	want := []storage.Column{
		{Name: "id", DatabaseType: "INT4", Nullable: true},
		{Name: "name", DatabaseType: "VARCHAR", Length: 10, Nullable: true},
		{Name: "code", DatabaseType: "BPCHAR", Length: 3, Nullable: true},
		{Name: "note", DatabaseType: "TEXT", Nullable: true},
		{Name: "at", DatabaseType: "TIMESTAMPTZ", Nullable: true},
		{Name: "mystery", DatabaseType: "", Nullable: true},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("column %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestPgDetailKeepsChain(t *testing.T) {
	t.Parallel()

	pgErr := &pgconn.PgError{Code: "23502", Detail: "Failing row contains (null)."}
	err := pgDetail(pgErr)

	if !strings.Contains(err.Error(), "Failing row contains") || !strings.Contains(err.Error(), "23502") {
		t.Fatalf("pgDetail() = %q, want detail and SQLSTATE", err)
	}
	var got *pgconn.PgError
	if !errors.As(err, &got) {
		t.Fatalf("errors.As(*pgconn.PgError) failed")
	}

	plain := errors.New("boom")
	if pgDetail(plain) != plain {
		t.Fatalf("pgDetail() must return non-pg errors unchanged")
	}
}

func TestCopyFromEmptyRows(t *testing.T) {
	t.Parallel()

	r := &Repository{}
	tbl, _ := storage.ParseTable(storage.DoubleQuotes, "public.t")
	n, err := r.CopyFrom(context.Background(), tbl, []string{"a"}, nil)
	if err != nil || n != 0 {
		t.Fatalf("CopyFrom(nil) = %d, %v; want 0, nil", n, err)
	}
}
