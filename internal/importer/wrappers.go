package importer

import (
	"context"

	"dataimport/internal/source"
	"dataimport/internal/storage"
)

// ImportTable imports every row of tbl. When cfg.BatchSize is zero the whole
// table is written in a single batch.
func ImportTable(ctx context.Context, repo storage.Repository, tbl *source.Table, cfg Config, listeners ...Listener) (Summary, error) {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = max(tbl.Len(), 1)
	}
	cur := tbl.Cursor()
	defer cur.Close()
	return run1(ctx, repo, cur, cfg, listeners)
}

// ImportRows imports recs in order. Records may carry different keys; a
// missing key is reported as a data error for that row only.
func ImportRows(ctx context.Context, repo storage.Repository, recs []source.Record, cfg Config, listeners ...Listener) (Summary, error) {
	cur := source.Records(recs)
	defer cur.Close()
	return run1(ctx, repo, cur, cfg, listeners)
}

// ImportCursor imports cur and closes it when done.
func ImportCursor(ctx context.Context, repo storage.Repository, cur source.Cursor, cfg Config, listeners ...Listener) (Summary, error) {
	defer cur.Close()
	return run1(ctx, repo, cur, cfg, listeners)
}

func run1(ctx context.Context, repo storage.Repository, cur source.Cursor, cfg Config, listeners []Listener) (Summary, error) {
	j := New(repo, cfg)
	j.Subscribe(listeners...)
	return j.Run(ctx, cur)
}
