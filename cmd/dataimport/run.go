package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"dataimport/internal/config"
	"dataimport/internal/datasource"
	"dataimport/internal/datasource/file"
	"dataimport/internal/datasource/httpds"
	"dataimport/internal/datasource/s3"
	"dataimport/internal/importer"
	"dataimport/internal/logging"
	"dataimport/internal/metrics"
	"dataimport/internal/metrics/datadog"
	"dataimport/internal/metrics/prompush"
	"dataimport/internal/observe"
	"dataimport/internal/source"
	"dataimport/internal/source/csvsource"
	"dataimport/internal/source/sqlsource"
	"dataimport/internal/storage"
)

// result is the outcome of one import.
type result struct {
	name string
	sum  importer.Summary
	err  error
}

// runPipeline runs the selected imports, at most runtime.parallel at a time,
// and writes one summary line per import to out. Imports are independent: a
// failed import does not cancel the others.
func runPipeline(ctx context.Context, out io.Writer, p config.Pipeline, only []string) error {
	lg, closeLog, err := logging.Setup(p.Logging.Level, p.Logging.Format, p.Logging.File)
	if err != nil {
		return err
	}
	defer closeLog()

	flush, err := setupMetrics(p, lg)
	if err != nil {
		return err
	}
	defer flush()

	imports, err := selectImports(p.Imports, only)
	if err != nil {
		return err
	}

	lg = lg.With("run", p.Job)
	lg.Info("pipeline starting", "imports", len(imports), "parallel", max(p.Runtime.Parallel, 1))
	start := time.Now()

	var (
		results = make([]result, len(imports))
		g       errgroup.Group
	)
	g.SetLimit(max(p.Runtime.Parallel, 1))
	for i, imp := range imports {
		g.Go(func() error {
			name := importName(imp)
			sum, err := runImport(ctx, lg.With("import", name), imp)
			results[i] = result{name: name, sum: sum, err: err}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		fmt.Fprintf(out, "%s\ttable=%s read=%d written=%d verified=%d batches=%d failed=%d data_errors=%d elapsed=%s\n",
			r.name, r.sum.Table, r.sum.RowsRead, r.sum.RowsWritten, r.sum.RowsVerified,
			r.sum.Batches, r.sum.FailedBatches, r.sum.DataErrors, r.sum.Elapsed.Truncate(time.Millisecond))
		switch {
		case r.err != nil:
			errs = append(errs, fmt.Errorf("import %s: %w", r.name, r.err))
		case r.sum.FailedBatches > 0:
			errs = append(errs, fmt.Errorf("import %s: %d of %d batches failed", r.name, r.sum.FailedBatches, r.sum.Batches))
		}
	}
	lg.Info("pipeline finished", "elapsed", time.Since(start).Truncate(time.Millisecond), "failed", len(errs))
	return errors.Join(errs...)
}

// runImport opens the destination and the source and imports one into the
// other.
func runImport(ctx context.Context, lg *slog.Logger, imp config.Import) (importer.Summary, error) {
	policy, err := importer.ParseBatchErrorPolicy(imp.OnBatchError)
	if err != nil {
		return importer.Summary{}, err
	}

	repo, err := storage.New(ctx, storage.Config{
		Kind:    imp.Destination.Kind,
		DSN:     imp.Destination.DSN,
		Tablock: imp.Destination.Tablock,
	})
	if err != nil {
		return importer.Summary{}, err
	}
	defer repo.Close()

	cur, err := openCursor(ctx, imp.Source)
	if err != nil {
		return importer.Summary{}, err
	}

	cfg := importer.Config{
		Table:            imp.Destination.Table,
		BatchSize:        imp.BatchSize,
		Truncate:         imp.Truncate,
		TruncateMode:     storage.ClearMode(imp.TruncateMode),
		Mappings:         mappings(imp.Mappings),
		OnBatchError:     policy,
		MaxRowsPerSecond: imp.MaxRowsPerSecond,
		Logger:           lg,
	}
	return importer.ImportCursor(ctx, repo, cur, cfg,
		observe.Log(lg),
		observe.Metrics(importName(imp)),
	)
}

// openCursor turns a configured source into a cursor. File, S3 and HTTP
// sources are read as CSV.
func openCursor(ctx context.Context, src config.Source) (source.Cursor, error) {
	var ds datasource.Source
	switch src.Kind {
	case "sql":
		cur, err := sqlsource.Open(ctx, src.SQL.Kind, src.SQL.DSN, src.SQL.Query)
		if err != nil {
			return nil, err
		}
		return cur, nil
	case "file":
		ds = file.NewLocal(src.File.Path)
	case "s3":
		obj, err := s3.New(s3.Config{
			Endpoint:  src.S3.Endpoint,
			AccessKey: src.S3.AccessKey,
			SecretKey: src.S3.SecretKey,
			Region:    src.S3.Region,
			UseSSL:    src.S3.UseSSL,
			Bucket:    src.S3.Bucket,
			Key:       src.S3.Key,
		})
		if err != nil {
			return nil, err
		}
		ds = obj
	case "http":
		h, err := httpSource(src.HTTP)
		if err != nil {
			return nil, err
		}
		ds = h
	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}

	rc, err := ds.Open(ctx)
	if err != nil {
		return nil, err
	}
	cur, err := csvsource.New(rc, csvOptions(src.Options))
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	return cur, nil
}

func httpSource(c config.SourceHTTP) (*httpds.Source, error) {
	cfg := httpds.Config{
		URL:                c.URL,
		MaxRetries:         c.MaxRetries,
		InsecureSkipVerify: c.InsecureSkipVerify,
	}
	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return nil, fmt.Errorf("http timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if len(c.Headers) > 0 {
		cfg.Header = http.Header{}
		for k, v := range c.Headers {
			cfg.Header.Set(k, v)
		}
	}
	return httpds.New(cfg)
}

func csvOptions(o config.Options) csvsource.Options {
	return csvsource.Options{
		Comma:            o.Rune("comma", ','),
		LazyQuotes:       o.Bool("lazy_quotes", false),
		TrimSpace:        o.Bool("trim_space", false),
		EmptyAsNull:      o.Bool("empty_as_null", false),
		NormalizeHeaders: o.Bool("normalize_headers", false),
		HeaderMap:        o.StringMap("header_map"),
	}
}

func mappings(ms []config.Mapping) []importer.Mapping {
	if len(ms) == 0 {
		return nil
	}
	out := make([]importer.Mapping, len(ms))
	for i, m := range ms {
		out[i] = importer.Mapping{Source: m.Source, Destination: m.Destination}
	}
	return out
}

func importName(imp config.Import) string {
	if imp.Name != "" {
		return imp.Name
	}
	return imp.Destination.Table
}

// selectImports returns the imports named in only, in pipeline order, or all
// imports when only is empty.
func selectImports(all []config.Import, only []string) ([]config.Import, error) {
	if len(only) == 0 {
		return all, nil
	}
	want := make(map[string]bool, len(only))
	for _, n := range only {
		want[n] = true
	}
	var out []config.Import
	for _, imp := range all {
		if want[importName(imp)] {
			out = append(out, imp)
			delete(want, importName(imp))
		}
	}
	if len(want) > 0 {
		var missing []string
		for _, n := range only {
			if want[n] {
				missing = append(missing, n)
			}
		}
		return nil, fmt.Errorf("no import named %v", missing)
	}
	return out, nil
}

// setupMetrics installs the configured metrics backend. The returned function
// pushes or flushes what was recorded.
func setupMetrics(p config.Pipeline, lg *slog.Logger) (func(), error) {
	var (
		b   metrics.Backend
		err error
	)
	switch p.Metrics.Backend {
	case "", "none":
		return func() {}, nil
	case "prompush":
		b, err = prompush.NewBackend(p.Job, p.Metrics.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       p.Metrics.DatadogAddr,
			Namespace:  p.Metrics.Namespace,
			GlobalTags: p.Metrics.Tags,
		})
	default:
		return nil, fmt.Errorf("metrics: unknown backend %q", p.Metrics.Backend)
	}
	if err != nil {
		return nil, err
	}

	metrics.SetBackend(b)
	lg.Info("metrics enabled", "backend", p.Metrics.Backend)
	return func() {
		if err := metrics.Flush(); err != nil {
			lg.Warn("metrics flush failed", "err", err)
		}
	}, nil
}
