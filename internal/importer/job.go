// Package importer streams rows from a source.Cursor into a destination table
// in fixed-size batches.
//
// A Job probes the destination once to learn its shape, materializes every
// cursor row into that shape, buffers rows into batches and bulk-writes each
// full batch through a storage.Repository. The destination may be cleared
// before the first batch. Failures are scoped: a field that cannot be
// converted is reported and left NULL, a batch that cannot be written is
// reported and skipped, and only a destination that cannot be probed aborts
// the job. After the cursor is exhausted the destination is counted and that
// count is reported as the job's total.
//
// Progress is reported to Listeners subscribed to the Job:
//
//	job := importer.New(repo, importer.Config{Table: "dbo.Sales", Truncate: true})
//	job.Subscribe(importer.ListenerFunc(func(e importer.Event) { ... }))
//	sum, err := job.Run(ctx, cursor)
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"dataimport/internal/source"
	"dataimport/internal/storage"
)

// DefaultBatchSize is used when Config.BatchSize is zero.
const DefaultBatchSize = 50000

// BatchErrorPolicy decides what the pump does after a failed flush.
type BatchErrorPolicy int

const (
	// ContinueOnError reports the failed batch and keeps reading.
	ContinueOnError BatchErrorPolicy = iota
	// StopOnError reports the failed batch and ends the job.
	StopOnError
)

func (p BatchErrorPolicy) String() string {
	if p == StopOnError {
		return "stop"
	}
	return "continue"
}

// ParseBatchErrorPolicy parses "continue" (or "") and "stop".
func ParseBatchErrorPolicy(s string) (BatchErrorPolicy, error) {
	switch s {
	case "", "continue":
		return ContinueOnError, nil
	case "stop":
		return StopOnError, nil
	}
	return ContinueOnError, fmt.Errorf("unknown batch error policy %q (want continue|stop)", s)
}

// Config describes one import.
type Config struct {
	// Table is the destination, optionally schema-qualified and quoted in the
	// backend's dialect ("dbo.Sales", "[my db].[dbo].[t]").
	Table string

	// BatchSize is the number of rows per bulk write. Zero selects
	// DefaultBatchSize.
	BatchSize int

	// Truncate clears the destination before the first batch is written.
	Truncate     bool
	TruncateMode storage.ClearMode

	// Mappings route source columns to destination columns. When empty,
	// columns are matched by name.
	Mappings []Mapping

	OnBatchError BatchErrorPolicy

	// MaxRowsPerSecond throttles bulk writes. Zero disables throttling.
	MaxRowsPerSecond float64

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// ID identifies the job in logs; a random UUID when empty.
	ID string
}

// Summary is the outcome of Run.
type Summary struct {
	JobID         string
	Table         string
	RowsRead      int64
	RowsWritten   int64
	RowsVerified  int64
	Batches       int
	FailedBatches int
	DataErrors    int64
	CountErr      *CountError
	Elapsed       time.Duration
}

// Job is one import run into one destination table. Listeners must be
// subscribed before Run.
type Job struct {
	repo      storage.Repository
	cfg       Config
	log       *slog.Logger
	listeners []Listener
	now       func() time.Time
}

// New returns a Job that writes through repo.
func New(repo storage.Repository, cfg Config) *Job {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.TruncateMode == "" {
		cfg.TruncateMode = storage.ClearDelete
	}
	lg := cfg.Logger
	if lg == nil {
		lg = slog.Default()
	}
	return &Job{
		repo: repo,
		cfg:  cfg,
		log:  lg.With("job", cfg.ID, "table", cfg.Table),
		now:  time.Now,
	}
}

// ID returns the job id.
func (j *Job) ID() string { return j.cfg.ID }

// Subscribe registers listeners for this job's events.
func (j *Job) Subscribe(ls ...Listener) {
	for _, l := range ls {
		if l != nil {
			j.listeners = append(j.listeners, l)
		}
	}
}

// Run imports every row of cur and blocks until Completed has fired. It does
// not close cur.
//
// Run returns a *SchemaError, without firing any event, when the destination
// cannot be probed. Field and batch failures are reported as events and do not
// fail Run, except that under StopOnError the failed batch's *ImportError is
// returned. A cursor failure or context cancellation stops reading; the
// pending batch is still flushed, the destination is counted, Completed fires
// and Run returns a *ReadError.
func (j *Job) Run(ctx context.Context, cur source.Cursor) (Summary, error) {
	sum := Summary{JobID: j.cfg.ID, Table: j.cfg.Table}
	if j.repo == nil {
		return sum, errors.New("importer: nil repository")
	}
	if j.cfg.BatchSize < 0 {
		return sum, fmt.Errorf("importer: %w, got %d", ErrInvalidBatchSize, j.cfg.BatchSize)
	}

	table, err := storage.ParseTable(j.repo.Dialect(), j.cfg.Table)
	if err != nil {
		return sum, &SchemaError{Table: j.cfg.Table, Err: err}
	}
	stmts := storage.StatementsFor(table)
	cols, err := j.repo.Probe(ctx, stmts.Probe)
	if err != nil {
		return sum, &SchemaError{Table: j.cfg.Table, Err: err}
	}
	shape, err := NewShape(table, cols)
	if err != nil {
		return sum, &SchemaError{Table: j.cfg.Table, Err: err}
	}

	r := &run{
		Job:      j,
		table:    table,
		stmts:    stmts,
		plan:     newPlan(shape, cur.Columns(), j.cfg.Mappings),
		truncate: j.cfg.Truncate,
		sum:      sum,
	}
	if j.cfg.MaxRowsPerSecond > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(j.cfg.MaxRowsPerSecond), j.cfg.BatchSize)
	}
	return r.pump(ctx, cur)
}

// run holds the state of one Run call.
type run struct {
	*Job
	table    storage.Table
	stmts    storage.Statements
	plan     plan
	limiter  *rate.Limiter
	batch    [][]any
	truncate bool

	start        time.Time
	lastProgress time.Time
	consumed     int64
	sum          Summary
}

func (r *run) emit(e Event) {
	for _, l := range r.listeners {
		l.OnEvent(e)
	}
}

func (r *run) pump(ctx context.Context, cur source.Cursor) (Summary, error) {
	r.start = r.now()
	r.lastProgress = r.start
	r.batch = make([][]any, 0, r.batchCap())
	r.emit(Starting{Table: r.cfg.Table, StartTime: r.start})
	r.log.Info("import starting",
		"batch_size", r.cfg.BatchSize,
		"truncate", r.cfg.Truncate,
		"columns", len(r.plan.names),
	)

	var readErr, stopErr error
	for {
		if err := ctx.Err(); err != nil {
			readErr = err
			break
		}
		if !cur.Next() {
			readErr = cur.Err()
			break
		}
		r.consumed++
		r.batch = append(r.batch, r.materialize(cur))
		if len(r.batch) >= r.cfg.BatchSize {
			if err := r.flush(ctx); err != nil && r.cfg.OnBatchError == StopOnError {
				stopErr = err
				break
			}
		}
	}

	// A canceled job still gets one attempt at its pending rows and the
	// count; neither should observe the cancellation.
	tail := ctx
	if ctx.Err() != nil {
		tail = context.WithoutCancel(ctx)
	}
	if stopErr == nil && len(r.batch) > 0 {
		if err := r.flush(tail); err != nil && r.cfg.OnBatchError == StopOnError {
			stopErr = err
		}
	}

	total := r.verify(tail)
	done := r.now()
	r.sum.RowsRead = r.consumed
	r.sum.RowsVerified = total
	r.sum.Elapsed = done.Sub(r.start)
	r.emit(Completed{
		Table:          r.cfg.Table,
		StartTime:      r.start,
		CompletionTime: done,
		TotalElapsed:   r.sum.Elapsed,
		TotalRows:      total,
	})
	r.log.Info("import completed",
		"rows_read", r.sum.RowsRead,
		"rows_written", r.sum.RowsWritten,
		"rows_verified", total,
		"batches", r.sum.Batches,
		"failed_batches", r.sum.FailedBatches,
		"data_errors", r.sum.DataErrors,
		"elapsed", r.sum.Elapsed.Truncate(time.Millisecond),
	)

	switch {
	case stopErr != nil:
		return r.sum, stopErr
	case readErr != nil:
		return r.sum, &ReadError{Table: r.cfg.Table, Rows: r.consumed, Err: readErr}
	}
	return r.sum, nil
}

func (r *run) batchCap() int {
	// Capacity is capped; larger batches grow on demand.
	if r.cfg.BatchSize > 4096 {
		return 4096
	}
	return r.cfg.BatchSize
}

// materialize builds one destination row from the cursor's current row.
func (r *run) materialize(cur source.Cursor) []any {
	row := r.plan.shape.NewRow()
	for i := range r.plan.fields {
		f := &r.plan.fields[i]
		v, raw, err := f.read(cur)
		if err != nil {
			r.dataError(row, f, raw, err)
			continue
		}
		row[f.dest] = v
	}
	return row
}

func (r *run) dataError(row []any, f *field, raw any, err error) {
	r.sum.DataErrors++
	dce := &DataConversionError{
		Table:  r.cfg.Table,
		Column: f.column,
		Source: f.source,
		Row:    r.consumed,
		Value:  raw,
		Err:    err,
	}
	r.log.Debug("field skipped", "row", r.consumed, "column", f.column, "err", err)
	r.emit(DataError{Table: r.cfg.Table, Err: dce, PartialRow: append([]any(nil), row...)})
}

// flush writes the current batch once and starts a new one. The new batch
// gets its own backing array so a driver holding on to the old rows never
// sees them overwritten.
func (r *run) flush(ctx context.Context) error {
	rows := r.batch
	r.batch = make([][]any, 0, r.batchCap())
	r.sum.Batches++

	n, err := r.write(ctx, rows)
	r.sum.RowsWritten += n
	now := r.now()
	if err != nil {
		r.sum.FailedBatches++
		ie := &ImportError{Table: r.cfg.Table, Err: err, StartTime: r.start, StopTime: now}
		r.log.Error("batch failed",
			"batch", r.sum.Batches,
			"rows", len(rows),
			"total_read", r.consumed,
			"err", err,
		)
		r.emit(ie)
		return ie
	}
	r.truncate = false

	sinceLast := now.Sub(r.lastProgress)
	rps := float64(0)
	if sinceLast > 0 {
		rps = float64(len(rows)) / sinceLast.Seconds()
	}
	r.log.Info("batch flushed",
		"batch", r.sum.Batches,
		"rps", int64(rps),
		"rows", len(rows),
		"inserted", n,
		"total_read", r.consumed,
		"elapsed", now.Sub(r.start).Truncate(time.Millisecond),
		"since_last", sinceLast.Truncate(time.Millisecond),
	)
	r.emit(Progress{
		Table:             r.cfg.Table,
		RowsInBatch:       len(rows),
		TotalRows:         r.consumed,
		Elapsed:           now.Sub(r.start),
		SinceLastProgress: sinceLast,
	})
	r.lastProgress = now
	return nil
}

// write clears the destination when this is still the first batch and then
// bulk-writes rows.
func (r *run) write(ctx context.Context, rows [][]any) (int64, error) {
	if r.limiter != nil {
		if err := r.limiter.WaitN(ctx, len(rows)); err != nil {
			return 0, fmt.Errorf("throttle: %w", err)
		}
	}
	if r.truncate {
		if err := r.repo.Exec(ctx, r.stmts.Clear(r.cfg.TruncateMode)); err != nil {
			return 0, fmt.Errorf("clear %s: %w", r.table, err)
		}
		r.log.Info("destination cleared", "mode", string(r.cfg.TruncateMode))
	}
	n, err := r.repo.CopyFrom(ctx, r.table, r.plan.names, r.plan.project(rows))
	if err != nil {
		return n, fmt.Errorf("bulk write: %w", err)
	}
	return n, nil
}

// verify counts the destination. A failed count is recorded and reported as
// UnknownRowCount.
func (r *run) verify(ctx context.Context) int64 {
	n, err := r.repo.Count(ctx, r.stmts.Count)
	if err != nil {
		r.sum.CountErr = &CountError{Table: r.cfg.Table, Err: err}
		r.log.Warn("row count unavailable", "err", err)
		return UnknownRowCount
	}
	return n
}
