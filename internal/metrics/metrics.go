// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from import jobs.
//
// The package exposes a narrow interface (Backend) focused on counters and
// timing data. A global, pluggable backend defaults to a no-op implementation,
// so metrics are always safe to call even when no real backend is configured.
// Concrete systems (Prometheus Pushgateway, Datadog) live in subpackages, the
// same way storage backends do.
package metrics

import "time"

// Metric names emitted by this package.
const (
	StepTotal            = "import_step_total"
	StepDurationSeconds  = "import_step_duration_seconds"
	RowsTotal            = "import_rows_total"
	BatchesTotal         = "import_batches_total"
	BatchDurationSeconds = "import_batch_duration_seconds"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

func status(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordStep measures latency and success/failure of one job step such as
// "probe" or "import".
func RecordStep(job, step string, err error, d time.Duration) {
	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status(err),
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// RecordRows increments the row counter for the given job and kind.
//
// Kinds mirror the job summary:
//   - "read"
//   - "written"
//   - "verified"
//   - "data_errors"
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordBatch counts one flushed batch and, for successful batches, observes
// how long it took since the previous one.
func RecordBatch(job string, err error, d time.Duration) {
	lbls := Labels{
		"job":    job,
		"status": status(err),
	}
	backend.IncCounter(BatchesTotal, 1, lbls)
	if err == nil {
		backend.ObserveHistogram(BatchDurationSeconds, d.Seconds(), lbls)
	}
}
