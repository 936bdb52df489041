// Package observe turns importer events into structured logs and metrics.
package observe

import (
	"errors"
	"log/slog"
	"time"

	"dataimport/internal/importer"
	"dataimport/internal/metrics"
)

// maxDataErrorLogs caps per-field warnings for one job; later ones are only
// counted.
const maxDataErrorLogs = 20

// Log returns a listener that writes one line per event to lg. Data errors
// beyond the first few of a job are counted instead of logged.
func Log(lg *slog.Logger) importer.Listener {
	if lg == nil {
		lg = slog.Default()
	}
	return &logListener{log: lg}
}

type logListener struct {
	log        *slog.Logger
	dataErrors int
}

func (l *logListener) OnEvent(e importer.Event) {
	switch ev := e.(type) {
	case importer.Starting:
		l.dataErrors = 0
		l.log.Info("import started", "table", ev.Table, "start", ev.StartTime.Format(time.RFC3339))
	case importer.Progress:
		l.log.Info("import progress",
			"table", ev.Table,
			"rows_in_batch", ev.RowsInBatch,
			"total_rows", ev.TotalRows,
			"elapsed", ev.Elapsed.Truncate(time.Millisecond),
			"since_last", ev.SinceLastProgress.Truncate(time.Millisecond),
		)
	case importer.DataError:
		l.dataErrors++
		switch {
		case l.dataErrors <= maxDataErrorLogs:
			l.log.Warn("data conversion error",
				"table", ev.Table,
				"row", ev.Err.Row,
				"column", ev.Err.Column,
				"err", ev.Err.Err,
			)
		case l.dataErrors == maxDataErrorLogs+1:
			l.log.Warn("further data conversion errors suppressed", "table", ev.Table)
		}
	case *importer.ImportError:
		l.log.Error("batch import failed",
			"table", ev.Table,
			"err", ev.Err,
			"after", ev.StopTime.Sub(ev.StartTime).Truncate(time.Millisecond),
		)
	case importer.Completed:
		attrs := []any{
			"table", ev.Table,
			"elapsed", ev.TotalElapsed.Truncate(time.Millisecond),
			"data_errors", l.dataErrors,
		}
		if ev.TotalRows == importer.UnknownRowCount {
			l.log.Warn("import completed, row count unknown", attrs...)
			return
		}
		l.log.Info("import completed", append(attrs, "total_rows", ev.TotalRows)...)
	}
}

// Metrics returns a listener that records the job's events under the metrics
// label job.
func Metrics(job string) importer.Listener {
	return &metricsListener{job: job}
}

type metricsListener struct {
	job  string
	read int64
}

func (m *metricsListener) OnEvent(e importer.Event) {
	switch ev := e.(type) {
	case importer.Starting:
		m.read = 0
	case importer.Progress:
		metrics.RecordBatch(m.job, nil, ev.SinceLastProgress)
		metrics.RecordRows(m.job, "written", int64(ev.RowsInBatch))
		metrics.RecordRows(m.job, "read", ev.TotalRows-m.read)
		m.read = ev.TotalRows
	case importer.DataError:
		metrics.RecordRows(m.job, "data_errors", 1)
	case *importer.ImportError:
		metrics.RecordBatch(m.job, ev.Err, ev.StopTime.Sub(ev.StartTime))
	case importer.Completed:
		var err error
		if ev.TotalRows == importer.UnknownRowCount {
			err = errRowCountUnknown
		} else {
			metrics.RecordRows(m.job, "verified", ev.TotalRows)
		}
		metrics.RecordStep(m.job, "import", err, ev.TotalElapsed)
	}
}

var errRowCountUnknown = errors.New("row count unknown")
