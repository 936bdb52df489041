package importer

import (
	"fmt"
	"time"
)

// UnknownRowCount is reported as Completed.TotalRows when the destination
// could not be counted after the import.
const UnknownRowCount int64 = -1

// EventKind identifies an Event variant.
type EventKind int

const (
	KindStarting EventKind = iota + 1
	KindProgress
	KindDataError
	KindImportError
	KindCompleted
)

func (k EventKind) String() string {
	switch k {
	case KindStarting:
		return "starting"
	case KindProgress:
		return "progress"
	case KindDataError:
		return "data_error"
	case KindImportError:
		return "import_error"
	case KindCompleted:
		return "completed"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is one notification from a running Job. The concrete type is one of
// Starting, Progress, DataError, *ImportError or Completed.
type Event interface {
	Kind() EventKind
	event()
}

// Starting fires once per job, before the first row is read.
type Starting struct {
	Table     string
	StartTime time.Time
}

// Progress fires after every successful batch flush. TotalRows counts rows
// consumed from the cursor so far.
type Progress struct {
	Table             string
	RowsInBatch       int
	TotalRows         int64
	Elapsed           time.Duration
	SinceLastProgress time.Duration
}

// DataError fires once per field that could not be read or converted.
// PartialRow is a copy of the row's destination values at the time of the
// failure; the failing field is nil.
type DataError struct {
	Table      string
	Err        *DataConversionError
	PartialRow []any
}

// ImportError fires once per batch whose clear or bulk write failed.
// StartTime is the job's start; StopTime is when the flush failed. It is also
// the error Run returns when the job stops on a batch failure.
type ImportError struct {
	Table     string
	Err       error
	StartTime time.Time
	StopTime  time.Time
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("importer: flush %s: %v", e.Table, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// Completed fires exactly once, after the row count has been verified.
// TotalRows is the destination row count, or UnknownRowCount.
type Completed struct {
	Table          string
	StartTime      time.Time
	CompletionTime time.Time
	TotalElapsed   time.Duration
	TotalRows      int64
}

func (Starting) Kind() EventKind     { return KindStarting }
func (Progress) Kind() EventKind     { return KindProgress }
func (DataError) Kind() EventKind    { return KindDataError }
func (*ImportError) Kind() EventKind { return KindImportError }
func (Completed) Kind() EventKind    { return KindCompleted }

func (Starting) event()     {}
func (Progress) event()     {}
func (DataError) event()    {}
func (*ImportError) event() {}
func (Completed) event()    {}

// Listener receives the events of the jobs it is subscribed to. OnEvent is
// called synchronously from the pump.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to a Listener.
type ListenerFunc func(Event)

// OnEvent calls f(e).
func (f ListenerFunc) OnEvent(e Event) { f(e) }
