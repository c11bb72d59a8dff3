package runner

import "sync/atomic"

// Status is a process exit status accumulated over a run.
type Status int32

const (
	// OK means every file was processed and nothing needs attention.
	OK Status = 0
	// Different means list-different mode found unformatted files.
	Different Status = 1
	// Failed means at least one file could not be read, formatted or written.
	Failed Status = 2
)

// ExitFatal is returned for invalid configuration. It preempts every Status.
const ExitFatal = 3

// ExitState is an escalate-only Status shared by every file of a run.
// The zero value is OK and safe for concurrent use.
type ExitState struct {
	v atomic.Int32
}

// Escalate raises the state to s if s is more severe than the current one.
func (e *ExitState) Escalate(s Status) {
	for {
		cur := e.v.Load()
		if int32(s) <= cur || e.v.CompareAndSwap(cur, int32(s)) {
			return
		}
	}
}

// Status returns the current state.
func (e *ExitState) Status() Status {
	return Status(e.v.Load())
}

// Outcome classifies what happened to one file.
type Outcome int

const (
	Unchanged Outcome = iota
	Written
	Reported
	Emitted
	Checked
	ReadError
	FormatError
	WriteError
	Skipped
)

var outcomeNames = [...]string{
	Unchanged:   "unchanged",
	Written:     "written",
	Reported:    "reported",
	Emitted:     "emitted",
	Checked:     "checked",
	ReadError:   "read-error",
	FormatError: "format-error",
	WriteError:  "write-error",
	Skipped:     "skipped",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}
