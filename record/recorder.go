package record

import (
	"fmt"
	"os"
	"time"

	"github.com/rankrunner/rankrunner/reporting"
	"github.com/rankrunner/rankrunner/types"
)

var _ reporting.Sink = (*Recorder)(nil)

// Recorder intercepts the reporting calls made inside one worker process
// and accumulates them in memory instead of forwarding them anywhere. On
// Close the accumulated log is serialized in full to the artifact path
// supplied at construction. Calls after Close panic: the per-worker
// protocol ends at Closed.
type Recorder struct {
	file   *os.File
	log    types.EventLog
	closed bool
}

// NewRecorder opens (creating if absent) the artifact file at path and
// returns a recorder for the given worker identity.
func NewRecorder(path, suite string, config, rank int) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating artifact %s: %w", path, err)
	}
	return &Recorder{
		file: f,
		log: types.EventLog{
			Header: types.LogHeader{
				Version: types.LogVersion,
				Suite:   suite,
				Config:  config,
				Rank:    rank,
				Created: time.Now().UTC(),
			},
		},
	}, nil
}

// Log returns the events recorded so far.
func (r *Recorder) Log() *types.EventLog {
	return &r.log
}

// Close serializes the accumulated event log to the artifact file, flushes
// it to stable storage and closes it. A serialization or flush failure is
// returned rather than swallowed, so the worker process can exit non-zero
// instead of leaving a silently truncated artifact behind.
func (r *Recorder) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	encodeErr := Encode(r.file, &r.log)
	syncErr := r.file.Sync()
	closeErr := r.file.Close()

	if encodeErr != nil {
		return fmt.Errorf("writing artifact %s: %w", r.file.Name(), encodeErr)
	}
	if syncErr != nil {
		return fmt.Errorf("flushing artifact %s: %w", r.file.Name(), syncErr)
	}
	if closeErr != nil {
		return fmt.Errorf("closing artifact %s: %w", r.file.Name(), closeErr)
	}
	return nil
}

func (r *Recorder) append(e types.Event) {
	if r.closed {
		panic("record: event recorded after Close")
	}
	r.log.Events = append(r.log.Events, e)
}

// SuiteStarted implements reporting.Sink.
func (r *Recorder) SuiteStarted(id types.TestID) {
	r.append(types.Event{Kind: types.SuiteStarted, Test: id})
}

// SuiteFinished implements reporting.Sink.
func (r *Recorder) SuiteFinished(id types.TestID) {
	r.append(types.Event{Kind: types.SuiteFinished, Test: id})
}

// TestStarted implements reporting.Sink.
func (r *Recorder) TestStarted(id types.TestID) {
	r.append(types.Event{Kind: types.TestStarted, Test: id})
}

// TestFinished implements reporting.Sink.
func (r *Recorder) TestFinished(id types.TestID) {
	r.append(types.Event{Kind: types.TestFinished, Test: id})
}

// TestIgnored implements reporting.Sink.
func (r *Recorder) TestIgnored(id types.TestID) {
	r.append(types.Event{Kind: types.TestIgnored, Test: id})
}

// TestFailed implements reporting.Sink.
func (r *Recorder) TestFailed(id types.TestID, failure string) {
	r.append(types.Event{Kind: types.TestFailed, Test: id, Failure: failure})
}

// AssumptionFailed implements reporting.Sink.
func (r *Recorder) AssumptionFailed(id types.TestID, failure string) {
	r.append(types.Event{Kind: types.AssumptionFailed, Test: id, Failure: failure})
}
