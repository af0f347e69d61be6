package types

import (
	"fmt"
	"time"
)

// LogVersion is the artifact encoding version understood by this build.
const LogVersion = 1

// LogHeader identifies which worker, of which run of which configuration,
// produced an event log.
type LogHeader struct {
	Version int       `json:"v"`
	Suite   string    `json:"suite"`
	Config  int       `json:"config"`
	Rank    int       `json:"rank"`
	Created time.Time `json:"created"`
}

// EventLog is the ordered sequence of events produced by exactly one worker
// during exactly one run of exactly one configuration. It is owned
// exclusively by that worker until written, and read-only afterward.
type EventLog struct {
	Header LogHeader
	Events []Event
}

// Validate checks the per-worker event protocol:
//
//	NotStarted -> SuiteStarted -> {TestStarted -> [TestFailed] -> TestFinished}*
//	interleaved with {TestIgnored}* -> SuiteFinished
//
// An ignored method never has a started/finished pair, and nothing follows
// the closing suite boundary.
func (l *EventLog) Validate() error {
	if len(l.Events) < 2 {
		return fmt.Errorf("event log has %d events, want at least suite boundaries", len(l.Events))
	}
	if first := l.Events[0]; first.Kind != SuiteStarted {
		return fmt.Errorf("first event is %s, want %s", first.Kind, SuiteStarted)
	}
	if last := l.Events[len(l.Events)-1]; last.Kind != SuiteFinished {
		return fmt.Errorf("last event is %s, want %s", last.Kind, SuiteFinished)
	}

	open := "" // method with a started event awaiting its finish
	for i, e := range l.Events {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		if i > 0 && e.Kind == SuiteStarted {
			return fmt.Errorf("event %d: duplicate %s", i, SuiteStarted)
		}
		if i < len(l.Events)-1 && e.Kind == SuiteFinished {
			return fmt.Errorf("event %d: %s before end of log", i, SuiteFinished)
		}
		switch e.Kind {
		case TestStarted:
			if open != "" {
				return fmt.Errorf("event %d: %s for %q while %q is still open", i, e.Kind, e.Test.Method, open)
			}
			open = e.Test.Method
		case TestFailed, AssumptionFailed:
			if open != e.Test.Method {
				return fmt.Errorf("event %d: %s for %q without a preceding %s", i, e.Kind, e.Test.Method, TestStarted)
			}
		case TestFinished:
			if open != e.Test.Method {
				return fmt.Errorf("event %d: %s for %q without a preceding %s", i, e.Kind, e.Test.Method, TestStarted)
			}
			open = ""
		case TestIgnored:
			if open != "" {
				return fmt.Errorf("event %d: %s for %q while %q is still open", i, e.Kind, e.Test.Method, open)
			}
		}
	}
	if open != "" {
		return fmt.Errorf("method %q was started but never finished", open)
	}
	return nil
}
