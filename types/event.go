// Package types contains shared types used across the rankrunner framework.
package types

import (
	"fmt"
)

// EventKind identifies one reporting call captured during a worker's execution.
// The set is closed: replay dispatches on the kind with a switch, so an
// unrecognized kind is a protocol mismatch, not a lookup miss.
type EventKind string

const (
	SuiteStarted     EventKind = "suite-started"
	SuiteFinished    EventKind = "suite-finished"
	TestStarted      EventKind = "test-started"
	TestFinished     EventKind = "test-finished"
	TestIgnored      EventKind = "test-ignored"
	TestFailed       EventKind = "test-failed"
	AssumptionFailed EventKind = "assumption-failed"
)

// String implements the Stringer interface for EventKind
func (k EventKind) String() string {
	return string(k)
}

// IsValid reports whether k is one of the known event kinds.
func (k EventKind) IsValid() bool {
	switch k {
	case SuiteStarted, SuiteFinished, TestStarted, TestFinished,
		TestIgnored, TestFailed, AssumptionFailed:
		return true
	}
	return false
}

// TestID identifies a test method within one run of one configuration.
// Config is -1 for non-parameterized runs. Method is empty for suite-level
// events. The aggregator rewrites Method to "[rank] method" when merging.
type TestID struct {
	Suite  string `json:"suite"`
	Config int    `json:"config"`
	Method string `json:"method,omitempty"`
}

// Tagged returns a copy of the identifier with the method prefixed by the
// rank tag, matching the leaf naming used by the topology builder.
func (id TestID) Tagged(rank int) TestID {
	id.Method = fmt.Sprintf("[%d] %s", rank, id.Method)
	return id
}

// String returns the hierarchical form of the identifier.
func (id TestID) String() string {
	s := id.Suite
	if id.Config >= 0 {
		s = fmt.Sprintf("%s#%d", s, id.Config)
	}
	if id.Method != "" {
		s = s + "/" + id.Method
	}
	return s
}

// Event is a single captured reporting call. It is a tagged union: Kind
// selects the variant, Test carries the identifier for every kind, and
// Failure carries the error description only for TestFailed and
// AssumptionFailed events.
type Event struct {
	Kind    EventKind `json:"kind"`
	Test    TestID    `json:"test"`
	Failure string    `json:"failure,omitempty"`
}

// Validate checks that the event is well formed in isolation.
func (e Event) Validate() error {
	if !e.Kind.IsValid() {
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	switch e.Kind {
	case SuiteStarted, SuiteFinished:
		if e.Test.Method != "" {
			return fmt.Errorf("%s event carries method %q", e.Kind, e.Test.Method)
		}
	default:
		if e.Test.Method == "" {
			return fmt.Errorf("%s event is missing a method name", e.Kind)
		}
	}
	if e.Failure != "" && e.Kind != TestFailed && e.Kind != AssumptionFailed {
		return fmt.Errorf("%s event carries a failure payload", e.Kind)
	}
	return nil
}
