// Package reporting defines the report-sink contract shared by workers and
// the orchestrator, the topology handed to sinks before execution, and the
// sink implementations shipped with rankrunner.
package reporting

import (
	"github.com/rankrunner/rankrunner/types"
)

// Sink accepts the event vocabulary of a test run. Workers feed a recording
// sink during execution; the orchestrator feeds the real sink during replay.
// Implementations must tolerate duplicate suite-boundary calls: a merged
// report replays one pair per worker and the sink folds them.
type Sink interface {
	SuiteStarted(id types.TestID)
	SuiteFinished(id types.TestID)
	TestStarted(id types.TestID)
	TestFinished(id types.TestID)
	TestIgnored(id types.TestID)
	TestFailed(id types.TestID, failure string)
	AssumptionFailed(id types.TestID, failure string)
}

// TopologySink is implemented by sinks that want the expected test-plan
// structure up front, before any event arrives. Leaves that never receive
// events stay in their zero state, which is how `silent` degradation shows
// up to the user.
type TopologySink interface {
	Sink
	RegisterTopology(tree *Tree)
}

// Dispatch replays one recorded event onto a sink, switching on the kind.
// An unknown kind is reported to the caller rather than dropped: it means
// the artifact speaks a newer protocol than this build understands.
func Dispatch(s Sink, e types.Event) error {
	switch e.Kind {
	case types.SuiteStarted:
		s.SuiteStarted(e.Test)
	case types.SuiteFinished:
		s.SuiteFinished(e.Test)
	case types.TestStarted:
		s.TestStarted(e.Test)
	case types.TestFinished:
		s.TestFinished(e.Test)
	case types.TestIgnored:
		s.TestIgnored(e.Test)
	case types.TestFailed:
		s.TestFailed(e.Test, e.Failure)
	case types.AssumptionFailed:
		s.AssumptionFailed(e.Test, e.Failure)
	default:
		return &UnknownEventError{Kind: e.Kind}
	}
	return nil
}

// UnknownEventError reports an event kind the sink vocabulary does not
// include. It indicates a protocol mismatch between the artifact writer and
// this reader, so it is never degraded into synthetic results.
type UnknownEventError struct {
	Kind types.EventKind
}

func (e *UnknownEventError) Error() string {
	return "unknown event kind \"" + string(e.Kind) + "\" in recorded log"
}
