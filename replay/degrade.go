package replay

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/rankrunner/rankrunner/reporting"
	"github.com/rankrunner/rankrunner/types"
)

// Degrader synthesizes results for workers that produced no readable
// artifact, according to the configured failure action:
//
//   - error:  every declared method is reported as failed, with the
//     underlying cause attached to the failure message
//   - skip:   every declared method is reported as ignored
//   - silent: nothing is reported and the problem only appears in the log
//
// A whole-run degradation covers a launch that never got off the ground and
// uses plain method names. A per-rank degradation covers a single missing or
// corrupt artifact and tags the synthetic results with that rank, matching
// the names the aggregator would have produced.
type Degrader struct {
	log     log.Logger
	sink    reporting.Sink
	action  types.FailureAction
	suite   string
	config  int
	methods []string
}

// NewDegrader creates a degradation policy for one suite execution.
func NewDegrader(logger log.Logger, sink reporting.Sink, action types.FailureAction, suite string, config int, methods []string) (*Degrader, error) {
	if logger == nil {
		logger = log.New()
	}
	if sink == nil {
		return nil, fmt.Errorf("degrader requires a sink")
	}
	if !action.IsValid() {
		return nil, fmt.Errorf("invalid failure action %q", action)
	}
	return &Degrader{
		log:     logger,
		sink:    sink,
		action:  action,
		suite:   suite,
		config:  config,
		methods: methods,
	}, nil
}

// Run degrades the entire execution. Used when the worker launch itself
// failed and no artifact can be expected from any rank.
func (d *Degrader) Run(cause error) {
	d.log.Error("Degrading entire run", "suite", d.suite, "action", d.action, "cause", cause)
	d.degrade(noRank, cause)
}

// Rank degrades a single worker whose artifact was missing or unreadable.
func (d *Degrader) Rank(rank int, cause error) {
	d.log.Error("Degrading worker results", "suite", d.suite, "rank", rank, "action", d.action, "cause", cause)
	d.degrade(rank, cause)
}

const noRank = -1

func (d *Degrader) degrade(rank int, cause error) {
	if d.action == types.ActionSilent {
		return
	}
	boundary := types.TestID{Suite: d.suite, Config: d.config}
	d.sink.SuiteStarted(boundary)
	for _, m := range d.methods {
		id := types.TestID{Suite: d.suite, Config: d.config, Method: m}
		if rank != noRank {
			id = id.Tagged(rank)
		}
		switch d.action {
		case types.ActionSkip:
			d.sink.TestIgnored(id)
		case types.ActionError:
			d.sink.TestStarted(id)
			d.sink.TestFailed(id, failureText(cause))
			d.sink.TestFinished(id)
		}
	}
	d.sink.SuiteFinished(boundary)
}

func failureText(cause error) string {
	err := fmt.Errorf("could not produce results for this test: %w", cause)
	return err.Error()
}
