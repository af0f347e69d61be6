// Package replay reads the per-worker artifacts of one suite execution back
// in rank order and replays their events onto a report sink, so that N
// worker runs merge into a single coherent report. It also houses the
// degradation policy applied when a worker leaves no readable artifact.
package replay

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ethereum/go-ethereum/log"

	"github.com/rankrunner/rankrunner/record"
	"github.com/rankrunner/rankrunner/reporting"
	"github.com/rankrunner/rankrunner/types"
)

// AllRanks disables the single-worker restriction: artifacts of every rank
// are replayed and merged.
const AllRanks = -1

// Options configures one aggregation pass over a suite execution's
// artifacts.
type Options struct {
	Log         log.Logger
	Sink        reporting.Sink
	ArtifactDir string
	Suite       string
	// Config is the configuration index of a parameterized run, or a
	// negative value for a plain run. It selects the artifact names and is
	// carried into every replayed test identity.
	Config int
	// Ranks is the worker count of the execution.
	Ranks int
	// OnlyRank restricts the pass to a single worker's artifact, replayed
	// without rank tags. AllRanks merges everything.
	OnlyRank int
	// Keep retains artifacts after a successful replay. DryRun implies
	// retention: a run that produced no fresh artifacts must not destroy
	// the ones it read.
	Keep   bool
	DryRun bool
	// Action and Methods feed the degradation policy for workers whose
	// artifact is missing or corrupt.
	Action  types.FailureAction
	Methods []string
}

// Aggregator merges per-worker artifacts onto a sink.
type Aggregator struct {
	opts     Options
	log      log.Logger
	degrader *Degrader
}

// NewAggregator validates the options and builds an aggregator.
func NewAggregator(opts Options) (*Aggregator, error) {
	if opts.Log == nil {
		opts.Log = log.New()
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("aggregator requires a sink")
	}
	if opts.Ranks < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", opts.Ranks)
	}
	if opts.OnlyRank != AllRanks && (opts.OnlyRank < 0 || opts.OnlyRank >= opts.Ranks) {
		return nil, fmt.Errorf("rank restriction %d is outside [0, %d)", opts.OnlyRank, opts.Ranks)
	}
	degrader, err := NewDegrader(opts.Log, opts.Sink, opts.Action, opts.Suite, opts.Config, opts.Methods)
	if err != nil {
		return nil, err
	}
	return &Aggregator{opts: opts, log: opts.Log, degrader: degrader}, nil
}

// Stats summarizes one aggregation pass.
type Stats struct {
	Events   int // events replayed from real artifacts
	Degraded int // ranks whose results were synthesized
}

// Replay reads every selected artifact in ascending rank order and replays
// its events onto the sink. Test identities are tagged with the originating
// rank unless the pass is restricted to a single worker. A missing or
// corrupt artifact degrades that rank and the pass continues; an event the
// sink vocabulary does not know aborts the pass, since synthesizing results
// over a protocol mismatch would hide real outcomes.
func (a *Aggregator) Replay() (Stats, error) {
	ranks := make([]int, 0, a.opts.Ranks)
	if a.opts.OnlyRank != AllRanks {
		ranks = append(ranks, a.opts.OnlyRank)
	} else {
		for r := 0; r < a.opts.Ranks; r++ {
			ranks = append(ranks, r)
		}
	}
	tag := a.opts.OnlyRank == AllRanks

	var stats Stats
	for _, rank := range ranks {
		path := record.ArtifactPath(a.opts.ArtifactDir, a.opts.Suite, a.opts.Config, rank)
		replayed, err := a.replayArtifact(path, rank, tag)
		stats.Events += replayed
		if err != nil {
			var ae *ArtifactError
			if errors.As(err, &ae) {
				// The broken artifact is left in place for inspection.
				a.degrader.Rank(rank, ae)
				stats.Degraded++
				continue
			}
			return stats, err
		}
		if !a.keepArtifacts() {
			if err := os.Remove(path); err != nil {
				a.log.Warn("Could not remove replayed artifact", "path", path, "error", err)
			}
		}
	}
	return stats, nil
}

func (a *Aggregator) replayArtifact(path string, rank int, tag bool) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, &ArtifactError{Path: path, Rank: rank, Missing: errors.Is(err, fs.ErrNotExist), Err: err}
	}
	eventLog, err := record.Decode(f)
	closeErr := f.Close()
	if err != nil {
		return 0, &ArtifactError{Path: path, Rank: rank, Err: err}
	}
	if closeErr != nil {
		return 0, &ArtifactError{Path: path, Rank: rank, Err: closeErr}
	}
	if eventLog.Header.Rank != rank {
		return 0, &ArtifactError{Path: path, Rank: rank, Err: fmt.Errorf("header claims rank %d", eventLog.Header.Rank)}
	}

	a.log.Debug("Replaying artifact", "path", path, "rank", rank, "events", len(eventLog.Events))
	for i, e := range eventLog.Events {
		if tag && e.Test.Method != "" {
			e.Test = e.Test.Tagged(rank)
		}
		if err := reporting.Dispatch(a.opts.Sink, e); err != nil {
			return i, fmt.Errorf("replaying artifact %s: %w", path, err)
		}
	}
	return len(eventLog.Events), nil
}

func (a *Aggregator) keepArtifacts() bool {
	return a.opts.Keep || a.opts.DryRun
}
