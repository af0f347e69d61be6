package worker

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/rankrunner/rankrunner/record"
	"github.com/rankrunner/rankrunner/types"
)

// RunMulticore executes the suite for every rank inside this one process,
// one goroutine per rank, each writing its own artifact. It mirrors what
// the native backend achieves with one OS process per rank; method bodies
// see the same WorkerEnv either way.
//
// The returned error covers infrastructure problems only. Test failures
// live in the artifacts.
func RunMulticore(ctx context.Context, logger log.Logger, suite types.Suite, procs, config int, artifactDir string) error {
	if logger == nil {
		logger = log.New()
	}
	if procs < 1 {
		return fmt.Errorf("fan-out width %d is invalid, need at least 1", procs)
	}
	if err := suite.Validate(); err != nil {
		return err
	}

	logger.Info("Fanning out workers", "suite", suite.Name, "procs", procs, "config", config)

	g, gctx := errgroup.WithContext(ctx)
	for rank := 0; rank < procs; rank++ {
		rank := rank
		g.Go(func() error {
			path := record.ArtifactPath(artifactDir, suite.Name, config, rank)
			rec, err := record.NewRecorder(path, suite.Name, config, rank)
			if err != nil {
				return err
			}
			runErr := NewRunner(logger.New("rank", rank)).Run(gctx, suite, types.WorkerEnv{
				Rank:   rank,
				Size:   procs,
				Config: config,
			}, rec)
			closeErr := rec.Close()
			if runErr != nil {
				return fmt.Errorf("rank %d: %w", rank, runErr)
			}
			if closeErr != nil {
				return fmt.Errorf("rank %d: %w", rank, closeErr)
			}
			return nil
		})
	}
	return g.Wait()
}
