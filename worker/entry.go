package worker

import (
	"context"
	"os"

	"github.com/ethereum/go-ethereum/log"

	"github.com/rankrunner/rankrunner/exitcodes"
	"github.com/rankrunner/rankrunner/record"
	"github.com/rankrunner/rankrunner/types"
)

// Main is the shared entry point for worker programs. A worker binary
// declares its suites and hands control over:
//
//	func main() {
//		os.Exit(worker.Main(hashSuite, gridSuite))
//	}
//
// Main parses the arguments appended by the orchestrator, selects the
// requested suite, runs it either for this process's rank (native backend)
// or for every rank in-process (multicore backend), and writes the
// artifact(s) the orchestrator will replay.
func Main(suites ...types.Suite) int {
	logger := log.New("role", "worker")

	inv, err := ParseArgs(os.Args[1:])
	if err != nil {
		logger.Error("Invalid worker invocation", "args", os.Args[1:], "error", err)
		return exitcodes.RuntimeErr
	}

	suite, ok := findSuite(suites, inv.Suite)
	if !ok {
		logger.Error("Unknown suite", "suite", inv.Suite, "known", suiteNames(suites))
		return exitcodes.RuntimeErr
	}

	ctx := context.Background()
	if inv.Procs > 0 {
		if err := RunMulticore(ctx, logger, suite, inv.Procs, inv.Config, inv.ArtifactDir); err != nil {
			logger.Error("Fan-out run failed", "suite", suite.Name, "error", err)
			return exitcodes.RuntimeErr
		}
		return exitcodes.Success
	}
	if err := runNative(ctx, logger, suite, inv); err != nil {
		logger.Error("Worker run failed", "suite", suite.Name, "error", err)
		return exitcodes.RuntimeErr
	}
	return exitcodes.Success
}

// runNative executes the suite for the single rank this process embodies.
func runNative(ctx context.Context, logger log.Logger, suite types.Suite, inv Invocation) error {
	rank, err := DiscoverRank()
	if err != nil {
		return err
	}
	size, err := DiscoverSize()
	if err != nil {
		return err
	}

	path := record.ArtifactPath(inv.ArtifactDir, suite.Name, inv.Config, rank)
	rec, err := record.NewRecorder(path, suite.Name, inv.Config, rank)
	if err != nil {
		return err
	}
	runErr := NewRunner(logger.New("rank", rank)).Run(ctx, suite, types.WorkerEnv{
		Rank:   rank,
		Size:   size,
		Config: inv.Config,
	}, rec)
	closeErr := rec.Close()
	if runErr != nil {
		return runErr
	}
	return closeErr
}

func findSuite(suites []types.Suite, name string) (types.Suite, bool) {
	for _, s := range suites {
		if s.Name == name {
			return s, true
		}
	}
	return types.Suite{}, false
}

func suiteNames(suites []types.Suite) []string {
	names := make([]string, len(suites))
	for i, s := range suites {
		names[i] = s.Name
	}
	return names
}
