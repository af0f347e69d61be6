package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankrunner/rankrunner/record"
	"github.com/rankrunner/rankrunner/reporting"
	"github.com/rankrunner/rankrunner/types"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want Invocation
	}{
		{
			name: "suite only",
			args: []string{"HashSuite"},
			want: Invocation{Suite: "HashSuite", Config: -1},
		},
		{
			name: "suite and config",
			args: []string{"GridSuite", "2"},
			want: Invocation{Suite: "GridSuite", Config: 2},
		},
		{
			name: "suite and artifact dir",
			args: []string{"HashSuite", "/tmp/artifacts"},
			want: Invocation{Suite: "HashSuite", Config: -1, ArtifactDir: "/tmp/artifacts"},
		},
		{
			name: "full tail",
			args: []string{"GridSuite", "0", "/tmp/artifacts"},
			want: Invocation{Suite: "GridSuite", Config: 0, ArtifactDir: "/tmp/artifacts"},
		},
		{
			name: "multicore fan-out",
			args: []string{"-procs", "4", "HashSuite", "/tmp/artifacts"},
			want: Invocation{Suite: "HashSuite", Config: -1, ArtifactDir: "/tmp/artifacts", Procs: 4},
		},
		{
			name: "instrumentation flags are skipped",
			args: []string{"-test.coverprofile=cov.out", "-test.v", "HashSuite"},
			want: Invocation{Suite: "HashSuite", Config: -1},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseArgs(tc.args)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseArgsErrors(t *testing.T) {
	_, err := ParseArgs(nil)
	assert.Error(t, err, "suite identifier is mandatory")

	_, err = ParseArgs([]string{"-procs"})
	assert.Error(t, err, "fan-out flag needs a value")

	_, err = ParseArgs([]string{"-procs", "many", "S"})
	assert.Error(t, err)

	_, err = ParseArgs([]string{"S", "a", "b", "c"})
	assert.Error(t, err)

	_, err = ParseArgs([]string{"S", "/dir", "extra"})
	assert.Error(t, err, "nothing may follow the artifact directory")
}

func TestDiscoverRankAndSize(t *testing.T) {
	t.Setenv("OMPI_COMM_WORLD_RANK", "3")
	t.Setenv("OMPI_COMM_WORLD_SIZE", "8")

	rank, err := DiscoverRank()
	require.NoError(t, err)
	assert.Equal(t, 3, rank)

	size, err := DiscoverSize()
	require.NoError(t, err)
	assert.Equal(t, 8, size)
}

func TestDiscoverRankFallsBackAcrossConventions(t *testing.T) {
	for _, v := range append(rankVars, sizeVars...) {
		t.Setenv(v, "")
		require.NoError(t, os.Unsetenv(v))
	}
	t.Setenv("PMI_RANK", "1")

	rank, err := DiscoverRank()
	require.NoError(t, err)
	assert.Equal(t, 1, rank)

	_, err = DiscoverSize()
	assert.Error(t, err, "no size variable is set")
}

func TestDiscoverRankRejectsGarbage(t *testing.T) {
	t.Setenv("OMPI_COMM_WORLD_RANK", "three")
	_, err := DiscoverRank()
	assert.Error(t, err)
}

func passFn(context.Context, types.WorkerEnv) error { return nil }

func TestRunnerReportsAllOutcomes(t *testing.T) {
	suite := types.Suite{
		Name: "OutcomeSuite",
		Methods: []types.Method{
			{Name: "testPass", Fn: passFn},
			{Name: "testFail", Fn: func(context.Context, types.WorkerEnv) error {
				return errors.New("expected 4, got 5")
			}},
			{Name: "testStaticSkip", Skip: "not implemented on this platform"},
			{Name: "testAssume", Fn: func(_ context.Context, env types.WorkerEnv) error {
				return Assume(env.Size >= 16, "needs at least 16 workers, have %d", env.Size)
			}},
			{Name: "testRuntimeSkip", Fn: func(context.Context, types.WorkerEnv) error {
				return Skip("input fixture unavailable")
			}},
			{Name: "testPanic", Fn: func(context.Context, types.WorkerEnv) error {
				panic("index out of range")
			}},
		},
	}

	report := reporting.NewMergedReport()
	err := NewRunner(nil).Run(context.Background(), suite, types.WorkerEnv{Rank: 0, Size: 2, Config: -1}, report)
	require.NoError(t, err, "method failures are outcomes, not run errors")

	results := report.Results()
	require.Len(t, results, 6)
	byName := make(map[string]types.RunStatus)
	failures := make(map[string]string)
	for _, r := range results {
		byName[r.ID.Method] = r.Status
		failures[r.ID.Method] = r.Failure
	}
	assert.Equal(t, types.StatusPass, byName["testPass"])
	assert.Equal(t, types.StatusFail, byName["testFail"])
	assert.Equal(t, "expected 4, got 5", failures["testFail"])
	assert.Equal(t, types.StatusSkip, byName["testStaticSkip"])
	assert.Equal(t, types.StatusSkip, byName["testAssume"])
	assert.Contains(t, failures["testAssume"], "needs at least 16 workers")
	assert.Equal(t, types.StatusSkip, byName["testRuntimeSkip"])
	assert.Equal(t, types.StatusFail, byName["testPanic"])
	assert.Contains(t, failures["testPanic"], "panic: index out of range")

	assert.True(t, report.Complete())
}

func TestRunnerProducesValidEventLog(t *testing.T) {
	suite := types.Suite{
		Name: "ProtocolSuite",
		Methods: []types.Method{
			{Name: "testA", Fn: passFn},
			{Name: "testB", Skip: "later"},
			{Name: "testC", Fn: func(context.Context, types.WorkerEnv) error {
				return errors.New("boom")
			}},
		},
	}

	path := record.ArtifactPath(t.TempDir(), suite.Name, -1, 0)
	rec, err := record.NewRecorder(path, suite.Name, -1, 0)
	require.NoError(t, err)

	require.NoError(t, NewRunner(nil).Run(context.Background(), suite, types.WorkerEnv{Rank: 0, Size: 1, Config: -1}, rec))
	require.NoError(t, rec.Log().Validate(), "every recorded log must satisfy the event protocol")
	require.NoError(t, rec.Close())
}

func TestRunnerCancelledContextIgnoresRemainingMethods(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	suite := types.Suite{
		Name: "CancelSuite",
		Methods: []types.Method{
			{Name: "testFirst", Fn: func(context.Context, types.WorkerEnv) error {
				cancel()
				return nil
			}},
			{Name: "testSecond", Fn: func(context.Context, types.WorkerEnv) error {
				return errors.New("must not run")
			}},
		},
	}

	report := reporting.NewMergedReport()
	require.NoError(t, NewRunner(nil).Run(ctx, suite, types.WorkerEnv{Rank: 0, Size: 1, Config: -1}, report))

	byName := make(map[string]types.RunStatus)
	for _, r := range report.Results() {
		byName[r.ID.Method] = r.Status
	}
	assert.Equal(t, types.StatusPass, byName["testFirst"])
	assert.Equal(t, types.StatusSkip, byName["testSecond"])
}

func TestRunnerRejectsInvalidSuite(t *testing.T) {
	err := NewRunner(nil).Run(context.Background(), types.Suite{}, types.WorkerEnv{}, reporting.NewMergedReport())
	assert.Error(t, err)
}

func TestRunMulticoreWritesOneArtifactPerRank(t *testing.T) {
	var ranksSeen [4]bool
	suite := types.Suite{
		Name: "FanOutSuite",
		Methods: []types.Method{
			{Name: "testRank", Fn: func(_ context.Context, env types.WorkerEnv) error {
				ranksSeen[env.Rank] = true
				if env.Size != 4 {
					return fmt.Errorf("size %d, want 4", env.Size)
				}
				return nil
			}},
		},
	}

	dir := t.TempDir()
	require.NoError(t, RunMulticore(context.Background(), nil, suite, 4, -1, dir))

	for rank := 0; rank < 4; rank++ {
		assert.True(t, ranksSeen[rank], "rank %d must have run", rank)
		path := record.ArtifactPath(dir, suite.Name, -1, rank)
		f, err := os.Open(path)
		require.NoError(t, err)
		eventLog, err := record.Decode(f)
		require.NoError(t, f.Close())
		require.NoError(t, err)
		assert.Equal(t, rank, eventLog.Header.Rank)
		require.NoError(t, eventLog.Validate())
	}
}

func TestRunMulticoreParameterizedArtifactNames(t *testing.T) {
	suite := types.Suite{
		Name:    "ParamSuite",
		Methods: []types.Method{{Name: "testA", Fn: passFn}},
	}

	dir := t.TempDir()
	require.NoError(t, RunMulticore(context.Background(), nil, suite, 2, 1, dir))

	_, err := os.Stat(record.ArtifactPath(dir, "ParamSuite", 1, 0))
	assert.NoError(t, err)
	_, err = os.Stat(record.ArtifactPath(dir, "ParamSuite", 1, 1))
	assert.NoError(t, err)
}

func TestRunMulticoreValidation(t *testing.T) {
	suite := types.Suite{Name: "S", Methods: []types.Method{{Name: "testA", Fn: passFn}}}
	assert.Error(t, RunMulticore(context.Background(), nil, suite, 0, -1, t.TempDir()))
	assert.Error(t, RunMulticore(context.Background(), nil, types.Suite{}, 2, -1, t.TempDir()))
}

func TestSentinelErrors(t *testing.T) {
	err := Skip("fixture %s missing", "data.bin")
	var se *SkipError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "skipped: fixture data.bin missing", err.Error())

	assert.NoError(t, Assume(true, "always holds"))
	err = Assume(false, "needs %d workers", 8)
	var ae *AssumptionError
	require.True(t, errors.As(err, &ae))
	assert.Contains(t, err.Error(), "needs 8 workers")
}

func TestRunnerMethodSeesDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	suite := types.Suite{
		Name: "DeadlineSuite",
		Methods: []types.Method{
			{Name: "testDeadline", Fn: func(ctx context.Context, _ types.WorkerEnv) error {
				if _, ok := ctx.Deadline(); !ok {
					return errors.New("deadline not propagated")
				}
				return nil
			}},
		},
	}

	report := reporting.NewMergedReport()
	require.NoError(t, NewRunner(nil).Run(ctx, suite, types.WorkerEnv{Rank: 0, Size: 1, Config: -1}, report))
	assert.Equal(t, types.StatusPass, report.Status())
}
