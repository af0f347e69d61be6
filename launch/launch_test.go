package launch

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankrunner/rankrunner/types"
)

func baseRequest() types.RunRequest {
	return types.RunRequest{
		Suite:      "pkg.Suite",
		Ranks:      4,
		Backend:    types.BackendNative,
		EntryPoint: []string{"/opt/tests/worker"},
		Config:     -1,
	}
}

func TestBuildNativeBackend(t *testing.T) {
	req := baseRequest()
	req.LaunchOpts = "--oversubscribe --mca btl self,tcp"
	req.ArtifactDir = "/tmp/artifacts"

	cmd, err := Build(req)
	require.NoError(t, err)

	args := cmd.Args
	assert.Equal(t, MpirunBinary, args[0])
	// Passthrough options are split on spaces and inserted before -np.
	assert.Equal(t, []string{"--oversubscribe", "--mca", "btl", "self,tcp"}, args[1:5])
	assert.Equal(t, []string{"-np", "4"}, args[5:7])
	assert.Equal(t, "/opt/tests/worker", args[7])
	// Fixed tail: suite identifier then artifact directory (no config index).
	assert.Equal(t, []string{"pkg.Suite", "/tmp/artifacts"}, args[len(args)-2:])
}

func TestBuildMulticoreBackend(t *testing.T) {
	req := baseRequest()
	req.Backend = types.BackendMulticore
	req.Ranks = 2
	req.Config = 1

	cmd, err := Build(req)
	require.NoError(t, err)

	args := cmd.Args
	assert.Equal(t, "/opt/tests/worker", args[0])
	assert.Contains(t, strings.Join(args, " "), ProcsFlag+" 2")
	// Fixed tail: suite identifier then configuration index.
	assert.Equal(t, []string{"pkg.Suite", "1"}, args[len(args)-2:])
}

func TestBuildRejectsUnknownBackend(t *testing.T) {
	req := baseRequest()
	req.Backend = types.Backend("mpj-express")

	_, err := Build(req)
	require.Error(t, err)
	assert.True(t, IsLaunchFailure(err))
	assert.ErrorContains(t, err, "unknown backend")
}

func TestBuildRejectsInvalidRequestBeforeSpawn(t *testing.T) {
	req := baseRequest()
	req.Ranks = 0

	_, err := Build(req)
	require.Error(t, err)
	assert.True(t, IsLaunchFailure(err))
}

func TestBuildExtendsNativeLibraryPath(t *testing.T) {
	req := baseRequest()
	req.NativeLibPath = "/opt/mpi/lib"

	cmd, err := Build(req)
	require.NoError(t, err)

	var found string
	for _, kv := range cmd.Env {
		if strings.HasPrefix(kv, "LD_LIBRARY_PATH=") {
			found = kv
		}
	}
	require.NotEmpty(t, found)
	assert.True(t, strings.HasPrefix(found, "LD_LIBRARY_PATH=/opt/mpi/lib"))
}

func TestInstrumentationArgs(t *testing.T) {
	argv := []string{
		"orchestrator",
		"-test.coverprofile=cover.out",
		"--suite", "pkg.Suite",
		"-test.cpuprofile=cpu.out",
		"-verbose",
	}
	got := instrumentationArgs(argv)
	assert.Equal(t, []string{"-test.coverprofile=cover.out", "-test.cpuprofile=cpu.out"}, got)
}

func TestIsLaunchFailure(t *testing.T) {
	assert.True(t, IsLaunchFailure(&LaunchError{Stage: "spawn", Err: assert.AnError}))
	assert.True(t, IsLaunchFailure(&TimeoutError{Timeout: time.Second}))
	assert.False(t, IsLaunchFailure(nil))
	assert.False(t, IsLaunchFailure(assert.AnError))
}

func TestSupervisorRunsCommandToCompletion(t *testing.T) {
	sup := NewSupervisor(nil)
	err := sup.Run(context.Background(), &Command{Args: []string{"true"}}, 0)
	assert.NoError(t, err)
}

func TestSupervisorReportsAbnormalExit(t *testing.T) {
	sup := NewSupervisor(nil)
	err := sup.Run(context.Background(), &Command{Args: []string{"false"}}, 0)
	require.Error(t, err)
	assert.True(t, IsLaunchFailure(err))

	var te *TimeoutError
	assert.NotErrorAs(t, err, &te)
}

func TestSupervisorKillsGroupOnTimeout(t *testing.T) {
	sup := NewSupervisor(nil)
	start := time.Now()
	err := sup.Run(context.Background(), &Command{Args: []string{"sleep", "30"}}, 100*time.Millisecond)
	require.Error(t, err)

	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 100*time.Millisecond, te.Timeout)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestSupervisorReportsSpawnFailure(t *testing.T) {
	sup := NewSupervisor(nil)
	err := sup.Run(context.Background(), &Command{Args: []string{"/nonexistent/worker-binary"}}, 0)
	require.Error(t, err)
	assert.True(t, IsLaunchFailure(err))
}
