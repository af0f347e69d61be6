// Package launch translates a run request into a concrete external-process
// invocation for the selected parallel-runtime backend, and supervises the
// spawned worker group until joint termination.
package launch

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rankrunner/rankrunner/types"
)

// MpirunBinary is the front end used by the native backend to start one
// process per rank.
const MpirunBinary = "mpirun"

// ProcsFlag is the flag the multicore backend passes to the worker program
// so it fans out internally.
const ProcsFlag = "-procs"

// Command is a fully resolved worker-group invocation.
type Command struct {
	Args []string // argv, Args[0] is the program
	Env  []string // complete environment for the group
	Dir  string   // working directory, "" = inherit
}

// String renders the invocation the way it would be typed in a shell.
func (c *Command) String() string {
	return strings.Join(c.Args, " ")
}

// instrumentationPrefixes are the orchestrator argv flags forwarded to
// workers so coverage and profiling attach to them too.
var instrumentationPrefixes = []string{
	"-test.coverprofile",
	"-test.cpuprofile",
	"-test.memprofile",
	"-test.blockprofile",
	"-test.mutexprofile",
	"-test.trace",
}

// instrumentationArgs extracts the instrumentation flags present in the
// given argv (normally the orchestrator's own os.Args).
func instrumentationArgs(argv []string) []string {
	var out []string
	for _, a := range argv {
		for _, p := range instrumentationPrefixes {
			if a == p || strings.HasPrefix(a, p+"=") {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// Build translates the run request into an executable argument vector for
// the selected backend. An unknown backend is a configuration error,
// surfaced before any process is spawned.
func Build(req types.RunRequest) (*Command, error) {
	if err := req.Validate(); err != nil {
		return nil, &LaunchError{Stage: "build", Err: err}
	}

	var args []string
	switch req.Backend {
	case types.BackendNative:
		args = append(args, MpirunBinary)
		if req.LaunchOpts != "" {
			args = append(args, strings.Fields(req.LaunchOpts)...)
		}
		args = append(args, "-np", strconv.Itoa(req.Ranks))
		args = append(args, req.EntryPoint...)
		args = append(args, instrumentationArgs(os.Args)...)
	case types.BackendMulticore:
		args = append(args, req.EntryPoint...)
		args = append(args, instrumentationArgs(os.Args)...)
		if req.LaunchOpts != "" {
			args = append(args, strings.Fields(req.LaunchOpts)...)
		}
		args = append(args, ProcsFlag, strconv.Itoa(req.Ranks))
	default:
		return nil, &LaunchError{Stage: "build", Err: fmt.Errorf("unknown backend %q", req.Backend)}
	}

	// Fixed tail, common to every backend: suite identifier, optional
	// configuration index, optional artifact directory.
	args = append(args, req.Suite)
	if req.Config >= 0 {
		args = append(args, strconv.Itoa(req.Config))
	}
	if req.ArtifactDir != "" {
		args = append(args, req.ArtifactDir)
	}

	env := os.Environ()
	if req.NativeLibPath != "" {
		env = appendPathVar(env, "LD_LIBRARY_PATH", req.NativeLibPath)
	}

	dir := req.WorkDir
	if dir == "" {
		if wd, err := os.Getwd(); err == nil {
			dir = wd
		}
	}

	return &Command{Args: args, Env: env, Dir: dir}, nil
}

// appendPathVar prepends value to the list-valued variable name in env,
// creating it when absent.
func appendPathVar(env []string, name, value string) []string {
	prefix := name + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			existing := strings.TrimPrefix(kv, prefix)
			if existing == "" {
				env[i] = prefix + value
			} else {
				env[i] = prefix + value + string(os.PathListSeparator) + existing
			}
			return env
		}
	}
	return append(env, prefix+value)
}
