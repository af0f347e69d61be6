package types

import (
	"context"
	"fmt"
	"time"
)

// RunStatus represents the outcome of a leaf or of a whole merged run.
type RunStatus string

const (
	StatusPass RunStatus = "pass"
	StatusFail RunStatus = "fail"
	StatusSkip RunStatus = "skip"
)

// WorkerEnv describes the worker's position in the parallel run. It is
// handed to every method body; how the methods communicate across ranks is
// owned by the parallel runtime and opaque to rankrunner.
type WorkerEnv struct {
	Rank   int // this worker's index, 0..Size-1
	Size   int // number of workers in the run
	Config int // configuration index, -1 when not parameterized
}

// MethodFunc is the body of one test method. A nil return is a pass; see
// the worker package for the sentinel errors that map to ignored and
// assumption-failed outcomes.
type MethodFunc func(ctx context.Context, env WorkerEnv) error

// Method is one named test method of a suite. A non-empty Skip marks the
// method as statically ignored: it is reported without ever running.
type Method struct {
	Name string
	Skip string
	Fn   MethodFunc
}

// Suite is a logical test suite: an identifier plus an ordered list of
// methods. All ranks execute the same methods in the same order, so the
// slice order is part of the contract.
type Suite struct {
	Name    string
	Methods []Method
}

// MethodNames returns the declared method names in execution order.
func (s Suite) MethodNames() []string {
	names := make([]string, len(s.Methods))
	for i, m := range s.Methods {
		names[i] = m.Name
	}
	return names
}

// Validate checks that the suite can be orchestrated.
func (s Suite) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("suite name is required")
	}
	if len(s.Methods) == 0 {
		return fmt.Errorf("suite %q declares no test methods", s.Name)
	}
	seen := make(map[string]bool, len(s.Methods))
	for _, m := range s.Methods {
		if m.Name == "" {
			return fmt.Errorf("suite %q declares a method with no name", s.Name)
		}
		if seen[m.Name] {
			return fmt.Errorf("suite %q declares method %q twice", s.Name, m.Name)
		}
		if m.Fn == nil && m.Skip == "" {
			return fmt.Errorf("suite %q method %q has no body and no skip reason", s.Name, m.Name)
		}
		seen[m.Name] = true
	}
	return nil
}

// Backend selects how the worker group is launched.
type Backend string

const (
	// BackendNative launches one OS process per rank through the parallel
	// runtime's mpirun front end.
	BackendNative Backend = "native"
	// BackendMulticore launches a single OS process which fans out to
	// multiple lightweight workers internally.
	BackendMulticore Backend = "multicore"
)

// IsValid reports whether the backend selector is known.
func (b Backend) IsValid() bool {
	return b == BackendNative || b == BackendMulticore
}

// FailureAction selects what the degradation policy synthesizes when
// results cannot be collected.
type FailureAction string

const (
	ActionError  FailureAction = "error"  // started -> failed -> finished per method
	ActionSkip   FailureAction = "skip"   // one ignored event per method
	ActionSilent FailureAction = "silent" // nothing
)

// IsValid reports whether the failure action is known.
func (a FailureAction) IsValid() bool {
	return a == ActionError || a == ActionSkip || a == ActionSilent
}

// RunRequest captures everything needed to launch one worker group for one
// configuration. It is immutable once the launch begins.
type RunRequest struct {
	Suite      string        // suite identifier
	Ranks      int           // number of workers, >= 1
	Backend    Backend       // backend selector
	EntryPoint []string      // worker program argv prefix
	Config     int           // configuration index, -1 when not parameterized
	Timeout    time.Duration // <= 0 disables the group timeout
	LaunchOpts string        // opaque passthrough options for the launcher

	ArtifactDir   string // directory for worker artifacts, "" = working directory
	NativeLibPath string // optional native library search path for workers
	WorkDir       string // working directory for workers, "" = inherit
}

// Validate checks the request before any process is spawned.
func (r RunRequest) Validate() error {
	if r.Suite == "" {
		return fmt.Errorf("suite identifier is required")
	}
	if r.Ranks < 1 {
		return fmt.Errorf("rank count %d is invalid, need at least 1", r.Ranks)
	}
	if !r.Backend.IsValid() {
		return fmt.Errorf("unknown backend %q", r.Backend)
	}
	if len(r.EntryPoint) == 0 {
		return fmt.Errorf("worker entry point is required")
	}
	return nil
}
