package worker

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rankrunner/rankrunner/launch"
)

// Invocation is the worker-side view of one launch: the positional tail the
// orchestrator appended to the entry point, plus the internal fan-out width
// for the multicore backend.
type Invocation struct {
	Suite       string
	Config      int // -1 when not parameterized
	ArtifactDir string
	Procs       int // 0 means the native backend: one process per rank
}

// ParseArgs interprets the worker program's arguments (os.Args[1:]).
// Leading flags are instrumentation or launcher passthrough and are
// skipped, except the fan-out flag which is consumed. The positional tail
// is the suite identifier, an optional configuration index and an optional
// artifact directory.
func ParseArgs(args []string) (Invocation, error) {
	inv := Invocation{Config: -1}

	i := 0
	for i < len(args) {
		a := args[i]
		if a == launch.ProcsFlag {
			if i+1 >= len(args) {
				return inv, fmt.Errorf("%s needs a value", launch.ProcsFlag)
			}
			n, err := strconv.Atoi(args[i+1])
			if err != nil {
				return inv, fmt.Errorf("parsing %s value %q: %w", launch.ProcsFlag, args[i+1], err)
			}
			inv.Procs = n
			i += 2
			continue
		}
		if strings.HasPrefix(a, "-") {
			i++
			continue
		}
		break
	}

	tail := args[i:]
	if len(tail) == 0 {
		return inv, fmt.Errorf("missing suite identifier")
	}
	if len(tail) > 3 {
		return inv, fmt.Errorf("too many positional arguments: %v", tail)
	}
	inv.Suite = tail[0]

	if len(tail) > 1 {
		// The configuration index is numeric; anything else is the
		// artifact directory of a non-parameterized run.
		if n, err := strconv.Atoi(tail[1]); err == nil {
			inv.Config = n
		} else {
			inv.ArtifactDir = tail[1]
		}
	}
	if len(tail) > 2 {
		if inv.Config < 0 {
			return inv, fmt.Errorf("unexpected argument %q after artifact directory", tail[2])
		}
		inv.ArtifactDir = tail[2]
	}

	if inv.Procs < 0 {
		return inv, fmt.Errorf("fan-out width %d is invalid", inv.Procs)
	}
	return inv, nil
}
