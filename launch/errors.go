package launch

import (
	"errors"
	"fmt"
	"time"
)

// LaunchError reports that the worker group could never produce results:
// an unknown backend, a missing prerequisite, a spawn failure or a non-zero
// group exit. It is fatal for the run and routes to the degradation policy.
type LaunchError struct {
	Stage string // "build", "spawn" or "wait"
	Err   error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch failure (%s): %v", e.Stage, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *LaunchError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that the joint worker group exceeded its deadline
// and was force-killed. The launch is a single invocation covering all
// workers, so the timeout is recorded for the whole run, not per worker.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("worker group did not terminate within the allocated %s", e.Timeout)
}

// IsLaunchFailure reports whether err means the run produced no usable
// launch: both launch errors and group timeouts qualify, since a killed
// group is treated like a failed launch for aggregation purposes.
func IsLaunchFailure(err error) bool {
	var le *LaunchError
	var te *TimeoutError
	return err != nil && (errors.As(err, &le) || errors.As(err, &te))
}
