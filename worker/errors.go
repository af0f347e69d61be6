package worker

import "fmt"

// SkipError is returned by a method body that decides at run time it cannot
// run meaningfully. It is reported through the assumption channel, since
// the method has already started by the time the decision is made.
// Statically skipped methods carry a Skip reason on the declaration instead
// and never start.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}

// Skip returns a SkipError with the given reason.
func Skip(format string, args ...interface{}) error {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

// AssumptionError is returned when a precondition of the test environment
// does not hold, e.g. the run has fewer workers than the method needs. It
// marks the method as assumption-failed rather than failed.
type AssumptionError struct {
	Reason string
}

func (e *AssumptionError) Error() string {
	return "assumption failed: " + e.Reason
}

// Assume returns nil when cond holds and an AssumptionError otherwise.
func Assume(cond bool, format string, args ...interface{}) error {
	if cond {
		return nil
	}
	return &AssumptionError{Reason: fmt.Sprintf(format, args...)}
}
