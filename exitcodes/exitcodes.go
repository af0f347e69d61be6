// Package exitcodes defines the standard exit codes used by rankrunner.
package exitcodes

// Exit code constants used by the orchestrator and by worker programs
// built on the worker package:
//
// * Success (0): Used when all tests pass successfully
// * TestFailure (1): Used when one or more tests fail
// * RuntimeErr (2): Used for runtime errors such as launch failures,
//   timeouts or unreadable configuration
const (
	Success     = 0 // All tests pass
	TestFailure = 1 // Test failures
	RuntimeErr  = 2 // Runtime errors or timeouts
)
