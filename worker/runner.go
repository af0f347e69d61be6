// Package worker is the in-process side of rankrunner: it runs the declared
// suite methods on one rank, records the reporting events they produce, and
// provides the entry-point plumbing that worker programs share.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/ethereum/go-ethereum/log"

	"github.com/rankrunner/rankrunner/reporting"
	"github.com/rankrunner/rankrunner/types"
)

// Runner executes a suite's methods in declaration order on one rank and
// reports every outcome to a sink. Method failures are outcomes, not
// errors: Run only fails when the suite itself is unusable.
type Runner struct {
	log log.Logger
}

// NewRunner creates a runner logging through the given logger.
func NewRunner(logger log.Logger) *Runner {
	if logger == nil {
		logger = log.New()
	}
	return &Runner{log: logger}
}

// Run executes every method of the suite under env and reports to sink.
// All ranks must call Run with the same suite declaration, since the merged
// report assumes a uniform method list.
func (r *Runner) Run(ctx context.Context, suite types.Suite, env types.WorkerEnv, sink reporting.Sink) error {
	if err := suite.Validate(); err != nil {
		return err
	}
	if sink == nil {
		return fmt.Errorf("runner requires a sink")
	}

	boundary := types.TestID{Suite: suite.Name, Config: env.Config}
	sink.SuiteStarted(boundary)
	defer sink.SuiteFinished(boundary)

	for _, m := range suite.Methods {
		id := types.TestID{Suite: suite.Name, Config: env.Config, Method: m.Name}

		if m.Skip != "" {
			r.log.Debug("Skipping method", "method", m.Name, "rank", env.Rank, "reason", m.Skip)
			sink.TestIgnored(id)
			continue
		}
		if err := ctx.Err(); err != nil {
			// The deadline applies to the whole group; remaining methods
			// are reported as never having run.
			sink.TestIgnored(id)
			continue
		}

		sink.TestStarted(id)
		err := r.invoke(ctx, m, env)
		switch {
		case err == nil:
		case isAssumption(err):
			r.log.Debug("Method assumption failed", "method", m.Name, "rank", env.Rank, "error", err)
			sink.AssumptionFailed(id, err.Error())
		default:
			r.log.Warn("Method failed", "method", m.Name, "rank", env.Rank, "error", err)
			sink.TestFailed(id, err.Error())
		}
		sink.TestFinished(id)
	}
	return nil
}

// invoke runs one method body, converting a panic into a failure so one
// broken method cannot take down the whole rank.
func (r *Runner) invoke(ctx context.Context, m types.Method, env types.WorkerEnv) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v\n%s", rec, debug.Stack())
		}
	}()
	return m.Fn(ctx, env)
}

func isAssumption(err error) bool {
	var ae *AssumptionError
	var se *SkipError
	return errors.As(err, &ae) || errors.As(err, &se)
}
