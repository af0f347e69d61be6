package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rankrunner/rankrunner/types"
)

const (
	MetricsNamespace = "rankrunner"
)

var (
	Debug                bool = true
	validResults              = []types.RunStatus{types.StatusPass, types.StatusFail, types.StatusSkip}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	replayedEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "replayed_events_total",
		Help:      "Count of events replayed from worker artifacts",
	}, []string{
		"suite",
		"run_id",
	})

	degradedWorkersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "degraded_workers_total",
		Help:      "Count of workers whose results had to be synthesized",
	}, []string{
		"suite",
		"run_id",
		"action",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Result of suite runs",
	}, []string{
		"suite",
		"run_id",
		"result",
	})

	runTestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_total",
		Help:      "Total number of test leaves in a run",
	}, []string{
		"suite",
		"run_id",
	})

	runTestPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_passed",
		Help:      "Number of passed test leaves",
	}, []string{
		"suite",
		"run_id",
	})

	runTestFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_failed",
		Help:      "Number of failed test leaves",
	}, []string{
		"suite",
		"run_id",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration",
		Help:      "Duration of suite runs",
	}, []string{
		"suite",
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordReplayedEvents counts events merged back from worker artifacts.
func RecordReplayedEvents(suite string, runID string, count int) {
	if Debug {
		log.Debug("metric add",
			"m", "replayed_events_total",
			"suite", suite,
			"run_id", runID,
			"count", count)
	}
	replayedEventsTotal.WithLabelValues(suite, runID).Add(float64(count))
}

// RecordDegradedWorker counts a worker whose results were synthesized.
func RecordDegradedWorker(suite string, runID string, action types.FailureAction) {
	if Debug {
		log.Debug("metric inc",
			"m", "degraded_workers_total",
			"suite", suite,
			"run_id", runID,
			"action", action)
	}
	degradedWorkersTotal.WithLabelValues(suite, runID, string(action)).Inc()
}

// RecordRun records the outcome of one suite run.
func RecordRun(
	suite string,
	runID string,
	result types.RunStatus,
	total int,
	passed int,
	failed int,
	duration time.Duration,
) {
	if !isValidResult(result) {
		log.Error("RecordRun - invalid result", "result", result)
		return
	}
	runResults.WithLabelValues(suite, runID, string(result)).Set(1)
	runTestTotal.WithLabelValues(suite, runID).Add(float64(total))
	runTestPassed.WithLabelValues(suite, runID).Add(float64(passed))
	runTestFailed.WithLabelValues(suite, runID).Add(float64(failed))
	runDuration.WithLabelValues(suite, runID).Set(duration.Seconds())
}

func isValidResult(result types.RunStatus) bool {
	return slices.Contains(validResults, result)
}
