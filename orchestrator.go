package rankrunner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rankrunner/rankrunner/launch"
	"github.com/rankrunner/rankrunner/metrics"
	"github.com/rankrunner/rankrunner/registry"
	"github.com/rankrunner/rankrunner/replay"
	"github.com/rankrunner/rankrunner/reporting"
	"github.com/rankrunner/rankrunner/types"
)

// Orchestrator ties the pipeline together: for each selected suite it
// launches the worker group, waits for joint termination, replays the
// per-worker artifacts onto a merged report and renders the result. A
// parameterized suite runs the pipeline once per configuration index,
// sequentially and independently, merging onto one report.
type Orchestrator struct {
	config   *Config
	version  string
	registry *registry.Registry
	tracer   trace.Tracer
}

// suiteResult is the outcome of one suite's full run.
type suiteResult struct {
	entry    registry.SuiteEntry
	tree     *reporting.Tree
	report   *reporting.MergedReport
	duration time.Duration
}

// New creates an orchestrator over the manifest named in the config.
func New(config *Config, version string) (*Orchestrator, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Log == nil {
		return nil, errors.New("config requires a logger")
	}

	config.Log.Debug("Creating orchestrator",
		"manifest", config.Manifest,
		"suite", config.Suite,
		"backend", config.Backend,
		"dryRun", config.DryRun,
		"failureAction", config.FailureAction)

	reg, err := registry.NewRegistry(registry.Config{
		Log:            config.Log,
		ManifestFile:   config.Manifest,
		DefaultTimeout: config.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	return &Orchestrator{
		config:   config,
		version:  version,
		registry: reg,
		tracer:   otel.Tracer("rankrunner"),
	}, nil
}

// Run executes every selected suite once and prints the merged reports.
// It returns a TestFailureError when any suite fails and a RuntimeError
// when the pipeline itself breaks.
func (o *Orchestrator) Run(ctx context.Context) error {
	runID := uuid.New().String()
	o.config.Log.Info("Starting test run", "run_id", runID, "version", o.version)

	entries, err := o.selectSuites()
	if err != nil {
		return NewRuntimeError(err)
	}

	var failed []string
	for _, entry := range entries {
		result, err := o.runSuite(ctx, runID, entry)
		if err != nil {
			o.config.Log.Error("Runtime error running suite", "suite", entry.Name, "error", err)
			metrics.RecordErrorDetails("run", err)
			return NewRuntimeError(err)
		}

		o.report(runID, result)
		if result.report.Status() == types.StatusFail {
			failed = append(failed, entry.Name)
		}
	}

	if len(failed) > 0 {
		return NewTestFailureError(fmt.Sprintf("suites with failures: %s", strings.Join(failed, ", ")))
	}
	o.config.Log.Info("Test run completed", "run_id", runID, "suites", len(entries))
	return nil
}

// selectSuites resolves the --suite restriction against the manifest.
func (o *Orchestrator) selectSuites() ([]registry.SuiteEntry, error) {
	if o.config.Suite == "" {
		return o.registry.GetSuites(), nil
	}
	entry, ok := o.registry.GetSuite(o.config.Suite)
	if !ok {
		return nil, fmt.Errorf("suite %q is not declared in %s", o.config.Suite, o.config.Manifest)
	}
	return []registry.SuiteEntry{entry}, nil
}

// runSuite runs every configuration of one suite onto a single merged
// report.
func (o *Orchestrator) runSuite(ctx context.Context, runID string, entry registry.SuiteEntry) (*suiteResult, error) {
	ctx, span := o.tracer.Start(ctx, "run-suite", trace.WithAttributes(
		attribute.String("suite", entry.Name),
		attribute.String("run_id", runID),
	))
	defer span.End()

	ranks := entry.Ranks
	if o.config.Ranks > 0 {
		ranks = o.config.Ranks
	}

	tree, err := reporting.BuildTopology(entry.Name, entry.Configurations, entry.Methods, ranks)
	if err != nil {
		return nil, err
	}
	report := reporting.NewMergedReport()
	report.RegisterTopology(tree)

	configs := []int{-1}
	if entry.Configurations > 0 {
		configs = configs[:0]
		for i := 0; i < entry.Configurations; i++ {
			configs = append(configs, i)
		}
	}

	start := time.Now()
	for _, cfg := range configs {
		if err := o.runConfiguration(ctx, runID, entry, cfg, ranks, report); err != nil {
			return nil, err
		}
	}

	return &suiteResult{
		entry:    entry,
		tree:     tree,
		report:   report,
		duration: time.Since(start),
	}, nil
}

// runConfiguration executes the launch-and-replay pipeline for one
// configuration index of one suite.
func (o *Orchestrator) runConfiguration(ctx context.Context, runID string, entry registry.SuiteEntry, cfg, ranks int, report *reporting.MergedReport) error {
	ctx, span := o.tracer.Start(ctx, "run-configuration", trace.WithAttributes(
		attribute.String("suite", entry.Name),
		attribute.Int("config", cfg),
	))
	defer span.End()

	logger := o.config.Log.New("suite", entry.Name, "config", cfg)

	degrader, err := replay.NewDegrader(logger, report, o.config.FailureAction, entry.Name, cfg, entry.Methods)
	if err != nil {
		return err
	}

	if o.config.DryRun {
		logger.Info("Dry run, replaying existing artifacts")
	} else if launched := o.launchGroup(ctx, logger, runID, entry, cfg, ranks, degrader); !launched {
		// The group never ran, so there are no artifacts to collect.
		return nil
	}

	agg, err := replay.NewAggregator(replay.Options{
		Log:         logger,
		Sink:        report,
		ArtifactDir: o.config.ArtifactDir,
		Suite:       entry.Name,
		Config:      cfg,
		Ranks:       ranks,
		OnlyRank:    o.config.ParseRank,
		Keep:        o.config.KeepArtifacts,
		DryRun:      o.config.DryRun,
		Action:      o.config.FailureAction,
		Methods:     entry.Methods,
	})
	if err != nil {
		return err
	}

	stats, replayErr := agg.Replay()
	metrics.RecordReplayedEvents(entry.Name, runID, stats.Events)
	for i := 0; i < stats.Degraded; i++ {
		metrics.RecordDegradedWorker(entry.Name, runID, o.config.FailureAction)
	}
	if replayErr != nil {
		return fmt.Errorf("replaying results of %s (config %d): %w", entry.Name, cfg, replayErr)
	}
	return nil
}

// launchGroup spawns the worker group and waits for it. It reports whether
// artifacts may exist afterwards: a group that never spawned is degraded
// whole and replaying is pointless, while a timeout or a non-zero exit
// still leaves the finished ranks' artifacts worth collecting.
func (o *Orchestrator) launchGroup(ctx context.Context, logger log.Logger, runID string, entry registry.SuiteEntry, cfg, ranks int, degrader *replay.Degrader) bool {
	backend := o.config.Backend
	if entry.Backend != "" {
		backend = types.Backend(entry.Backend)
	}
	entryPoint := entry.EntryPoint
	if len(o.config.EntryPoint) > 0 {
		entryPoint = o.config.EntryPoint
	}
	launchOpts := entry.LaunchOpts
	if o.config.LaunchOpts != "" {
		launchOpts = o.config.LaunchOpts
	}
	libPath := entry.NativeLibPath
	if o.config.NativeLibPath != "" {
		libPath = o.config.NativeLibPath
	}

	req := types.RunRequest{
		Suite:         entry.Name,
		Ranks:         ranks,
		Backend:       backend,
		EntryPoint:    entryPoint,
		Config:        cfg,
		Timeout:       time.Duration(entry.Timeout),
		LaunchOpts:    launchOpts,
		ArtifactDir:   o.config.ArtifactDir,
		NativeLibPath: libPath,
	}

	cmd, err := launch.Build(req)
	if err != nil {
		logger.Error("Could not build worker launch", "error", err)
		metrics.RecordErrorDetails("launch.build", err)
		o.degradeRun(degrader, runID, entry.Name, ranks, err)
		return false
	}

	logger.Info("Launching worker group", "command", cmd.String(), "ranks", ranks, "backend", backend)
	if err := launch.NewSupervisor(logger).Run(ctx, cmd, time.Duration(entry.Timeout)); err != nil {
		var le *launch.LaunchError
		if errors.As(err, &le) && le.Stage == "spawn" {
			logger.Error("Worker group failed to start", "error", err)
			metrics.RecordErrorDetails("launch.spawn", err)
			o.degradeRun(degrader, runID, entry.Name, ranks, err)
			return false
		}
		// Timeout or abnormal exit: collect whatever the finished ranks
		// wrote, the gaps degrade per rank.
		logger.Warn("Worker group did not exit cleanly, collecting written artifacts", "error", err)
		metrics.RecordErrorDetails("launch.wait", err)
	}
	return true
}

func (o *Orchestrator) degradeRun(degrader *replay.Degrader, runID, suite string, ranks int, cause error) {
	degrader.Run(cause)
	for i := 0; i < ranks; i++ {
		metrics.RecordDegradedWorker(suite, runID, o.config.FailureAction)
	}
}

// report renders one suite's merged results on the console, persists the
// text summary and records the run metrics.
func (o *Orchestrator) report(runID string, result *suiteResult) {
	reporting.NewConsoleRenderer(os.Stdout).Render(runID, result.report, result.duration)

	summaryDir := o.config.ArtifactDir
	if summaryDir == "" {
		summaryDir = "."
	}
	if path, err := reporting.NewTextSummaryWriter(summaryDir).Write(runID, result.tree, result.report, result.duration); err != nil {
		o.config.Log.Warn("Could not write text summary", "error", err)
	} else {
		o.config.Log.Info("Wrote text summary", "path", path)
	}

	passed, failedCount, _, _ := result.report.Stats()
	status := result.report.Status()
	metrics.RecordRun(result.entry.Name, runID, status, len(result.report.Results()), passed, failedCount, result.duration)
	o.config.Log.Info("Suite completed", "suite", result.entry.Name, "status", status)
}
