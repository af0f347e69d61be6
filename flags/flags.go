package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "RANKRUNNER"

// prefixEnvVars derives the environment variable names for a flag.
func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	Manifest = &cli.StringFlag{
		Name:     "manifest",
		Value:    "",
		Required: true,
		EnvVars:  prefixEnvVars("MANIFEST"),
		Usage:    "Path to the suite manifest file (eg. 'suites.yaml')",
	}
	Suite = &cli.StringFlag{
		Name:    "suite",
		Value:   "",
		EnvVars: prefixEnvVars("SUITE"),
		Usage:   "Suite to run; omit to run every suite in the manifest",
	}
	Ranks = &cli.IntFlag{
		Name:    "ranks",
		Value:   0,
		EnvVars: prefixEnvVars("RANKS"),
		Usage:   "Worker count override; 0 uses the manifest's per-suite value",
	}
	Backend = &cli.StringFlag{
		Name:    "backend",
		Value:   "multicore",
		EnvVars: prefixEnvVars("BACKEND"),
		Usage:   "Worker-group backend: 'native' (one process per rank via mpirun) or 'multicore' (in-process fan-out)",
	}
	EntryPoint = &cli.StringSliceFlag{
		Name:    "entrypoint",
		EnvVars: prefixEnvVars("ENTRYPOINT"),
		Usage:   "Worker program argv override; repeat the flag for each argument",
	}
	LaunchOpts = &cli.StringFlag{
		Name:    "launch-opts",
		Value:   "",
		EnvVars: prefixEnvVars("LAUNCH_OPTS"),
		Usage:   "Extra options passed through to the parallel launcher",
	}
	ArtifactDir = &cli.StringFlag{
		Name:    "artifact-dir",
		Value:   "",
		EnvVars: prefixEnvVars("ARTIFACT_DIR"),
		Usage:   "Directory for per-worker event artifacts; defaults to the working directory",
	}
	KeepArtifacts = &cli.BoolFlag{
		Name:    "keep-artifacts",
		Value:   false,
		EnvVars: prefixEnvVars("KEEP_ARTIFACTS"),
		Usage:   "Retain worker artifacts after a successful replay",
	}
	DryRun = &cli.BoolFlag{
		Name:    "dry-run",
		Value:   false,
		EnvVars: prefixEnvVars("DRY_RUN"),
		Usage:   "Skip the launch and replay existing artifacts; implies --keep-artifacts",
	}
	FailureAction = &cli.StringFlag{
		Name:    "failure-action",
		Value:   "error",
		EnvVars: prefixEnvVars("FAILURE_ACTION"),
		Usage:   "What to report for workers that produce no results: 'error', 'skip' or 'silent'",
	}
	ParseRank = &cli.IntFlag{
		Name:    "parse-rank",
		Value:   -1,
		EnvVars: prefixEnvVars("PARSE_RANK"),
		Usage:   "Replay only this rank's artifact, without rank tags; -1 merges all ranks",
	}
	NativeLibPath = &cli.StringFlag{
		Name:    "native-lib-path",
		Value:   "",
		EnvVars: prefixEnvVars("NATIVE_LIB_PATH"),
		Usage:   "Library search path appended for workers using a natively linked runtime",
	}
	Timeout = &cli.DurationFlag{
		Name:    "timeout",
		Value:   0,
		EnvVars: prefixEnvVars("TIMEOUT"),
		Usage:   "Deadline for one worker group (e.g. '2m'); 0 disables it",
	}
	Verbose = &cli.BoolFlag{
		Name:    "verbose",
		Value:   false,
		EnvVars: prefixEnvVars("VERBOSE"),
		Usage:   "Enable debug logging",
	}
)

var requiredFlags = []cli.Flag{
	Manifest,
}

var optionalFlags = []cli.Flag{
	Suite,
	Ranks,
	Backend,
	EntryPoint,
	LaunchOpts,
	ArtifactDir,
	KeepArtifacts,
	DryRun,
	FailureAction,
	ParseRank,
	NativeLibPath,
	Timeout,
	Verbose,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
