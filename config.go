// Package rankrunner orchestrates a logical test suite across a group of
// parallel workers: it launches the group, collects the per-worker event
// artifacts and merges them into one report.
package rankrunner

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/rankrunner/rankrunner/flags"
	"github.com/rankrunner/rankrunner/types"
)

// Config holds the application configuration
type Config struct {
	Manifest      string              // Path to the suite manifest file
	Suite         string              // Suite to run; "" runs every suite in the manifest
	Ranks         int                 // Worker-count override; 0 uses the manifest value
	Backend       types.Backend       // Default backend for suites without an override
	EntryPoint    []string            // Worker argv override; empty uses the manifest value
	LaunchOpts    string              // Launcher passthrough override
	ArtifactDir   string              // Directory for worker artifacts; "" = working directory
	KeepArtifacts bool                // Retain artifacts after a successful replay
	DryRun        bool                // Skip the launch, replay existing artifacts
	FailureAction types.FailureAction // Degradation policy for absent results
	ParseRank     int                 // Single-rank replay restriction, -1 = merge all
	NativeLibPath string              // Library search path handed to workers
	Timeout       time.Duration       // Deadline per worker group, 0 = disabled
	Log           log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, logger log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	manifest := ctx.String(flags.Manifest.Name)
	absManifest, err := filepath.Abs(manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for manifest '%s': %w", manifest, err)
	}

	backend := types.Backend(ctx.String(flags.Backend.Name))
	if !backend.IsValid() {
		return nil, fmt.Errorf("invalid backend: %s. Must be one of: %s, %s",
			backend, types.BackendNative, types.BackendMulticore)
	}

	action := types.FailureAction(ctx.String(flags.FailureAction.Name))
	if !action.IsValid() {
		return nil, fmt.Errorf("invalid failure action: %s. Must be one of: %s, %s, %s",
			action, types.ActionError, types.ActionSkip, types.ActionSilent)
	}

	ranks := ctx.Int(flags.Ranks.Name)
	if ranks < 0 {
		return nil, fmt.Errorf("rank override %d is invalid", ranks)
	}

	artifactDir := ctx.String(flags.ArtifactDir.Name)
	if artifactDir != "" {
		artifactDir, err = filepath.Abs(artifactDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for artifact directory: %w", err)
		}
	}

	dryRun := ctx.Bool(flags.DryRun.Name)

	return &Config{
		Manifest:      absManifest,
		Suite:         ctx.String(flags.Suite.Name),
		Ranks:         ranks,
		Backend:       backend,
		EntryPoint:    ctx.StringSlice(flags.EntryPoint.Name),
		LaunchOpts:    ctx.String(flags.LaunchOpts.Name),
		ArtifactDir:   artifactDir,
		KeepArtifacts: ctx.Bool(flags.KeepArtifacts.Name) || dryRun,
		DryRun:        dryRun,
		FailureAction: action,
		ParseRank:     ctx.Int(flags.ParseRank.Name),
		NativeLibPath: ctx.String(flags.NativeLibPath.Name),
		Timeout:       ctx.Duration(flags.Timeout.Name),
		Log:           logger,
	}, nil
}
