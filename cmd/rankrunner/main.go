package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	rankrunner "github.com/rankrunner/rankrunner"
	"github.com/rankrunner/rankrunner/exitcodes"
	"github.com/rankrunner/rankrunner/flags"
	"github.com/rankrunner/rankrunner/service"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "rankrunner"
	app.Usage = "Distributed parallel test orchestrator"
	app.Description = "rankrunner runs one logical test suite across a group of worker ranks and merges their results into a single report"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			if rankrunner.IsRuntimeError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			} else if rankrunner.IsTestFailureError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.TestFailure))
			} else {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.TestFailure))
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := service.New()
	svc.Start(ctx)
	defer svc.Shutdown()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(ctx *cli.Context) error {
	level := log.LevelInfo
	if ctx.Bool(flags.Verbose.Name) {
		level = log.LevelDebug
	}
	logger := log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, level, true))
	log.SetDefault(logger)

	cfg, err := rankrunner.NewConfig(ctx, logger)
	if err != nil {
		return rankrunner.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}
	cfg.Log.Debug("Config", "config", cfg)

	orch, err := rankrunner.New(cfg, Version)
	if err != nil {
		return rankrunner.NewRuntimeError(fmt.Errorf("failed to create orchestrator: %w", err))
	}

	return orch.Run(ctx.Context)
}
