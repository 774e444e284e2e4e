// bqprobe - BigQuery dataset access diagnostics.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jeranaias/bqprobe/internal/cli"
	"github.com/jeranaias/bqprobe/internal/logger"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	args, err := cli.Parse(argv)
	if err != nil {
		cli.DisplayError(errorWriter(args.JSON), err, args.Command.String(), args.JSON)
		return cli.GetExitCode(err)
	}

	// Ctrl-C cancels the remaining probes. The transient table is still
	// dropped on its own cleanup deadline.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = cli.NewApp().Run(ctx, args)
	_ = logger.Sync()

	cli.DisplayError(errorWriter(args.JSON), err, args.Command.String(), args.JSON)
	return cli.GetExitCode(err)
}

// errorWriter keeps JSON error envelopes on stdout next to the reports
// and sends human-readable errors to stderr.
func errorWriter(jsonMode bool) *os.File {
	if jsonMode {
		return os.Stdout
	}
	return os.Stderr
}
