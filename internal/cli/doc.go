// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses bqprobe's command line and runs its commands.
//
// # Key Types
//
//   - Command: the command to run (summary, upload, read, pipeline, config, version, help)
//   - Args: parsed flags, applied over the loaded configuration
//   - App: the dependencies a command runs with (output writers, filesystem, warehouse connector)
//   - JSONResponse: the envelope printed by --json
//
// # Usage
//
//	args, err := cli.Parse(os.Args[1:])
//	if err != nil {
//	    cli.DisplayError(os.Stderr, err, "", false)
//	    os.Exit(cli.GetExitCode(err))
//	}
//	err = cli.NewApp().Run(ctx, args)
//	os.Exit(cli.GetExitCode(err))
//
// # Exit Status
//
// summary exits 0 when the access level is not NONE and 1 otherwise. The
// scenario commands exit 0 when their test passed. Usage and validation
// errors exit 2, unreadable config files 3.
package cli
