// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for bqprobe.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// # Key Types
//
//   - Config: Main configuration structure (project, dataset, table)
//   - ProbeConfig: Access probe timeouts and transient table naming
//   - PipelineConfig: Pipeline check tables and windows
//   - Loader: Config file discovery over an afero filesystem
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Command-line flags (applied by the cli package)
//   - Environment variables (BQPROBE_*, then GOOGLE_CLOUD_PROJECT)
//   - The file named by --config, or the first of ./bqprobe.toml,
//     ~/.bqprobe/config.toml, ~/.bqprobe/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, source, err := config.NewLoader().Load("")
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
package config
