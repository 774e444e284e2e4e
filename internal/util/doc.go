// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the report and cli packages.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe string truncation with ellipsis
//   - TruncateWidth: Display-width truncation for table cells
//
// File Operations:
//   - AtomicWriteFile: Crash-safe report writing over an afero.Fs
//
// # Usage
//
//	// Shorten warehouse errors for one-line display
//	preview := util.TruncateRunes(err.Error(), 100)
//
//	// Write a report without leaving a partial file behind
//	err := util.AtomicWriteFile(afero.NewOsFs(), "report.json", data, 0o644)
package util
