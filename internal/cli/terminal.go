// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// terminal.go - Terminal detection for bqprobe output.
//
// Colours are used only when stdout is a terminal. NO_COLOR disables them
// and FORCE_COLOR enables them regardless of TTY detection. The chosen
// profile is installed into lipgloss once, so every report style in the
// report package follows it.

package cli

import (
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/jeranaias/bqprobe/internal/report"
)

func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// errorStyle marks error lines printed by DisplayError.
var errorStyle = report.ErrorStyle

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsStdoutTTY returns true if stdout is a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

const (
	// DefaultTerminalWidth is the fallback width when detection fails
	DefaultTerminalWidth = 80

	// MaxReportWidth caps the separator lines of text reports
	MaxReportWidth = 72
)

// GetTerminalWidth returns the current terminal width, or
// DefaultTerminalWidth when it cannot be determined.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return DefaultTerminalWidth
	}
	return width
}

// ReportWidth is the separator width for text reports: the terminal width
// capped at MaxReportWidth, or report.DefaultWidth when not on a terminal.
func ReportWidth() int {
	if !IsStdoutTTY() {
		return report.DefaultWidth
	}
	return min(GetTerminalWidth(), MaxReportWidth)
}

// =============================================================================
// COLOR OUTPUT CONTROL
// =============================================================================

var (
	colorsEnabled     bool
	colorsEnabledOnce sync.Once
)

// ColorsEnabled returns true if colored output should be used.
// See https://no-color.org/.
func ColorsEnabled() bool {
	colorsEnabledOnce.Do(func() {
		colorsEnabled = colorDecision(os.Getenv("NO_COLOR"), os.Getenv("FORCE_COLOR"), IsStdoutTTY())
	})
	return colorsEnabled
}

// colorDecision applies the precedence NO_COLOR > FORCE_COLOR > TTY.
func colorDecision(noColor, forceColor string, tty bool) bool {
	switch {
	case noColor != "":
		return false
	case forceColor != "":
		return true
	default:
		return tty
	}
}

// GetColorProfile returns Ascii when colours are disabled, otherwise the
// profile termenv detects for this terminal.
func GetColorProfile() termenv.Profile {
	if !ColorsEnabled() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}
