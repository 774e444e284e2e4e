// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared styling for every bqprobe report.
//
// The colour profile is chosen once by the cli package (TTY detection,
// NO_COLOR, FORCE_COLOR). These styles degrade to plain text under the
// Ascii profile.

package report

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// DefaultWidth is the separator width used by the text reports.
const DefaultWidth = 60

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for report titles
	// Color: Cyan (#39)
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	// SectionStyle is used for section headers within a report
	// Color: White (#255)
	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			MarginTop(1)

	// LabelStyle is used for field labels
	// Color: Light gray (#245), 12 characters wide
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(12)

	// ValueStyle is used for regular values and text
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// SuccessStyle marks passing checks
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	// ErrorStyle marks failing checks
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// WarningStyle marks warnings
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	// DimStyle is used for failure messages and hints
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))

	// SeparatorStyle is used for visual separators
	SeparatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	// CodeStyle is used for sample SQL
	CodeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75"))
)

// RenderSeparator renders a horizontal separator line of the given width.
func RenderSeparator(width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	return SeparatorStyle.Render(strings.Repeat("=", width))
}

// RenderStatus renders a fixed-width status marker.
func RenderStatus(passed, warning bool) string {
	switch {
	case warning:
		return WarningStyle.Render("[WARN]")
	case passed:
		return SuccessStyle.Render("[OK]") + "  "
	default:
		return ErrorStyle.Render("[FAIL]")
	}
}

// RenderLabel renders a label with consistent width.
func RenderLabel(label string) string {
	return LabelStyle.Render(label)
}
