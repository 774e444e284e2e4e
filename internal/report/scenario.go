// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jeranaias/bqprobe/internal/scenario"
	"github.com/jeranaias/bqprobe/internal/util"
)

// MaxCellWidth bounds preview table cells.
const MaxCellWidth = 40

// WriteScenario renders a scenario result as styled text.
func WriteScenario(w io.Writer, res *scenario.Result, width int) error {
	var b strings.Builder

	b.WriteString(RenderSeparator(width) + "\n")
	b.WriteString(TitleStyle.Render("BigQuery Access Test: "+res.Name) + "\n")
	b.WriteString(RenderSeparator(width) + "\n")
	b.WriteString(RenderLabel("Target:") + ValueStyle.Render(res.Target) + "\n")

	for _, s := range res.Steps {
		fmt.Fprintf(&b, "\n%s %s\n", RenderStatus(s.Passed, s.Warning), SectionStyle.UnsetMarginTop().Render(s.Title))
		for _, line := range s.Detail {
			b.WriteString("       " + line + "\n")
		}
		if s.Err != nil {
			b.WriteString("       " + ErrorStyle.Render("Error:") + " " + s.Err.Error() + "\n")
		}
		if len(s.Columns) > 0 && len(s.Rows) > 0 {
			b.WriteString(renderTable(s.Columns, s.Rows) + "\n")
		}
	}

	if len(res.Hints) > 0 {
		b.WriteString(SectionStyle.Render("Possible reasons") + "\n")
		for _, h := range res.Hints {
			b.WriteString("  - " + DimStyle.Render(h) + "\n")
		}
	}

	b.WriteString("\n" + RenderSeparator(width) + "\n")
	verdict := ErrorStyle.Render("Test FAILED: " + res.Verdict)
	if res.Passed {
		verdict = SuccessStyle.Render("Test PASSED: " + res.Verdict)
	}
	b.WriteString(verdict + "\n")
	for _, n := range res.Notes {
		b.WriteString("Note: " + n + "\n")
	}
	b.WriteString(RenderSeparator(width) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func renderTable(columns []string, rows [][]string) string {
	clipped := make([][]string, len(rows))
	for i, row := range rows {
		clipped[i] = make([]string, len(row))
		for j, cell := range row {
			clipped[i][j] = util.TruncateWidth(strings.ReplaceAll(cell, "\n", " "), MaxCellWidth)
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(SeparatorStyle).
		Headers(columns...).
		Rows(clipped...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	return t.Render()
}

// =============================================================================
// JSON DATA
// =============================================================================

// StepData is one scenario step in JSON output.
type StepData struct {
	Title   string     `json:"title"`
	Passed  bool       `json:"passed"`
	Warning bool       `json:"warning,omitempty"`
	Detail  []string   `json:"detail,omitempty"`
	Columns []string   `json:"columns,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// ScenarioData is the JSON payload of the upload, read and pipeline commands.
type ScenarioData struct {
	Name    string     `json:"name"`
	Target  string     `json:"target"`
	Passed  bool       `json:"passed"`
	Verdict string     `json:"verdict"`
	Steps   []StepData `json:"steps"`
	Notes   []string   `json:"notes,omitempty"`
	Hints   []string   `json:"hints,omitempty"`
}

// NewScenarioData converts res into its JSON payload.
func NewScenarioData(res *scenario.Result) ScenarioData {
	steps := make([]StepData, 0, len(res.Steps))
	for _, s := range res.Steps {
		sd := StepData{
			Title:   s.Title,
			Passed:  s.Passed,
			Warning: s.Warning,
			Detail:  s.Detail,
			Columns: s.Columns,
			Rows:    s.Rows,
		}
		if s.Err != nil {
			sd.Error = s.Err.Error()
		}
		steps = append(steps, sd)
	}
	return ScenarioData{
		Name:    res.Name,
		Target:  res.Target,
		Passed:  res.Passed,
		Verdict: res.Verdict,
		Steps:   steps,
		Notes:   res.Notes,
		Hints:   res.Hints,
	}
}
