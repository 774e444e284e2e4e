// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package report renders access reports and scenario results as styled text
// or as JSON-ready data structures.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jeranaias/bqprobe/internal/probe"
)

var titleCaser = cases.Title(language.English)

// DisplayName turns a probe name into its report label, e.g.
// "can_list_tables" into "Can List Tables".
func DisplayName(name probe.ProbeName) string {
	return titleCaser.String(strings.ReplaceAll(string(name), "_", " "))
}

// LevelSummary is the one-line explanation of an access level.
func LevelSummary(level probe.AccessLevel) string {
	switch level {
	case probe.LevelOwner:
		return "You have OWNER access (full control)"
	case probe.LevelWriter:
		return "You have WRITER access (can read and modify data)"
	case probe.LevelReader:
		return "You have READER access (read-only)"
	default:
		return "You have NO ACCESS to this dataset"
	}
}

// Recommendations returns the remediation steps for an access level.
func Recommendations(level probe.AccessLevel) []string {
	switch level {
	case probe.LevelOwner:
		return []string{
			"You have full control over this dataset",
			"Be careful with destructive operations",
		}
	case probe.LevelWriter:
		return []string{
			"You can read/write data and create tables",
			"You cannot modify dataset properties or permissions",
		}
	case probe.LevelReader:
		return []string{
			"You can run analytics and reports",
			"For write access, request the WRITER role from the dataset admin",
		}
	default:
		return []string{
			"Ensure the dataset exists (provision it before probing)",
			"Request access from the dataset admin: add your email or group to the dataset access list",
			"Check that you are authenticated: gcloud auth list",
		}
	}
}

// SampleQuery is an example statement the identity is allowed to run.
type SampleQuery struct {
	Comment string `json:"comment"`
	SQL     string `json:"sql"`
}

// SampleQueries returns example statements matching the report's evidence.
// Nothing is suggested without read access.
func SampleQueries(rep *probe.Report, probeTable string) []SampleQuery {
	if !rep.Passed(probe.CanReadData) {
		return nil
	}
	ds := rep.Dataset()
	table := ds.Table(probeTable).Quoted()

	queries := []SampleQuery{
		{Comment: "Count transcripts", SQL: "SELECT COUNT(*) FROM " + table},
	}
	if rep.Passed(probe.CanWriteData) {
		queries = append(queries,
			SampleQuery{
				Comment: "Insert new transcript",
				SQL:     "INSERT INTO " + table + "\nVALUES ('id123', CURRENT_DATETIME(), 'Your content here')",
			},
			SampleQuery{
				Comment: "Create new table",
				SQL:     "CREATE TABLE " + ds.Table("your_table").Quoted() + "\nAS SELECT * FROM " + table,
			},
		)
	}
	return queries
}

// AccessOptions tunes the text rendering of an access report.
type AccessOptions struct {
	// ProbeTable names the table used in sample queries.
	ProbeTable string
	// Width of the separator lines.
	Width int
}

// WriteAccess renders rep as a styled text report.
func WriteAccess(w io.Writer, rep *probe.Report, opts AccessOptions) error {
	if opts.ProbeTable == "" {
		opts.ProbeTable = probe.DefaultProbeTable
	}
	var b strings.Builder

	b.WriteString(RenderSeparator(opts.Width) + "\n")
	b.WriteString(TitleStyle.Render("BigQuery Access Report") + "\n")
	b.WriteString(RenderSeparator(opts.Width) + "\n")
	b.WriteString(RenderLabel("Dataset:") + ValueStyle.Render(rep.Dataset().String()) + "\n")

	id := rep.Identity()
	b.WriteString(SectionStyle.Render("Current Identity") + "\n")
	b.WriteString("  " + RenderLabel("Type:") + ValueStyle.Render(string(id.Kind)) + "\n")
	b.WriteString("  " + RenderLabel("Identity:") + ValueStyle.Render(id.Principal) + "\n")

	b.WriteString(SectionStyle.Render("Permission Check Results") + "\n")
	for _, r := range rep.Results() {
		fmt.Fprintf(&b, "  %s %s\n", RenderStatus(r.Passed, false), DisplayName(r.Name))
		if !r.Passed && r.Message != "" {
			b.WriteString("         " + DimStyle.Render("-> "+r.Message) + "\n")
		}
	}

	level := rep.Level()
	b.WriteString(SectionStyle.Render("Access Level Summary") + "\n")
	levelStyle := SuccessStyle
	if !level.HasAccess() {
		levelStyle = ErrorStyle
	}
	fmt.Fprintf(&b, "  %s  %s\n", levelStyle.Render(level.String()), LevelSummary(level))

	b.WriteString(SectionStyle.Render("Recommendations") + "\n")
	recs := Recommendations(level)
	for i, rec := range recs {
		if level.HasAccess() {
			b.WriteString("  - " + rec + "\n")
		} else {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, rec)
		}
	}

	if queries := SampleQueries(rep, opts.ProbeTable); len(queries) > 0 {
		b.WriteString(SectionStyle.Render("Sample Queries You Can Run") + "\n")
		for _, q := range queries {
			b.WriteString("\n" + DimStyle.Render("-- "+q.Comment+":") + "\n")
			b.WriteString(CodeStyle.Render(q.SQL) + "\n")
		}
	}

	b.WriteString("\n" + DimStyle.Render(fmt.Sprintf("Completed in %s", rep.Duration().Round(time.Millisecond))) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// =============================================================================
// JSON DATA
// =============================================================================

// CheckData is one probe outcome in JSON output.
type CheckData struct {
	Name    probe.ProbeName   `json:"name"`
	Passed  bool              `json:"passed"`
	Message string            `json:"message,omitempty"`
	Failure probe.FailureKind `json:"failure"`
}

// AccessData is the JSON payload of the summary command.
type AccessData struct {
	Dataset     string            `json:"dataset"`
	Identity    probe.Identity    `json:"identity"`
	Permissions map[string]bool   `json:"permissions"`
	AccessLevel probe.AccessLevel `json:"access_level"`
	Checks      []CheckData       `json:"checks"`
	Sample      []SampleQuery     `json:"sample_queries,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	DurationMS  int64             `json:"duration_ms"`
}

// NewAccessData converts rep into its JSON payload.
func NewAccessData(rep *probe.Report, probeTable string) AccessData {
	if probeTable == "" {
		probeTable = probe.DefaultProbeTable
	}
	perms := make(map[string]bool, len(probe.Order))
	for name, ok := range rep.Permissions() {
		perms[string(name)] = ok
	}

	results := rep.Results()
	checks := make([]CheckData, 0, len(results))
	for _, r := range results {
		checks = append(checks, CheckData{
			Name:    r.Name,
			Passed:  r.Passed,
			Message: r.Message,
			Failure: r.Failure,
		})
	}

	return AccessData{
		Dataset:     rep.Dataset().String(),
		Identity:    rep.Identity(),
		Permissions: perms,
		AccessLevel: rep.Level(),
		Checks:      checks,
		Sample:      SampleQueries(rep, probeTable),
		StartedAt:   rep.StartedAt().UTC(),
		DurationMS:  rep.Duration().Milliseconds(),
	}
}
