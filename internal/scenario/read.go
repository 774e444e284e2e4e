// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scenario

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/bqprobe/internal/probe"
)

// ReadName identifies the read scenario in reports.
const ReadName = "Data Read (READER)"

// writeAttemptRowID is matched by the write attempt. No real row carries it.
const writeAttemptRowID = "test-delete-attempt"

var readHints = []string{
	"You don't have READER access to the dataset",
	"You're not in a group granted READER on the dataset",
	"The dataset/table doesn't exist yet",
}

// Read runs a preview query, a daily aggregation and a metadata fetch against
// table. With testWrite it also attempts a no-op DELETE; a refused DELETE is
// the expected outcome for a read-only identity and does not fail the run.
func Read(ctx context.Context, store Store, table probe.TableRef, testWrite bool) *Result {
	res := &Result{Name: ReadName, Target: table.String()}
	fail := func(title string, err error) *Result {
		return res.fail(title, err, "You don't have READER access", readHints)
	}

	preview := fmt.Sprintf(`SELECT
  id,
  created_at,
  LENGTH(content) AS content_length,
  SUBSTR(content, 1, 50) AS content_preview
FROM %s
LIMIT 5`, table.Quoted())
	rs, err := store.QueryRows(ctx, preview)
	if err != nil {
		return fail("Basic SELECT query", err)
	}
	res.add(queryStep("Basic SELECT query", fmt.Sprintf("Retrieved %d rows", len(rs.Rows)), rs))

	aggregate := fmt.Sprintf(`SELECT
  DATE(created_at) AS date,
  COUNT(*) AS transcript_count,
  AVG(LENGTH(content)) AS avg_content_length,
  MIN(created_at) AS earliest_transcript,
  MAX(created_at) AS latest_transcript
FROM %s
GROUP BY date
ORDER BY date DESC
LIMIT 7`, table.Quoted())
	rs, err = store.QueryRows(ctx, aggregate)
	if err != nil {
		return fail("Aggregation query", err)
	}
	res.add(queryStep("Aggregation query", fmt.Sprintf("Retrieved %d aggregated rows", len(rs.Rows)), rs))

	info, err := store.TableMetadata(ctx, table)
	if err != nil {
		return fail("Table metadata access", err)
	}
	res.add(Step{Title: "Table metadata access", Passed: true, Detail: metadataLines(info)})

	res.Passed = true
	res.Verdict = "You have READER access"

	if testWrite {
		del := fmt.Sprintf("DELETE FROM %s WHERE id = '%s'", table.Quoted(), writeAttemptRowID)
		if err := store.Exec(ctx, del); err != nil {
			res.add(Step{
				Title:  "Write attempt (read-only check)",
				Passed: true,
				Detail: []string{"Write operation failed (read-only access confirmed)", "Error: " + errorPreview(err)},
			})
			res.Notes = append(res.Notes, "You have read-only access (as expected)")
		} else {
			res.add(Step{
				Title:   "Write attempt (read-only check)",
				Passed:  true,
				Warning: true,
				Detail:  []string{"Write operation succeeded - identity has WRITER access"},
			})
			res.Notes = append(res.Notes, "You also have WRITER access")
		}
	}
	return res
}

func queryStep(title, detail string, rs *RowSet) Step {
	return Step{
		Title:   title,
		Passed:  true,
		Detail:  []string{detail},
		Columns: rs.Columns,
		Rows:    stringRows(rs),
	}
}

func metadataLines(info *TableInfo) []string {
	names := make([]string, 0, len(info.Fields))
	for _, f := range info.Fields {
		names = append(names, f.Name)
	}
	return []string{
		fmt.Sprintf("Table size: %d rows, %.2f KB", info.NumRows, float64(info.NumBytes)/1024),
		"Created: " + FormatValue(info.Created),
		"Modified: " + FormatValue(info.Modified),
		"Schema fields: " + strings.Join(names, ", "),
	}
}
