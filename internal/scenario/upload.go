// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/bqprobe/internal/probe"
)

// UploadName identifies the upload scenario in reports.
const UploadName = "Data Upload (WRITER)"

// uploadContent is the fixed transcript text inserted by Upload.
var uploadContent = []string{
	"This is a test transcript for ML training data.",
	"Another test transcript with some technical discussion about machine learning models.",
	"Meeting notes: Discussed the new NLP pipeline architecture and performance metrics.",
}

var uploadHints = []string{
	"You don't have WRITER access to the dataset",
	"You're not in the group granted WRITER on the dataset",
	"The dataset/table doesn't exist yet",
}

// UploadOptions configures Upload.
type UploadOptions struct {
	// Now stamps the created_at column.
	Now func() time.Time
	// NewID returns row ids. Defaults to random UUIDs.
	NewID func() string
}

// Upload streams three test transcripts into table and verifies that rows
// created today are visible.
func Upload(ctx context.Context, store Store, table probe.TableRef, opts UploadOptions) *Result {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	res := &Result{Name: UploadName, Target: table.String()}
	fail := func(title string, err error) *Result {
		return res.fail(title, err, "You don't have WRITER access", uploadHints)
	}

	createdAt := opts.Now().UTC().Format(DateTimeLayout)
	rows := make([]Row, 0, len(uploadContent))
	for _, content := range uploadContent {
		rows = append(rows, Row{
			"id":         opts.NewID(),
			"created_at": createdAt,
			"content":    content,
		})
	}

	if err := store.InsertRows(ctx, table, rows); err != nil {
		return fail("Insert test rows", err)
	}
	res.add(Step{
		Title:  "Insert test rows",
		Passed: true,
		Detail: []string{fmt.Sprintf("Inserted %d rows to %s", len(rows), table)},
	})

	sql := fmt.Sprintf("SELECT COUNT(*) AS row_count FROM %s WHERE DATE(created_at) = CURRENT_DATE()", table.Quoted())
	rs, err := store.QueryRows(ctx, sql)
	if err != nil {
		return fail("Verify inserted rows", err)
	}
	count, ok := firstInt(rs)
	detail := fmt.Sprintf("Verified: %d rows inserted today", count)
	if !ok {
		detail = "Verified: row count unavailable"
	}
	res.add(Step{Title: "Verify inserted rows", Passed: true, Detail: []string{detail}})

	res.Passed = true
	res.Verdict = "You have WRITER access"
	return res
}
