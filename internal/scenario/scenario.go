// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package scenario runs the data-path diagnostics that complement the access
// probe: a streaming upload, a set of read queries and a small processing
// pipeline that loads derived rows back into the warehouse.
//
// Each scenario returns a Result made of ordered Steps. A scenario stops at
// the first failing step; later steps are not attempted.
package scenario

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jeranaias/bqprobe/internal/probe"
	"github.com/jeranaias/bqprobe/internal/util"
)

// Row is one record destined for a streaming insert.
type Row map[string]any

// RowSet is a query result in column order.
type RowSet struct {
	Columns []string
	Rows    [][]any
}

// Field describes one column of a load schema.
type Field struct {
	Name     string
	Type     string
	Required bool
}

// TableInfo is the table metadata the read scenario reports.
type TableInfo struct {
	Ref      probe.TableRef
	NumRows  uint64
	NumBytes int64
	Created  time.Time
	Modified time.Time
	Fields   []Field
}

// Store is the warehouse capability the scenarios use.
type Store interface {
	// InsertRows streams rows into an existing table.
	InsertRows(ctx context.Context, table probe.TableRef, rows []Row) error
	// QueryRows runs a query and returns every row.
	QueryRows(ctx context.Context, sql string) (*RowSet, error)
	// TableMetadata fetches table metadata.
	TableMetadata(ctx context.Context, table probe.TableRef) (*TableInfo, error)
	// LoadJSON replaces the table contents with newline-delimited JSON.
	LoadJSON(ctx context.Context, table probe.TableRef, schema []Field, r io.Reader) error
	// Exec runs a DDL or DML statement and waits for it to finish.
	Exec(ctx context.Context, sql string) error
}

// Step is one stage of a scenario.
type Step struct {
	Title  string
	Passed bool
	// Warning marks a step whose failure does not fail the scenario.
	Warning bool
	Detail  []string
	Columns []string
	Rows    [][]string
	Err     error
}

// Result is the outcome of one scenario run.
type Result struct {
	Name    string
	Target  string
	Steps   []Step
	Passed  bool
	Verdict string
	Notes   []string
	Hints   []string
}

const (
	// DateTimeLayout is the warehouse DATETIME literal format.
	DateTimeLayout = "2006-01-02 15:04:05"

	// ErrorPreviewRunes bounds error text shown for expected failures.
	ErrorPreviewRunes = 100
)

func (r *Result) add(s Step) {
	r.Steps = append(r.Steps, s)
}

// fail records a failed step and closes the result.
func (r *Result) fail(title string, err error, verdict string, hints []string) *Result {
	r.add(Step{Title: title, Err: err})
	r.Passed = false
	r.Verdict = verdict
	r.Hints = hints
	return r
}

// stringRows formats a RowSet for display.
func stringRows(rs *RowSet) [][]string {
	out := make([][]string, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = FormatValue(v)
		}
		out = append(out, cells)
	}
	return out
}

// FormatValue renders a warehouse value for a table cell.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', 2, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', 2, 32)
	case time.Time:
		return v.UTC().Format(DateTimeLayout)
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(v))
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// errorPreview shortens an error for a one-line note.
func errorPreview(err error) string {
	return util.TruncateRunes(err.Error(), ErrorPreviewRunes)
}

// firstInt returns the first cell of the first row as an int64.
func firstInt(rs *RowSet) (int64, bool) {
	if rs == nil || len(rs.Rows) == 0 || len(rs.Rows[0]) == 0 {
		return 0, false
	}
	switch v := rs.Rows[0][0].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
