// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// pipeline.go - Simulated processing pipeline.
//
// Steps Performed:
//   1. Read transcripts from the lookback window (sample rows when empty)
//   2. Derive features (word/char counts, simulated sentiment and topic)
//   3. Load the derived rows into the processed table (WRITE_TRUNCATE)
//   4. Summarise the processed table by topic
//   5. Optionally query the processing history (monitor)

package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jeranaias/bqprobe/internal/probe"
)

// PipelineName identifies the pipeline scenario in reports.
const PipelineName = "ML Pipeline (WRITER)"

// Topics are the labels the simulated classifier picks from.
var Topics = []string{"technical", "business", "general", "support"}

// ProcessedSchema is the schema of the processed table.
var ProcessedSchema = []Field{
	{Name: "id", Type: "STRING", Required: true},
	{Name: "created_at", Type: "DATETIME", Required: true},
	{Name: "content", Type: "STRING", Required: true},
	{Name: "word_count", Type: "INTEGER"},
	{Name: "char_count", Type: "INTEGER"},
	{Name: "avg_word_length", Type: "FLOAT"},
	{Name: "sentiment_score", Type: "FLOAT"},
	{Name: "topic_confidence", Type: "FLOAT"},
	{Name: "predicted_topic", Type: "STRING"},
	{Name: "processing_timestamp", Type: "DATETIME"},
}

var sampleTranscripts = []string{
	"Technical discussion about neural networks and deep learning.",
	"Business meeting notes on Q4 revenue projections.",
	"General team standup discussing project timelines.",
	"Customer support ticket regarding login issues.",
	"Technical deep dive into transformer architecture.",
}

var pipelineHints = []string{
	"Service account doesn't have WRITER access",
	"Not running with the pipeline service account",
	"Tables don't exist yet",
	"To run as a service account: create and download a key, export GOOGLE_APPLICATION_CREDENTIALS=/path/to/key.json, then run again",
}

// Defaults applied for zero-valued PipelineOptions fields.
const (
	DefaultSourceTable    = "transcripts"
	DefaultProcessedTable = "transcripts_processed"
	DefaultLookbackDays   = 30
	DefaultMonitorDays    = 7

	// previewRows bounds the processed rows shown in the report.
	previewRows = 5
)

// PipelineOptions configures Pipeline.
type PipelineOptions struct {
	SourceTable    string
	ProcessedTable string
	LookbackDays   int
	MonitorDays    int
	// Monitor also runs the processing history query.
	Monitor bool
	// Rand drives the simulated model outputs.
	Rand *rand.Rand
	Now  func() time.Time
}

// Transcript is one source row.
type Transcript struct {
	ID        string
	CreatedAt string
	Content   string
}

// Processed is a transcript with its derived features.
type Processed struct {
	ID                  string  `json:"id"`
	CreatedAt           string  `json:"created_at"`
	Content             string  `json:"content"`
	WordCount           int     `json:"word_count"`
	CharCount           int     `json:"char_count"`
	AvgWordLength       float64 `json:"avg_word_length"`
	SentimentScore      float64 `json:"sentiment_score"`
	TopicConfidence     float64 `json:"topic_confidence"`
	PredictedTopic      string  `json:"predicted_topic"`
	ProcessingTimestamp string  `json:"processing_timestamp"`
}

// Pipeline reads recent transcripts from dataset, derives features, loads them
// into the processed table and summarises the result by topic.
func Pipeline(ctx context.Context, store Store, dataset probe.DatasetRef, opts PipelineOptions) *Result {
	opts = opts.withDefaults()
	source := dataset.Table(opts.SourceTable)
	processed := dataset.Table(opts.ProcessedTable)

	res := &Result{Name: PipelineName, Target: dataset.String()}
	fail := func(title string, err error) *Result {
		return res.fail(title, err, "ML pipeline lacks required access", pipelineHints)
	}

	read := fmt.Sprintf(`SELECT
  id,
  created_at,
  content
FROM %s
WHERE created_at >= DATETIME_SUB(CURRENT_DATETIME(), INTERVAL %d DAY)`, source.Quoted(), opts.LookbackDays)
	rs, err := store.QueryRows(ctx, read)
	if err != nil {
		return fail("Read transcripts", err)
	}
	transcripts := transcriptsFrom(rs)
	readStep := Step{
		Title:  "Read transcripts",
		Passed: true,
		Detail: []string{fmt.Sprintf("Retrieved %d transcripts for processing", len(transcripts))},
	}
	if len(transcripts) == 0 {
		transcripts = SampleTranscripts(opts.Now())
		readStep.Warning = true
		readStep.Detail = append(readStep.Detail, fmt.Sprintf("No data to process. Generated %d sample transcripts", len(transcripts)))
	}
	res.add(readStep)

	rows := Process(transcripts, opts.Rand, opts.Now())
	res.add(processStep(rows))

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fail("Write processed results", err)
		}
	}
	if err := store.LoadJSON(ctx, processed, ProcessedSchema, &buf); err != nil {
		return fail("Write processed results", err)
	}
	res.add(Step{
		Title:  "Write processed results",
		Passed: true,
		Detail: []string{fmt.Sprintf("Successfully wrote %d processed records to %s", len(rows), processed)},
	})

	summary := fmt.Sprintf(`SELECT
  predicted_topic,
  COUNT(*) AS count,
  AVG(sentiment_score) AS avg_sentiment,
  AVG(word_count) AS avg_words
FROM %s
GROUP BY predicted_topic
ORDER BY count DESC`, processed.Quoted())
	rs, err = store.QueryRows(ctx, summary)
	if err != nil {
		return fail("Processing summary", err)
	}
	res.add(queryStep("Processing summary", "Processing summary by topic", rs))

	res.Passed = true
	res.Verdict = "ML pipeline has required access"

	if opts.Monitor {
		res.add(monitor(ctx, store, processed, opts.MonitorDays))
	}
	return res
}

func (o PipelineOptions) withDefaults() PipelineOptions {
	if o.SourceTable == "" {
		o.SourceTable = DefaultSourceTable
	}
	if o.ProcessedTable == "" {
		o.ProcessedTable = DefaultProcessedTable
	}
	if o.LookbackDays <= 0 {
		o.LookbackDays = DefaultLookbackDays
	}
	if o.MonitorDays <= 0 {
		o.MonitorDays = DefaultMonitorDays
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// monitor runs the processing history query. Failure is a warning.
func monitor(ctx context.Context, store Store, processed probe.TableRef, days int) Step {
	sql := fmt.Sprintf(`SELECT
  DATE(processing_timestamp) AS process_date,
  COUNT(DISTINCT id) AS transcripts_processed,
  COUNT(DISTINCT predicted_topic) AS unique_topics,
  MIN(processing_timestamp) AS first_process_time,
  MAX(processing_timestamp) AS last_process_time
FROM %s
WHERE processing_timestamp >= DATETIME_SUB(CURRENT_DATETIME(), INTERVAL %d DAY)
GROUP BY process_date
ORDER BY process_date DESC`, processed.Quoted(), days)

	rs, err := store.QueryRows(ctx, sql)
	if err != nil {
		return Step{
			Title:   "Pipeline monitoring",
			Warning: true,
			Detail:  []string{"Monitoring query failed: " + errorPreview(err)},
		}
	}
	if len(rs.Rows) == 0 {
		return Step{Title: "Pipeline monitoring", Passed: true, Detail: []string{"No recent processing history found"}}
	}
	return queryStep("Pipeline monitoring", "Pipeline monitoring data available", rs)
}

// SampleTranscripts returns the synthetic rows used when the source table has
// nothing in the lookback window. Row i is dated i days before now.
func SampleTranscripts(now time.Time) []Transcript {
	out := make([]Transcript, 0, len(sampleTranscripts))
	for i, content := range sampleTranscripts {
		out = append(out, Transcript{
			ID:        fmt.Sprintf("ml-test-%d", i),
			CreatedAt: now.UTC().AddDate(0, 0, -i).Format(DateTimeLayout),
			Content:   content,
		})
	}
	return out
}

// Process derives the feature columns for each transcript. Sentiment is
// uniform in [-1, 1), topic confidence uniform in [0.5, 1.0).
func Process(in []Transcript, r *rand.Rand, now time.Time) []Processed {
	stamp := now.UTC().Format(DateTimeLayout)
	out := make([]Processed, 0, len(in))
	for _, t := range in {
		words := len(strings.Fields(t.Content))
		chars := utf8.RuneCountInString(t.Content)
		avg := 0.0
		if words > 0 {
			avg = float64(chars) / float64(words)
		}
		out = append(out, Processed{
			ID:                  t.ID,
			CreatedAt:           t.CreatedAt,
			Content:             t.Content,
			WordCount:           words,
			CharCount:           chars,
			AvgWordLength:       avg,
			SentimentScore:      r.Float64()*2 - 1,
			TopicConfidence:     0.5 + r.Float64()*0.5,
			PredictedTopic:      Topics[r.Intn(len(Topics))],
			ProcessingTimestamp: stamp,
		})
	}
	return out
}

func processStep(rows []Processed) Step {
	s := Step{
		Title:   "Process transcripts",
		Passed:  true,
		Detail:  []string{fmt.Sprintf("Processed %d transcripts", len(rows))},
		Columns: []string{"id", "predicted_topic", "sentiment_score", "word_count"},
	}
	for i, row := range rows {
		if i == previewRows {
			break
		}
		s.Rows = append(s.Rows, []string{
			row.ID,
			row.PredictedTopic,
			FormatValue(row.SentimentScore),
			FormatValue(row.WordCount),
		})
	}
	return s
}

// transcriptsFrom maps query rows by column name. Rows without an id or
// created_at cannot satisfy the processed schema and are skipped.
func transcriptsFrom(rs *RowSet) []Transcript {
	idx := make(map[string]int, len(rs.Columns))
	for i, c := range rs.Columns {
		idx[c] = i
	}
	cell := func(row []any, name string) any {
		i, ok := idx[name]
		if !ok || i >= len(row) {
			return nil
		}
		return row[i]
	}

	out := make([]Transcript, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		id, created := cell(row, "id"), cell(row, "created_at")
		if id == nil || created == nil {
			continue
		}
		content, _ := cell(row, "content").(string)
		out = append(out, Transcript{
			ID:        FormatValue(id),
			CreatedAt: FormatValue(created),
			Content:   content,
		})
	}
	return out
}
