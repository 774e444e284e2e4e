// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package warehouse adapts the BigQuery client to the probe and scenario
// capabilities.
//
// Connect is the only place credentials are resolved. Every operation maps
// service failures onto probe.ErrNotFound, probe.ErrPermissionDenied or
// probe.ErrTransient so callers can classify them without knowing BigQuery.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/bigquery"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/jeranaias/bqprobe/internal/probe"
	"github.com/jeranaias/bqprobe/internal/scenario"
)

// Scopes requested for the BigQuery session.
var Scopes = []string{
	bigquery.Scope,
	"https://www.googleapis.com/auth/cloud-platform",
}

// Settings configures Connect.
type Settings struct {
	ProjectID string
	// Location pins job execution (US, EU, ...). Empty lets the service pick.
	Location string
	// CredentialsFile replaces Application Default Credentials lookup.
	CredentialsFile string
	// Fs reads CredentialsFile. Defaults to the OS filesystem.
	Fs     afero.Fs
	Logger *zap.Logger
}

// Client is an authenticated BigQuery session.
type Client struct {
	bq       *bigquery.Client
	identity probe.Identity
	log      *zap.Logger
}

var (
	_ probe.Warehouse = (*Client)(nil)
	_ scenario.Store  = (*Client)(nil)
)

// Connect resolves credentials, fetches a token to prove they work and opens
// a BigQuery client. Any failure is a *probe.ConnectionError.
func Connect(ctx context.Context, s Settings) (*Client, error) {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}

	creds, err := findCredentials(ctx, s)
	if err != nil {
		return nil, &probe.ConnectionError{Err: err}
	}
	if _, err := creds.TokenSource.Token(); err != nil {
		return nil, &probe.ConnectionError{Err: fmt.Errorf("credentials rejected: %w", err)}
	}

	bq, err := bigquery.NewClient(ctx, s.ProjectID, option.WithCredentials(creds))
	if err != nil {
		return nil, &probe.ConnectionError{Err: fmt.Errorf("bigquery client: %w", err)}
	}
	bq.Location = s.Location

	id := DescribeIdentity(creds)
	log.Debug("warehouse connected",
		zap.String("project", s.ProjectID),
		zap.String("identity_type", string(id.Kind)),
		zap.String("identity", id.Principal),
	)
	return &Client{bq: bq, identity: id, log: log}, nil
}

func findCredentials(ctx context.Context, s Settings) (*google.Credentials, error) {
	if s.CredentialsFile == "" {
		creds, err := google.FindDefaultCredentials(ctx, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("ADC not found (run 'gcloud auth application-default login'): %w", err)
		}
		return creds, nil
	}

	fs := s.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	data, err := afero.ReadFile(fs, s.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials file %s: %w", s.CredentialsFile, err)
	}
	return creds, nil
}

// Identity returns the caller the credentials describe.
func (c *Client) Identity() probe.Identity {
	return c.identity
}

// Close releases the underlying client.
func (c *Client) Close() error {
	return c.bq.Close()
}

func (c *Client) dataset(ref probe.DatasetRef) *bigquery.Dataset {
	return c.bq.DatasetInProject(ref.ProjectID, ref.DatasetID)
}

func (c *Client) table(ref probe.TableRef) *bigquery.Table {
	return c.bq.DatasetInProject(ref.ProjectID, ref.DatasetID).Table(ref.TableID)
}

// =============================================================================
// PROBE OPERATIONS
// =============================================================================

// Dataset fetches dataset metadata.
func (c *Client) Dataset(ctx context.Context, ref probe.DatasetRef) (*probe.DatasetInfo, error) {
	md, err := c.dataset(ref).Metadata(ctx)
	if err != nil {
		return nil, classifyError(err)
	}
	return &probe.DatasetInfo{
		Ref:         ref,
		Description: md.Description,
		ETag:        md.ETag,
		Location:    md.Location,
	}, nil
}

// ListTables returns the table ids in the dataset.
func (c *Client) ListTables(ctx context.Context, ref probe.DatasetRef) ([]string, error) {
	it := c.dataset(ref).Tables(ctx)
	var ids []string
	for {
		t, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return ids, nil
		}
		if err != nil {
			return nil, classifyError(err)
		}
		ids = append(ids, t.TableID)
	}
}

// Query runs a read query and consumes its first row.
func (c *Client) Query(ctx context.Context, sql string) error {
	it, err := c.bq.Query(sql).Read(ctx)
	if err != nil {
		return classifyError(err)
	}
	var row []bigquery.Value
	if err := it.Next(&row); err != nil && !errors.Is(err, iterator.Done) {
		return classifyError(err)
	}
	return nil
}

// Exec runs a DDL or DML statement and waits for the job to finish.
func (c *Client) Exec(ctx context.Context, sql string) error {
	job, err := c.bq.Query(sql).Run(ctx)
	if err != nil {
		return classifyError(err)
	}
	c.log.Debug("job started", zap.String("job_id", job.ID()))
	return c.wait(ctx, job)
}

func (c *Client) wait(ctx context.Context, job *bigquery.Job) error {
	status, err := job.Wait(ctx)
	if err != nil {
		return classifyError(err)
	}
	if err := status.Err(); err != nil {
		c.log.Debug("job failed", zap.String("job_id", job.ID()), zap.Error(err))
		return classifyError(err)
	}
	return nil
}

// DeleteTable drops a table. A missing table is not an error.
func (c *Client) DeleteTable(ctx context.Context, ref probe.TableRef) error {
	err := classifyError(c.table(ref).Delete(ctx))
	if errors.Is(err, probe.ErrNotFound) {
		return nil
	}
	return err
}

// UpdateDescription writes the dataset description, guarded by etag.
func (c *Client) UpdateDescription(ctx context.Context, ref probe.DatasetRef, description, etag string) error {
	_, err := c.dataset(ref).Update(ctx, bigquery.DatasetMetadataToUpdate{Description: description}, etag)
	return classifyError(err)
}

// =============================================================================
// SCENARIO OPERATIONS
// =============================================================================

// rowSaver streams a scenario row. An empty insert id lets the client
// generate one for best-effort deduplication.
type rowSaver scenario.Row

func (r rowSaver) Save() (map[string]bigquery.Value, string, error) {
	out := make(map[string]bigquery.Value, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out, "", nil
}

// InsertRows streams rows into an existing table.
func (c *Client) InsertRows(ctx context.Context, table probe.TableRef, rows []scenario.Row) error {
	savers := make([]rowSaver, len(rows))
	for i, r := range rows {
		savers[i] = rowSaver(r)
	}
	if err := c.table(table).Inserter().Put(ctx, savers); err != nil {
		return fmt.Errorf("insert into %s: %w", table, classifyError(err))
	}
	return nil
}

// QueryRows runs a query and returns every row in column order.
func (c *Client) QueryRows(ctx context.Context, sql string) (*scenario.RowSet, error) {
	it, err := c.bq.Query(sql).Read(ctx)
	if err != nil {
		return nil, classifyError(err)
	}

	rs := &scenario.RowSet{}
	for {
		var row []bigquery.Value
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classifyError(err)
		}
		cells := make([]any, len(row))
		for i, v := range row {
			cells[i] = v
		}
		rs.Rows = append(rs.Rows, cells)
	}
	for _, f := range it.Schema {
		rs.Columns = append(rs.Columns, f.Name)
	}
	return rs, nil
}

// TableMetadata fetches table metadata.
func (c *Client) TableMetadata(ctx context.Context, table probe.TableRef) (*scenario.TableInfo, error) {
	md, err := c.table(table).Metadata(ctx)
	if err != nil {
		return nil, classifyError(err)
	}
	return tableInfo(table, md), nil
}

func tableInfo(ref probe.TableRef, md *bigquery.TableMetadata) *scenario.TableInfo {
	info := &scenario.TableInfo{
		Ref:      ref,
		NumRows:  md.NumRows,
		NumBytes: md.NumBytes,
		Created:  md.CreationTime,
		Modified: md.LastModifiedTime,
	}
	for _, f := range md.Schema {
		info.Fields = append(info.Fields, scenario.Field{Name: f.Name, Type: string(f.Type), Required: f.Required})
	}
	return info
}

// LoadJSON replaces the table contents with newline-delimited JSON,
// creating the table when needed.
func (c *Client) LoadJSON(ctx context.Context, table probe.TableRef, schema []scenario.Field, r io.Reader) error {
	src := bigquery.NewReaderSource(r)
	src.SourceFormat = bigquery.JSON
	src.Schema = toSchema(schema)

	loader := c.table(table).LoaderFrom(src)
	loader.WriteDisposition = bigquery.WriteTruncate
	loader.CreateDisposition = bigquery.CreateIfNeeded

	job, err := loader.Run(ctx)
	if err != nil {
		return classifyError(err)
	}
	c.log.Debug("load job started", zap.String("job_id", job.ID()), zap.String("table", table.String()))
	return c.wait(ctx, job)
}

func toSchema(fields []scenario.Field) bigquery.Schema {
	schema := make(bigquery.Schema, 0, len(fields))
	for _, f := range fields {
		schema = append(schema, &bigquery.FieldSchema{
			Name:     f.Name,
			Type:     bigquery.FieldType(f.Type),
			Required: f.Required,
		})
	}
	return schema
}
