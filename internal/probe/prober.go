// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// prober.go - The ordered permission battery.
//
// Probes Performed:
//   1. Dataset Exists / Get   - fetch dataset metadata
//   2. List Tables            - enumerate tables in the dataset
//   3. Read Data              - SELECT 1 from the probe table
//   4. Create / Write         - CREATE OR REPLACE a transient table, always dropped
//   5. Delete Data            - DELETE a row id that never exists
//   6. Update Dataset         - write the current description back unchanged

package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Defaults applied by New for zero-valued Options fields.
const (
	DefaultProbeTable      = "transcripts"
	DefaultTempTablePrefix = "access_test_temp"
	DefaultProbeTimeout    = 30 * time.Second
	DefaultCleanupTimeout  = 30 * time.Second

	// nonexistentRowID is matched by the delete probe. No real row carries it,
	// so a permitted DELETE removes nothing.
	nonexistentRowID = "nonexistent-test-id"
)

// DatasetInfo is the dataset metadata the battery needs.
type DatasetInfo struct {
	Ref         DatasetRef
	Description string
	ETag        string
	Location    string
}

// Warehouse is the capability a Prober runs against. Implementations must
// wrap failures around ErrNotFound, ErrPermissionDenied or ErrTransient so
// the results can tell them apart.
type Warehouse interface {
	// Dataset fetches dataset metadata.
	Dataset(ctx context.Context, ref DatasetRef) (*DatasetInfo, error)
	// ListTables returns the table ids in the dataset.
	ListTables(ctx context.Context, ref DatasetRef) ([]string, error)
	// Query runs a read query and consumes its first row.
	Query(ctx context.Context, sql string) error
	// Exec runs a DDL or DML statement and waits for it to finish.
	Exec(ctx context.Context, sql string) error
	// DeleteTable drops a table. A missing table is not an error.
	DeleteTable(ctx context.Context, ref TableRef) error
	// UpdateDescription sets the dataset description, guarded by etag.
	UpdateDescription(ctx context.Context, ref DatasetRef, description, etag string) error
}

// Options configures a Prober.
type Options struct {
	// ProbeTable is the well-known table read and delete probes target.
	ProbeTable string
	// TempTablePrefix prefixes the per-run transient table name.
	TempTablePrefix string
	// ProbeTimeout bounds each individual probe.
	ProbeTimeout time.Duration
	// CleanupTimeout bounds the transient table drop.
	CleanupTimeout time.Duration
	// Identity is copied into the report as-is.
	Identity Identity
	// Logger receives probe diagnostics. Nil means no logging.
	Logger *zap.Logger
	// NewID returns the unique suffix for the transient table.
	NewID func() string
	// Now is the clock used for report timestamps.
	Now func() time.Time
}

// Prober executes the permission battery against one Warehouse.
type Prober struct {
	wh   Warehouse
	opts Options
	log  *zap.Logger
}

// New creates a Prober. The warehouse must already be authenticated.
func New(wh Warehouse, opts Options) *Prober {
	if opts.ProbeTable == "" {
		opts.ProbeTable = DefaultProbeTable
	}
	if opts.TempTablePrefix == "" {
		opts.TempTablePrefix = DefaultTempTablePrefix
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.CleanupTimeout <= 0 {
		opts.CleanupTimeout = DefaultCleanupTimeout
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Identity.Kind == "" {
		opts.Identity = Identity{Kind: IdentityUnknown, Principal: "Unable to determine"}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Prober{wh: wh, opts: opts, log: log}
}

// step is one probe invocation. A step may record more than one name
// (dataset fetch, create-as-select) with the same outcome.
type step struct {
	names   []ProbeName
	run     func(ctx context.Context) error
	message func(err error) string
}

// Run performs every probe in order and returns the assembled report. It
// never fails: each probe records its own outcome.
func (p *Prober) Run(ctx context.Context, ref DatasetRef) *Report {
	started := p.opts.Now()
	log := p.log.With(zap.String("dataset", ref.String()))
	log.Debug("probe run started", zap.String("identity", p.opts.Identity.Principal))

	var (
		info    *DatasetInfo
		missing bool
		results = make([]CheckResult, 0, len(Order))
	)

	probeTable := ref.Table(p.opts.ProbeTable)
	steps := []step{
		{
			names: []ProbeName{DatasetExists, CanGetDataset},
			run: func(ctx context.Context) error {
				got, err := p.wh.Dataset(ctx, ref)
				if err != nil {
					return err
				}
				info = got
				return nil
			},
			message: func(err error) string {
				switch KindOf(err) {
				case FailureNotFound:
					return fmt.Sprintf("dataset %s not found", ref)
				case FailurePermissionDenied:
					return fmt.Sprintf("no access to dataset %s: %v", ref, err)
				default:
					return fmt.Sprintf("could not fetch dataset %s: %v", ref, err)
				}
			},
		},
		{
			names: []ProbeName{CanListTables},
			run: func(ctx context.Context) error {
				_, err := p.wh.ListTables(ctx, ref)
				return err
			},
		},
		{
			names: []ProbeName{CanReadData},
			run: func(ctx context.Context) error {
				return p.wh.Query(ctx, fmt.Sprintf("SELECT 1 FROM %s LIMIT 1", probeTable.Quoted()))
			},
		},
		{
			names: []ProbeName{CanCreateTable, CanWriteData},
			run: func(ctx context.Context) error {
				return p.probeCreate(ctx, ref)
			},
		},
		{
			names: []ProbeName{CanDeleteData},
			run: func(ctx context.Context) error {
				return p.wh.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = '%s'", probeTable.Quoted(), nonexistentRowID))
			},
		},
		{
			names: []ProbeName{CanUpdateDataset},
			run: func(ctx context.Context) error {
				if info == nil {
					return errNoMetadata
				}
				return p.wh.UpdateDescription(ctx, ref, info.Description, info.ETag)
			},
		},
	}

	for i, s := range steps {
		var (
			err error
			msg string
		)
		switch {
		case missing:
			err, msg = ErrNotFound, fmt.Sprintf("dataset %s not found", ref)
		case ctx.Err() != nil:
			err, msg = ctx.Err(), "probe cancelled: "+ctx.Err().Error()
		default:
			if err = p.invoke(ctx, s.run); err != nil {
				msg = p.describe(err, s.message)
			}
		}

		for _, name := range s.names {
			results = append(results, CheckResult{
				Name:    name,
				Passed:  err == nil,
				Message: msg,
				Failure: KindOf(err),
			})
			log.Debug("probe finished",
				zap.String("probe", string(name)),
				zap.Bool("passed", err == nil),
				zap.String("failure", string(KindOf(err))),
			)
		}

		if i == 0 && KindOf(err) == FailureNotFound {
			missing = true
		}
	}

	rep := NewReport(ref, p.opts.Identity, results, started, p.opts.Now().Sub(started))
	log.Info("probe run complete",
		zap.String("access_level", rep.Level().String()),
		zap.Duration("took", rep.Duration()),
	)
	return rep
}

// invoke runs one probe under its own timeout. A panic inside the probe is
// recorded as that probe's failure.
func (p *Prober) invoke(parent context.Context, run func(context.Context) error) (err error) {
	ctx, cancel := context.WithTimeout(parent, p.opts.ProbeTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe panicked: %v", r)
		}
	}()

	return run(ctx)
}

func (p *Prober) describe(err error, custom func(error) string) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("timed out after %s", p.opts.ProbeTimeout)
	}
	if custom != nil {
		return custom(err)
	}
	return err.Error()
}

// tempTable returns this run's transient table reference.
func (p *Prober) tempTable(ref DatasetRef) TableRef {
	return ref.Table(p.opts.TempTablePrefix + "_" + p.opts.NewID())
}

// probeCreate creates the transient table via create-as-select. The table is
// dropped on every exit path; only the create outcome counts.
func (p *Prober) probeCreate(ctx context.Context, ref DatasetRef) error {
	table := p.tempTable(ref)
	return p.withTransientTable(ctx, table, func(ctx context.Context) error {
		return p.wh.Exec(ctx, fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT 'test' AS data", table.Quoted()))
	})
}
