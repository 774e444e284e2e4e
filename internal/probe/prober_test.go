// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package probe

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestProber(wh Warehouse, opts Options) *Prober {
	if opts.NewID == nil {
		opts.NewID = func() string { return "run1" }
	}
	return New(wh, opts)
}

func outcomes(rep *Report) map[ProbeName]bool {
	return rep.Permissions()
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestRun_FullAccess(t *testing.T) {
	wh := newFake()
	rep := newTestProber(wh, Options{}).Run(context.Background(), testRef)

	require.Equal(t, LevelOwner, rep.Level())
	for _, res := range rep.Results() {
		assert.True(t, res.Passed, "%s should pass", res.Name)
		assert.Empty(t, res.Message, "%s should carry no message", res.Name)
		assert.Equal(t, FailureNone, res.Failure)
	}

	// Results come back in the fixed order.
	names := make([]ProbeName, 0, len(Order))
	for _, res := range rep.Results() {
		names = append(names, res.Name)
	}
	assert.Equal(t, Order, names)

	// Description is written back unchanged.
	assert.Equal(t, []string{"training data@etag-1"}, wh.updates)
}

func TestRun_DatasetMissing(t *testing.T) {
	wh := newFake()
	wh.datasetErr = fmt.Errorf("%w: googleapi: Error 404: Not found: Dataset", ErrNotFound)

	rep := newTestProber(wh, Options{}).Run(context.Background(), testRef)

	assert.Equal(t, LevelNone, rep.Level())
	assert.False(t, rep.Level().HasAccess())
	require.Len(t, rep.Results(), len(Order), "every probe is still enumerated")
	for _, res := range rep.Results() {
		assert.False(t, res.Passed, "%s", res.Name)
		assert.Equal(t, FailureNotFound, res.Failure, "%s", res.Name)
		assert.Equal(t, "dataset acme-mlops-dev.test_data not found", res.Message, "%s", res.Name)
	}
	assert.Equal(t, []string{"Dataset"}, wh.calls, "nothing else is attempted against a missing dataset")
}

func TestRun_DatasetForbiddenDoesNotStopOtherProbes(t *testing.T) {
	wh := newFake()
	wh.datasetErr = denied("datasets.get")

	rep := newTestProber(wh, Options{}).Run(context.Background(), testRef)

	res, ok := rep.Result(DatasetExists)
	require.True(t, ok)
	assert.False(t, res.Passed)
	assert.Equal(t, FailurePermissionDenied, res.Failure)
	assert.True(t, strings.HasPrefix(res.Message, "no access to dataset acme-mlops-dev.test_data"), res.Message)

	assert.True(t, rep.Passed(CanListTables))
	assert.True(t, rep.Passed(CanReadData))
	assert.True(t, rep.Passed(CanCreateTable))
	assert.True(t, rep.Passed(CanDeleteData))

	upd, _ := rep.Result(CanUpdateDataset)
	assert.False(t, upd.Passed)
	assert.Equal(t, "dataset metadata unavailable", upd.Message)
	assert.NotContains(t, wh.calls, "UpdateDescription")

	assert.Equal(t, LevelWriter, rep.Level())
}

func TestRun_ReadOnlyIdentity(t *testing.T) {
	wh := newFake()
	wh.createErr = denied("tables.create")
	wh.deleteErr = denied("tables.updateData")
	wh.updateErr = denied("datasets.update")

	rep := newTestProber(wh, Options{}).Run(context.Background(), testRef)

	got := outcomes(rep)
	assert.True(t, got[CanReadData])
	assert.False(t, got[CanWriteData])
	assert.False(t, got[CanCreateTable])
	assert.Equal(t, LevelReader, rep.Level())
	assert.True(t, rep.Level().HasAccess())
}

func TestRun_WriterOnlyIdentity(t *testing.T) {
	wh := newFake()
	wh.updateErr = denied("datasets.update")

	rep := newTestProber(wh, Options{}).Run(context.Background(), testRef)

	got := outcomes(rep)
	assert.True(t, got[CanWriteData])
	assert.True(t, got[CanCreateTable])
	assert.False(t, got[CanUpdateDataset])
	assert.Equal(t, LevelWriter, rep.Level())
}

// =============================================================================
// ISOLATION
// =============================================================================

func TestRun_ListTablesFailureIsIsolated(t *testing.T) {
	wh := newFake()
	wh.listErr = denied("tables.list")

	rep := newTestProber(wh, Options{}).Run(context.Background(), testRef)

	assert.False(t, rep.Passed(CanListTables))
	for _, name := range []ProbeName{CanReadData, CanCreateTable, CanWriteData, CanDeleteData, CanUpdateDataset} {
		assert.True(t, rep.Passed(name), "%s should still run and pass", name)
	}
	assert.Equal(t,
		[]string{"Dataset", "ListTables", "Query", "Create", "DeleteTable", "Delete", "UpdateDescription"},
		wh.calls,
	)
	assert.Equal(t, LevelOwner, rep.Level(), "a contradicting probe never downgrades the level")
}

func TestRun_FailureKindsAreDistinguishable(t *testing.T) {
	wh := newFake()
	wh.listErr = denied("tables.list")
	wh.queryErr = fmt.Errorf("%w: googleapi: Error 503: backend error", ErrTransient)
	wh.deleteErr = fmt.Errorf("%w: table transcripts", ErrNotFound)
	wh.updateErr = fmt.Errorf("something odd")

	rep := newTestProber(wh, Options{}).Run(context.Background(), testRef)

	tests := []struct {
		name ProbeName
		want FailureKind
	}{
		{CanListTables, FailurePermissionDenied},
		{CanReadData, FailureTransient},
		{CanDeleteData, FailureNotFound},
		{CanUpdateDataset, FailureUnknown},
		{CanCreateTable, FailureNone},
	}
	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			res, ok := rep.Result(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.want, res.Failure)
			assert.Equal(t, tt.want == FailureNone, res.Passed)
		})
	}
}

func TestRun_ProbeTimeoutIsProbeFailure(t *testing.T) {
	wh := newFake()
	wh.blockOn = "Query"

	rep := newTestProber(wh, Options{ProbeTimeout: 20 * time.Millisecond}).Run(context.Background(), testRef)

	res, _ := rep.Result(CanReadData)
	assert.False(t, res.Passed)
	assert.Equal(t, FailureTransient, res.Failure)
	assert.Equal(t, "timed out after 20ms", res.Message)

	// The run itself carries on.
	assert.True(t, rep.Passed(CanCreateTable))
	assert.True(t, rep.Passed(CanUpdateDataset))
	assert.Equal(t, LevelOwner, rep.Level())
}

func TestRun_CancelledContextSkipsRemainingProbes(t *testing.T) {
	wh := newFake()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep := newTestProber(wh, Options{}).Run(ctx, testRef)

	assert.Empty(t, wh.calls)
	require.Len(t, rep.Results(), len(Order))
	for _, res := range rep.Results() {
		assert.False(t, res.Passed)
		assert.Equal(t, FailureTransient, res.Failure)
		assert.Contains(t, res.Message, "probe cancelled")
	}
	assert.Equal(t, LevelNone, rep.Level())
}

func TestRun_PanicIsRecordedAsFailure(t *testing.T) {
	wh := newFake()
	wh.panicOn = "ListTables"

	rep := newTestProber(wh, Options{}).Run(context.Background(), testRef)

	res, _ := rep.Result(CanListTables)
	assert.False(t, res.Passed)
	assert.Contains(t, res.Message, "probe panicked")
	assert.True(t, rep.Passed(CanReadData))
}

// =============================================================================
// TRANSIENT TABLE
// =============================================================================

func TestRun_CleanupFailureIsSwallowed(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	wh := newFake()
	wh.dropErr = denied("tables.delete")

	rep := newTestProber(wh, Options{Logger: zap.New(core)}).Run(context.Background(), testRef)

	assert.True(t, rep.Passed(CanCreateTable), "cleanup failure must not flip the create probe")
	assert.True(t, rep.Passed(CanWriteData))

	entries := logs.FilterMessage("transient table cleanup failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "acme-mlops-dev.test_data.access_test_temp_run1", entries[0].ContextMap()["table"])
}

func TestRun_CleanupRunsWhenCreateFails(t *testing.T) {
	wh := newFake()
	wh.createErr = denied("tables.create")

	rep := newTestProber(wh, Options{}).Run(context.Background(), testRef)

	assert.False(t, rep.Passed(CanCreateTable))
	require.Len(t, wh.dropped, 1)
	assert.Equal(t, "access_test_temp_run1", wh.dropped[0].TableID)
}

func TestRun_CleanupRunsAfterCreateTimeout(t *testing.T) {
	wh := newFake()
	wh.blockOn = "Create"

	rep := newTestProber(wh, Options{ProbeTimeout: 10 * time.Millisecond}).Run(context.Background(), testRef)

	assert.False(t, rep.Passed(CanCreateTable))
	require.Len(t, wh.dropped, 1, "drop gets its own deadline")
}

func TestRun_CleanupRunsAfterCreatePanic(t *testing.T) {
	wh := newFake()
	wh.panicOn = "Create"

	rep := newTestProber(wh, Options{}).Run(context.Background(), testRef)

	assert.False(t, rep.Passed(CanCreateTable))
	require.Len(t, wh.dropped, 1)
}

func TestRun_TransientTableNameIsUniquePerRun(t *testing.T) {
	wh := newFake()
	p := New(wh, Options{})

	p.Run(context.Background(), testRef)
	p.Run(context.Background(), testRef)

	require.Len(t, wh.dropped, 2)
	assert.NotEqual(t, wh.dropped[0].TableID, wh.dropped[1].TableID)
	for _, ref := range wh.dropped {
		assert.True(t, strings.HasPrefix(ref.TableID, DefaultTempTablePrefix+"_"), ref.TableID)
		assert.NotContains(t, ref.TableID, "-")
		assert.NoError(t, ref.Validate())
	}
}

func TestRun_StatementsTargetConfiguredTables(t *testing.T) {
	wh := newFake()
	p := newTestProber(wh, Options{ProbeTable: "events", TempTablePrefix: "probe_tmp"})

	p.Run(context.Background(), testRef)

	require.Len(t, wh.execSQL, 2)
	assert.Equal(t,
		"CREATE OR REPLACE TABLE `acme-mlops-dev.test_data.probe_tmp_run1` AS SELECT 'test' AS data",
		wh.execSQL[0],
	)
	assert.Equal(t,
		"DELETE FROM `acme-mlops-dev.test_data.events` WHERE id = 'nonexistent-test-id'",
		wh.execSQL[1],
	)
}

// =============================================================================
// REPORT
// =============================================================================

func TestReport_AccessorsReturnCopies(t *testing.T) {
	rep := newTestProber(newFake(), Options{}).Run(context.Background(), testRef)

	results := rep.Results()
	results[0].Passed = false
	perms := rep.Permissions()
	perms[CanReadData] = false

	assert.True(t, rep.Passed(DatasetExists))
	assert.True(t, rep.Passed(CanReadData))
	assert.Equal(t, LevelOwner, rep.Level())
}

func TestReport_IdentityDefaultsToUnknown(t *testing.T) {
	rep := newTestProber(newFake(), Options{}).Run(context.Background(), testRef)
	assert.Equal(t, IdentityUnknown, rep.Identity().Kind)

	id := Identity{Kind: IdentityServiceAccount, Principal: "ml-pipeline@acme.iam.gserviceaccount.com"}
	rep = newTestProber(newFake(), Options{Identity: id}).Run(context.Background(), testRef)
	assert.Equal(t, id, rep.Identity())
}
