// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package probe

import (
	"context"
	"fmt"
	"strings"
)

// fakeWarehouse records calls and returns canned errors per operation.
type fakeWarehouse struct {
	info *DatasetInfo

	datasetErr error
	listErr    error
	queryErr   error
	createErr  error
	deleteErr  error
	updateErr  error
	dropErr    error

	// blockOn names an operation that waits for its context to expire.
	blockOn string
	// panicOn names an operation that panics.
	panicOn string

	calls   []string
	execSQL []string
	dropped []TableRef
	updates []string
}

func newFake() *fakeWarehouse {
	return &fakeWarehouse{
		info: &DatasetInfo{
			Ref:         testRef,
			Description: "training data",
			ETag:        "etag-1",
			Location:    "US",
		},
	}
}

var testRef = DatasetRef{ProjectID: "acme-mlops-dev", DatasetID: "test_data"}

func (f *fakeWarehouse) enter(ctx context.Context, op string) error {
	f.calls = append(f.calls, op)
	if f.panicOn == op {
		panic("boom: " + op)
	}
	if f.blockOn == op {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (f *fakeWarehouse) Dataset(ctx context.Context, ref DatasetRef) (*DatasetInfo, error) {
	if err := f.enter(ctx, "Dataset"); err != nil {
		return nil, err
	}
	if f.datasetErr != nil {
		return nil, f.datasetErr
	}
	return f.info, nil
}

func (f *fakeWarehouse) ListTables(ctx context.Context, ref DatasetRef) ([]string, error) {
	if err := f.enter(ctx, "ListTables"); err != nil {
		return nil, err
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return []string{"transcripts"}, nil
}

func (f *fakeWarehouse) Query(ctx context.Context, sql string) error {
	if err := f.enter(ctx, "Query"); err != nil {
		return err
	}
	return f.queryErr
}

func (f *fakeWarehouse) Exec(ctx context.Context, sql string) error {
	f.execSQL = append(f.execSQL, sql)
	switch {
	case strings.HasPrefix(sql, "CREATE"):
		if err := f.enter(ctx, "Create"); err != nil {
			return err
		}
		return f.createErr
	case strings.HasPrefix(sql, "DELETE"):
		if err := f.enter(ctx, "Delete"); err != nil {
			return err
		}
		return f.deleteErr
	default:
		return fmt.Errorf("unexpected statement: %s", sql)
	}
}

func (f *fakeWarehouse) DeleteTable(ctx context.Context, ref TableRef) error {
	if err := f.enter(ctx, "DeleteTable"); err != nil {
		return err
	}
	f.dropped = append(f.dropped, ref)
	return f.dropErr
}

func (f *fakeWarehouse) UpdateDescription(ctx context.Context, ref DatasetRef, description, etag string) error {
	if err := f.enter(ctx, "UpdateDescription"); err != nil {
		return err
	}
	f.updates = append(f.updates, description+"@"+etag)
	return f.updateErr
}

func denied(op string) error {
	return fmt.Errorf("%w: googleapi: Error 403: Access Denied: %s", ErrPermissionDenied, op)
}
