// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error taxonomy shared by the prober and warehouse adapters.
//
// Warehouse implementations wrap their native errors around one of the
// sentinels below with %w. The prober only ever inspects errors through
// errors.Is, so any adapter (or test fake) can plug in.

package probe

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for probe-local failures.
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrTransient        = errors.New("transient failure")
)

// errNoMetadata fails the update probe when the dataset fetch did not
// produce metadata to write back.
var errNoMetadata = errors.New("dataset metadata unavailable")

// ConnectionError means no authenticated warehouse session could be built.
// It is the only error that aborts a run.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to warehouse: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsConnectionError reports whether err is, or wraps, a ConnectionError.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// KindOf maps an error to the failure kind recorded on a CheckResult.
func KindOf(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrNotFound):
		return FailureNotFound
	case errors.Is(err, ErrPermissionDenied):
		return FailurePermissionDenied
	case errors.Is(err, ErrTransient),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return FailureTransient
	default:
		return FailureUnknown
	}
}
