// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package warehouse

import (
	"context"
	"errors"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/jeranaias/bqprobe/internal/probe"
)

// apiError tags a BigQuery error with a probe sentinel. The original
// error text is kept so reports show what the service said.
type apiError struct {
	kind error
	err  error
}

func (e *apiError) Error() string { return e.err.Error() }

func (e *apiError) Unwrap() []error { return []error{e.kind, e.err} }

// transientReasons are job and API reasons that describe load or outages
// rather than missing permission.
var transientReasons = map[string]bool{
	"rateLimitExceeded": true,
	"quotaExceeded":     true,
	"backendError":      true,
	"internalError":     true,
	"jobBackendError":   true,
	"jobInternalError":  true,
	"timeout":           true,
}

// classifyError maps BigQuery failures onto the probe error taxonomy.
// Context errors pass through untouched; probe.KindOf already treats them
// as transient.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if kind := kindForStatus(gerr); kind != nil {
			return &apiError{kind: kind, err: err}
		}
		return err
	}

	var berr *bigquery.Error
	if errors.As(err, &berr) {
		if kind := kindForReason(berr.Reason); kind != nil {
			return &apiError{kind: kind, err: err}
		}
	}
	return err
}

func kindForStatus(gerr *googleapi.Error) error {
	switch code := gerr.Code; {
	case code == http.StatusNotFound:
		return probe.ErrNotFound
	case code == http.StatusForbidden:
		for _, item := range gerr.Errors {
			if transientReasons[item.Reason] {
				return probe.ErrTransient
			}
		}
		return probe.ErrPermissionDenied
	case code == http.StatusUnauthorized:
		return probe.ErrPermissionDenied
	case code == http.StatusRequestTimeout,
		code == http.StatusTooManyRequests,
		code >= http.StatusInternalServerError:
		return probe.ErrTransient
	}
	for _, item := range gerr.Errors {
		if kind := kindForReason(item.Reason); kind != nil {
			return kind
		}
	}
	return nil
}

func kindForReason(reason string) error {
	switch {
	case reason == "notFound":
		return probe.ErrNotFound
	case reason == "accessDenied":
		return probe.ErrPermissionDenied
	case transientReasons[reason]:
		return probe.ErrTransient
	default:
		return nil
	}
}
