// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// types.go - Probe names, results, access levels and the assembled report.

package probe

import (
	"time"
)

// =============================================================================
// PROBE NAMES
// =============================================================================

// ProbeName identifies one permission check.
type ProbeName string

const (
	DatasetExists    ProbeName = "dataset_exists"
	CanGetDataset    ProbeName = "can_get_dataset"
	CanListTables    ProbeName = "can_list_tables"
	CanReadData      ProbeName = "can_read_data"
	CanCreateTable   ProbeName = "can_create_table"
	CanWriteData     ProbeName = "can_write_data"
	CanDeleteData    ProbeName = "can_delete_data"
	CanUpdateDataset ProbeName = "can_update_dataset"
)

// Order is the fixed order results are reported in.
var Order = []ProbeName{
	DatasetExists,
	CanGetDataset,
	CanListTables,
	CanReadData,
	CanCreateTable,
	CanWriteData,
	CanDeleteData,
	CanUpdateDataset,
}

// =============================================================================
// CHECK RESULTS
// =============================================================================

// FailureKind says why a probe failed. It never changes the boolean
// outcome, only the diagnostic.
type FailureKind string

const (
	FailureNone             FailureKind = "none"
	FailureNotFound         FailureKind = "not_found"
	FailurePermissionDenied FailureKind = "permission_denied"
	FailureTransient        FailureKind = "transient"
	FailureUnknown          FailureKind = "unknown"
)

// CheckResult is the outcome of one probe. Message is only set on failure.
type CheckResult struct {
	Name    ProbeName
	Passed  bool
	Message string
	Failure FailureKind
}

// Outcomes maps probe names to their boolean outcome. Missing names count
// as false.
type Outcomes map[ProbeName]bool

// =============================================================================
// ACCESS LEVEL
// =============================================================================

// AccessLevel is the coarse classification derived from probe outcomes.
type AccessLevel int

const (
	LevelNone AccessLevel = iota
	LevelReader
	LevelWriter
	LevelOwner
)

// String returns the upper-case level name used in reports.
func (l AccessLevel) String() string {
	switch l {
	case LevelReader:
		return "READER"
	case LevelWriter:
		return "WRITER"
	case LevelOwner:
		return "OWNER"
	default:
		return "NONE"
	}
}

// MarshalText lets the level appear as its name in JSON.
func (l AccessLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// HasAccess is false only for LevelNone.
func (l AccessLevel) HasAccess() bool {
	return l != LevelNone
}

// =============================================================================
// IDENTITY
// =============================================================================

// IdentityKind describes the type of credentials the run used.
type IdentityKind string

const (
	IdentityServiceAccount IdentityKind = "service_account"
	IdentityUser           IdentityKind = "user"
	IdentityImpersonated   IdentityKind = "impersonated"
	IdentityExternal       IdentityKind = "external"
	IdentityCompute        IdentityKind = "compute"
	IdentityUnknown        IdentityKind = "unknown"
)

// Identity is the caller as far as the credentials reveal it.
type Identity struct {
	Kind      IdentityKind `json:"type"`
	Principal string       `json:"identity"`
}

// =============================================================================
// REPORT
// =============================================================================

// Report is assembled once after every probe has run and is read-only
// afterwards; accessors hand out copies.
type Report struct {
	dataset   DatasetRef
	identity  Identity
	results   []CheckResult
	level     AccessLevel
	startedAt time.Time
	duration  time.Duration
}

// NewReport assembles a report from results in Order. The access level is
// derived here and never stored separately.
func NewReport(ref DatasetRef, id Identity, results []CheckResult, started time.Time, took time.Duration) *Report {
	r := &Report{
		dataset:   ref,
		identity:  id,
		results:   append([]CheckResult(nil), results...),
		startedAt: started,
		duration:  took,
	}
	r.level = Classify(r.Permissions())
	return r
}

// Dataset returns the dataset that was probed.
func (r *Report) Dataset() DatasetRef { return r.dataset }

// Identity returns the identity the probes ran as.
func (r *Report) Identity() Identity { return r.identity }

// Level returns the derived access level.
func (r *Report) Level() AccessLevel { return r.level }

// StartedAt returns when the run began.
func (r *Report) StartedAt() time.Time { return r.startedAt }

// Duration returns how long the whole battery took.
func (r *Report) Duration() time.Duration { return r.duration }

// Results returns a copy of the results in Order.
func (r *Report) Results() []CheckResult {
	return append([]CheckResult(nil), r.results...)
}

// Result returns the result for one probe.
func (r *Report) Result(name ProbeName) (CheckResult, bool) {
	for _, res := range r.results {
		if res.Name == name {
			return res, true
		}
	}
	return CheckResult{}, false
}

// Passed reports whether the named probe succeeded.
func (r *Report) Passed(name ProbeName) bool {
	res, ok := r.Result(name)
	return ok && res.Passed
}

// Permissions returns a fresh probe name -> outcome map.
func (r *Report) Permissions() Outcomes {
	out := make(Outcomes, len(r.results))
	for _, res := range r.results {
		out[res.Name] = res.Passed
	}
	return out
}
