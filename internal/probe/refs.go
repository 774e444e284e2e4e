// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package probe

import (
	"fmt"
	"regexp"
	"strings"
)

// maxIdentifierLen bounds dataset and table ids. RE2 caps repeat counts at
// 1000, so the length is checked outside the pattern.
const maxIdentifierLen = 1024

var (
	// 6 to 30 characters, optionally scoped by a "domain:" prefix.
	projectIDPattern  = regexp.MustCompile(`^(?:[a-z][a-z0-9.-]*[a-z0-9]:)?[a-z][a-z0-9-]{4,28}[a-z0-9]$`)
	identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

func validIdentifier(id string) bool {
	return len(id) <= maxIdentifierLen && identifierPattern.MatchString(id)
}

// DatasetRef is the fully-qualified identifier of a warehouse dataset.
type DatasetRef struct {
	ProjectID string
	DatasetID string
}

// ParseDatasetRef parses "project.dataset". The project may carry a
// "domain:" prefix, whose dots are kept.
func ParseDatasetRef(s string) (DatasetRef, error) {
	s = strings.TrimSpace(s)
	i := strings.LastIndex(s, ".")
	if i < 0 {
		return DatasetRef{}, fmt.Errorf("invalid dataset reference %q: want project.dataset", s)
	}
	project, dataset := s[:i], s[i+1:]
	if project == "" || dataset == "" {
		return DatasetRef{}, fmt.Errorf("invalid dataset reference %q: want project.dataset", s)
	}
	ref := DatasetRef{ProjectID: project, DatasetID: dataset}
	if err := ref.Validate(); err != nil {
		return DatasetRef{}, err
	}
	return ref, nil
}

// Validate checks both identifiers against the warehouse naming rules.
// SQL is templated from these values, so nothing else may reach a query.
func (r DatasetRef) Validate() error {
	if !projectIDPattern.MatchString(r.ProjectID) {
		return fmt.Errorf("invalid project id %q", r.ProjectID)
	}
	if !validIdentifier(r.DatasetID) {
		return fmt.Errorf("invalid dataset id %q", r.DatasetID)
	}
	return nil
}

// String returns "project.dataset".
func (r DatasetRef) String() string {
	return r.ProjectID + "." + r.DatasetID
}

// Table returns a reference to a table inside the dataset.
func (r DatasetRef) Table(tableID string) TableRef {
	return TableRef{ProjectID: r.ProjectID, DatasetID: r.DatasetID, TableID: tableID}
}

// TableRef is the fully-qualified identifier of a table.
type TableRef struct {
	ProjectID string
	DatasetID string
	TableID   string
}

// Dataset returns the dataset the table lives in.
func (t TableRef) Dataset() DatasetRef {
	return DatasetRef{ProjectID: t.ProjectID, DatasetID: t.DatasetID}
}

// Validate checks the table id in addition to the dataset reference.
func (t TableRef) Validate() error {
	if err := t.Dataset().Validate(); err != nil {
		return err
	}
	if !validIdentifier(t.TableID) {
		return fmt.Errorf("invalid table id %q", t.TableID)
	}
	return nil
}

// String returns "project.dataset.table".
func (t TableRef) String() string {
	return t.ProjectID + "." + t.DatasetID + "." + t.TableID
}

// Quoted returns the reference in backticks, ready for standard SQL.
func (t TableRef) Quoted() string {
	return "`" + t.String() + "`"
}
