// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package probe

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   Outcomes
		want AccessLevel
	}{
		{"nothing", Outcomes{}, LevelNone},
		{"read only", Outcomes{CanReadData: true}, LevelReader},
		{"writer", Outcomes{CanReadData: true, CanWriteData: true, CanCreateTable: true}, LevelWriter},
		{"write without create", Outcomes{CanReadData: true, CanWriteData: true}, LevelReader},
		{"owner", Outcomes{CanUpdateDataset: true, CanDeleteData: true, CanReadData: true}, LevelOwner},
		{"owner without write evidence", Outcomes{CanUpdateDataset: true, CanDeleteData: true, CanWriteData: false}, LevelOwner},
		{"update without delete", Outcomes{CanUpdateDataset: true, CanReadData: true}, LevelReader},
		{"write without read", Outcomes{CanWriteData: true, CanCreateTable: false, CanReadData: false}, LevelNone},
		{"only metadata", Outcomes{DatasetExists: true, CanGetDataset: true, CanListTables: true}, LevelNone},
		{"writer evidence without read", Outcomes{CanWriteData: true, CanCreateTable: true}, LevelWriter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.in))
		})
	}
}

// TestClassify_Deterministic walks every subset of probe outcomes.
func TestClassify_Deterministic(t *testing.T) {
	for mask := 0; mask < 1<<len(Order); mask++ {
		in := Outcomes{}
		for i, name := range Order {
			in[name] = mask&(1<<i) != 0
		}

		first := Classify(in)
		require.Equal(t, first, Classify(in), "mask %08b", mask)

		// NONE exactly when neither owner, writer nor read evidence exists.
		noEvidence := !(in[CanUpdateDataset] && in[CanDeleteData]) &&
			!(in[CanWriteData] && in[CanCreateTable]) &&
			!in[CanReadData]
		assert.Equal(t, noEvidence, first == LevelNone, "mask %08b", mask)
	}
}

func TestAccessLevel_String(t *testing.T) {
	assert.Equal(t, "NONE", LevelNone.String())
	assert.Equal(t, "READER", LevelReader.String())
	assert.Equal(t, "WRITER", LevelWriter.String())
	assert.Equal(t, "OWNER", LevelOwner.String())
	assert.Equal(t, "NONE", AccessLevel(42).String())

	data, err := json.Marshal(map[string]AccessLevel{"level": LevelWriter})
	require.NoError(t, err)
	assert.JSONEq(t, `{"level":"WRITER"}`, string(data))
}

func TestParseDatasetRef(t *testing.T) {
	tests := []struct {
		in      string
		want    DatasetRef
		wantErr bool
	}{
		{"mycompany-mlops-dev.test_data", DatasetRef{"mycompany-mlops-dev", "test_data"}, false},
		{" acme-prod.events ", DatasetRef{"acme-prod", "events"}, false},
		{"acme-prod", DatasetRef{}, true},
		{"acme-prod.", DatasetRef{}, true},
		{"acme-prod.bad-name", DatasetRef{}, true},
		{"Acme.test", DatasetRef{}, true},
		{"acme-prod.x`; DROP", DatasetRef{}, true},
		{"example.com:acme-prod.events", DatasetRef{"example.com:acme-prod", "events"}, false},
		{"acme.events", DatasetRef{}, true},
		{"acme-prod-" + strings.Repeat("x", 21) + ".events", DatasetRef{}, true},
		{"acme-prod." + strings.Repeat("d", 1024), DatasetRef{"acme-prod", strings.Repeat("d", 1024)}, false},
		{"acme-prod." + strings.Repeat("d", 1025), DatasetRef{}, true},
	}
	for _, tt := range tests {
		name := tt.in
		if len(name) > 40 {
			name = name[:40]
		}
		t.Run(name, func(t *testing.T) {
			got, err := ParseDatasetRef(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTableRef_Validate(t *testing.T) {
	assert.NoError(t, testRef.Table(strings.Repeat("t", 1024)).Validate())
	assert.Error(t, testRef.Table(strings.Repeat("t", 1025)).Validate())
	assert.Error(t, testRef.Table("").Validate())
	assert.Error(t, testRef.Table("bad-name").Validate())
}

func TestTableRef(t *testing.T) {
	ref := testRef.Table("transcripts")
	assert.Equal(t, "acme-mlops-dev.test_data.transcripts", ref.String())
	assert.Equal(t, "`acme-mlops-dev.test_data.transcripts`", ref.Quoted())
	assert.Equal(t, testRef, ref.Dataset())
	assert.NoError(t, ref.Validate())
	assert.Error(t, testRef.Table("no-dashes-allowed").Validate())
}
