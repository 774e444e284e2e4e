// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package warehouse

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"

	"github.com/jeranaias/bqprobe/internal/probe"
	"github.com/jeranaias/bqprobe/internal/scenario"
)

func TestClassifyError(t *testing.T) {
	gapi := func(code int, reason string) error {
		e := &googleapi.Error{Code: code, Message: "boom"}
		if reason != "" {
			e.Errors = []googleapi.ErrorItem{{Reason: reason, Message: "boom"}}
		}
		return e
	}

	tests := []struct {
		name string
		err  error
		want probe.FailureKind
	}{
		{"nil", nil, probe.FailureNone},
		{"not found", gapi(404, "notFound"), probe.FailureNotFound},
		{"forbidden", gapi(403, "accessDenied"), probe.FailurePermissionDenied},
		{"forbidden no reason", gapi(403, ""), probe.FailurePermissionDenied},
		{"unauthorized", gapi(401, ""), probe.FailurePermissionDenied},
		{"rate limited 403", gapi(403, "rateLimitExceeded"), probe.FailureTransient},
		{"quota 403", gapi(403, "quotaExceeded"), probe.FailureTransient},
		{"too many requests", gapi(429, ""), probe.FailureTransient},
		{"request timeout", gapi(408, ""), probe.FailureTransient},
		{"server error", gapi(503, "backendError"), probe.FailureTransient},
		{"bad request", gapi(400, "invalidQuery"), probe.FailureUnknown},
		{"bad request access reason", gapi(400, "accessDenied"), probe.FailurePermissionDenied},
		{"wrapped googleapi", fmt.Errorf("query: %w", gapi(404, "")), probe.FailureNotFound},
		{"job access denied", &bigquery.Error{Reason: "accessDenied", Message: "Access Denied"}, probe.FailurePermissionDenied},
		{"job not found", &bigquery.Error{Reason: "notFound"}, probe.FailureNotFound},
		{"job backend", &bigquery.Error{Reason: "backendError"}, probe.FailureTransient},
		{"job invalid", &bigquery.Error{Reason: "invalid"}, probe.FailureUnknown},
		{"deadline", context.DeadlineExceeded, probe.FailureTransient},
		{"plain", errors.New("weird"), probe.FailureUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, probe.KindOf(classifyError(tt.err)))
		})
	}
}

func TestClassifyError_KeepsOriginal(t *testing.T) {
	orig := &googleapi.Error{Code: 403, Message: "Access Denied: Dataset acme-mlops-dev:test_data"}

	err := classifyError(orig)

	assert.ErrorIs(t, err, probe.ErrPermissionDenied)
	assert.Equal(t, orig.Error(), err.Error())
	var gerr *googleapi.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, 403, gerr.Code)
}

func TestClassifyError_ContextUntouched(t *testing.T) {
	err := classifyError(context.DeadlineExceeded)
	assert.Equal(t, context.DeadlineExceeded, err)
}

func TestDescribeIdentity(t *testing.T) {
	tests := []struct {
		name      string
		json      string
		wantKind  probe.IdentityKind
		wantPrinc string
	}{
		{
			name:      "service account key",
			json:      `{"type":"service_account","client_email":"ml-pipeline@acme-mlops-dev.iam.gserviceaccount.com"}`,
			wantKind:  probe.IdentityServiceAccount,
			wantPrinc: "ml-pipeline@acme-mlops-dev.iam.gserviceaccount.com",
		},
		{
			name:      "user",
			json:      `{"type":"authorized_user","client_id":"x"}`,
			wantKind:  probe.IdentityUser,
			wantPrinc: "Current user (run: gcloud auth list)",
		},
		{
			name:      "impersonated",
			json:      `{"type":"impersonated_service_account","service_account_impersonation_url":"https://iamcredentials.googleapis.com/v1/projects/-/serviceAccounts/writer@acme.iam.gserviceaccount.com:generateAccessToken"}`,
			wantKind:  probe.IdentityImpersonated,
			wantPrinc: "writer@acme.iam.gserviceaccount.com",
		},
		{
			name:      "external with impersonation",
			json:      `{"type":"external_account","audience":"//iam.googleapis.com/pool","service_account_impersonation_url":"https://x/serviceAccounts/ci@acme.iam.gserviceaccount.com:generateAccessToken"}`,
			wantKind:  probe.IdentityImpersonated,
			wantPrinc: "ci@acme.iam.gserviceaccount.com",
		},
		{
			name:      "external",
			json:      `{"type":"external_account","audience":"//iam.googleapis.com/pool"}`,
			wantKind:  probe.IdentityExternal,
			wantPrinc: "//iam.googleapis.com/pool",
		},
		{
			name:      "service account without email",
			json:      `{"type":"service_account"}`,
			wantKind:  probe.IdentityUnknown,
			wantPrinc: "Unable to determine",
		},
		{
			name:      "garbage",
			json:      `not json`,
			wantKind:  probe.IdentityUnknown,
			wantPrinc: "Unable to determine",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DescribeIdentity(&google.Credentials{JSON: []byte(tt.json)})
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantPrinc, got.Principal)
		})
	}
}

func TestDescribeIdentity_NoJSON(t *testing.T) {
	assert.Equal(t, probe.IdentityCompute, DescribeIdentity(&google.Credentials{}).Kind)
	assert.Equal(t, probe.IdentityUnknown, DescribeIdentity(nil).Kind)
}

func TestConnect_CredentialsFileErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/keys/bad.json", []byte("{"), 0o600))

	for _, path := range []string{"/keys/missing.json", "/keys/bad.json"} {
		_, err := Connect(context.Background(), Settings{ProjectID: "acme-mlops-dev", CredentialsFile: path, Fs: fs})
		require.Error(t, err, path)
		assert.True(t, probe.IsConnectionError(err), path)
	}
}

func TestRowSaver(t *testing.T) {
	row, insertID, err := rowSaver(scenario.Row{"id": "a", "content": "hello"}).Save()

	require.NoError(t, err)
	assert.Empty(t, insertID)
	assert.Equal(t, map[string]bigquery.Value{"id": "a", "content": "hello"}, row)
}

func TestToSchema(t *testing.T) {
	schema := toSchema(scenario.ProcessedSchema)

	require.Len(t, schema, len(scenario.ProcessedSchema))
	assert.Equal(t, "id", schema[0].Name)
	assert.Equal(t, bigquery.StringFieldType, schema[0].Type)
	assert.True(t, schema[0].Required)
	assert.Equal(t, bigquery.DateTimeFieldType, schema[1].Type)
	assert.Equal(t, bigquery.IntegerFieldType, schema[3].Type)
	assert.Equal(t, bigquery.FloatFieldType, schema[5].Type)
	assert.False(t, schema[5].Required)
}

func TestTableInfo(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ref := probe.TableRef{ProjectID: "acme-mlops-dev", DatasetID: "test_data", TableID: "transcripts"}
	md := &bigquery.TableMetadata{
		NumRows:      10,
		NumBytes:     4096,
		CreationTime: created,
		Schema: bigquery.Schema{
			{Name: "id", Type: bigquery.StringFieldType, Required: true},
			{Name: "content", Type: bigquery.StringFieldType},
		},
	}

	info := tableInfo(ref, md)

	assert.Equal(t, ref, info.Ref)
	assert.Equal(t, uint64(10), info.NumRows)
	assert.Equal(t, int64(4096), info.NumBytes)
	assert.Equal(t, created, info.Created)
	assert.Equal(t, []scenario.Field{
		{Name: "id", Type: "STRING", Required: true},
		{Name: "content", Type: "STRING"},
	}, info.Fields)
}
