// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - The JSON envelope every --json command prints.
//
// Reports go to stdout as a single indented document. Logs and human
// notices stay on stderr so the document can be piped into jq.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// JSONResponse is the envelope around every command's JSON data.
type JSONResponse struct {
	// Success is false when the command failed or the identity has no access
	Success bool `json:"success"`

	// Data contains the command-specific payload
	Data any `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// Timestamp is the RFC3339 UTC time the response was generated
	Timestamp string `json:"timestamp"`

	// Command that produced the response
	Command string `json:"command,omitempty"`
}

// now is swapped by tests for stable timestamps.
var now = time.Now

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a failed response with no data.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	return NewJSONFailure(command, nil, err.Error())
}

// NewJSONFailure creates a failed response that still carries data, such as
// an access report whose level is NONE.
func NewJSONFailure(command string, data any, msg string) *JSONResponse {
	return &JSONResponse{
		Success:   false,
		Data:      data,
		Error:     &msg,
		Timestamp: now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// Print writes the indented response to w.
func (r *JSONResponse) Print(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// String returns the response as indented JSON.
func (r *JSONResponse) String() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":"failed to marshal response: %s","timestamp":"%s"}`,
			err.Error(), now().UTC().Format(time.RFC3339))
	}
	return string(data)
}

// =============================================================================
// COMMAND-SPECIFIC DATA STRUCTURES
// =============================================================================

// VersionData is returned by the version command.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// ConfigData is returned by the config command.
type ConfigData struct {
	// Source is the config file that was read, empty when only defaults
	// and environment were used.
	Source string `json:"source"`
	Config any    `json:"config"`
	// Problems lists validation failures; the config is shown regardless.
	Problems []string `json:"problems,omitempty"`
}
