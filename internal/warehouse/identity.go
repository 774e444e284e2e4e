// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package warehouse

import (
	"encoding/json"
	"strings"

	"golang.org/x/oauth2/google"

	"github.com/jeranaias/bqprobe/internal/probe"
)

// credentialsFile holds the credential JSON fields that identify a caller.
type credentialsFile struct {
	Type                           string `json:"type"`
	ClientEmail                    string `json:"client_email"`
	Audience                       string `json:"audience"`
	ServiceAccountImpersonationURL string `json:"service_account_impersonation_url"`
}

// DescribeIdentity reports who the credentials act as. Credentials without
// JSON come from the metadata server.
func DescribeIdentity(creds *google.Credentials) probe.Identity {
	if creds == nil {
		return unknownIdentity()
	}
	if len(creds.JSON) == 0 {
		return probe.Identity{Kind: probe.IdentityCompute, Principal: "Compute Engine default service account"}
	}
	return describeJSON(creds.JSON)
}

func describeJSON(data []byte) probe.Identity {
	var f credentialsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return unknownIdentity()
	}

	switch f.Type {
	case "service_account":
		if f.ClientEmail != "" {
			return probe.Identity{Kind: probe.IdentityServiceAccount, Principal: f.ClientEmail}
		}
	case "authorized_user":
		// User credentials carry no email.
		return probe.Identity{Kind: probe.IdentityUser, Principal: "Current user (run: gcloud auth list)"}
	case "impersonated_service_account":
		if email := impersonatedEmail(f.ServiceAccountImpersonationURL); email != "" {
			return probe.Identity{Kind: probe.IdentityImpersonated, Principal: email}
		}
	case "external_account", "external_account_authorized_user":
		if email := impersonatedEmail(f.ServiceAccountImpersonationURL); email != "" {
			return probe.Identity{Kind: probe.IdentityImpersonated, Principal: email}
		}
		if f.Audience != "" {
			return probe.Identity{Kind: probe.IdentityExternal, Principal: f.Audience}
		}
		return probe.Identity{Kind: probe.IdentityExternal, Principal: "Workload identity federation"}
	}
	return unknownIdentity()
}

// impersonatedEmail extracts the target from
// .../serviceAccounts/<email>:generateAccessToken.
func impersonatedEmail(url string) string {
	_, rest, ok := strings.Cut(url, "/serviceAccounts/")
	if !ok {
		return ""
	}
	email, _, _ := strings.Cut(rest, ":")
	return email
}

func unknownIdentity() probe.Identity {
	return probe.Identity{Kind: probe.IdentityUnknown, Principal: "Unable to determine"}
}
