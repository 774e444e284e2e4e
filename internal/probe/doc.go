// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package probe runs the dataset permission battery for bqprobe.
//
// A Prober executes a fixed, ordered set of independent permission checks
// against one dataset through an injected Warehouse and classifies the
// outcome into a coarse AccessLevel.
//
// # Key Types
//
//   - Warehouse: the operations a probe needs from the data warehouse
//   - Prober: runs the battery and assembles a Report
//   - Report: ordered CheckResults plus the derived AccessLevel
//   - AccessLevel: NONE, READER, WRITER or OWNER
//
// # Failure Semantics
//
// Every probe catches and records its own failure. A failed probe never
// stops the probes after it. Only building the warehouse connection can fail
// a run, and that happens before a Prober exists (see ConnectionError).
//
// # Usage
//
//	p := probe.New(wh, probe.Options{ProbeTimeout: 30 * time.Second})
//	rep := p.Run(ctx, probe.DatasetRef{ProjectID: "acme-dev", DatasetID: "test_data"})
//	fmt.Println(rep.Level())
package probe
