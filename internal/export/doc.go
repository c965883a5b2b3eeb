// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes an analysis report to disk.
//
// # Key Types
//
//   - Report: Request, outcome, statistics and the markdown buffer
//   - Exporter: Converts a Report to one output format
//   - Options: Output directory and metadata switches
//
// # Supported Formats
//
//   - Markdown: The raw buffer, optionally with YAML front matter
//   - HTML: Built from the rendered node tree, every text run escaped
//   - JSON: Request, status, stats, markdown and node tree
//
// # Usage
//
//	report := export.FromController(ctrl, time.Now())
//	path, err := export.ExportToFile(report, export.NewHTMLExporter(nil), opts)
package export
