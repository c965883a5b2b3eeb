// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across fleetwise.
//
// # Key Functions
//
//   - AtomicWriteFile: Crash-safe file writing (temp file, fsync, rename)
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: Display-width truncation for terminal cells
//   - Preview: Single-line, truncated preview of streamed text for logs
//   - ExpandHome: "~/" expansion for configured paths
package util
