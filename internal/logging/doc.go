// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the structured log/slog logger.
//
// Logs only ever go to a file, never to the terminal, so they cannot corrupt
// the TUI. Logging is off unless enabled in the config or with
// FLEETWISE_DEBUG=1; when off, every logger writes to io.Discard.
package logging
