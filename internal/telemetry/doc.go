// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package telemetry collects per-session streaming statistics.
//
// # Key Types
//
//   - Stats: Timing and volume figures for one analysis session
//   - Estimator: Output token estimate (cl100k_base via tiktoken)
//
// # Usage
//
//	stats := telemetry.NewStats(time.Now())
//	stats.RecordToken(tok, time.Now())
//	stats.Finalize(time.Now(), buffer)
//	fmt.Println(stats.Format())
//
// # Privacy
//
// Statistics stay in memory. Only counts and durations are kept, never text.
package telemetry
