// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mockserver is a stand-in for the fleet analysis backend.
//
// It speaks the same wire contract as the real service, so the client, the
// session controller and the TUI can be exercised without a database or a
// language model.
//
// # Endpoints
//
//   - GET  /health          - {"status":"ok","model":"mock-analyst"}
//   - GET  /instances       - inventory of the fixture fleet
//   - GET  /preview-prompt  - the prompts a real backend would build
//   - GET  /stats           - request and token counters
//   - POST /analyse         - canned markdown report as a token stream
//
// # Faults
//
// Markers in the question text change the stream:
//
//   - #fail-midstream - the connection drops halfway through
//   - #no-done        - the stream ends without the [DONE] marker
//   - #garbage        - malformed lines are interleaved with tokens
//
// # Usage
//
//	srv := mockserver.New(mockserver.Options{TokensPerSecond: 40})
//	err := srv.ListenAndServe(ctx, mockserver.DefaultAddr, nil)
package mockserver
