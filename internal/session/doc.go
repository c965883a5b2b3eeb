// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session owns the lifecycle of one analysis request.
//
// A session moves through idle, loading, streaming and one of the terminal
// states done or error:
//
//	idle/done/error --submit--> loading --accepted--> streaming --end--> done
//	loading --rejected--> error       loading/streaming --closed--> done
//	loading/streaming --cancel--> idle    loading/streaming --failure--> error
//	done/error --clear--> idle
//
// Transition is a pure function over State. Controller holds the single
// mutable State, the cancel function of the in-flight request and a fresh
// Handle per submission. A producer goroutine reads the network and only
// sends handle-tagged Events; the owner applies them with Controller.Apply,
// which drops any event whose handle is not the active one. Tokens already
// in flight from a cancelled session therefore never reach a newer buffer.
//
// # Key Types
//
//   - State: Status, output buffer, error message, active handle
//   - Event: One input to the state machine
//   - Controller: Owner of the state and the in-flight request
//
// # Usage
//
//	ctrl := session.NewController(client)
//	events, err := ctrl.Submit(selection)
//	for ev := range events {
//	    ctrl.Apply(ev)
//	}
package session
