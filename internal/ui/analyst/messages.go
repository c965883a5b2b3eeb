// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package analyst

import (
	"time"

	"github.com/jeranaias/fleetwise-tui/internal/config"
	"github.com/jeranaias/fleetwise-tui/internal/model"
	"github.com/jeranaias/fleetwise-tui/internal/session"
)

// =============================================================================
// INVENTORY MESSAGES
// =============================================================================

// InventoryMsg delivers the result of the startup GET /instances call.
type InventoryMsg struct {
	Instances []model.Instance
	Err       error
}

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// SessionEventMsg carries one event from a session's producer goroutine.
// Events channel identifies the submission the event was read from.
type SessionEventMsg struct {
	Event  session.Event
	Events <-chan session.Event
}

// SessionClosedMsg reports that a producer closed its channel.
type SessionClosedMsg struct {
	Events <-chan session.Event
}

// =============================================================================
// FRAME MESSAGES
// =============================================================================

// FrameTickMsg is sent at ui.max_fps while output may be changing. The
// document is redrawn on a tick, never on each token.
type FrameTickMsg struct {
	Time time.Time
}

// =============================================================================
// CONFIG & EXPORT MESSAGES
// =============================================================================

// ConfigReloadedMsg is sent when the watched config file changes.
type ConfigReloadedMsg struct {
	Config *config.Config
	Err    error
}

// ExportedMsg reports the outcome of an export.
type ExportedMsg struct {
	Path string
	Err  error
}
