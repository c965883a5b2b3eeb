// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package analyst

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/fleetwise-tui/internal/export"
	"github.com/jeranaias/fleetwise-tui/internal/session"
)

// =============================================================================
// INVENTORY
// =============================================================================

// fetchInventoryCmd loads the instance list once. The client's own
// request timeout bounds the call.
func fetchInventoryCmd(b Backend) tea.Cmd {
	return func() tea.Msg {
		list, err := b.ListInstances(context.Background())
		return InventoryMsg{Instances: list, Err: err}
	}
}

// =============================================================================
// SESSION EVENTS
// =============================================================================

// waitForEventCmd blocks on the session channel and delivers the next event
// to Update, which applies it and waits again. Events therefore reach the
// controller one at a time and in order.
func waitForEventCmd(ch <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return SessionClosedMsg{Events: ch}
		}
		return SessionEventMsg{Event: ev, Events: ch}
	}
}

// =============================================================================
// FRAME TICK
// =============================================================================

// frameInterval converts a frame rate into a tick interval.
func frameInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = 30
	}
	return time.Second / time.Duration(fps)
}

// frameTickCmd schedules the next redraw.
func frameTickCmd(fps int) tea.Cmd {
	return tea.Tick(frameInterval(fps), func(t time.Time) tea.Msg {
		return FrameTickMsg{Time: t}
	})
}

// =============================================================================
// CONFIG RELOAD
// =============================================================================

// waitForReloadCmd delivers the next config reload from the watcher.
func waitForReloadCmd(ch <-chan ConfigReloadedMsg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// =============================================================================
// EXPORT
// =============================================================================

// exportCmd writes a report snapshot off the update loop.
func exportCmd(r *export.Report, format string, opts *export.Options) tea.Cmd {
	return func() tea.Msg {
		exp, err := export.ForFormat(format, opts)
		if err != nil {
			return ExportedMsg{Err: err}
		}
		path, err := export.ExportToFile(r, exp, opts)
		return ExportedMsg{Path: path, Err: err}
	}
}
