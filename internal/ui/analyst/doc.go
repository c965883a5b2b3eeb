// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package analyst implements the interactive fleet analysis screen.

The screen has a config panel (window, focus areas, instance scope), an
output pane showing the streamed report, an optional question input and a
status bar.

# Event Flow

The Bubble Tea update loop owns the session.Controller. Submitting starts a
producer goroutine; waitForEventCmd reads one event from its channel,
Update applies it and waits again. Token events only mark the output dirty.
A frame tick at ui.max_fps redraws the whole buffer, so a burst of tokens
costs one render.

# Config Reload

When started with a config path the file is watched. A reload swaps the
backend client for later submissions and applies UI settings; the running
session and the current selection are untouched.

# Usage

	m := analyst.New(analyst.Options{Config: cfg, Backend: client})
	defer m.Close()
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
*/
package analyst
