// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package analyst

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/fleetwise-tui/internal/model"
)

// =============================================================================
// KEY HANDLING
// =============================================================================

// handleKey routes a key press. Global bindings come first, then the
// filter prompt, the question input and finally the focused pane.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keyMap

	if key.Matches(msg, k.ForceQuit) {
		return m.quit()
	}

	if m.filtering {
		return m.handleFilterKey(msg)
	}

	switch {
	case key.Matches(msg, k.Submit):
		return m.submit()

	case key.Matches(msg, k.Cancel):
		if m.ctrl.State().Status.Active() {
			return m.cancel()
		}
		if m.pane == PaneInstances && m.filter.Value() != "" {
			m.filter.Reset()
			m.instCursor = 0
		}
		return m, nil

	case key.Matches(msg, k.Clear):
		return m.clear()

	case key.Matches(msg, k.Export):
		return m.startExport()

	case key.Matches(msg, k.NextPane):
		return m.setPane((m.pane + 1) % paneCount)

	case key.Matches(msg, k.PrevPane):
		return m.setPane((m.pane + paneCount - 1) % paneCount)
	}

	if m.pane == PaneQuestion {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if key.Matches(msg, k.Quit) {
		return m.quit()
	}

	switch m.pane {
	case PaneWindow:
		m.handleWindowKey(msg)
	case PaneFocus:
		m.handleFocusKey(msg)
	case PaneInstances:
		return m.handleInstanceKey(msg)
	case PaneOutput:
		m.handleOutputKey(msg)
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.ctrl.State().Status.Active() {
		_ = m.ctrl.Cancel()
	}
	m.quitting = true
	return m, tea.Quit
}

// setPane moves keyboard focus, focusing the text input when it is entered.
func (m Model) setPane(p Pane) (tea.Model, tea.Cmd) {
	m.pane = p
	if p == PaneQuestion {
		return m, m.input.Focus()
	}
	m.input.Blur()
	return m, nil
}

// =============================================================================
// PANE KEYS
// =============================================================================

func (m *Model) handleWindowKey(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keyMap.Left):
		m.sel.Window = m.sel.Window.Prev()
	case key.Matches(msg, m.keyMap.Right), key.Matches(msg, m.keyMap.Toggle):
		m.sel.Window = m.sel.Window.Next()
	}
}

func (m *Model) handleFocusKey(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keyMap.Up):
		if m.focusCursor > 0 {
			m.focusCursor--
		}
	case key.Matches(msg, m.keyMap.Down):
		if m.focusCursor < len(model.AllFocus)-1 {
			m.focusCursor++
		}
	case key.Matches(msg, m.keyMap.Toggle):
		m.sel.ToggleFocus(model.AllFocus[m.focusCursor])
	}
}

func (m Model) handleInstanceKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := m.visibleInstances()
	switch {
	case key.Matches(msg, m.keyMap.Up):
		if m.instCursor > 0 {
			m.instCursor--
		}
	case key.Matches(msg, m.keyMap.Down):
		if m.instCursor < len(visible)-1 {
			m.instCursor++
		}
	case key.Matches(msg, m.keyMap.Toggle):
		if m.instCursor < len(visible) {
			m.sel.ToggleInstance(visible[m.instCursor].InstanceID)
		}
	case key.Matches(msg, m.keyMap.SelectAll):
		m.sel.ClearInstances()
	case key.Matches(msg, m.keyMap.Filter):
		m.filtering = true
		return m, m.filter.Focus()
	}
	return m, nil
}

// handleFilterKey edits the instance filter. Enter keeps the filter, esc
// drops it.
func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		return m, nil
	case tea.KeyEsc:
		m.filtering = false
		m.filter.Blur()
		m.filter.Reset()
		m.instCursor = 0
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.instCursor = 0
	return m, cmd
}

func (m *Model) handleOutputKey(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keyMap.Up):
		m.viewport.LineUp(1)
	case key.Matches(msg, m.keyMap.Down):
		m.viewport.LineDown(1)
	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
	case key.Matches(msg, m.keyMap.Top):
		m.viewport.GotoTop()
	case key.Matches(msg, m.keyMap.Bottom):
		m.viewport.GotoBottom()
	}
	// scrolling up stops following the stream; reaching the end resumes it
	m.follow = m.viewport.AtBottom()
}

// visibleInstances applies the filter to the inventory.
func (m Model) visibleInstances() []model.Instance {
	return model.FilterInstances(m.instances, m.filter.Value())
}
