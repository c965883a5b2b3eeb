// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package analyst

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/jeranaias/fleetwise-tui/internal/model"
	"github.com/jeranaias/fleetwise-tui/internal/session"
	"github.com/jeranaias/fleetwise-tui/internal/ui/styles"
)

// =============================================================================
// LAYOUT
// =============================================================================

// Panels have a rounded border and one cell of horizontal padding.
const (
	panelFrameW  = 4
	panelFrameH  = 2
	configPanelW = 36
	headerH      = 1
	questionH    = 3
	statusH      = 1
)

type layout struct {
	configW, configInnerW       int
	outputW, outputInnerW       int
	mainH, innerH, outputInnerH int
	questionInnerW              int
}

// layout splits the screen: config panel on the left, output on the right,
// question input and status bar underneath.
func (m Model) layout() layout {
	var l layout
	l.configW = configPanelW
	if m.width < 3*configPanelW {
		l.configW = max(m.width/3, 24)
	}
	l.configInnerW = max(l.configW-panelFrameW, 1)
	l.outputW = max(m.width-l.configW, panelFrameW+1)
	l.outputInnerW = l.outputW - panelFrameW

	l.mainH = max(m.height-headerH-questionH-statusH, panelFrameH+1)
	l.innerH = l.mainH - panelFrameH
	l.outputInnerH = l.innerH
	l.questionInnerW = max(m.width-panelFrameW, 1)
	return l
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Initializing..."
	}
	l := m.layout()

	header := m.renderHeader()
	main := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderConfigPanel(l),
		m.renderOutputPanel(l),
	)
	question := m.panelStyle(m.pane == PaneQuestion).
		Width(m.width - 2).
		Render(m.input.View())

	return lipgloss.JoinVertical(lipgloss.Left, header, main, question, m.statusBar.View())
}

func (m Model) panelStyle(focused bool) lipgloss.Style {
	if focused {
		return m.theme.PanelFocused
	}
	return m.theme.Panel
}

func (m Model) renderHeader() string {
	title := m.theme.Title.Render("fleetwise")
	url := m.theme.Muted.Render(m.cfg.Backend.URL)
	return truncate.StringWithTail(title+"  "+url, uint(max(m.width, 1)), "…")
}

// =============================================================================
// CONFIG PANEL
// =============================================================================

func (m Model) renderConfigPanel(l layout) string {
	w := l.configInnerW
	var lines []string

	// Window selector
	lines = append(lines, m.sectionTitle("Window", m.pane == PaneWindow))
	var windows []string
	for _, win := range model.AllowedWindows {
		label := win.String()
		if win == m.sel.Window {
			windows = append(windows, m.theme.Checked.Render("["+label+"]"))
		} else {
			windows = append(windows, m.theme.Muted.Render(" "+label+" "))
		}
	}
	lines = append(lines, strings.Join(windows, " "), "")

	// Focus toggles
	lines = append(lines, m.sectionTitle("Focus", m.pane == PaneFocus))
	for i, f := range model.AllFocus {
		row := checkbox(m.sel.Focus[f]) + " " + f.Label()
		lines = append(lines, m.cursorRow(row, m.pane == PaneFocus && i == m.focusCursor, w))
	}
	if len(m.sel.FocusList()) == 0 {
		lines = append(lines, m.theme.Warning.Render(styles.StatusIndicators.Warning+" pick at least one"))
	}
	lines = append(lines, "")

	// Instances
	lines = append(lines, m.sectionTitle(m.scopeTitle(), m.pane == PaneInstances))
	lines = append(lines, m.renderInstances(w, l.innerH-len(lines))...)

	for i, line := range lines {
		lines[i] = truncate.StringWithTail(line, uint(w), "…")
	}
	if len(lines) > l.innerH {
		lines = lines[:l.innerH]
	}

	focused := m.pane == PaneWindow || m.pane == PaneFocus || m.pane == PaneInstances
	return m.panelStyle(focused).
		Width(l.configW - 2).
		Height(l.innerH).
		Render(strings.Join(lines, "\n"))
}

func (m Model) sectionTitle(title string, active bool) string {
	if active {
		return m.theme.Title.Render("> " + title)
	}
	return m.theme.PanelTitle.Render("  " + title)
}

func (m Model) scopeTitle() string {
	n := len(m.sel.Selected)
	if n == 0 {
		return "Instances (all)"
	}
	return fmt.Sprintf("Instances (%d selected)", n)
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

func (m Model) cursorRow(row string, active bool, width int) string {
	if active {
		return m.theme.Cursor.Render(padTo(row, width))
	}
	return row
}

func padTo(s string, width int) string {
	if pad := width - lipgloss.Width(s); pad > 0 {
		return s + strings.Repeat(" ", pad)
	}
	return s
}

// renderInstances lists the filtered inventory in a window of height rows
// that keeps the cursor visible.
func (m Model) renderInstances(width, height int) []string {
	var lines []string
	switch {
	case !m.inventoryLoaded:
		return []string{m.theme.Muted.Render("loading inventory...")}
	case m.inventoryErr != nil:
		return []string{
			m.theme.Warning.Render(styles.StatusIndicators.Warning + " inventory unavailable"),
			m.theme.Muted.Render("analysing all instances"),
		}
	}

	if m.filtering || m.filter.Value() != "" {
		lines = append(lines, m.filter.View())
		height--
	}
	visible := m.visibleInstances()
	if len(visible) == 0 {
		return append(lines, m.theme.Muted.Render("no matching instances"))
	}
	height = max(height, 1)

	start := 0
	if m.instCursor >= height {
		start = m.instCursor - height + 1
	}
	end := min(start+height, len(visible))
	for i := start; i < end; i++ {
		inst := visible[i]
		row := checkbox(m.sel.Selected[inst.InstanceID]) + " " + inst.DisplayName()
		if inst.InstanceType != "" {
			row += " " + m.theme.Muted.Render(inst.InstanceType)
		}
		lines = append(lines, m.cursorRow(row, m.pane == PaneInstances && i == m.instCursor, width))
	}
	return lines
}

// =============================================================================
// OUTPUT PANEL
// =============================================================================

func (m Model) renderOutputPanel(l layout) string {
	return m.panelStyle(m.pane == PaneOutput).
		Width(l.outputW - 2).
		Height(l.innerH).
		Render(m.viewport.View())
}

// render redraws the output from the whole buffer.
func (m *Model) render() {
	m.viewport.SetContent(m.renderOutput())
	if m.follow {
		m.viewport.GotoBottom()
	}
	m.dirty = false
}

// renderOutput lays out the current session for the viewport.
func (m Model) renderOutput() string {
	st := m.ctrl.State()
	var parts []string

	if st.Buffer != "" {
		parts = append(parts, m.doc.Render(m.ctrl.Document()))
	}

	switch st.Status {
	case session.StatusIdle:
		if st.Buffer == "" {
			parts = append(parts, m.theme.Muted.Render(
				"Choose a window, focus areas and scope, then press enter to run an analysis."))
		} else {
			parts = append(parts, m.theme.Warning.Render(styles.StatusIndicators.Warning+" cancelled, output is partial"))
		}
	case session.StatusLoading:
		parts = append(parts, m.spinner.View()+" "+m.theme.Muted.Render("waiting for the backend..."))
	case session.StatusError:
		parts = append(parts, styles.RenderError(st.Err))
	}
	return strings.Join(parts, "\n\n")
}
