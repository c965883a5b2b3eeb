// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/jeranaias/fleetwise-tui/internal/session"
	"github.com/jeranaias/fleetwise-tui/internal/telemetry"
	"github.com/jeranaias/fleetwise-tui/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Hint is one key hint shown on the right of the status bar.
type Hint struct {
	Key  string
	Desc string
}

// DefaultHints are shown when the caller sets none.
var DefaultHints = []Hint{
	{"enter", "run"},
	{"esc", "cancel"},
	{"tab", "focus"},
	{"^S", "export"},
	{"q", "quit"},
}

// StatusBar is the bottom line of the analyst screen.
type StatusBar struct {
	Status  session.Status
	Summary string // request summary of the current or last session
	Stats   *telemetry.Stats
	Message string // transient notice, e.g. "exported to ..."
	IsError bool   // Message is an error
	Width   int

	ShowStats bool
	Hints     []Hint

	theme *styles.Theme
	now   func() time.Time
}

// NewStatusBar creates an idle status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	if theme == nil {
		theme = styles.NewTheme("dark")
	}
	return &StatusBar{
		Status:    session.StatusIdle,
		Width:     80,
		ShowStats: true,
		Hints:     DefaultHints,
		theme:     theme,
		now:       time.Now,
	}
}

// SetWidth updates the status bar width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// SetSession copies the parts of a session the bar displays.
func (s *StatusBar) SetSession(status session.Status, summary string, stats *telemetry.Stats) {
	s.Status = status
	s.Summary = summary
	s.Stats = stats
}

// SetMessage shows a notice until the next ClearMessage.
func (s *StatusBar) SetMessage(msg string, isError bool) {
	s.Message = msg
	s.IsError = isError
}

// ClearMessage removes the notice.
func (s *StatusBar) ClearMessage() {
	s.Message = ""
	s.IsError = false
}

// View renders the status bar
func (s *StatusBar) View() string {
	if s.Width < 60 {
		return s.viewNarrow()
	}
	return s.viewWide()
}

// viewNarrow renders badge and message only.
func (s *StatusBar) viewNarrow() string {
	left := s.renderBadge()
	if msg := s.renderMessage(); msg != "" {
		left += " " + msg
	}
	return s.theme.StatusBar.Width(s.Width).Render(s.fit(left, s.Width-2))
}

// viewWide renders badge, summary, stats and message on the left and key
// hints on the right. Hints are dropped first when space runs out.
func (s *StatusBar) viewWide() string {
	sep := lipgloss.NewStyle().Foreground(styles.Overlay).Render(" | ")

	parts := []string{s.renderBadge()}
	if s.Summary != "" {
		parts = append(parts, s.theme.Label.Render(s.Summary))
	}
	if st := s.renderStats(); st != "" {
		parts = append(parts, st)
	}
	if msg := s.renderMessage(); msg != "" {
		parts = append(parts, msg)
	}
	left := strings.Join(parts, sep)
	right := s.renderHints()

	inner := s.Width - 2
	gap := inner - lipgloss.Width(left) - lipgloss.Width(right)
	if right == "" || gap < 2 {
		return s.theme.StatusBar.Width(s.Width).Render(s.fit(left, inner))
	}
	return s.theme.StatusBar.Width(s.Width).Render(left + strings.Repeat(" ", gap) + right)
}

// fit truncates styled text to width cells, keeping escape sequences intact.
func (s *StatusBar) fit(text string, width int) string {
	if width <= 0 || lipgloss.Width(text) <= width {
		return text
	}
	return truncate.StringWithTail(text, uint(width), "…")
}

// ==========================================================================
// HELPER RENDER METHODS
// ==========================================================================

// renderBadge renders the session status with its indicator so the state
// reads without colour.
func (s *StatusBar) renderBadge() string {
	label := strings.ToUpper(s.Status.String())
	switch s.Status {
	case session.StatusLoading:
		return s.theme.StatusLoading.Render(styles.StatusIndicators.Pending + " " + label)
	case session.StatusStreaming:
		return s.theme.StatusStreaming.Render(styles.StatusIndicators.Active + " " + label)
	case session.StatusDone:
		return s.theme.StatusDone.Render(styles.StatusIndicators.Success + " " + label)
	case session.StatusError:
		return s.theme.StatusError.Render(styles.StatusIndicators.Error + " " + label)
	default:
		return s.theme.StatusIdle.Render(label)
	}
}

// renderStats shows elapsed time while active and the full summary once
// the stats are finalised.
func (s *StatusBar) renderStats() string {
	if !s.ShowStats || s.Stats == nil {
		return ""
	}
	if s.Stats.Finished() {
		return s.theme.Muted.Render(s.Stats.Format())
	}
	if !s.Status.Active() {
		return ""
	}
	elapsed := s.Stats.Elapsed(s.now()).Round(100 * time.Millisecond)
	text := fmt.Sprintf("%s, %d chunks", elapsed, s.Stats.TokenEvents)
	return s.theme.Muted.Render(text)
}

func (s *StatusBar) renderMessage() string {
	if s.Message == "" {
		return ""
	}
	if s.IsError {
		return s.theme.Error.Render(s.Message)
	}
	return s.theme.Warning.Render(s.Message)
}

// renderHints renders keyboard shortcut hints
func (s *StatusBar) renderHints() string {
	hints := make([]string, 0, len(s.Hints))
	for _, h := range s.Hints {
		hints = append(hints, s.theme.ShortcutKey.Render(h.Key)+" "+s.theme.ShortcutDesc.Render(h.Desc))
	}
	return strings.Join(hints, "  ")
}
