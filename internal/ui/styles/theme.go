// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
type Theme struct {
	// Mode is the configured theme: "dark", "light" or "auto".
	Mode string

	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// ChromaStyle names the code highlighting style matching the background.
	ChromaStyle string

	// ==========================================================================
	// LAYOUT STYLES
	// ==========================================================================

	Title        lipgloss.Style
	Panel        lipgloss.Style
	PanelFocused lipgloss.Style
	PanelTitle   lipgloss.Style
	Label        lipgloss.Style
	Value        lipgloss.Style
	Muted        lipgloss.Style
	Cursor       lipgloss.Style
	Checked      lipgloss.Style
	Warning      lipgloss.Style
	Error        lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar       lipgloss.Style
	StatusIdle      lipgloss.Style
	StatusLoading   lipgloss.Style
	StatusStreaming lipgloss.Style
	StatusDone      lipgloss.Style
	StatusError     lipgloss.Style
	ShortcutKey     lipgloss.Style
	ShortcutDesc    lipgloss.Style

	// ==========================================================================
	// DOCUMENT STYLES
	// ==========================================================================

	// Heading is indexed by level; index 0 is unused.
	Heading     [5]lipgloss.Style
	Paragraph   lipgloss.Style
	Strong      lipgloss.Style
	Emphasis    lipgloss.Style
	InlineCode  lipgloss.Style
	CodeBlock   lipgloss.Style
	CodeOpen    lipgloss.Style
	CodeLang    lipgloss.Style
	ListMarker  lipgloss.Style
	QuoteBar    lipgloss.Style
	TableHeader lipgloss.Style
	TableRule   lipgloss.Style
	Rule        lipgloss.Style
}

// NewTheme creates a theme for mode ("dark", "light" or "auto"). Unknown
// modes behave like "auto".
func NewTheme(mode string) *Theme {
	mode = strings.ToLower(strings.TrimSpace(mode))
	profile := termenv.ColorProfile()

	t := &Theme{
		Mode:         mode,
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	switch mode {
	case "dark":
		t.IsDark = true
	case "light":
		t.IsDark = false
	default:
		t.Mode = "auto"
		t.IsDark = termenv.HasDarkBackground()
	}

	t.ChromaStyle = "github"
	if t.IsDark {
		t.ChromaStyle = "monokai"
	}

	t.initStyles()
	return t
}

// Apply makes lipgloss resolve adaptive colors for this theme's background.
func (t *Theme) Apply() {
	lipgloss.SetHasDarkBackground(t.IsDark)
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.Panel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.PanelFocused = t.Panel.
		BorderForeground(Purple)

	t.PanelTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextSecondary)

	t.Label = lipgloss.NewStyle().Foreground(TextSecondary)
	t.Value = lipgloss.NewStyle().Foreground(TextPrimary).Bold(true)
	t.Muted = lipgloss.NewStyle().Foreground(TextMuted)

	t.Cursor = lipgloss.NewStyle().
		Background(SelectionBg).
		Foreground(TextPrimary)

	t.Checked = lipgloss.NewStyle().Foreground(Emerald).Bold(true)
	t.Warning = lipgloss.NewStyle().Foreground(Amber)
	t.Error = lipgloss.NewStyle().Foreground(Rose).Bold(true)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	badge := lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(TextInverse)
	t.StatusIdle = badge.Background(TextMuted)
	t.StatusLoading = badge.Background(Amber)
	t.StatusStreaming = badge.Background(Cyan)
	t.StatusDone = badge.Background(Emerald)
	t.StatusError = badge.Background(Rose)

	t.ShortcutKey = lipgloss.NewStyle().Foreground(Cyan).Bold(true)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)

	// Document
	t.Heading[1] = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(Purple)
	t.Heading[2] = lipgloss.NewStyle().Bold(true).Foreground(Purple)
	t.Heading[3] = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	t.Heading[4] = lipgloss.NewStyle().Bold(true).Foreground(TextSecondary)

	t.Paragraph = lipgloss.NewStyle().Foreground(TextPrimary)
	t.Strong = lipgloss.NewStyle().Bold(true)
	t.Emphasis = lipgloss.NewStyle().Italic(true)
	t.InlineCode = lipgloss.NewStyle().
		Foreground(Cyan).
		Background(SurfaceDim)

	t.CodeBlock = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.CodeOpen = t.CodeBlock.
		BorderForeground(Amber)
	t.CodeLang = lipgloss.NewStyle().
		Foreground(TextMuted).
		Background(OverlayDim).
		Padding(0, 1).
		Bold(true)

	t.ListMarker = lipgloss.NewStyle().Foreground(Cyan)
	t.QuoteBar = lipgloss.NewStyle().Foreground(TextMuted)
	t.TableHeader = lipgloss.NewStyle().Bold(true).Foreground(TextPrimary)
	t.TableRule = lipgloss.NewStyle().Foreground(OverlayDim)
	t.Rule = lipgloss.NewStyle().Foreground(Overlay)
}
