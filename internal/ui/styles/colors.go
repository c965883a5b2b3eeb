// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// PALETTE
// =============================================================================

// Light values are tuned for white terminals, Dark for the usual near-black.
// NewTheme picks a side; nothing here should be read as a fixed hex.
var (
	Purple  = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"} // report headings, focused pane
	Cyan    = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"} // brand, inline code, table headers
	Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"} // done, checked boxes
	Rose    = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"} // failed analysis
	Amber   = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"} // loading, partial report

	SurfaceDim  = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}
	Overlay     = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}
	OverlayDim  = lipgloss.AdaptiveColor{Light: "#D4D4D4", Dark: "#45475A"}
	SelectionBg = lipgloss.AdaptiveColor{Light: "#BFDBFE", Dark: "#1E3A5F"}

	TextPrimary   = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
	TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}
	TextMuted     = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
	TextInverse   = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#1E1E2E"}
)

// =============================================================================
// INDICATORS
// =============================================================================

// StatusIndicatorSet is the ASCII tag printed in front of status text, so a
// monochrome terminal or a screen reader still gets the state.
type StatusIndicatorSet struct {
	Success string
	Error   string
	Warning string
	Pending string
	Active  string
}

var StatusIndicators = StatusIndicatorSet{
	Success: "[OK]",
	Error:   "[X]",
	Warning: "[!]",
	Pending: "[ ]",
	Active:  "[*]",
}

func tagged(c lipgloss.TerminalColor, tag, msg string) string {
	return lipgloss.NewStyle().Foreground(c).Bold(true).Render(tag + " " + msg)
}

// RenderError is used for the analysis error line under the report.
func RenderError(msg string) string { return tagged(Rose, StatusIndicators.Error, msg) }
