// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the colors and lipgloss styles of the fleetwise TUI.
//
// Colors are lipgloss.AdaptiveColor values. The configured theme ("dark",
// "light" or "auto") is applied once at startup by Theme.Apply; "auto" asks
// the terminal through termenv.
//
//	theme := styles.NewTheme(cfg.UI.Theme)
//	theme.Apply()
//	title := theme.Heading[1].Render("Fleet report")
package styles
