// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/fleetwise-tui/internal/config"
	"github.com/jeranaias/fleetwise-tui/internal/ui/analyst"
	"github.com/jeranaias/fleetwise-tui/internal/ui/styles"
)

// errNoTerminal is returned when the TUI is started without a terminal.
var errNoTerminal = errors.New("the analyst screen needs a terminal; use 'fleetwise ask' when piping")

// runTUI opens the analyst screen and blocks until the user quits.
func runTUI(ctx context.Context, o *rootOptions) error {
	if !o.streams.OutIsTTY() || !o.streams.InIsTTY() {
		return errNoTerminal
	}
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	log, closer := o.setupLogging(cfg)
	defer closer.Close()

	theme := styles.NewTheme(cfg.UI.Theme)
	theme.Apply()

	m := analyst.New(analyst.Options{
		Config:  cfg,
		Backend: newClient(cfg, log),
		NewBackend: func(c *config.Config) analyst.Backend {
			if o.backendURL != "" {
				c.Backend.URL = o.backendURL
			}
			return newClient(c, log)
		},
		ConfigPath: o.watchPath(),
		Theme:      theme,
		Logger:     log,
	})

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithMouseCellMotion()}
	if ctx != nil {
		opts = append(opts, tea.WithContext(ctx))
	}
	p := tea.NewProgram(m, opts...)
	final, err := p.Run()
	if fm, ok := final.(analyst.Model); ok {
		fm.Close()
	} else {
		m.Close()
	}
	if err != nil {
		return fmt.Errorf("running fleetwise: %w", err)
	}
	log.Info("tui exited")
	return nil
}
