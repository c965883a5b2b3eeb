// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/jeranaias/fleetwise-tui/internal/backend"
	"github.com/jeranaias/fleetwise-tui/internal/model"
	"github.com/jeranaias/fleetwise-tui/internal/ui/styles"
)

// =============================================================================
// INSTANCES
// =============================================================================

type instancesOptions struct {
	*rootOptions
	output string
	filter string
}

func newInstancesCmd(root *rootOptions) *cobra.Command {
	o := &instancesOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "instances",
		Short: "List the instance inventory",
		Long: `List the instances the backend has metrics for.

Examples:
  fleetwise instances
  fleetwise instances --filter web -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.loadConfig()
			if err != nil {
				return err
			}
			if err := checkFormat(o.output, FormatTable, FormatJSON, FormatYAML); err != nil {
				return err
			}
			log, closer := o.setupLogging(cfg)
			defer closer.Close()

			ctx, stop := interruptContext(cmd.Context())
			defer stop()

			stopSpinner := startSpinner(o.streams, false, "loading inventory...")
			list, err := newClient(cfg, log).ListInstances(ctx)
			stopSpinner()
			if err != nil {
				return errors.New(backend.UserMessage(err))
			}
			list = model.FilterInstances(list, o.filter)

			if o.output != FormatTable {
				return writeStructured(o.streams.Out, o.output, list)
			}
			if len(list) == 0 {
				newPrinter(o.streams, false).warning("no instances")
				return nil
			}
			fmt.Fprintln(o.streams.Out, instanceTable(o.streams, list))
			return nil
		},
	}
	cmd.Flags().StringVarP(&o.output, "output", "o", FormatTable, "output format: table, json, yaml")
	cmd.Flags().StringVar(&o.filter, "filter", "", "only show instances whose id, name, type or zone contains this")
	return cmd
}

func instanceTable(streams IOStreams, list []model.Instance) string {
	lipgloss.SetColorProfile(streams.ColorProfile())
	header := lipgloss.NewStyle().Bold(true).Foreground(styles.Cyan).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.Overlay)).
		Headers("ID", "NAME", "TYPE", "AZ", "STATE", "PLATFORM").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	for _, in := range list {
		t.Row(in.InstanceID, orDash(in.InstanceName), in.InstanceType, in.AZ, orDash(in.State), orDash(in.Platform))
	}
	return t.Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// =============================================================================
// HEALTH
// =============================================================================

func newHealthCmd(root *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if err := checkFormat(output, FormatText, FormatJSON, FormatYAML); err != nil {
				return err
			}
			log, closer := root.setupLogging(cfg)
			defer closer.Close()

			ctx, stop := interruptContext(cmd.Context())
			defer stop()

			h, err := newClient(cfg, log).Health(ctx)
			if err != nil {
				return fmt.Errorf("%s: %s", cfg.Backend.URL, backend.UserMessage(err))
			}
			if output != FormatText {
				return writeStructured(root.streams.Out, output, h)
			}
			if !h.OK() {
				return fmt.Errorf("%s reports status %q", cfg.Backend.URL, h.Status)
			}
			p := newPrinter(root.streams, false)
			p.success("%s is healthy", cfg.Backend.URL)
			fmt.Fprintf(root.streams.Out, "model: %s\n", orDash(h.Model))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", FormatText, "output format: text, json, yaml")
	return cmd
}

// =============================================================================
// PROMPT PREVIEW
// =============================================================================

func newPromptCmd(root *rootOptions) *cobra.Command {
	var (
		window int
		output string
	)
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Show the prompts the backend would send to the model",
		Long: `Show the system and user prompts the backend builds for a window.
This is a debugging aid; no analysis is run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if err := checkFormat(output, FormatText, FormatJSON, FormatYAML); err != nil {
				return err
			}
			w := model.WindowDays(cfg.Analysis.WindowDays)
			if cmd.Flags().Changed("window") {
				w = model.WindowDays(window)
			}
			if !w.Valid() {
				return model.ErrInvalidWindow
			}
			log, closer := root.setupLogging(cfg)
			defer closer.Close()

			ctx, stop := interruptContext(cmd.Context())
			defer stop()

			pp, err := newClient(cfg, log).PreviewPrompt(ctx, w)
			if err != nil {
				return errors.New(backend.UserMessage(err))
			}
			if output != FormatText {
				return writeStructured(root.streams.Out, output, pp)
			}

			out := root.streams.Out
			fmt.Fprintf(out, "# System prompt\n\n%s\n\n", pp.SystemPrompt)
			fmt.Fprintf(out, "# User prompt\n\n%s\n", pp.UserPrompt)
			newPrinter(root.streams, false).note("%d instances, %d prompt characters", pp.InstanceCount, pp.PromptChars)
			return nil
		},
	}
	cmd.Flags().IntVarP(&window, "window", "w", 0, "lookback window in days (default analysis.window_days)")
	cmd.Flags().StringVarP(&output, "output", "o", FormatText, "output format: text, json, yaml")
	return cmd
}
