// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/jeranaias/fleetwise-tui/internal/config"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		Long: `Show or change settings in ~/.fleetwise/config.toml.

Keys use dot notation, for example backend.url or ui.max_fps. List values
such as analysis.focus take a comma separated string.

Examples:
  fleetwise config show
  fleetwise config get analysis.window_days
  fleetwise config set backend.url http://analysis.internal:8000
  fleetwise config set analysis.focus rightsizing,risk_warnings`,
	}
	cmd.AddCommand(
		newConfigShowCmd(root),
		newConfigPathCmd(root),
		newConfigGetCmd(root),
		newConfigSetCmd(root),
		newConfigInitCmd(root),
	)
	return cmd
}

// configFile is the file config set and init write to.
func (o *rootOptions) configFile() (string, error) {
	if o.configPath != "" {
		return o.configPath, nil
	}
	p, _ := config.ActivePath()
	if p == "" {
		return "", errors.New("could not determine the config directory")
	}
	return p, nil
}

// readFileOnly loads path over the defaults without environment overrides,
// so saving it back never persists FLEETWISE_* values.
func readFileOnly(path string) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	var err error
	if strings.HasSuffix(path, ".json") {
		err = config.LoadJSON(cfg, path)
	} else {
		err = config.LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	return cfg, nil
}

func writeConfigFile(cfg *config.Config, path string) error {
	if strings.HasSuffix(path, ".json") {
		return config.SaveJSON(cfg, path)
	}
	return config.SaveTOML(cfg, path)
}

// =============================================================================
// SUBCOMMANDS
// =============================================================================

func newConfigShowCmd(root *rootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(output, FormatTOML, FormatJSON, FormatYAML); err != nil {
				return err
			}
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if output == FormatTOML {
				return toml.NewEncoder(root.streams.Out).Encode(cfg)
			}
			return writeStructured(root.streams.Out, output, cfg)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", FormatTOML, "output format: toml, json, yaml")
	return cmd
}

func newConfigPathCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := root.configFile()
			if err != nil {
				return err
			}
			fmt.Fprintln(root.streams.Out, p)
			if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
				newPrinter(root.streams, false).note("(not created yet; run 'fleetwise config init')")
			}
			return nil
		},
	}
}

func newConfigGetCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "get KEY",
		Short:     "Print one setting",
		Args:      cobra.ExactArgs(1),
		ValidArgs: config.GetAllKeys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			v, err := cfg.Get(args[0])
			if err != nil {
				return err
			}
			if list, ok := v.([]string); ok {
				v = strings.Join(list, ",")
			}
			fmt.Fprintln(root.streams.Out, v)
			return nil
		},
	}
}

func newConfigSetCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:       "set KEY VALUE",
		Short:     "Change one setting and save the file",
		Args:      cobra.ExactArgs(2),
		ValidArgs: config.GetAllKeys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := root.configFile()
			if err != nil {
				return err
			}
			cfg, err := readFileOnly(path)
			if err != nil {
				return err
			}
			if err := cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := writeConfigFile(cfg, path); err != nil {
				return err
			}
			newPrinter(root.streams, false).success("%s = %s", args[0], args[1])
			return nil
		},
	}
}

func newConfigInitCmd(root *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := root.configFile()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := writeConfigFile(config.Default(), path); err != nil {
				return err
			}
			newPrinter(root.streams, false).success("wrote %s", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
