// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config holds the settings fleetwise starts from: where the
// analysis backend lives, the default window and focus for new requests,
// and how the terminal UI draws.
//
// A file is optional. When present it is ~/.fleetwise/config.toml, or
// config.json if only that exists; FLEETWISE_HOME moves the directory.
// FLEETWISE_* environment variables are applied last and win over the
// file. Every value is checked by Validate before it is used.
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client := backend.NewClientWithConfig(cfg.ClientConfig())
//	sel := cfg.Selection()
//
// Watch reports edits to the active file so a running TUI can pick up a
// new backend URL or defaults for its next request.
package config
