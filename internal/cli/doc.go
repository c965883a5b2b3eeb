// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli is the fleetwise command line.
//
// With no subcommand it starts the analyst TUI. The subcommands drive the
// same session controller and renderer headlessly:
//
//	fleetwise                         interactive TUI
//	fleetwise ask [question]          one analysis, printed to stdout
//	fleetwise instances               list the inventory
//	fleetwise health                  check the backend
//	fleetwise prompt                  show the prompts the backend would build
//	fleetwise render FILE|-           run the markdown renderer over a file
//	fleetwise config show|path|get|set|init
//	fleetwise mock-server             run the stub backend
//	fleetwise version
//
// # Output
//
// Colour is used only when stdout is a terminal and NO_COLOR is unset.
// Status lines go to stderr so stdout can be piped.
//
// # Exit Codes
//
//   - 0   success
//   - 1   error
//   - 130 the analysis was cancelled with Ctrl-C
package cli
