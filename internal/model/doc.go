// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the request and inventory types shared by the
// backend client, the session controller and the user interfaces.
//
// # Key Types
//
//   - AnalysisRequest: Immutable description of one analysis (window, scope, focus, question)
//   - Selection: The operator's editable choices, snapshotted into an AnalysisRequest on submit
//   - Instance: One EC2 instance returned by the inventory endpoint
//   - Focus: Enumerated analysis focus tags
//
// # Usage
//
//	sel := model.DefaultSelection()
//	sel.ToggleFocus(model.FocusRiskWarnings)
//	req, err := sel.Snapshot()
//	if err != nil {
//	    return err
//	}
package model
