// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"slices"
	"strings"
)

// Selection holds the operator's current choices. It is freely edited by the
// UI; the session controller only ever sees a Snapshot of it.
type Selection struct {
	Window   WindowDays
	Focus    map[Focus]bool
	Selected map[string]bool
	Question string
}

// DefaultSelection returns a 30 day, whole-fleet, all-focus selection.
func DefaultSelection() *Selection {
	return NewSelection(DefaultWindow, AllFocus)
}

// NewSelection creates a selection with the given window and focus tags.
func NewSelection(window WindowDays, focus []Focus) *Selection {
	if !window.Valid() {
		window = DefaultWindow
	}
	s := &Selection{
		Window:   window,
		Focus:    make(map[Focus]bool),
		Selected: make(map[string]bool),
	}
	for _, f := range focus {
		if f.Valid() {
			s.Focus[f] = true
		}
	}
	return s
}

// ToggleFocus flips a focus tag.
func (s *Selection) ToggleFocus(f Focus) {
	s.Focus[f] = !s.Focus[f]
}

// ToggleInstance flips whether an instance is in scope.
func (s *Selection) ToggleInstance(id string) {
	if s.Selected[id] {
		delete(s.Selected, id)
		return
	}
	s.Selected[id] = true
}

// ClearInstances resets the scope to the whole fleet.
func (s *Selection) ClearInstances() {
	s.Selected = make(map[string]bool)
}

// FocusList returns the enabled focus tags in canonical order.
func (s *Selection) FocusList() []Focus {
	var out []Focus
	for _, f := range AllFocus {
		if s.Focus[f] {
			out = append(out, f)
		}
	}
	return out
}

// InstanceIDs returns the selected instance ids sorted.
func (s *Selection) InstanceIDs() []string {
	ids := make([]string, 0, len(s.Selected))
	for id := range s.Selected {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Snapshot composes a validated, independent AnalysisRequest from the
// current choices. A blank question becomes null on the wire.
func (s *Selection) Snapshot() (AnalysisRequest, error) {
	req := AnalysisRequest{
		WindowDays:  s.Window,
		InstanceIDs: s.InstanceIDs(),
		Focus:       s.FocusList(),
	}
	if q := strings.TrimSpace(s.Question); q != "" {
		req.Question = &q
	}
	if err := req.Validate(); err != nil {
		return AnalysisRequest{}, err
	}
	return req, nil
}
