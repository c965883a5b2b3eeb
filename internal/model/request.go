// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// =============================================================================
// WINDOW
// =============================================================================

// WindowDays is the number of days of metrics the backend analyses.
type WindowDays int

// AllowedWindows lists the windows the backend accepts, in display order.
var AllowedWindows = []WindowDays{10, 30, 60, 90}

// DefaultWindow is used when nothing else is configured.
const DefaultWindow WindowDays = 30

// Valid reports whether w is one of AllowedWindows.
func (w WindowDays) Valid() bool {
	return slices.Contains(AllowedWindows, w)
}

// String returns the window as "30d".
func (w WindowDays) String() string {
	return fmt.Sprintf("%dd", int(w))
}

// Next returns the following allowed window, wrapping around.
func (w WindowDays) Next() WindowDays {
	i := slices.Index(AllowedWindows, w)
	return AllowedWindows[(i+1)%len(AllowedWindows)]
}

// Prev returns the preceding allowed window, wrapping around.
func (w WindowDays) Prev() WindowDays {
	i := slices.Index(AllowedWindows, w)
	if i <= 0 {
		return AllowedWindows[len(AllowedWindows)-1]
	}
	return AllowedWindows[i-1]
}

// =============================================================================
// FOCUS
// =============================================================================

// Focus is one analysis focus tag.
type Focus string

const (
	FocusRightsizing  Focus = "rightsizing"
	FocusRiskWarnings Focus = "risk_warnings"
	FocusFullReport   Focus = "full_report"
)

// AllFocus lists every focus tag in canonical order.
var AllFocus = []Focus{FocusRightsizing, FocusRiskWarnings, FocusFullReport}

// Valid reports whether f is a known focus tag.
func (f Focus) Valid() bool {
	return slices.Contains(AllFocus, f)
}

// Label returns a human-readable name for the focus tag.
func (f Focus) Label() string {
	switch f {
	case FocusRightsizing:
		return "Rightsizing"
	case FocusRiskWarnings:
		return "Risk warnings"
	case FocusFullReport:
		return "Full report"
	default:
		return string(f)
	}
}

// ParseFocus parses a comma separated list such as "rightsizing,full_report".
// Dashes are accepted in place of underscores.
func ParseFocus(s string) ([]Focus, error) {
	var out []Focus
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ReplaceAll(part, "-", "_"))
		if part == "" {
			continue
		}
		f := Focus(strings.ToLower(part))
		if !f.Valid() {
			return nil, fmt.Errorf("unknown focus %q (want one of %s)", part, focusList())
		}
		if !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out, nil
}

func focusList() string {
	names := make([]string, len(AllFocus))
	for i, f := range AllFocus {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// =============================================================================
// ANALYSIS REQUEST
// =============================================================================

// Validation errors returned by AnalysisRequest.Validate.
var (
	ErrInvalidWindow = errors.New("window_days must be one of [10,30,60,90]")
	ErrEmptyFocus    = errors.New("focus must contain at least one tag")
)

// AnalysisRequest is the body of POST /analyse.
// Treat values as immutable once submitted; use Clone before handing one to
// another owner.
type AnalysisRequest struct {
	WindowDays  WindowDays `json:"window_days" yaml:"window_days"`
	InstanceIDs []string   `json:"instance_ids" yaml:"instance_ids"`
	Question    *string    `json:"question" yaml:"question,omitempty"`
	Focus       []Focus    `json:"focus" yaml:"focus"`
}

// Validate checks the request against the backend's accepted values.
func (r AnalysisRequest) Validate() error {
	if !r.WindowDays.Valid() {
		return ErrInvalidWindow
	}
	if len(r.Focus) == 0 {
		return ErrEmptyFocus
	}
	for _, f := range r.Focus {
		if !f.Valid() {
			return fmt.Errorf("unknown focus %q", f)
		}
	}
	return nil
}

// Clone returns a deep copy that shares no slices or pointers with r.
func (r AnalysisRequest) Clone() AnalysisRequest {
	out := AnalysisRequest{
		WindowDays:  r.WindowDays,
		InstanceIDs: slices.Clone(r.InstanceIDs),
		Focus:       slices.Clone(r.Focus),
	}
	if r.Question != nil {
		q := *r.Question
		out.Question = &q
	}
	return out
}

// AllInstances reports whether the request targets the whole fleet.
func (r AnalysisRequest) AllInstances() bool {
	return len(r.InstanceIDs) == 0
}

// QuestionText returns the question or "" when none was asked.
func (r AnalysisRequest) QuestionText() string {
	if r.Question == nil {
		return ""
	}
	return *r.Question
}

// Summary returns a one-line description such as "30d, all instances, rightsizing+full_report".
func (r AnalysisRequest) Summary() string {
	var scope string
	switch {
	case r.AllInstances():
		scope = "all instances"
	case len(r.InstanceIDs) == 1:
		scope = r.InstanceIDs[0]
	default:
		scope = fmt.Sprintf("%d instances", len(r.InstanceIDs))
	}
	tags := make([]string, len(r.Focus))
	for i, f := range r.Focus {
		tags[i] = string(f)
	}
	return fmt.Sprintf("%s, %s, %s", r.WindowDays, scope, strings.Join(tags, "+"))
}

// MarshalJSON always emits instance_ids as an array, never null.
func (r AnalysisRequest) MarshalJSON() ([]byte, error) {
	type wire AnalysisRequest
	w := wire(r)
	if w.InstanceIDs == nil {
		w.InstanceIDs = []string{}
	}
	if w.Focus == nil {
		w.Focus = []Focus{}
	}
	return json.Marshal(w)
}
