// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// WINDOW TESTS
// =============================================================================

func TestWindowDays_Valid(t *testing.T) {
	for _, w := range AllowedWindows {
		if !w.Valid() {
			t.Errorf("WindowDays(%d).Valid() = false, want true", w)
		}
	}
	for _, w := range []WindowDays{0, 7, 31, 365} {
		if w.Valid() {
			t.Errorf("WindowDays(%d).Valid() = true, want false", w)
		}
	}
}

func TestWindowDays_Cycle(t *testing.T) {
	assert.Equal(t, WindowDays(60), WindowDays(30).Next())
	assert.Equal(t, WindowDays(10), WindowDays(90).Next())
	assert.Equal(t, WindowDays(90), WindowDays(10).Prev())
	assert.Equal(t, "30d", WindowDays(30).String())
}

// =============================================================================
// FOCUS TESTS
// =============================================================================

func TestParseFocus(t *testing.T) {
	got, err := ParseFocus("rightsizing, risk-warnings,rightsizing")
	require.NoError(t, err)
	assert.Equal(t, []Focus{FocusRightsizing, FocusRiskWarnings}, got)

	_, err = ParseFocus("rightsizing,costs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "costs")
}

// =============================================================================
// REQUEST TESTS
// =============================================================================

func TestAnalysisRequest_MarshalDefaults(t *testing.T) {
	req := AnalysisRequest{WindowDays: 30, Focus: []Focus{FocusRightsizing}}
	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"window_days":30,"instance_ids":[],"question":null,"focus":["rightsizing"]}`, string(data))
}

func TestAnalysisRequest_Summary(t *testing.T) {
	fleet := AnalysisRequest{WindowDays: 30, Focus: []Focus{FocusRightsizing}}
	assert.True(t, fleet.AllInstances())
	assert.Contains(t, fleet.Summary(), "all instances")

	one := AnalysisRequest{WindowDays: 90, InstanceIDs: []string{"i-01"}, Focus: []Focus{FocusRightsizing, FocusRiskWarnings}}
	assert.False(t, one.AllInstances())
	assert.Contains(t, one.Summary(), "i-01")
	assert.Contains(t, one.Summary(), "rightsizing+risk_warnings")

	two := AnalysisRequest{WindowDays: 10, InstanceIDs: []string{"i-01", "i-02"}, Focus: []Focus{FocusFullReport}}
	assert.Contains(t, two.Summary(), "2 instances")
}

func TestAnalysisRequest_Validate(t *testing.T) {
	tests := []struct {
		name string
		req  AnalysisRequest
		want error
	}{
		{"ok", AnalysisRequest{WindowDays: 10, Focus: AllFocus}, nil},
		{"bad window", AnalysisRequest{WindowDays: 14, Focus: AllFocus}, ErrInvalidWindow},
		{"no focus", AnalysisRequest{WindowDays: 30}, ErrEmptyFocus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAnalysisRequest_CloneIsDeep(t *testing.T) {
	q := "why is i-1 hot?"
	orig := AnalysisRequest{WindowDays: 30, InstanceIDs: []string{"i-1"}, Question: &q, Focus: []Focus{FocusRightsizing}}
	c := orig.Clone()

	orig.InstanceIDs[0] = "i-2"
	orig.Focus[0] = FocusFullReport
	*orig.Question = "changed"

	assert.Equal(t, []string{"i-1"}, c.InstanceIDs)
	assert.Equal(t, []Focus{FocusRightsizing}, c.Focus)
	assert.Equal(t, "why is i-1 hot?", c.QuestionText())
}

// =============================================================================
// SELECTION TESTS
// =============================================================================

func TestSelection_Snapshot(t *testing.T) {
	sel := DefaultSelection()
	sel.ToggleFocus(FocusFullReport)
	sel.ToggleInstance("i-b")
	sel.ToggleInstance("i-a")
	sel.Question = "  "

	req, err := sel.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, WindowDays(30), req.WindowDays)
	assert.Equal(t, []string{"i-a", "i-b"}, req.InstanceIDs)
	assert.Equal(t, []Focus{FocusRightsizing, FocusRiskWarnings}, req.Focus)
	assert.Nil(t, req.Question)

	// Later edits never reach the snapshot.
	sel.ToggleInstance("i-c")
	sel.Question = "new"
	assert.Len(t, req.InstanceIDs, 2)
	assert.Nil(t, req.Question)
}

func TestSelection_SnapshotRequiresFocus(t *testing.T) {
	sel := NewSelection(30, nil)
	_, err := sel.Snapshot()
	assert.ErrorIs(t, err, ErrEmptyFocus)
}

func TestSelection_InvalidWindowFallsBack(t *testing.T) {
	sel := NewSelection(45, AllFocus)
	assert.Equal(t, DefaultWindow, sel.Window)
}

// =============================================================================
// INSTANCE TESTS
// =============================================================================

func TestFilterInstances(t *testing.T) {
	list := []Instance{
		{InstanceID: "i-0abc", InstanceName: "web-1", InstanceType: "t3.large", AZ: "eu-west-1a"},
		{InstanceID: "i-0def", InstanceType: "m5.xlarge", AZ: "eu-west-1b"},
	}
	assert.Len(t, FilterInstances(list, ""), 2)
	assert.Len(t, FilterInstances(list, "WEB"), 1)
	assert.Len(t, FilterInstances(list, "1b"), 1)
	assert.Empty(t, FilterInstances(list, "c5"))
	assert.Equal(t, "i-0def", list[1].DisplayName())
}
