// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import "github.com/jeranaias/fleetwise-tui/internal/model"

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status" yaml:"status"`
	Model  string `json:"model" yaml:"model"`
}

// OK reports whether the backend declared itself healthy.
func (h HealthResponse) OK() bool { return h.Status == "ok" }

// InstancesResponse is the body of GET /instances.
type InstancesResponse struct {
	Instances []model.Instance `json:"instances"`
}

// PromptPreview is the body of GET /preview-prompt.
type PromptPreview struct {
	InstanceCount int    `json:"instance_count" yaml:"instance_count"`
	PromptChars   int    `json:"prompt_chars" yaml:"prompt_chars"`
	SystemPrompt  string `json:"system_prompt" yaml:"system_prompt"`
	UserPrompt    string `json:"user_prompt" yaml:"user_prompt"`
}
