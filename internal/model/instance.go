// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// Instance is one inventory record from GET /instances.
type Instance struct {
	InstanceID   string `json:"instance_id" yaml:"instance_id"`
	InstanceName string `json:"instance_name,omitempty" yaml:"instance_name,omitempty"`
	InstanceType string `json:"instance_type" yaml:"instance_type"`
	AZ           string `json:"az" yaml:"az"`
	State        string `json:"state,omitempty" yaml:"state,omitempty"`
	Platform     string `json:"platform,omitempty" yaml:"platform,omitempty"`
}

// DisplayName returns the Name tag when present, otherwise the id.
func (i Instance) DisplayName() string {
	if i.InstanceName != "" {
		return i.InstanceName
	}
	return i.InstanceID
}

// Matches reports whether the instance matches a case-insensitive filter
// against its id, name, type or availability zone.
func (i Instance) Matches(filter string) bool {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		return true
	}
	for _, field := range []string{i.InstanceID, i.InstanceName, i.InstanceType, i.AZ} {
		if strings.Contains(strings.ToLower(field), filter) {
			return true
		}
	}
	return false
}

// FilterInstances returns the instances matching filter, preserving order.
func FilterInstances(list []Instance, filter string) []Instance {
	var out []Instance
	for _, inst := range list {
		if inst.Matches(filter) {
			out = append(out, inst)
		}
	}
	return out
}
