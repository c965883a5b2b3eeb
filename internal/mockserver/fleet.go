// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"slices"

	"github.com/jeranaias/fleetwise-tui/internal/model"
)

// =============================================================================
// FLEET FIXTURE
// =============================================================================

// Metrics is one instance's utilisation summary over a window, the shape the
// real backend reads from its metrics view.
type Metrics struct {
	model.Instance

	SampleDays     int     `json:"sample_days"`
	CPUAvgPct      float64 `json:"cpu_avg_pct"`
	CPUP95Pct      float64 `json:"cpu_p95_pct"`
	CPUPeakPct     float64 `json:"cpu_peak_pct"`
	MemAvgPct      float64 `json:"mem_avg_pct"`
	MemP95Pct      float64 `json:"mem_p95_pct"`
	NetInGB        float64 `json:"net_in_gb"`
	NetOutGB       float64 `json:"net_out_gb"`
	EBSIOBalance   float64 `json:"ebs_io_balance_pct"`
	StatusFailures int     `json:"status_check_failures"`
}

// Fleet is the fixture the mock serves.
type Fleet []Metrics

// DefaultFleet returns a small fleet covering every recommendation path:
// an idle box, a hot one, memory pressure, I/O throttling and a host with
// too few samples.
func DefaultFleet() Fleet {
	return Fleet{
		{
			Instance:   model.Instance{InstanceID: "i-0a1b2c3d4e5f60001", InstanceName: "web-1", InstanceType: "m5.xlarge", AZ: "us-east-1a", State: "running", Platform: "Linux/UNIX"},
			SampleDays: 30, CPUAvgPct: 3.2, CPUP95Pct: 7.9, CPUPeakPct: 22.4, MemAvgPct: 18.5, MemP95Pct: 24.1,
			NetInGB: 41.2, NetOutGB: 88.7, EBSIOBalance: 99,
		},
		{
			Instance:   model.Instance{InstanceID: "i-0a1b2c3d4e5f60002", InstanceName: "web-2", InstanceType: "m5.large", AZ: "us-east-1b", State: "running", Platform: "Linux/UNIX"},
			SampleDays: 30, CPUAvgPct: 61.4, CPUP95Pct: 88.2, CPUPeakPct: 99.1, MemAvgPct: 55.0, MemP95Pct: 71.3,
			NetInGB: 310.5, NetOutGB: 512.9, EBSIOBalance: 92,
		},
		{
			Instance:   model.Instance{InstanceID: "i-0a1b2c3d4e5f60003", InstanceName: "db-1", InstanceType: "r6g.xlarge", AZ: "us-east-1a", State: "running", Platform: "Linux/UNIX"},
			SampleDays: 30, CPUAvgPct: 34.0, CPUP95Pct: 52.6, CPUPeakPct: 70.2, MemAvgPct: 79.8, MemP95Pct: 91.4,
			NetInGB: 120.3, NetOutGB: 96.1, EBSIOBalance: 14, StatusFailures: 2,
		},
		{
			Instance:   model.Instance{InstanceID: "i-0a1b2c3d4e5f60004", InstanceName: "batch-1", InstanceType: "c5.2xlarge", AZ: "us-east-1c", State: "stopped", Platform: "Linux/UNIX"},
			SampleDays: 4, CPUAvgPct: 0.4, CPUP95Pct: 0.9, CPUPeakPct: 2.0, MemAvgPct: 6.1, MemP95Pct: 8.0,
			NetInGB: 0.01, NetOutGB: 0.02, EBSIOBalance: 100,
		},
		{
			Instance:   model.Instance{InstanceID: "i-0a1b2c3d4e5f60005", InstanceType: "t3.medium", AZ: "us-east-1b", State: "running", Platform: "Windows"},
			SampleDays: 21, CPUAvgPct: 22.7, CPUP95Pct: 41.0, CPUPeakPct: 63.5, MemAvgPct: 48.2, MemP95Pct: 60.9,
			NetInGB: 12.4, NetOutGB: 9.8, EBSIOBalance: 81,
		},
	}
}

// Instances returns the inventory view of the fleet.
func (f Fleet) Instances() []model.Instance {
	out := make([]model.Instance, len(f))
	for i, m := range f {
		out[i] = m.Instance
	}
	return out
}

// Select returns the rows for ids, or the whole fleet when ids is empty,
// busiest first.
func (f Fleet) Select(ids []string) Fleet {
	var out Fleet
	for _, m := range f {
		if len(ids) == 0 || slices.Contains(ids, m.InstanceID) {
			out = append(out, m)
		}
	}
	slices.SortStableFunc(out, func(a, b Metrics) int {
		switch {
		case a.CPUAvgPct > b.CPUAvgPct:
			return -1
		case a.CPUAvgPct < b.CPUAvgPct:
			return 1
		}
		return 0
	})
	return out
}
