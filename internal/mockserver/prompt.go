// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeranaias/fleetwise-tui/internal/model"
)

// =============================================================================
// PROMPT PREVIEW
// =============================================================================

// PromptSet is what the backend would send its model for a request.
type PromptSet struct {
	System string
	User   string
}

// BuildPrompts composes the prompts for rows.
func BuildPrompts(rows Fleet, window model.WindowDays, focus []model.Focus, question string) PromptSet {
	return PromptSet{
		System: systemPrompt(focus),
		User:   userPrompt(formatMetrics(rows, window), window, question),
	}
}

// formatMetrics renders rows as a markdown table followed by the raw JSON.
func formatMetrics(rows Fleet, window model.WindowDays) string {
	if len(rows) == 0 {
		return "No metrics available for the selected instances and window."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Fleet utilisation, last %d days\n\n", int(window))
	fmt.Fprintf(&b, "Instances: **%d**\n\n", len(rows))
	b.WriteString("| Instance | Name | Type | AZ | CPU avg | CPU p95 | Mem p95 | Net out GB | EBS IO bal | Status fails |\n")
	b.WriteString("|---|---|---|---|--:|--:|--:|--:|--:|--:|\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %.1f | %.1f | %.1f | %.2f | %.0f | %d |\n",
			r.InstanceID, orDash(r.InstanceName), r.InstanceType, r.AZ,
			r.CPUAvgPct, r.CPUP95Pct, r.MemP95Pct, r.NetOutGB, r.EBSIOBalance, r.StatusFailures)
	}

	raw, _ := json.MarshalIndent(rows, "", "  ")
	b.WriteString("\n```json\n")
	b.Write(raw)
	b.WriteString("\n```")
	return b.String()
}

func systemPrompt(focus []model.Focus) string {
	var sections []string
	for _, f := range focus {
		switch f {
		case model.FocusRightsizing:
			sections = append(sections, "Rightsizing: recommend an instance type per instance from observed CPU, memory and network use, as a table of instance, current type, recommended type and reason.")
		case model.FocusRiskWarnings:
			sections = append(sections, "Risk warnings: flag CPU p95 above 80%, CPU average below 5%, memory p95 above 85%, EBS IO balance below 20% and any status check failures, with a severity of CRITICAL, HIGH, MEDIUM or LOW.")
		case model.FocusFullReport:
			sections = append(sections, "Full report: an executive summary with fleet health, the top cost and performance items, a prioritised action plan and an estimated monthly saving.")
		}
	}
	return "You are a cloud cost and performance analyst reviewing EC2 utilisation.\n\n" +
		strings.Join(sections, "\n\n") +
		"\n\nReference exact instance ids and values, answer in markdown and note instances with fewer than 7 sample days as unreliable."
}

func userPrompt(data string, window model.WindowDays, question string) string {
	p := fmt.Sprintf("Analyse these EC2 metrics from the last %d days:\n\n%s", int(window), data)
	if question != "" {
		p += "\n\n---\nQuestion from the operator: " + question
	}
	return p
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
