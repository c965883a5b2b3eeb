// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"fmt"
	"strings"

	"github.com/jeranaias/fleetwise-tui/internal/model"
)

// =============================================================================
// RECOMMENDATIONS
// =============================================================================

// Action is a rightsizing verdict.
type Action string

const (
	ActionKeep             Action = "keep"
	ActionDownsize         Action = "downsize"
	ActionUpsize           Action = "upsize"
	ActionChangeFamily     Action = "change_family"
	ActionTerminate        Action = "terminate"
	ActionInsufficientData Action = "insufficient_data"
)

// Recommendation is the verdict for one instance.
type Recommendation struct {
	Metrics
	Action      Action
	Target      string
	Reason      string
	MonthlyDiff float64 // positive is a saving
}

// hoursPerMonth is the on-demand billing month.
const hoursPerMonth = 730

// hourly holds us-east-1 on-demand Linux rates for the types the mock knows.
var hourly = map[string]float64{
	"t3.medium":   0.0416,
	"m5.large":    0.096,
	"m5.xlarge":   0.192,
	"m5.2xlarge":  0.384,
	"r6g.large":   0.1008,
	"r6g.xlarge":  0.2016,
	"r6g.2xlarge": 0.4032,
	"c5.xlarge":   0.17,
	"c5.2xlarge":  0.34,
}

var sizes = []string{"medium", "large", "xlarge", "2xlarge"}

// resize moves an instance type n steps along the size ladder.
func resize(instanceType string, n int) string {
	family, size, ok := strings.Cut(instanceType, ".")
	if !ok {
		return instanceType
	}
	for i, s := range sizes {
		if s == size {
			j := min(max(i+n, 0), len(sizes)-1)
			return family + "." + sizes[j]
		}
	}
	return instanceType
}

func monthly(instanceType string) float64 {
	return hourly[instanceType] * hoursPerMonth
}

// Recommend applies the mock's thresholds to one row.
func Recommend(m Metrics) Recommendation {
	r := Recommendation{Metrics: m, Action: ActionKeep, Target: m.InstanceType, Reason: "utilisation is within a healthy band"}
	switch {
	case m.SampleDays < 7:
		r.Action = ActionInsufficientData
		r.Reason = fmt.Sprintf("only %d sample days", m.SampleDays)
	case m.CPUAvgPct < 1 && m.NetOutGB < 0.1:
		r.Action = ActionTerminate
		r.Target = "-"
		r.Reason = "no meaningful CPU or network activity"
		r.MonthlyDiff = monthly(m.InstanceType)
	case m.MemP95Pct > 85:
		family, size, _ := strings.Cut(m.InstanceType, ".")
		r.Action = ActionUpsize
		r.Target = resize(m.InstanceType, 1)
		if !strings.HasPrefix(family, "r") {
			r.Action = ActionChangeFamily
			r.Target = "r6g." + size
		}
		r.Reason = fmt.Sprintf("memory p95 at %.1f%%", m.MemP95Pct)
		r.MonthlyDiff = monthly(m.InstanceType) - monthly(r.Target)
	case m.CPUP95Pct > 80:
		r.Action = ActionUpsize
		r.Target = resize(m.InstanceType, 1)
		r.Reason = fmt.Sprintf("CPU p95 at %.1f%%", m.CPUP95Pct)
		r.MonthlyDiff = monthly(m.InstanceType) - monthly(r.Target)
	case m.CPUAvgPct < 5 && m.CPUP95Pct < 20:
		r.Action = ActionDownsize
		r.Target = resize(m.InstanceType, -1)
		r.Reason = fmt.Sprintf("CPU average %.1f%%, p95 %.1f%%", m.CPUAvgPct, m.CPUP95Pct)
		r.MonthlyDiff = monthly(m.InstanceType) - monthly(r.Target)
	}
	return r
}

// Risk is one flagged condition.
type Risk struct {
	InstanceID string
	Severity   string
	Detail     string
}

// Risks lists the warnings for one row, most severe first.
func Risks(m Metrics) []Risk {
	var out []Risk
	add := func(sev, format string, args ...any) {
		out = append(out, Risk{InstanceID: m.InstanceID, Severity: sev, Detail: fmt.Sprintf(format, args...)})
	}
	if m.StatusFailures > 0 {
		add("CRITICAL", "%d status check failures", m.StatusFailures)
	}
	if m.MemP95Pct > 85 {
		add("HIGH", "memory p95 %.1f%%", m.MemP95Pct)
	}
	if m.CPUP95Pct > 80 {
		add("HIGH", "CPU p95 %.1f%%", m.CPUP95Pct)
	}
	if m.EBSIOBalance < 20 {
		add("MEDIUM", "EBS IO balance %.0f%%, throttling likely", m.EBSIOBalance)
	}
	if m.CPUAvgPct < 5 {
		add("LOW", "CPU average %.1f%%, largely idle", m.CPUAvgPct)
	}
	return out
}

// =============================================================================
// REPORT
// =============================================================================

// ComposeReport writes the canned markdown answer for a request. The same
// inputs always give the same text.
func ComposeReport(rows Fleet, window model.WindowDays, focus []model.Focus, question string) string {
	recs := make([]Recommendation, len(rows))
	for i, m := range rows {
		recs[i] = Recommend(m)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Fleet analysis, last %d days\n\n", int(window))
	fmt.Fprintf(&b, "Analysed **%d** instances.\n\n", len(rows))

	for _, f := range focus {
		switch f {
		case model.FocusRightsizing:
			writeRightsizing(&b, recs)
		case model.FocusRiskWarnings:
			writeRisks(&b, rows)
		case model.FocusFullReport:
			writeSummary(&b, recs)
		}
	}

	if question != "" {
		b.WriteString("## Your question\n\n")
		fmt.Fprintf(&b, "> %s\n\n", strings.ReplaceAll(question, "\n", " "))
		b.WriteString("The tables above cover it; rows are ordered by average CPU.\n\n")
	}

	writeDataQuality(&b, rows)
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeRightsizing(b *strings.Builder, recs []Recommendation) {
	b.WriteString("## Rightsizing\n\n")
	b.WriteString("| Instance | Current | Recommended | Action | Reason |\n")
	b.WriteString("|---|---|---|:-:|---|\n")
	for _, r := range recs {
		fmt.Fprintf(b, "| `%s` | %s | %s | %s | %s |\n", r.InstanceID, r.InstanceType, r.Target, r.Action, r.Reason)
	}
	b.WriteString("\n")

	for _, r := range recs {
		if r.Action == ActionDownsize {
			b.WriteString("Apply the first downsize during a maintenance window:\n\n")
			b.WriteString("```bash\n")
			fmt.Fprintf(b, "aws ec2 stop-instances --instance-ids %s\n", r.InstanceID)
			fmt.Fprintf(b, "aws ec2 modify-instance-attribute --instance-id %s --instance-type \"{\\\"Value\\\": \\\"%s\\\"}\"\n", r.InstanceID, r.Target)
			fmt.Fprintf(b, "aws ec2 start-instances --instance-ids %s\n", r.InstanceID)
			b.WriteString("```\n\n")
			break
		}
	}
}

func writeRisks(b *strings.Builder, rows Fleet) {
	b.WriteString("## Risk warnings\n\n")
	var risks []Risk
	for _, m := range rows {
		risks = append(risks, Risks(m)...)
	}
	if len(risks) == 0 {
		b.WriteString("No risks found.\n\n")
		return
	}
	b.WriteString("| Severity | Instance | Detail |\n")
	b.WriteString("|---|---|---|\n")
	for _, r := range risks {
		fmt.Fprintf(b, "| **%s** | `%s` | %s |\n", r.Severity, r.InstanceID, r.Detail)
	}
	b.WriteString("\n")
}

func writeSummary(b *strings.Builder, recs []Recommendation) {
	b.WriteString("## Summary\n\n")
	counts := map[Action]int{}
	var saving float64
	for _, r := range recs {
		counts[r.Action]++
		saving += r.MonthlyDiff
	}
	fmt.Fprintf(b, "- Healthy: %d\n", counts[ActionKeep])
	fmt.Fprintf(b, "- Downsize: %d\n", counts[ActionDownsize])
	fmt.Fprintf(b, "- Upsize or change family: %d\n", counts[ActionUpsize]+counts[ActionChangeFamily])
	fmt.Fprintf(b, "- Terminate: %d\n", counts[ActionTerminate])
	fmt.Fprintf(b, "- Estimated monthly change: *$%.2f*\n\n", saving)

	b.WriteString("### Action plan\n\n")
	step := 1
	for _, a := range []Action{ActionTerminate, ActionChangeFamily, ActionUpsize, ActionDownsize} {
		for _, r := range recs {
			if r.Action != a {
				continue
			}
			fmt.Fprintf(b, "%d. %s `%s` (%s)\n", step, actionVerb(a), r.InstanceID, r.Reason)
			step++
		}
	}
	if step == 1 {
		b.WriteString("Nothing to change.\n")
	}
	b.WriteString("\n")
}

func actionVerb(a Action) string {
	switch a {
	case ActionTerminate:
		return "Terminate"
	case ActionChangeFamily:
		return "Move to a memory family"
	case ActionUpsize:
		return "Upsize"
	case ActionDownsize:
		return "Downsize"
	}
	return "Review"
}

func writeDataQuality(b *strings.Builder, rows Fleet) {
	var thin []string
	for _, m := range rows {
		if m.SampleDays < 7 {
			thin = append(thin, fmt.Sprintf("`%s` (%d days)", m.InstanceID, m.SampleDays))
		}
	}
	if len(thin) == 0 {
		return
	}
	b.WriteString("## Data quality notes\n\n")
	b.WriteString("Fewer than 7 sample days, treat as unreliable: " + strings.Join(thin, ", ") + "\n")
}
