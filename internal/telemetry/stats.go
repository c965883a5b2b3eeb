// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"fmt"
	"strings"
	"time"
)

// Stats holds timing and volume figures for one session.
type Stats struct {
	// Timestamps
	StartTime      time.Time `json:"start_time" yaml:"start_time"`
	FirstTokenTime time.Time `json:"first_token_time,omitempty" yaml:"first_token_time,omitempty"`
	EndTime        time.Time `json:"end_time,omitempty" yaml:"end_time,omitempty"`

	// Volume
	TokenEvents     int   `json:"token_events" yaml:"token_events"`
	Chars           int   `json:"chars" yaml:"chars"`
	Bytes           int64 `json:"bytes" yaml:"bytes"`
	DroppedLines    int   `json:"dropped_lines" yaml:"dropped_lines"`
	EstimatedTokens int   `json:"estimated_tokens" yaml:"estimated_tokens"`

	// Derived on Finalize
	TTFT            time.Duration `json:"ttft_ns" yaml:"ttft"`
	TotalDuration   time.Duration `json:"total_duration_ns" yaml:"total_duration"`
	TokensPerSecond float64       `json:"tokens_per_sec" yaml:"tokens_per_sec"`
}

// NewStats starts a session clock at now.
func NewStats(now time.Time) *Stats {
	return &Stats{StartTime: now}
}

// RecordToken counts one token event arriving at now.
func (s *Stats) RecordToken(text string, now time.Time) {
	if s.FirstTokenTime.IsZero() {
		s.FirstTokenTime = now
		s.TTFT = now.Sub(s.StartTime)
	}
	s.TokenEvents++
	s.Chars += len([]rune(text))
}

// RecordTransport stores the byte and dropped-line counters of the stream.
func (s *Stats) RecordTransport(bytes int64, dropped int) {
	s.Bytes = bytes
	s.DroppedLines = dropped
}

// Finalize stops the clock and estimates the output token count.
func (s *Stats) Finalize(now time.Time, output string) {
	if !s.EndTime.IsZero() {
		return
	}
	s.EndTime = now
	s.TotalDuration = now.Sub(s.StartTime)
	s.EstimatedTokens = EstimateTokensOrApprox(output)

	// rate over the generation phase, not the wait for the first token
	gen := s.TotalDuration - s.TTFT
	if gen <= 0 {
		gen = s.TotalDuration
	}
	if gen > 0 {
		s.TokensPerSecond = float64(s.EstimatedTokens) / gen.Seconds()
	}
}

// Finished reports whether Finalize has been called.
func (s *Stats) Finished() bool { return !s.EndTime.IsZero() }

// Elapsed returns the running time at now, or the total once finished.
func (s *Stats) Elapsed(now time.Time) time.Duration {
	if s.Finished() {
		return s.TotalDuration
	}
	return now.Sub(s.StartTime)
}

// Format returns a one-line summary such as
// "6.2s | ~812 tokens | 142.3 tok/s | TTFT 320ms".
func (s *Stats) Format() string {
	parts := []string{formatDuration(s.TotalDuration)}
	if s.EstimatedTokens > 0 {
		parts = append(parts, fmt.Sprintf("~%d tokens", s.EstimatedTokens))
	}
	if s.TokensPerSecond > 0 {
		parts = append(parts, fmt.Sprintf("%.1f tok/s", s.TokensPerSecond))
	}
	if !s.FirstTokenTime.IsZero() {
		parts = append(parts, fmt.Sprintf("TTFT %dms", s.TTFT.Milliseconds()))
	}
	if s.DroppedLines > 0 {
		parts = append(parts, fmt.Sprintf("%d dropped", s.DroppedLines))
	}
	return strings.Join(parts, " | ")
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
