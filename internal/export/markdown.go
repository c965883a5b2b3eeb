// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter writes the raw buffer, optionally preceded by YAML front
// matter describing the request.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// frontMatter is marshalled by yaml.v3, which quotes any value that would
// otherwise break out of its line.
type frontMatter struct {
	Title      string   `yaml:"title"`
	Date       string   `yaml:"date"`
	Status     string   `yaml:"status"`
	WindowDays int      `yaml:"window_days,omitempty"`
	Instances  []string `yaml:"instances,omitempty"`
	Focus      []string `yaml:"focus,omitempty"`
	Question   string   `yaml:"question,omitempty"`
	Error      string   `yaml:"error,omitempty"`
	Duration   string   `yaml:"duration,omitempty"`
	Tokens     int      `yaml:"estimated_tokens,omitempty"`
	Generator  string   `yaml:"generator"`
}

// Export returns the report as Markdown.
func (e *MarkdownExporter) Export(r *Report) ([]byte, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	if e.options.IncludeMetadata {
		fm := frontMatter{
			Title:     r.Title(),
			Date:      r.CreatedAt.Format(time.RFC3339),
			Status:    r.Status.String(),
			Error:     r.Error,
			Generator: "fleetwise",
		}
		if r.Request != nil {
			fm.WindowDays = int(r.Request.WindowDays)
			fm.Instances = r.Request.InstanceIDs
			fm.Question = r.Request.QuestionText()
			for _, f := range r.Request.Focus {
				fm.Focus = append(fm.Focus, string(f))
			}
		}
		if r.Stats != nil && r.Stats.Finished() {
			fm.Duration = r.Stats.TotalDuration.String()
			fm.Tokens = r.Stats.EstimatedTokens
		}
		data, err := yaml.Marshal(fm)
		if err != nil {
			return nil, err
		}
		sb.WriteString("---\n")
		sb.Write(data)
		sb.WriteString("---\n\n")
	}

	sb.WriteString(r.Markdown)
	if !strings.HasSuffix(r.Markdown, "\n") {
		sb.WriteByte('\n')
	}
	if r.Partial() && e.options.IncludeMetadata {
		sb.WriteString("\n<!-- partial report: session ended as " + r.Status.String() + " -->\n")
	}
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}
