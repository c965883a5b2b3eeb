// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/fleetwise-tui/internal/markdown"
	"github.com/jeranaias/fleetwise-tui/internal/model"
	"github.com/jeranaias/fleetwise-tui/internal/session"
	"github.com/jeranaias/fleetwise-tui/internal/telemetry"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter exports the full report, including the rendered node tree.
// Options do not filter JSON output.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Document is the JSON form of a report. The CLI's -o json output uses it
// too.
type Document struct {
	CreatedAt time.Time              `json:"created_at" yaml:"created_at"`
	Request   *model.AnalysisRequest `json:"request,omitempty" yaml:"request,omitempty"`
	Status    session.Status         `json:"status" yaml:"status"`
	Error     string                 `json:"error,omitempty" yaml:"error,omitempty"`
	Stats     *telemetry.Stats       `json:"stats,omitempty" yaml:"stats,omitempty"`
	Markdown  string                 `json:"markdown" yaml:"markdown"`
	Tree      markdown.Document      `json:"tree" yaml:"-"`
}

// ToDocument converts a report for serialisation.
func ToDocument(r *Report) Document {
	return Document{
		CreatedAt: r.CreatedAt,
		Request:   r.Request,
		Status:    r.Status,
		Error:     r.Error,
		Stats:     r.Stats,
		Markdown:  r.Markdown,
		Tree:      r.Document(),
	}
}

// Export converts a report to indented JSON.
func (e *JSONExporter) Export(r *Report) ([]byte, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	return json.MarshalIndent(ToDocument(r), "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}
