// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/fleetwise-tui/internal/markdown"
	"github.com/jeranaias/fleetwise-tui/internal/model"
	"github.com/jeranaias/fleetwise-tui/internal/session"
	"github.com/jeranaias/fleetwise-tui/internal/telemetry"
	"github.com/jeranaias/fleetwise-tui/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for report exporters.
type Exporter interface {
	// Export converts a report to the target format and returns the content.
	Export(r *Report) ([]byte, error)

	// FileExtension returns the file extension, e.g. ".md".
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// ErrEmptyReport is returned when there is nothing to export.
var ErrEmptyReport = errors.New("report has no content")

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// IncludeMetadata adds request and timing details.
	IncludeMetadata bool

	// Theme for HTML export ("light" or "dark").
	Theme string
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		IncludeMetadata: true,
		Theme:           "dark",
	}
}

// =============================================================================
// REPORT
// =============================================================================

// Report is everything an exporter needs about one session.
type Report struct {
	Request   *model.AnalysisRequest
	Status    session.Status
	Error     string
	Stats     *telemetry.Stats
	Markdown  string
	CreatedAt time.Time
}

// FromController captures the controller's current session.
func FromController(c *session.Controller, now time.Time) *Report {
	st := c.State()
	r := &Report{
		Status:    st.Status,
		Error:     st.Err,
		Markdown:  st.Buffer,
		CreatedAt: now,
	}
	if req, ok := c.Request(); ok {
		r.Request = &req
	}
	if stats, ok := c.Stats(); ok {
		r.Stats = &stats
	}
	return r
}

// Document renders the report's markdown.
func (r *Report) Document() markdown.Document {
	return markdown.Render(r.Markdown)
}

// Title is the first heading of the report, or a generic title.
func (r *Report) Title() string {
	for _, b := range r.Document().Blocks {
		if b.Kind == markdown.KindHeading {
			if t := strings.TrimSpace(b.PlainText()); t != "" {
				return t
			}
		}
	}
	return "Fleet analysis"
}

// Partial reports whether the buffer is incomplete.
func (r *Report) Partial() bool {
	return r.Status != session.StatusDone
}

func (r *Report) validate() error {
	if r == nil || strings.TrimSpace(r.Markdown) == "" {
		return ErrEmptyReport
	}
	return nil
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// Formats lists the format names accepted by ForFormat.
var Formats = []string{"markdown", "html", "json"}

// ForFormat returns the exporter for a format name or file extension.
func ForFormat(name string, opts *Options) (Exporter, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "md", "markdown":
		return NewMarkdownExporter(opts), nil
	case "html", "htm":
		return NewHTMLExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unknown export format %q (want one of %s)", name, strings.Join(Formats, ", "))
	}
}

// ForPath picks the exporter from the extension of path.
func ForPath(path string, opts *Options) (Exporter, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return nil, fmt.Errorf("cannot infer export format from %q", path)
	}
	return ForFormat(ext, opts)
}

// ExportToFile exports r into opts.OutputDir under a generated name and
// returns the path.
func ExportToFile(r *Report, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := r.validate(); err != nil {
		return "", err
	}
	name := fmt.Sprintf("fleet-report_%s_%s%s",
		sanitizeFilename(r.Title()),
		r.CreatedAt.Format("20060102_150405"),
		exporter.FileExtension(),
	)
	path := filepath.Join(util.ExpandHome(opts.OutputDir), name)
	return path, ExportTo(r, exporter, path)
}

// ExportTo writes r to path atomically.
func ExportTo(r *Report, exporter Exporter, path string) error {
	content, err := exporter.Export(r)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if err := util.AtomicWriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename keeps a short, filesystem-safe version of s.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(strings.TrimSpace(s), 40)
	s = strings.TrimSuffix(s, "...")

	var sb strings.Builder
	for _, r := range s {
		switch {
		case r == ' ' || r == '\t':
			sb.WriteRune('_')
		case strings.ContainsRune(`/\:*?"<>|`, r) || r < 32 || r == 127:
			sb.WriteRune('-')
		default:
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "report"
	}
	return sb.String()
}

func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
