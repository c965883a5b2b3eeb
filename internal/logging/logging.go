// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/fleetwise-tui/internal/util"
)

// EnvDebug forces debug logging on when set to 1 or true.
const EnvDebug = "FLEETWISE_DEBUG"

// PreviewRunes bounds how much streamed text may appear in one log line.
const PreviewRunes = 48

// Options selects where and what to log.
type Options struct {
	Enabled bool
	Level   string
	Dir     string
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Or returns l, or a discarding logger when l is nil.
func Or(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// DebugFromEnv reports whether FLEETWISE_DEBUG asks for debug logging.
func DebugFromEnv() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(EnvDebug)))
	return v == "1" || v == "true" || v == "yes"
}

// ParseLevel maps debug|info|warn|error to a slog level. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup opens a timestamped log file under opts.Dir and installs the logger
// as the slog default. The returned closer must be called on exit. When
// logging is disabled the logger discards and the closer is a no-op.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	level := ParseLevel(opts.Level)
	if DebugFromEnv() {
		opts.Enabled = true
		level = slog.LevelDebug
	}
	if !opts.Enabled {
		l := Discard()
		slog.SetDefault(l)
		return l, nopCloser{}, nil
	}

	dir := util.ExpandHome(opts.Dir)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("fleetwise-%s.log", time.Now().Format("20060102-150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	l := New(f, level)
	slog.SetDefault(l)
	l.Info("logging started", "path", path, "level", level.String())
	return l, f, nil
}

// New returns a text logger writing to w at level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Preview shortens streamed text for a log attribute.
func Preview(s string) string {
	return util.Preview(s, PreviewRunes)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
