// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/fleetwise-tui/internal/backend"
	"github.com/jeranaias/fleetwise-tui/internal/logging"
	"github.com/jeranaias/fleetwise-tui/internal/model"
	"github.com/jeranaias/fleetwise-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the main configuration structure for fleetwise.
type Config struct {
	// Backend holds analysis service connection settings
	Backend BackendConfig `toml:"backend" json:"backend" yaml:"backend"`

	// Analysis holds defaults for new analysis requests
	Analysis AnalysisConfig `toml:"analysis" json:"analysis" yaml:"analysis"`

	// UI holds terminal display settings
	UI UIConfig `toml:"ui" json:"ui" yaml:"ui"`

	// Logging controls the debug log file
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// BackendConfig holds analysis service settings.
type BackendConfig struct {
	// URL is the base URL of the analysis service
	URL string `toml:"url" json:"url" yaml:"url"`

	// ConnectTimeoutSecs bounds connection setup for every request
	ConnectTimeoutSecs int `toml:"connect_timeout_secs" json:"connect_timeout_secs" yaml:"connect_timeout_secs"`

	// InventoryTimeoutSecs bounds the whole /instances request
	InventoryTimeoutSecs int `toml:"inventory_timeout_secs" json:"inventory_timeout_secs" yaml:"inventory_timeout_secs"`

	// UserAgent is sent with every request
	UserAgent string `toml:"user_agent" json:"user_agent" yaml:"user_agent"`
}

// AnalysisConfig holds request defaults.
type AnalysisConfig struct {
	// WindowDays is the default lookback window (10, 30, 60 or 90)
	WindowDays int `toml:"window_days" json:"window_days" yaml:"window_days"`

	// Focus lists the default focus areas
	Focus []string `toml:"focus" json:"focus" yaml:"focus"`

	// MaxQuestionChars caps the free-text question
	MaxQuestionChars int `toml:"max_question_chars" json:"max_question_chars" yaml:"max_question_chars"`
}

// UIConfig holds display settings.
type UIConfig struct {
	// Theme is "dark", "light" or "auto"
	Theme string `toml:"theme" json:"theme" yaml:"theme"`

	// WordWrap is the maximum paragraph width in columns
	WordWrap int `toml:"word_wrap" json:"word_wrap" yaml:"word_wrap"`

	// MaxFPS caps how often the output pane is redrawn while streaming
	MaxFPS int `toml:"max_fps" json:"max_fps" yaml:"max_fps"`

	// ShowStats shows session statistics in the status bar
	ShowStats bool `toml:"show_stats" json:"show_stats" yaml:"show_stats"`

	// SyntaxHighlight colours fenced code blocks
	SyntaxHighlight bool `toml:"syntax_highlight" json:"syntax_highlight" yaml:"syntax_highlight"`

	// ExportDir is where ctrl+s writes reports
	ExportDir string `toml:"export_dir" json:"export_dir" yaml:"export_dir"`
}

// LoggingConfig controls the debug log.
type LoggingConfig struct {
	Enabled bool   `toml:"enabled" json:"enabled" yaml:"enabled"`
	Level   string `toml:"level" json:"level" yaml:"level"`
	Path    string `toml:"path" json:"path" yaml:"path"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Limits enforced by Validate.
const (
	MinFPS           = 1
	MaxFPS           = 120
	MinWordWrap      = 20
	MaxQuestionLimit = 20000
)

// Default returns the default configuration.
func Default() *Config {
	focus := make([]string, len(model.AllFocus))
	for i, f := range model.AllFocus {
		focus[i] = string(f)
	}
	return &Config{
		Backend: BackendConfig{
			URL:                  backend.DefaultBaseURL,
			ConnectTimeoutSecs:   10,
			InventoryTimeoutSecs: 15,
			UserAgent:            "fleetwise",
		},
		Analysis: AnalysisConfig{
			WindowDays:       int(model.DefaultWindow),
			Focus:            focus,
			MaxQuestionChars: 2000,
		},
		UI: UIConfig{
			Theme:           "dark",
			WordWrap:        100,
			MaxFPS:          30,
			ShowStats:       true,
			SyntaxHighlight: true,
			ExportDir:       ".",
		},
		Logging: LoggingConfig{
			Enabled: false,
			Level:   "info",
			Path:    "~/.fleetwise/logs",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// EnvHome overrides the configuration directory.
const EnvHome = "FLEETWISE_HOME"

// ConfigDir returns the fleetwise configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".fleetwise"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// ActivePath returns the file Load would read, preferring TOML. The second
// result is false when neither file exists.
func ActivePath() (string, bool) {
	for _, fn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		p, err := fn()
		if err != nil {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p, true
		}
	}
	p, _ := ConfigPathTOML()
	return p, false
}

// ensureSecurePermissions tightens a config file to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the configuration: TOML first, then JSON, then built-in
// defaults. Environment overrides are applied last. A file that fails to
// decode is reported alongside the defaults so callers can warn and go on.
func Load() (*Config, error) {
	path, ok := ActivePath()
	if !ok {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		cfg.SetDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		fallback := Default()
		fallback.ApplyEnvOverrides()
		fallback.SetDefaults()
		return fallback, err
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		slog.Warn("config permissions", "path", path, "error", err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON decodes a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		slog.Warn("config permissions", "path", path, "error", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads a specific file on top of the defaults, applies
// environment overrides and validates the result.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg as TOML with a short header, atomically and with 0600
// permissions.
func SaveTOML(cfg *Config, path string) error {
	var sb strings.Builder
	sb.WriteString("# fleetwise configuration file\n")
	sb.WriteString("# Environment variables FLEETWISE_* override these values.\n\n")
	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg as indented JSON, atomically and with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every section and returns ValidateErrors listing each
// problem, or nil.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Backend
	if _, err := backend.ValidateBaseURL(c.Backend.URL); err != nil {
		add("backend.url", "%v", err)
	}
	if c.Backend.ConnectTimeoutSecs < 1 || c.Backend.ConnectTimeoutSecs > 300 {
		add("backend.connect_timeout_secs", "must be 1-300, got %d", c.Backend.ConnectTimeoutSecs)
	}
	if c.Backend.InventoryTimeoutSecs < 1 || c.Backend.InventoryTimeoutSecs > 600 {
		add("backend.inventory_timeout_secs", "must be 1-600, got %d", c.Backend.InventoryTimeoutSecs)
	}

	// Analysis
	if !model.WindowDays(c.Analysis.WindowDays).Valid() {
		add("analysis.window_days", "invalid window %d, must be one of: 10, 30, 60, 90", c.Analysis.WindowDays)
	}
	if len(c.Analysis.Focus) == 0 {
		add("analysis.focus", "at least one focus area is required")
	}
	if _, err := model.ParseFocus(strings.Join(c.Analysis.Focus, ",")); err != nil {
		add("analysis.focus", "%v", err)
	}
	if c.Analysis.MaxQuestionChars < 1 || c.Analysis.MaxQuestionChars > MaxQuestionLimit {
		add("analysis.max_question_chars", "must be 1-%d, got %d", MaxQuestionLimit, c.Analysis.MaxQuestionChars)
	}

	// UI
	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		add("ui.theme", "invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme)
	}
	if c.UI.WordWrap != 0 && c.UI.WordWrap < MinWordWrap {
		add("ui.word_wrap", "must be 0 (terminal width) or at least %d, got %d", MinWordWrap, c.UI.WordWrap)
	}
	if c.UI.MaxFPS < MinFPS || c.UI.MaxFPS > MaxFPS {
		add("ui.max_fps", "must be %d-%d, got %d", MinFPS, MaxFPS, c.UI.MaxFPS)
	}

	// Logging
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills zero-value fields from Default.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Backend.URL == "" {
		c.Backend.URL = d.Backend.URL
	}
	if c.Backend.ConnectTimeoutSecs == 0 {
		c.Backend.ConnectTimeoutSecs = d.Backend.ConnectTimeoutSecs
	}
	if c.Backend.InventoryTimeoutSecs == 0 {
		c.Backend.InventoryTimeoutSecs = d.Backend.InventoryTimeoutSecs
	}
	if c.Backend.UserAgent == "" {
		c.Backend.UserAgent = d.Backend.UserAgent
	}

	if c.Analysis.WindowDays == 0 {
		c.Analysis.WindowDays = d.Analysis.WindowDays
	}
	if c.Analysis.Focus == nil {
		c.Analysis.Focus = d.Analysis.Focus
	}
	if c.Analysis.MaxQuestionChars == 0 {
		c.Analysis.MaxQuestionChars = d.Analysis.MaxQuestionChars
	}

	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	c.UI.Theme = strings.ToLower(c.UI.Theme)
	if c.UI.MaxFPS == 0 {
		c.UI.MaxFPS = d.UI.MaxFPS
	}
	if c.UI.ExportDir == "" {
		c.UI.ExportDir = d.UI.ExportDir
	}

	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Path == "" {
		c.Logging.Path = d.Logging.Path
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - FLEETWISE_BACKEND_URL: overrides backend.url
//   - FLEETWISE_WINDOW_DAYS: overrides analysis.window_days
//   - FLEETWISE_THEME: overrides ui.theme
//   - FLEETWISE_DEBUG: "1" or "true" enables debug logging
//   - FLEETWISE_LOG_LEVEL: overrides logging.level
func (c *Config) ApplyEnvOverrides() {
	if u := os.Getenv("FLEETWISE_BACKEND_URL"); u != "" {
		c.Backend.URL = u
	}

	if w := os.Getenv("FLEETWISE_WINDOW_DAYS"); w != "" {
		if n, err := strconv.Atoi(w); err == nil {
			c.Analysis.WindowDays = n
		}
	}

	if theme := os.Getenv("FLEETWISE_THEME"); theme != "" {
		c.UI.Theme = theme
	}

	if logging.DebugFromEnv() {
		c.Logging.Enabled = true
		c.Logging.Level = "debug"
	}

	if level := os.Getenv("FLEETWISE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// =============================================================================
// DERIVED SETTINGS
// =============================================================================

// ClientConfig returns backend client settings derived from this config.
func (c *Config) ClientConfig() *backend.ClientConfig {
	cc := backend.DefaultConfig()
	cc.BaseURL = c.Backend.URL
	cc.ConnectTimeout = secs(c.Backend.ConnectTimeoutSecs)
	cc.Timeout = secs(c.Backend.InventoryTimeoutSecs)
	if c.Backend.UserAgent != "" {
		cc.UserAgent = c.Backend.UserAgent
	}
	return cc
}

func secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// LoggingOptions returns the options for logging.Setup.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Enabled: c.Logging.Enabled,
		Level:   c.Logging.Level,
		Dir:     util.ExpandHome(c.Logging.Path),
	}
}

// Selection builds the initial selection from the analysis defaults.
// Unknown focus names are skipped; Validate has already reported them.
func (c *Config) Selection() *model.Selection {
	focus, _ := model.ParseFocus(strings.Join(c.Analysis.Focus, ","))
	if len(focus) == 0 {
		focus = model.AllFocus
	}
	return model.NewSelection(model.WindowDays(c.Analysis.WindowDays), focus)
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g. "ui.max_fps").
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation. String values are
// converted to the field's type; list fields take a comma separated string.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go
// field equivalent. "url" matches "URL" through EqualFold.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an arbitrary value with type
// conversion for strings.
func setFieldValue(field reflect.Value, value any) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			n, err := strconv.ParseInt(strings.TrimSpace(strVal), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(n)
			return nil
		case reflect.Bool:
			b, err := strconv.ParseBool(strings.TrimSpace(strVal))
			if err != nil {
				switch strings.ToLower(strVal) {
				case "yes", "on":
					b = true
				case "no", "off":
					b = false
				default:
					return fmt.Errorf("invalid boolean value: %q", strVal)
				}
			}
			field.SetBool(b)
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, s := range strings.Split(strVal, ",") {
					if s = strings.TrimSpace(s); s != "" {
						items = append(items, s)
					}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return errors.New("cannot assign nil")
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && val.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	return []string{
		"backend.url",
		"backend.connect_timeout_secs",
		"backend.inventory_timeout_secs",
		"backend.user_agent",
		"analysis.window_days",
		"analysis.focus",
		"analysis.max_question_chars",
		"ui.theme",
		"ui.word_wrap",
		"ui.max_fps",
		"ui.show_stats",
		"ui.syntax_highlight",
		"ui.export_dir",
		"logging.enabled",
		"logging.level",
		"logging.path",
	}
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Analysis.Focus = append([]string(nil), c.Analysis.Focus...)
	return &clone
}

// String returns the config as indented JSON for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
