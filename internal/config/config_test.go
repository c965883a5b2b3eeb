// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/fleetwise-tui/internal/model"
)

// isolate points the config directory at a temp dir and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvHome, dir)
	for _, k := range []string{"FLEETWISE_BACKEND_URL", "FLEETWISE_WINDOW_DAYS", "FLEETWISE_THEME", "FLEETWISE_DEBUG", "FLEETWISE_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	return dir
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://127.0.0.1:8000", cfg.Backend.URL)
	assert.Equal(t, 30, cfg.Analysis.WindowDays)
	assert.Equal(t, []string{"rightsizing", "risk_warnings", "full_report"}, cfg.Analysis.Focus)
	assert.Equal(t, 30, cfg.UI.MaxFPS)
	assert.False(t, cfg.Logging.Enabled)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_TOMLPreferredOverJSON(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[analysis]\nwindow_days = 60\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"analysis":{"window_days":90}}`), 0600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Analysis.WindowDays)
	// untouched sections keep their defaults
	assert.Equal(t, "dark", cfg.UI.Theme)
}

func TestLoad_JSONFallback(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{"ui":{"theme":"light"}}`), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "light", cfg.UI.Theme)

	info, err := os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoad_InvalidFileReturnsDefaultsAndError(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[analysis]\nwindow_days = 45\n"), 0600))

	cfg, err := Load()
	require.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, 30, cfg.Analysis.WindowDays)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, "analysis.window_days", verrs[0].Field)
}

func TestLoad_MalformedTOML(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[ui\ntheme="), 0600))
	_, err := Load()
	assert.ErrorContains(t, err, "TOML")
}

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("FLEETWISE_BACKEND_URL", "https://fleet.example.com")
	t.Setenv("FLEETWISE_WINDOW_DAYS", "90")
	t.Setenv("FLEETWISE_THEME", "light")
	t.Setenv("FLEETWISE_DEBUG", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://fleet.example.com", cfg.Backend.URL)
	assert.Equal(t, 90, cfg.Analysis.WindowDays)
	assert.Equal(t, "light", cfg.UI.Theme)
	assert.True(t, cfg.Logging.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// An explicit level wins over the debug switch.
	t.Setenv("FLEETWISE_LOG_LEVEL", "warn")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad url", func(c *Config) { c.Backend.URL = "ftp://x" }, "backend.url"},
		{"connect timeout", func(c *Config) { c.Backend.ConnectTimeoutSecs = 0 }, "backend.connect_timeout_secs"},
		{"window", func(c *Config) { c.Analysis.WindowDays = 7 }, "analysis.window_days"},
		{"empty focus", func(c *Config) { c.Analysis.Focus = []string{} }, "analysis.focus"},
		{"unknown focus", func(c *Config) { c.Analysis.Focus = []string{"costs"} }, "analysis.focus"},
		{"theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"fps", func(c *Config) { c.UI.MaxFPS = 500 }, "ui.max_fps"},
		{"wrap", func(c *Config) { c.UI.WordWrap = 5 }, "ui.word_wrap"},
		{"level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestValidateErrors_Error(t *testing.T) {
	assert.Equal(t, "no validation errors", ValidateErrors{}.Error())
	errs := ValidateErrors{{Field: "a", Message: "x"}, {Field: "b", Message: "y"}}
	assert.Equal(t, "a: x; b: y", errs.Error())
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	dir := isolate(t)
	cfg := Default()
	cfg.UI.Theme = "light"
	cfg.Analysis.Focus = []string{"risk_warnings"}
	require.NoError(t, Save(cfg))

	path := filepath.Join(dir, "config.toml")
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	require.NoError(t, SaveJSON(Default(), path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"window_days": 30`)
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("backend.url")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8000", v)

	require.NoError(t, cfg.Set("ui.max_fps", "60"))
	assert.Equal(t, 60, cfg.UI.MaxFPS)

	require.NoError(t, cfg.Set("ui.show-stats", "off"))
	assert.False(t, cfg.UI.ShowStats)

	require.NoError(t, cfg.Set("analysis.focus", "rightsizing, full_report"))
	assert.Equal(t, []string{"rightsizing", "full_report"}, cfg.Analysis.Focus)

	require.NoError(t, cfg.Set("analysis.window_days", 10))
	assert.Equal(t, 10, cfg.Analysis.WindowDays)

	assert.ErrorContains(t, cfg.Set("ui.max_fps", "fast"), "invalid integer")
	assert.ErrorContains(t, cfg.Set("ui.nope", "1"), "unknown field: ui.nope")
	assert.ErrorContains(t, cfg.Set("ui.theme.x", "1"), "not a struct")
	_, err = cfg.Get("")
	assert.Error(t, err)
}

func TestGetAllKeys_Resolve(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		_, err := cfg.Get(key)
		assert.NoError(t, err, key)
	}
}

func TestSelection(t *testing.T) {
	cfg := Default()
	cfg.Analysis.WindowDays = 60
	cfg.Analysis.Focus = []string{"risk-warnings"}
	sel := cfg.Selection()
	assert.Equal(t, model.WindowDays(60), sel.Window)
	assert.Equal(t, []model.Focus{model.FocusRiskWarnings}, sel.FocusList())
}

func TestClientConfig(t *testing.T) {
	cfg := Default()
	cfg.Backend.ConnectTimeoutSecs = 3
	cc := cfg.ClientConfig()
	assert.Equal(t, 3*time.Second, cc.ConnectTimeout)
	assert.Equal(t, 15*time.Second, cc.Timeout)
	assert.Equal(t, "fleetwise", cc.UserAgent)
}

func TestClone_IsDeep(t *testing.T) {
	cfg := Default()
	c := cfg.Clone()
	c.Analysis.Focus[0] = "changed"
	assert.Equal(t, "rightsizing", cfg.Analysis.Focus[0])
}

// Each Load returns its own value; a caller editing one config must not
// change what the next Load sees.
func TestLoad_ReturnsIndependentConfigs(t *testing.T) {
	isolate(t)
	first, err := Load()
	require.NoError(t, err)
	first.Analysis.WindowDays = 90
	first.Analysis.Focus[0] = "changed"

	second, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 30, second.Analysis.WindowDays)
	assert.Equal(t, "rightsizing", second.Analysis.Focus[0])
}

func TestWatch_ReloadsOnSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveTOML(Default(), path))

	got := make(chan *Config, 4)
	w, err := WatchWithDebounce(path, 20*time.Millisecond, func(cfg *Config, err error) {
		if err == nil {
			got <- cfg
		}
	})
	require.NoError(t, err)
	defer w.Close()

	updated := Default()
	updated.Analysis.WindowDays = 90
	require.NoError(t, SaveTOML(updated, path))

	select {
	case cfg := <-got:
		assert.Equal(t, 90, cfg.Analysis.WindowDays)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after save")
	}
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveTOML(Default(), path))

	calls := make(chan struct{}, 4)
	w, err := WatchWithDebounce(path, 20*time.Millisecond, func(*Config, error) { calls <- struct{}{} })
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0600))
	select {
	case <-calls:
		t.Fatal("unexpected reload")
	case <-time.After(200 * time.Millisecond):
	}
	require.NoError(t, w.Close())
}
