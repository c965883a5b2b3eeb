// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package analyst

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/fleetwise-tui/internal/backend"
	"github.com/jeranaias/fleetwise-tui/internal/config"
	"github.com/jeranaias/fleetwise-tui/internal/export"
	"github.com/jeranaias/fleetwise-tui/internal/logging"
	"github.com/jeranaias/fleetwise-tui/internal/model"
	"github.com/jeranaias/fleetwise-tui/internal/session"
	"github.com/jeranaias/fleetwise-tui/internal/ui/styles"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// fakeBackend serves a fixed inventory. Analyses either replay body or,
// with pipe set, hand the test the write end of a pipe.
type fakeBackend struct {
	instances []model.Instance
	invErr    error
	body      string
	pipe      bool

	mu       sync.Mutex
	requests []model.AnalysisRequest
	writers  chan *io.PipeWriter
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{writers: make(chan *io.PipeWriter, 4)}
}

func (f *fakeBackend) ListInstances(ctx context.Context) ([]model.Instance, error) {
	return f.instances, f.invErr
}

func (f *fakeBackend) Analyse(ctx context.Context, req model.AnalysisRequest) (*backend.Stream, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if !f.pipe {
		return backend.NewStream(ctx, io.NopCloser(strings.NewReader(f.body))), nil
	}
	pr, pw := io.Pipe()
	go func() {
		<-ctx.Done()
		pr.CloseWithError(ctx.Err())
	}()
	f.writers <- pw
	return backend.NewStream(ctx, pr), nil
}

func (f *fakeBackend) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeBackend) nextWriter(t *testing.T) *io.PipeWriter {
	t.Helper()
	select {
	case w := <-f.writers:
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("Analyse was not called")
		return nil
	}
}

// sse frames tokens as a complete event stream.
func sse(tokens ...string) string {
	var b strings.Builder
	for _, tok := range tokens {
		payload, _ := json.Marshal(map[string]string{"token": tok})
		fmt.Fprintf(&b, "data: %s\n\n", payload)
	}
	b.WriteString("data: [DONE]\n\n")
	return b.String()
}

// =============================================================================
// HELPERS
// =============================================================================

var fleet = []model.Instance{
	{InstanceID: "i-0aaa", InstanceName: "web-1", InstanceType: "m5.large", AZ: "us-east-1a"},
	{InstanceID: "i-0bbb", InstanceName: "web-2", InstanceType: "m5.large", AZ: "us-east-1b"},
	{InstanceID: "i-0ccc", InstanceName: "db-1", InstanceType: "r6g.xlarge", AZ: "us-east-1a"},
}

func newTestModel(t *testing.T, b Backend) Model {
	t.Helper()
	m := New(Options{
		Config:  config.Default(),
		Backend: b,
		Theme:   styles.NewTheme("dark"),
		Logger:  logging.Discard(),
	})
	t.Cleanup(m.Close)
	return resize(t, m, 120, 40)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func resize(t *testing.T, m Model, w, h int) Model {
	t.Helper()
	m, _ = update(t, m, tea.WindowSizeMsg{Width: w, Height: h})
	return m
}

func press(t *testing.T, m Model, k tea.KeyType) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: k})
	return m
}

func typeRunes(t *testing.T, m Model, s string) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m
}

func space(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	return m
}

// recvEvent reads one event of the current submission.
func recvEvent(t *testing.T, m Model) session.Event {
	t.Helper()
	require.NotNil(t, m.events)
	select {
	case ev, ok := <-m.events:
		require.True(t, ok, "event channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no session event")
		return session.Event{}
	}
}

// drain applies every remaining event of ch, as the update loop would.
func drain(t *testing.T, m Model, ch <-chan session.Event) Model {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				m, _ = update(t, m, SessionClosedMsg{Events: ch})
				return m
			}
			m, _ = update(t, m, SessionEventMsg{Event: ev, Events: ch})
		case <-timeout:
			t.Fatal("session channel did not close")
			return m
		}
	}
}

func output(m Model) string {
	return ansi.Strip(m.viewport.View())
}

// =============================================================================
// INVENTORY TESTS
// =============================================================================

func TestInit_FetchesInventory(t *testing.T) {
	fb := newFakeBackend()
	fb.instances = fleet
	m := newTestModel(t, fb)

	msg := fetchInventoryCmd(m.backend)()
	inv, ok := msg.(InventoryMsg)
	require.True(t, ok)
	require.NoError(t, inv.Err)

	m, _ = update(t, m, inv)
	assert.True(t, m.inventoryLoaded)
	assert.Len(t, m.instances, 3)
	assert.Contains(t, ansi.Strip(m.View()), "web-1")
	assert.Contains(t, ansi.Strip(m.View()), "Instances (all)")
}

func TestInventoryFailure_FallsBackToAllInstances(t *testing.T) {
	m := newTestModel(t, newFakeBackend())

	m, _ = update(t, m, InventoryMsg{Err: errors.New("connection refused")})
	assert.True(t, m.statusBar.IsError)
	assert.Contains(t, m.statusBar.Message, "inventory unavailable")
	assert.Contains(t, ansi.Strip(m.View()), "inventory unavailable")

	// submission still works with an empty scope
	_, err := m.sel.Snapshot()
	assert.NoError(t, err)
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestSubmit_StreamsAndRendersOnFrameTick(t *testing.T) {
	fb := newFakeBackend()
	fb.body = sse("# Fleet report\n\n", "All instances ", "look healthy.")
	m := newTestModel(t, fb)

	m = press(t, m, tea.KeyEnter)
	require.NotNil(t, m.events)
	assert.Equal(t, session.StatusLoading, m.ctrl.State().Status)
	assert.True(t, m.ticking)
	assert.Contains(t, output(m), "waiting for the backend")

	m = drain(t, m, m.events)
	assert.Equal(t, session.StatusDone, m.ctrl.State().Status)
	assert.Nil(t, m.events)

	// tokens only mark the output dirty
	assert.True(t, m.dirty)
	assert.NotContains(t, output(m), "look healthy.")

	m, cmd := update(t, m, FrameTickMsg{Time: time.Now()})
	assert.False(t, m.dirty)
	assert.Nil(t, cmd, "ticking stops once the session is over")
	out := output(m)
	assert.Contains(t, out, "Fleet report")
	assert.Contains(t, out, "All instances look healthy.")

	assert.Equal(t, session.StatusDone, m.statusBar.Status)
	require.NotNil(t, m.statusBar.Stats)
	assert.Equal(t, 3, m.statusBar.Stats.TokenEvents)
}

func TestSubmit_SendsSelection(t *testing.T) {
	fb := newFakeBackend()
	fb.body = sse("ok")
	m := newTestModel(t, fb)
	m, _ = update(t, m, InventoryMsg{Instances: fleet})

	m.sel.Window = model.WindowDays(60)
	m.sel.ToggleInstance("i-0ccc")
	m.input.SetValue("  is db-1 oversized?  ")

	m = press(t, m, tea.KeyEnter)
	m = drain(t, m, m.events)

	require.Equal(t, 1, fb.requestCount())
	req := fb.requests[0]
	assert.Equal(t, model.WindowDays(60), req.WindowDays)
	assert.Equal(t, []string{"i-0ccc"}, req.InstanceIDs)
	require.NotNil(t, req.Question)
	assert.Equal(t, "is db-1 oversized?", *req.Question)
	assert.Equal(t, model.AllFocus, req.Focus)
}

func TestSubmit_NoFocusIsRefused(t *testing.T) {
	fb := newFakeBackend()
	m := newTestModel(t, fb)
	for _, f := range model.AllFocus {
		m.sel.ToggleFocus(f)
	}

	m = press(t, m, tea.KeyEnter)
	assert.Nil(t, m.events)
	assert.Equal(t, session.StatusIdle, m.ctrl.State().Status)
	assert.True(t, m.statusBar.IsError)
	assert.Equal(t, 0, fb.requestCount())
	assert.Contains(t, ansi.Strip(m.View()), "pick at least one")
}

func TestSubmit_WhileActiveIsRefused(t *testing.T) {
	fb := newFakeBackend()
	fb.pipe = true
	m := newTestModel(t, fb)

	m = press(t, m, tea.KeyEnter)
	first := m.events
	fb.nextWriter(t)

	m = press(t, m, tea.KeyEnter)
	assert.Equal(t, first, m.events)
	assert.Equal(t, session.ErrBusy.Error(), m.statusBar.Message)
}

func TestCancel_KeepsPartialAndIgnoresStaleEvents(t *testing.T) {
	fb := newFakeBackend()
	fb.pipe = true
	m := newTestModel(t, fb)

	m = press(t, m, tea.KeyEnter)
	w := fb.nextWriter(t)
	m, _ = update(t, m, SessionEventMsg{Event: recvEvent(t, m), Events: m.events})
	assert.Equal(t, session.StatusStreaming, m.ctrl.State().Status)

	_, err := fmt.Fprint(w, "data: {\"token\": \"partial answer\"}\n\n")
	require.NoError(t, err)
	m, _ = update(t, m, SessionEventMsg{Event: recvEvent(t, m), Events: m.events})
	oldHandle := m.ctrl.State().Handle
	oldEvents := m.events

	m = press(t, m, tea.KeyEsc)
	st := m.ctrl.State()
	assert.Equal(t, session.StatusIdle, st.Status)
	assert.Equal(t, "partial answer", st.Buffer)
	assert.Contains(t, output(m), "cancelled")

	// the cancelled producer exits and its channel drains without effect
	m = drain(t, m, oldEvents)
	assert.Equal(t, session.StatusIdle, m.ctrl.State().Status)

	// a new submission ignores anything still tagged with the old handle
	m = press(t, m, tea.KeyEnter)
	fb.nextWriter(t)
	m, _ = update(t, m, SessionEventMsg{
		Event:  session.Event{Kind: session.EventToken, Handle: oldHandle, Text: "stale"},
		Events: oldEvents,
	})
	assert.Equal(t, session.StatusLoading, m.ctrl.State().Status)
	assert.Empty(t, m.ctrl.State().Buffer)
}

func TestClear(t *testing.T) {
	fb := newFakeBackend()
	fb.pipe = true
	m := newTestModel(t, fb)

	m = press(t, m, tea.KeyEnter)
	w := fb.nextWriter(t)

	m = press(t, m, tea.KeyCtrlL)
	assert.Equal(t, session.StatusLoading, m.ctrl.State().Status)
	assert.Equal(t, session.ErrActive.Error(), m.statusBar.Message)

	_, err := fmt.Fprint(w, sse("done"))
	require.NoError(t, err)
	m = drain(t, m, m.events)
	require.Equal(t, session.StatusDone, m.ctrl.State().Status)

	m = press(t, m, tea.KeyCtrlL)
	assert.Equal(t, session.StatusIdle, m.ctrl.State().Status)
	assert.Empty(t, m.ctrl.State().Buffer)
	assert.Contains(t, output(m), "press enter")
}

func TestRejectedSubmissionShowsError(t *testing.T) {
	m := newTestModel(t, newFakeBackend())
	m.ctrl = session.NewController(rejectingAnalyzer{}, session.WithLogger(logging.Discard()))

	m = press(t, m, tea.KeyEnter)
	m = drain(t, m, m.events)
	m, _ = update(t, m, FrameTickMsg{})

	assert.Equal(t, session.StatusError, m.ctrl.State().Status)
	assert.Contains(t, output(m), "window_days: bad window")
	assert.Equal(t, session.StatusError, m.statusBar.Status)
}

type rejectingAnalyzer struct{}

func (rejectingAnalyzer) Analyse(ctx context.Context, req model.AnalysisRequest) (*backend.Stream, error) {
	return nil, &backend.APIError{StatusCode: 422, Detail: "window_days: bad window"}
}

// =============================================================================
// NAVIGATION TESTS
// =============================================================================

func TestPaneCycle(t *testing.T) {
	m := newTestModel(t, newFakeBackend())
	assert.Equal(t, PaneWindow, m.pane)

	var seen []Pane
	for range paneCount {
		m = press(t, m, tea.KeyTab)
		seen = append(seen, m.pane)
	}
	assert.Equal(t, []Pane{PaneFocus, PaneInstances, PaneQuestion, PaneOutput, PaneWindow}, seen)

	m = press(t, m, tea.KeyShiftTab)
	assert.Equal(t, PaneOutput, m.pane)
	assert.Equal(t, "output", m.pane.String())
}

func TestWindowAndFocusKeys(t *testing.T) {
	m := newTestModel(t, newFakeBackend())

	m = typeRunes(t, m, "l")
	assert.Equal(t, model.WindowDays(60), m.sel.Window)
	m = typeRunes(t, m, "h")
	m = typeRunes(t, m, "h")
	assert.Equal(t, model.WindowDays(10), m.sel.Window)

	m = press(t, m, tea.KeyTab)
	m = press(t, m, tea.KeyDown)
	assert.Equal(t, 1, m.focusCursor)
	m = space(t, m)
	assert.False(t, m.sel.Focus[model.AllFocus[1]])
	assert.Len(t, m.sel.FocusList(), len(model.AllFocus)-1)
}

func TestQuestionPaneSwallowsQuit(t *testing.T) {
	m := newTestModel(t, newFakeBackend())
	for m.pane != PaneQuestion {
		m = press(t, m, tea.KeyTab)
	}

	m = typeRunes(t, m, "q")
	assert.False(t, m.quitting)
	assert.Equal(t, "q", m.input.Value())

	m = press(t, m, tea.KeyTab)
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.True(t, m.quitting)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestInstanceFilter(t *testing.T) {
	m := newTestModel(t, newFakeBackend())
	m, _ = update(t, m, InventoryMsg{Instances: fleet})
	m = press(t, m, tea.KeyTab)
	m = press(t, m, tea.KeyTab)
	require.Equal(t, PaneInstances, m.pane)

	m = typeRunes(t, m, "/")
	require.True(t, m.filtering)
	m = typeRunes(t, m, "db")
	assert.Len(t, m.visibleInstances(), 1)

	// enter keeps the filter and does not submit
	m = press(t, m, tea.KeyEnter)
	assert.False(t, m.filtering)
	assert.Nil(t, m.events)

	m = space(t, m)
	assert.True(t, m.sel.Selected["i-0ccc"])
	assert.Contains(t, ansi.Strip(m.View()), "Instances (1 selected)")

	m = press(t, m, tea.KeyEsc)
	assert.Len(t, m.visibleInstances(), 3)

	m = typeRunes(t, m, "a")
	assert.Empty(t, m.sel.Selected)
}

func TestOutputScrollStopsFollowing(t *testing.T) {
	fb := newFakeBackend()
	fb.body = sse(strings.Repeat("line\n\n", 80))
	m := newTestModel(t, fb)

	m = press(t, m, tea.KeyEnter)
	m = drain(t, m, m.events)
	m, _ = update(t, m, FrameTickMsg{})
	require.True(t, m.viewport.AtBottom())

	m.pane = PaneOutput
	m = typeRunes(t, m, "g")
	assert.True(t, m.viewport.AtTop())
	assert.False(t, m.follow)

	m = typeRunes(t, m, "G")
	assert.True(t, m.follow)

	m, _ = update(t, m, tea.MouseMsg{Type: tea.MouseWheelUp})
	assert.False(t, m.follow)
	m, _ = update(t, m, tea.MouseMsg{Type: tea.MouseWheelDown})
	assert.True(t, m.follow)
}

// =============================================================================
// CONFIG RELOAD TESTS
// =============================================================================

func TestConfigReload_SwapsBackendAndSettings(t *testing.T) {
	first := newFakeBackend()
	second := newFakeBackend()
	second.body = sse("from the new backend")

	m := New(Options{
		Config:     config.Default(),
		Backend:    first,
		NewBackend: func(*config.Config) Backend { return second },
		Theme:      styles.NewTheme("dark"),
		Logger:     logging.Discard(),
	})
	t.Cleanup(m.Close)
	m = resize(t, m, 120, 40)
	m.sel.Window = model.WindowDays(90)

	cfg := config.Default()
	cfg.Backend.URL = "http://10.0.0.5:8000"
	cfg.UI.WordWrap = 60
	cfg.UI.ShowStats = false
	cfg.Analysis.WindowDays = 10

	m, cmd := update(t, m, ConfigReloadedMsg{Config: cfg})
	assert.Nil(t, cmd, "no watcher, nothing to wait on")
	assert.Equal(t, 60, m.doc.WrapAt)
	assert.False(t, m.statusBar.ShowStats)
	assert.Equal(t, "config reloaded", m.statusBar.Message)
	assert.Equal(t, model.WindowDays(90), m.sel.Window, "selection survives a reload")

	m = press(t, m, tea.KeyEnter)
	m = drain(t, m, m.events)
	assert.Equal(t, 0, first.requestCount())
	assert.Equal(t, 1, second.requestCount())
	assert.Equal(t, "from the new backend", m.ctrl.State().Buffer)
}

func TestConfigReload_ErrorKeepsConfig(t *testing.T) {
	m := newTestModel(t, newFakeBackend())
	before := m.cfg

	m, _ = update(t, m, ConfigReloadedMsg{Err: errors.New("ui.max_fps: must be 1-120, got 0")})
	assert.Same(t, before, m.cfg)
	assert.True(t, m.statusBar.IsError)
	assert.Contains(t, m.statusBar.Message, "config reload failed")
}

func TestConfigReload_ThemeChange(t *testing.T) {
	m := newTestModel(t, newFakeBackend())
	cfg := config.Default()
	cfg.UI.Theme = "light"

	m, _ = update(t, m, ConfigReloadedMsg{Config: cfg})
	assert.Equal(t, "light", m.theme.Mode)
	assert.False(t, m.theme.IsDark)
	assert.Equal(t, m.width, m.statusBar.Width)
}

func TestConfigWatch_DeliversReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, config.SaveTOML(config.Default(), path))

	m := New(Options{
		Config:     config.Default(),
		Backend:    newFakeBackend(),
		ConfigPath: path,
		Theme:      styles.NewTheme("dark"),
		Logger:     logging.Discard(),
	})
	t.Cleanup(m.Close)
	require.NotNil(t, m.reloads)

	cfg := config.Default()
	cfg.UI.WordWrap = 72
	require.NoError(t, config.SaveTOML(cfg, path))

	select {
	case msg := <-m.reloads:
		require.NoError(t, msg.Err)
		assert.Equal(t, 72, msg.Config.UI.WordWrap)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload delivered")
	}
}

// =============================================================================
// EXPORT & COMMAND TESTS
// =============================================================================

func TestExportCmd_WritesFile(t *testing.T) {
	dir := t.TempDir()
	r := &export.Report{
		Status:    session.StatusDone,
		Markdown:  "# Rightsizing\n\nDownsize web-2.\n",
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	msg := exportCmd(r, "markdown", &export.Options{OutputDir: dir})()
	exported, ok := msg.(ExportedMsg)
	require.True(t, ok)
	require.NoError(t, exported.Err)
	assert.Equal(t, dir, filepath.Dir(exported.Path))

	data, err := os.ReadFile(exported.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Downsize web-2.")

	msg = exportCmd(r, "pdf", &export.Options{OutputDir: dir})()
	assert.Error(t, msg.(ExportedMsg).Err)
}

func TestExportKey_NothingToExport(t *testing.T) {
	m := newTestModel(t, newFakeBackend())
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Nil(t, cmd)
	assert.Equal(t, "nothing to export yet", m.statusBar.Message)

	m, _ = update(t, m, ExportedMsg{Path: "/tmp/r.md"})
	assert.Equal(t, "exported to /tmp/r.md", m.statusBar.Message)
	assert.False(t, m.statusBar.IsError)
}

func TestFrameInterval(t *testing.T) {
	assert.Equal(t, time.Second/30, frameInterval(0))
	assert.Equal(t, time.Second/60, frameInterval(60))
	assert.Equal(t, time.Second, frameInterval(1))
}

func TestWaitForEventCmd(t *testing.T) {
	ch := make(chan session.Event, 1)
	ch <- session.Event{Kind: session.EventAccepted, Handle: "h"}
	close(ch)

	msg := waitForEventCmd(ch)()
	ev, ok := msg.(SessionEventMsg)
	require.True(t, ok)
	assert.Equal(t, session.EventAccepted, ev.Event.Kind)

	msg = waitForEventCmd(ch)()
	assert.IsType(t, SessionClosedMsg{}, msg)
	assert.Nil(t, waitForReloadCmd(nil))
}

func TestView_BeforeResize(t *testing.T) {
	m := New(Options{Backend: newFakeBackend(), Logger: logging.Discard()})
	t.Cleanup(m.Close)
	assert.Equal(t, "Initializing...", m.View())
}
