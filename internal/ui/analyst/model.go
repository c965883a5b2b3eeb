// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package analyst

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/fleetwise-tui/internal/backend"
	"github.com/jeranaias/fleetwise-tui/internal/config"
	"github.com/jeranaias/fleetwise-tui/internal/export"
	"github.com/jeranaias/fleetwise-tui/internal/logging"
	"github.com/jeranaias/fleetwise-tui/internal/model"
	"github.com/jeranaias/fleetwise-tui/internal/session"
	"github.com/jeranaias/fleetwise-tui/internal/ui/components"
	"github.com/jeranaias/fleetwise-tui/internal/ui/styles"
)

// =============================================================================
// PANES
// =============================================================================

// Pane is the part of the screen that receives keys.
type Pane int

const (
	PaneWindow Pane = iota
	PaneFocus
	PaneInstances
	PaneQuestion
	PaneOutput
	paneCount
)

var paneNames = [...]string{"window", "focus", "instances", "question", "output"}

// String returns the pane name.
func (p Pane) String() string {
	if p >= 0 && p < paneCount {
		return paneNames[p]
	}
	return "unknown"
}

// =============================================================================
// BACKEND
// =============================================================================

// Backend is what the screen needs from the analysis service.
// *backend.Client implements it.
type Backend interface {
	session.Analyzer
	ListInstances(ctx context.Context) ([]model.Instance, error)
}

// backendRef lets a config reload swap the client. The producer goroutine
// resolves it when a submission starts, so a swap only affects later
// submissions.
type backendRef struct {
	mu sync.RWMutex
	b  Backend
}

func (r *backendRef) get() Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.b
}

func (r *backendRef) set(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.b = b
}

func (r *backendRef) Analyse(ctx context.Context, req model.AnalysisRequest) (*backend.Stream, error) {
	return r.get().Analyse(ctx, req)
}

func (r *backendRef) ListInstances(ctx context.Context) ([]model.Instance, error) {
	return r.get().ListInstances(ctx)
}

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures the analyst screen.
type Options struct {
	// Config supplies the initial selection and UI settings (default: config.Default()).
	Config *config.Config

	// Backend serves inventory and analyses.
	Backend Backend

	// NewBackend builds a client after a config reload; nil keeps Backend.
	NewBackend func(*config.Config) Backend

	// ConfigPath is watched for changes when set.
	ConfigPath string

	// ExportFormat for ctrl+s (default: markdown).
	ExportFormat string

	Theme  *styles.Theme
	Logger *slog.Logger
	Now    func() time.Time
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model of the analyst screen. The Update loop is
// the session's only owner: every controller call happens inside it.
type Model struct {
	cfg   *config.Config
	theme *styles.Theme
	log   *slog.Logger
	now   func() time.Time

	// Session
	backend    *backendRef
	newBackend func(*config.Config) Backend
	ctrl       *session.Controller
	events     <-chan session.Event // channel of the newest submission

	// Selection
	sel             *model.Selection
	instances       []model.Instance
	inventoryLoaded bool
	inventoryErr    error
	focusCursor     int
	instCursor      int
	filter          textinput.Model
	filtering       bool

	// UI Components
	pane      Pane
	input     textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	doc       *components.DocumentView
	statusBar *components.StatusBar
	keyMap    KeyMap

	// Dimensions
	width  int
	height int
	ready  bool

	// Frame throttling
	dirty    bool
	ticking  bool
	spinning bool
	follow   bool

	// Config reload
	reloads chan ConfigReloadedMsg
	watcher *config.Watcher

	exportFormat string
	quitting     bool
}

// New creates the analyst screen.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(cfg.UI.Theme)
	}
	log := logging.Or(opts.Logger)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	format := opts.ExportFormat
	if format == "" {
		format = "markdown"
	}

	ref := &backendRef{b: opts.Backend}
	ctrl := session.NewController(ref, session.WithLogger(log), session.WithClock(now))

	ti := textinput.New()
	ti.Prompt = "? "
	ti.Placeholder = "Optional question, e.g. which instances are safe to downsize?"
	ti.CharLimit = cfg.Analysis.MaxQuestionChars

	filter := textinput.New()
	filter.Prompt = "/ "
	filter.Placeholder = "filter instances"
	filter.CharLimit = 64

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Warning

	doc := components.NewDocumentView(theme, 80)
	doc.WrapAt = cfg.UI.WordWrap
	doc.Highlight = cfg.UI.SyntaxHighlight

	keys := DefaultKeyMap()
	sb := components.NewStatusBar(theme)
	sb.ShowStats = cfg.UI.ShowStats
	sb.Hints = Hints(keys.ShortHelp())

	m := Model{
		cfg:          cfg,
		theme:        theme,
		log:          log,
		now:          now,
		backend:      ref,
		newBackend:   opts.NewBackend,
		ctrl:         ctrl,
		sel:          cfg.Selection(),
		filter:       filter,
		pane:         PaneWindow,
		input:        ti,
		viewport:     vp,
		spinner:      sp,
		doc:          doc,
		statusBar:    sb,
		keyMap:       keys,
		follow:       true,
		dirty:        true,
		exportFormat: format,
	}

	if opts.ConfigPath != "" {
		reloads := make(chan ConfigReloadedMsg, 1)
		w, err := config.Watch(opts.ConfigPath, func(c *config.Config, err error) {
			// newest reload wins; an unread older one is dropped
			select {
			case <-reloads:
			default:
			}
			reloads <- ConfigReloadedMsg{Config: c, Err: err}
		})
		if err != nil {
			log.Warn("config watch unavailable", "path", opts.ConfigPath, "error", err)
		} else {
			m.reloads = reloads
			m.watcher = w
		}
	}
	return m
}

// Close stops the config watcher and aborts a running session. Call it
// after the program exits.
func (m Model) Close() {
	if m.watcher != nil {
		_ = m.watcher.Close()
	}
	if m.ctrl.State().Status.Active() {
		_ = m.ctrl.Cancel()
	}
}

// Controller exposes the session controller, for the caller's exit summary.
func (m Model) Controller() *session.Controller { return m.ctrl }

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init loads the inventory and starts listening for config reloads.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{fetchInventoryCmd(m.backend)}
	if m.reloads != nil {
		cmds = append(cmds, waitForReloadCmd(m.reloads))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		switch msg.Type {
		case tea.MouseWheelUp:
			m.viewport.LineUp(3)
		case tea.MouseWheelDown:
			m.viewport.LineDown(3)
		default:
			return m, nil
		}
		m.follow = m.viewport.AtBottom()
		return m, nil

	case InventoryMsg:
		return m.handleInventory(msg)

	case SessionEventMsg:
		return m.handleSessionEvent(msg)

	case SessionClosedMsg:
		if msg.Events == m.events {
			m.events = nil
		}
		return m, nil

	case FrameTickMsg:
		return m.handleFrameTick()

	case spinner.TickMsg:
		if !m.ctrl.State().Status.Active() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.ctrl.State().Status == session.StatusLoading {
			m.dirty = true
		}
		return m, cmd

	case ConfigReloadedMsg:
		m.applyConfig(msg)
		return m, waitForReloadCmd(m.reloads)

	case ExportedMsg:
		if msg.Err != nil {
			m.log.Warn("export failed", "error", msg.Err)
			m.statusBar.SetMessage("export failed: "+msg.Err.Error(), true)
		} else {
			m.log.Info("report exported", "path", msg.Path)
			m.statusBar.SetMessage("exported to "+msg.Path, false)
		}
		return m, nil
	}

	// cursor blink and other input messages
	var cmd tea.Cmd
	if m.filtering {
		m.filter, cmd = m.filter.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true

	l := m.layout()
	m.viewport.Width = l.outputInnerW
	m.viewport.Height = l.outputInnerH
	m.doc.SetWidth(l.outputInnerW)
	m.input.Width = l.questionInnerW - len(m.input.Prompt) - 1
	m.filter.Width = l.configInnerW - len(m.filter.Prompt) - 1
	m.statusBar.SetWidth(m.width)

	m.render()
	return m, nil
}

func (m Model) handleInventory(msg InventoryMsg) (tea.Model, tea.Cmd) {
	m.inventoryLoaded = true
	m.instances = msg.Instances
	m.inventoryErr = msg.Err
	if msg.Err != nil {
		m.instances = nil
		m.log.Warn("inventory unavailable", "error", msg.Err)
		m.statusBar.SetMessage("inventory unavailable ("+backend.UserMessage(msg.Err)+"); scope is all instances", true)
		return m, nil
	}
	m.log.Info("inventory loaded", "instances", len(msg.Instances))
	return m, nil
}

// handleSessionEvent applies one producer event and waits for the next one
// from the same channel. Events of a replaced submission are still drained
// so its producer can exit, but the controller ignores them.
func (m Model) handleSessionEvent(msg SessionEventMsg) (tea.Model, tea.Cmd) {
	if m.ctrl.Apply(msg.Event) {
		m.dirty = true
		m.syncStatus()
	}
	tick := m.ensureTicking()
	return m, tea.Batch(waitForEventCmd(msg.Events), tick)
}

// handleFrameTick redraws when something changed and keeps ticking while a
// session is active.
func (m Model) handleFrameTick() (tea.Model, tea.Cmd) {
	m.ticking = false
	active := m.ctrl.State().Status.Active()
	if active {
		// elapsed time in the status bar moves every frame
		m.syncStatus()
	}
	if m.dirty {
		m.render()
	}
	if !active {
		return m, nil
	}
	tick := m.ensureTicking()
	return m, tick
}

// ensureTicking starts the frame tick unless one is already scheduled.
func (m *Model) ensureTicking() tea.Cmd {
	if m.ticking {
		return nil
	}
	m.ticking = true
	return frameTickCmd(m.cfg.UI.MaxFPS)
}

// applyConfig takes a reloaded config. The running session keeps the
// backend it started with; the current selection is left alone.
func (m *Model) applyConfig(msg ConfigReloadedMsg) {
	if msg.Err != nil || msg.Config == nil {
		m.log.Warn("config reload rejected", "error", msg.Err)
		if msg.Err != nil {
			m.statusBar.SetMessage("config reload failed: "+msg.Err.Error(), true)
		}
		return
	}
	cfg := msg.Config
	m.cfg = cfg
	if m.newBackend != nil {
		m.backend.set(m.newBackend(cfg))
	}

	if !strings.EqualFold(cfg.UI.Theme, m.theme.Mode) {
		m.theme = styles.NewTheme(cfg.UI.Theme)
		m.theme.Apply()
		doc := components.NewDocumentView(m.theme, m.doc.Width)
		m.doc = doc
		sb := components.NewStatusBar(m.theme)
		sb.Width = m.statusBar.Width
		sb.Hints = m.statusBar.Hints
		m.statusBar = sb
		m.spinner.Style = m.theme.Warning
		m.syncStatus()
	}
	m.doc.WrapAt = cfg.UI.WordWrap
	m.doc.Highlight = cfg.UI.SyntaxHighlight
	m.statusBar.ShowStats = cfg.UI.ShowStats
	m.input.CharLimit = cfg.Analysis.MaxQuestionChars

	m.log.Info("config reloaded", "backend", cfg.Backend.URL)
	m.statusBar.SetMessage("config reloaded", false)
	m.dirty = true
	m.render()
}

// =============================================================================
// SESSION ACTIONS
// =============================================================================

// submit snapshots the selection and starts a session.
func (m Model) submit() (tea.Model, tea.Cmd) {
	m.sel.Question = m.input.Value()
	ch, err := m.ctrl.Submit(m.sel)
	if err != nil {
		m.statusBar.SetMessage(err.Error(), true)
		return m, nil
	}
	m.events = ch
	m.follow = true
	m.dirty = true
	m.statusBar.ClearMessage()
	m.syncStatus()
	m.render()

	cmds := []tea.Cmd{waitForEventCmd(ch), m.ensureTicking()}
	if !m.spinning {
		m.spinning = true
		cmds = append(cmds, m.spinner.Tick)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) cancel() (tea.Model, tea.Cmd) {
	if err := m.ctrl.Cancel(); err != nil {
		return m, nil
	}
	m.dirty = true
	m.syncStatus()
	m.statusBar.SetMessage("analysis cancelled", false)
	m.render()
	return m, nil
}

func (m Model) clear() (tea.Model, tea.Cmd) {
	if err := m.ctrl.Clear(); err != nil {
		m.statusBar.SetMessage(err.Error(), true)
		return m, nil
	}
	m.dirty = true
	m.statusBar.ClearMessage()
	m.syncStatus()
	m.render()
	return m, nil
}

// startExport snapshots the session, partial or not, and writes it in the
// background.
func (m Model) startExport() (tea.Model, tea.Cmd) {
	r := export.FromController(m.ctrl, m.now())
	if strings.TrimSpace(r.Markdown) == "" {
		m.statusBar.SetMessage("nothing to export yet", true)
		return m, nil
	}
	opts := &export.Options{
		OutputDir:       m.cfg.UI.ExportDir,
		IncludeMetadata: true,
		Theme:           "dark",
	}
	if !m.theme.IsDark {
		opts.Theme = "light"
	}
	m.statusBar.SetMessage("exporting...", false)
	return m, exportCmd(r, m.exportFormat, opts)
}

// syncStatus copies the session into the status bar.
func (m *Model) syncStatus() {
	st := m.ctrl.State()
	summary := ""
	if req, ok := m.ctrl.Request(); ok {
		summary = req.Summary()
	}
	if stats, ok := m.ctrl.Stats(); ok {
		m.statusBar.SetSession(st.Status, summary, &stats)
		return
	}
	m.statusBar.SetSession(st.Status, summary, nil)
}
