// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/fleetwise-tui/internal/backend"
	"github.com/jeranaias/fleetwise-tui/internal/logging"
	"github.com/jeranaias/fleetwise-tui/internal/markdown"
	"github.com/jeranaias/fleetwise-tui/internal/model"
	"github.com/jeranaias/fleetwise-tui/internal/stream"
	"github.com/jeranaias/fleetwise-tui/internal/telemetry"
)

// Errors returned by Controller operations.
var (
	ErrBusy     = errors.New("an analysis is already running; cancel it first")
	ErrActive   = errors.New("cannot clear while an analysis is running; cancel it first")
	ErrNotReady = errors.New("no analysis to cancel")
)

// eventBuffer is the capacity of each session's event channel.
const eventBuffer = 64

// Analyzer starts an analysis stream. *backend.Client implements it.
type Analyzer interface {
	Analyse(ctx context.Context, req model.AnalysisRequest) (*backend.Stream, error)
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the session state. It is not safe for concurrent use:
// one goroutine (the UI update loop or the command loop) calls every method.
type Controller struct {
	analyzer Analyzer
	log      *slog.Logger
	now      func() time.Time

	state   State
	cancel  context.CancelFunc
	request *model.AnalysisRequest
	stats   *telemetry.Stats
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = logging.Or(l) }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates an idle controller.
func NewController(a Analyzer, opts ...Option) *Controller {
	c := &Controller{
		analyzer: a,
		log:      logging.Discard(),
		now:      time.Now,
		state:    Idle(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a copy of the current state.
func (c *Controller) State() State { return c.state }

// Request returns the request of the current or last session.
func (c *Controller) Request() (model.AnalysisRequest, bool) {
	if c.request == nil {
		return model.AnalysisRequest{}, false
	}
	return c.request.Clone(), true
}

// Stats returns a copy of the current session's statistics.
func (c *Controller) Stats() (telemetry.Stats, bool) {
	if c.stats == nil {
		return telemetry.Stats{}, false
	}
	return *c.stats, true
}

// Document renders the current buffer.
func (c *Controller) Document() markdown.Document {
	return markdown.Render(c.state.Buffer)
}

// Submit snapshots sel into a request, moves to loading and starts the
// producer goroutine. The returned channel delivers the session's events in
// order and is closed when the producer exits. Each event must be passed to
// Apply by the owner.
func (c *Controller) Submit(sel *model.Selection) (<-chan Event, error) {
	if c.state.Status.Active() {
		return nil, ErrBusy
	}
	req, err := sel.Snapshot()
	if err != nil {
		return nil, err
	}
	return c.SubmitRequest(req)
}

// SubmitRequest is Submit for an already composed request.
func (c *Controller) SubmitRequest(req model.AnalysisRequest) (<-chan Event, error) {
	if c.state.Status.Active() {
		return nil, ErrBusy
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	req = req.Clone()
	handle := Handle(uuid.New().String())
	ctx, cancel := context.WithCancel(context.Background())

	c.state = Transition(c.state, Event{Kind: EventSubmit, Handle: handle})
	c.cancel = cancel
	c.request = &req
	c.stats = telemetry.NewStats(c.now())

	c.log.Info("session submitted", "handle", handle, "summary", req.Summary())

	ch := make(chan Event, eventBuffer)
	go produce(ctx, c.analyzer, req, handle, ch)
	return ch, nil
}

// Apply feeds one event through Transition and performs the side effects
// of the resulting change. It reports whether the state changed; events for
// any handle but the active one are ignored.
func (c *Controller) Apply(ev Event) bool {
	prev := c.state
	next := Transition(prev, ev)
	if next == prev {
		if ev.Handle.Valid() && ev.Handle != prev.Handle {
			c.log.Debug("stale event ignored", "kind", ev.Kind.String(), "handle", ev.Handle)
		}
		return false
	}
	c.state = next

	if ev.Kind == EventToken && c.stats != nil {
		c.stats.RecordToken(ev.Text, c.now())
	}
	if prev.Status.Active() && !next.Status.Active() {
		c.finish(prev, ev)
	}
	if prev.Status != next.Status {
		c.log.Debug("session transition", "from", prev.Status.String(), "to", next.Status.String(), "event", ev.Kind.String())
	}
	return true
}

// finish releases the in-flight request after any transition out of an
// active state.
func (c *Controller) finish(prev State, ev Event) {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.stats != nil {
		if ev.Bytes > 0 || ev.Dropped > 0 {
			c.stats.RecordTransport(ev.Bytes, ev.Dropped)
		}
		c.stats.Finalize(c.now(), c.state.Buffer)
	}

	attrs := []any{"handle", prev.Handle, "status", c.state.Status.String(), "chars", len(c.state.Buffer)}
	if c.stats != nil {
		attrs = append(attrs, "stats", c.stats.Format())
	}
	switch c.state.Status {
	case StatusError:
		attrs = append(attrs, "error", c.state.Err)
		if ev.Err != nil {
			attrs = append(attrs, "cause", ev.Err)
		}
		c.log.Warn("session failed", attrs...)
	case StatusIdle:
		c.log.Info("session cancelled", attrs...)
	default:
		c.log.Info("session finished", attrs...)
	}
}

// Cancel aborts the in-flight request and returns to idle. Events still
// queued from the cancelled session are ignored by Apply.
func (c *Controller) Cancel() error {
	if !c.state.Status.Active() {
		return ErrNotReady
	}
	c.Apply(Event{Kind: EventCancel, Handle: c.state.Handle})
	return nil
}

// Clear resets a finished session to idle. Clearing an idle session does
// nothing; clearing an active one is refused.
func (c *Controller) Clear() error {
	if c.state.Status.Active() {
		return ErrActive
	}
	c.Apply(Event{Kind: EventClear})
	return nil
}

// Wait applies events from ch until the session leaves the active states,
// the channel closes, or ctx is done, in which case the session is
// cancelled. onChange, if set, runs after every applied event. It is the
// owner loop for headless use.
func (c *Controller) Wait(ctx context.Context, ch <-chan Event, onChange func(State, Event)) State {
	for c.state.Status.Active() {
		select {
		case <-ctx.Done():
			_ = c.Cancel()
			if onChange != nil {
				onChange(c.state, Event{Kind: EventCancel})
			}
			return c.state
		case ev, ok := <-ch:
			if !ok {
				return c.state
			}
			if c.Apply(ev) && onChange != nil {
				onChange(c.state, ev)
			}
		}
	}
	return c.state
}

// =============================================================================
// PRODUCER
// =============================================================================

// produce runs in its own goroutine for one submission. It only sends
// events tagged with handle; it never touches controller state.
func produce(ctx context.Context, a Analyzer, req model.AnalysisRequest, handle Handle, ch chan<- Event) {
	defer close(ch)

	send := func(ev Event) bool {
		ev.Handle = handle
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	s, err := a.Analyse(ctx, req)
	if err != nil {
		switch {
		case backend.IsCanceled(err) || ctx.Err() != nil:
		case backend.IsRejected(err):
			send(Event{Kind: EventRejected, Text: backend.UserMessage(err), Err: err})
		default:
			send(Event{Kind: EventFailed, Text: backend.UserMessage(err), Err: err})
		}
		return
	}
	defer s.Close()

	if !send(Event{Kind: EventAccepted}) {
		return
	}

	for {
		sev, err := s.Next()
		switch {
		case err == nil && sev.Kind == stream.EventEnd:
			send(Event{Kind: EventEnd, Bytes: s.BytesRead(), Dropped: s.Dropped()})
			return
		case err == nil:
			if !send(Event{Kind: EventToken, Text: sev.Text}) {
				return
			}
		case errors.Is(err, io.EOF):
			send(Event{Kind: EventClosed, Bytes: s.BytesRead(), Dropped: s.Dropped()})
			return
		case backend.IsCanceled(err) || ctx.Err() != nil:
			return
		default:
			send(Event{Kind: EventFailed, Text: backend.UserMessage(err), Err: err, Bytes: s.BytesRead(), Dropped: s.Dropped()})
			return
		}
	}
}
