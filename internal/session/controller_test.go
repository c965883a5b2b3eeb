// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/fleetwise-tui/internal/backend"
	"github.com/jeranaias/fleetwise-tui/internal/model"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

// pipeAnalyzer hands each Analyse call a pipe whose write end the test drives.
type pipeAnalyzer struct {
	mu       sync.Mutex
	requests []model.AnalysisRequest
	writers  chan *io.PipeWriter
	reject   error
}

func newPipeAnalyzer() *pipeAnalyzer {
	return &pipeAnalyzer{writers: make(chan *io.PipeWriter, 4)}
}

func (p *pipeAnalyzer) Analyse(ctx context.Context, req model.AnalysisRequest) (*backend.Stream, error) {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	reject := p.reject
	p.mu.Unlock()
	if reject != nil {
		return nil, reject
	}

	pr, pw := io.Pipe()
	go func() {
		<-ctx.Done()
		pr.CloseWithError(ctx.Err())
	}()
	p.writers <- pw
	return backend.NewStream(ctx, pr), nil
}

func (p *pipeAnalyzer) next(t *testing.T) *io.PipeWriter {
	t.Helper()
	select {
	case w := <-p.writers:
		return w
	case <-time.After(2 * time.Second):
		t.Fatal("Analyse was not called")
		return nil
	}
}

// writeToken runs on producer goroutines, so it reports with assert rather
// than stopping the test from the wrong goroutine.
func writeToken(t *testing.T, w *io.PipeWriter, text string) {
	t.Helper()
	_, err := fmt.Fprintf(w, "data: {\"token\": %q}\n\n", text)
	assert.NoError(t, err)
}

// recv waits for the next event on ch.
func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "event channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
		return Event{}
	}
}

func selection() *model.Selection {
	sel := model.DefaultSelection()
	sel.Question = "Which instances are oversized?"
	return sel
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestController_StreamToDone(t *testing.T) {
	a := newPipeAnalyzer()
	c := NewController(a)

	ch, err := c.Submit(selection())
	require.NoError(t, err)
	assert.Equal(t, StatusLoading, c.State().Status)

	w := a.next(t)
	go func() {
		writeToken(t, w, "## Findings\n\n")
		writeToken(t, w, "- i-0abc is idle\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
		w.Close()
	}()

	var seen []Status
	final := c.Wait(context.Background(), ch, func(s State, _ Event) { seen = append(seen, s.Status) })

	assert.Equal(t, StatusDone, final.Status)
	assert.Equal(t, "## Findings\n\n- i-0abc is idle\n", final.Buffer)
	assert.Equal(t, []Status{StatusStreaming, StatusStreaming, StatusStreaming, StatusDone}, seen)
	assert.Equal(t, 2, c.Document().Len())

	stats, ok := c.Stats()
	require.True(t, ok)
	assert.True(t, stats.Finished())
	assert.Equal(t, 2, stats.TokenEvents)
	assert.Positive(t, stats.Bytes)
}

func TestController_RejectedGoesStraightToError(t *testing.T) {
	a := newPipeAnalyzer()
	a.reject = &backend.APIError{StatusCode: http.StatusUnprocessableEntity, Detail: "window_days must be one of [10,30,60,90]"}
	c := NewController(a)

	ch, err := c.Submit(selection())
	require.NoError(t, err)

	var seen []Status
	final := c.Wait(context.Background(), ch, func(s State, _ Event) { seen = append(seen, s.Status) })

	assert.Equal(t, []Status{StatusError}, seen)
	assert.Equal(t, StatusError, final.Status)
	assert.Equal(t, "window_days must be one of [10,30,60,90]", final.Err)
	assert.Empty(t, final.Buffer)
}

func TestController_UnreachableIsError(t *testing.T) {
	a := newPipeAnalyzer()
	a.reject = &backend.ClientError{Type: backend.ErrTypeConnection, Message: "dial", Cause: errors.New("refused")}
	c := NewController(a)

	ch, err := c.Submit(selection())
	require.NoError(t, err)
	final := c.Wait(context.Background(), ch, nil)
	assert.Equal(t, StatusError, final.Status)
	assert.Equal(t, backend.ErrUnreachable.Message, final.Err)
}

func TestController_MidStreamFailureKeepsBuffer(t *testing.T) {
	a := newPipeAnalyzer()
	c := NewController(a)

	ch, err := c.Submit(selection())
	require.NoError(t, err)
	w := a.next(t)
	go func() {
		writeToken(t, w, "partial")
		w.CloseWithError(errors.New("connection reset by peer"))
	}()

	final := c.Wait(context.Background(), ch, nil)
	assert.Equal(t, StatusError, final.Status)
	assert.Equal(t, "partial", final.Buffer)
	assert.Equal(t, backend.StreamInterruptedMessage, final.Err)
}

func TestController_CleanCloseIsDone(t *testing.T) {
	a := newPipeAnalyzer()
	c := NewController(a)

	ch, err := c.Submit(selection())
	require.NoError(t, err)
	w := a.next(t)
	go func() {
		writeToken(t, w, "no sentinel")
		fmt.Fprint(w, "data: {\"token\": \"trunc")
		w.Close()
	}()

	final := c.Wait(context.Background(), ch, nil)
	assert.Equal(t, State{Status: StatusDone, Buffer: "no sentinel"}, final)
}

// =============================================================================
// CANCELLATION TESTS
// =============================================================================

func TestController_CancelThenRestartNeverLeaks(t *testing.T) {
	a := newPipeAnalyzer()
	c := NewController(a)

	chA, err := c.Submit(selection())
	require.NoError(t, err)
	wA := a.next(t)
	handleA := c.State().Handle

	go writeToken(t, wA, "from A")
	require.True(t, c.Apply(recv(t, chA))) // accepted
	require.True(t, c.Apply(recv(t, chA))) // token

	require.NoError(t, c.Cancel())
	assert.Equal(t, State{Status: StatusIdle, Buffer: "from A"}, c.State())

	chB, err := c.Submit(selection())
	require.NoError(t, err)
	wB := a.next(t)
	assert.NotEqual(t, handleA, c.State().Handle)
	assert.Empty(t, c.State().Buffer)

	// An event from A that was already in flight at cancel time.
	assert.False(t, c.Apply(Event{Kind: EventToken, Handle: handleA, Text: "stale"}))
	assert.False(t, c.Apply(Event{Kind: EventEnd, Handle: handleA}))
	// Whatever A's producer still had queued is ignored as well.
	for ev := range chA {
		assert.False(t, c.Apply(ev))
	}

	go func() {
		writeToken(t, wB, "from B")
		fmt.Fprint(wB, "data: [DONE]\n\n")
		wB.Close()
	}()
	final := c.Wait(context.Background(), chB, nil)
	assert.Equal(t, State{Status: StatusDone, Buffer: "from B"}, final)
}

func TestController_WaitCancelsOnContext(t *testing.T) {
	a := newPipeAnalyzer()
	c := NewController(a)

	ch, err := c.Submit(selection())
	require.NoError(t, err)
	w := a.next(t)
	go writeToken(t, w, "slow")

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan State, 1)
	go func() { got <- c.Wait(ctx, ch, nil) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case s := <-got:
		assert.Equal(t, StatusIdle, s.Status)
		assert.Empty(t, s.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after cancel")
	}

	// The producer exits and closes its channel once the request is aborted.
	select {
	case <-drainClosed(ch):
	case <-time.After(2 * time.Second):
		t.Fatal("producer goroutine did not exit")
	}
}

func drainClosed(ch <-chan Event) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		for range ch {
		}
		close(done)
	}()
	return done
}

// =============================================================================
// GUARD TESTS
// =============================================================================

func TestController_Guards(t *testing.T) {
	a := newPipeAnalyzer()
	c := NewController(a)

	assert.ErrorIs(t, c.Cancel(), ErrNotReady)
	assert.NoError(t, c.Clear(), "clear from idle is a no-op")

	ch, err := c.Submit(selection())
	require.NoError(t, err)
	w := a.next(t)

	_, err = c.Submit(selection())
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, c.Clear(), ErrActive)

	go func() {
		writeToken(t, w, "x")
		w.Close()
	}()
	c.Wait(context.Background(), ch, nil)
	require.Equal(t, StatusDone, c.State().Status)

	require.NoError(t, c.Clear())
	assert.Equal(t, Idle(), c.State())
}

func TestController_InvalidSelectionLeavesStateAlone(t *testing.T) {
	c := NewController(newPipeAnalyzer())
	sel := model.NewSelection(30, nil)

	_, err := c.Submit(sel)
	assert.ErrorIs(t, err, model.ErrEmptyFocus)
	assert.Equal(t, Idle(), c.State())
}

func TestController_RequestIsSnapshot(t *testing.T) {
	a := newPipeAnalyzer()
	c := NewController(a)
	sel := selection()
	sel.ToggleInstance("i-0abc")

	ch, err := c.Submit(sel)
	require.NoError(t, err)
	w := a.next(t)

	// Edits after submission never reach the in-flight request.
	sel.ToggleInstance("i-0def")
	sel.Window = 90
	sel.Question = "changed"

	req, ok := c.Request()
	require.True(t, ok)
	assert.Equal(t, []string{"i-0abc"}, req.InstanceIDs)
	assert.Equal(t, model.WindowDays(30), req.WindowDays)
	assert.Equal(t, "Which instances are oversized?", req.QuestionText())

	a.mu.Lock()
	sent := a.requests[0]
	a.mu.Unlock()
	assert.Equal(t, req, sent)

	w.Close()
	c.Wait(context.Background(), ch, nil)
}
