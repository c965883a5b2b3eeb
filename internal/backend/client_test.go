// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/fleetwise-tui/internal/model"
	"github.com/jeranaias/fleetwise-tui/internal/stream"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClientWithConfig(&ClientConfig{BaseURL: srv.URL + "/", Timeout: 2 * time.Second})
}

func defaultRequest() model.AnalysisRequest {
	return model.AnalysisRequest{WindowDays: 30, Focus: []model.Focus{model.FocusRightsizing}}
}

func drain(t *testing.T, s *Stream) ([]stream.Event, error) {
	t.Helper()
	var out []stream.Event
	for {
		ev, err := s.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
}

// =============================================================================
// CONFIG TESTS
// =============================================================================

func TestValidateBaseURL(t *testing.T) {
	got, err := ValidateBaseURL("https://analysis.internal:8443/")
	require.NoError(t, err)
	assert.Equal(t, "https://analysis.internal:8443", got)

	for _, bad := range []string{"ftp://x", "localhost:8000", "http://", "::"} {
		_, err := ValidateBaseURL(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewClientWithConfig_FillsDefaults(t *testing.T) {
	c := NewClientWithConfig(&ClientConfig{})
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, 15*time.Second, c.config.Timeout)
	assert.Equal(t, "fleetwise", c.config.UserAgent)
}

// =============================================================================
// SIMPLE ENDPOINT TESTS
// =============================================================================

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		assert.Equal(t, "fleetwise", r.Header.Get("User-Agent"))
		fmt.Fprint(w, `{"status":"ok","model":"llama3.1:8b"}`)
	})

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, h.OK())
	assert.Equal(t, "llama3.1:8b", h.Model)
}

func TestListInstances(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"instances":[{"instance_id":"i-1","instance_name":"web","instance_type":"t3.large","az":"eu-west-1a","platform":null},{"instance_id":"i-2","instance_type":"m5.large","az":"eu-west-1b"}]}`)
	})

	list, err := c.ListInstances(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "web", list[0].DisplayName())
	assert.Equal(t, "i-2", list[1].DisplayName())
}

func TestPreviewPrompt(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "60", r.URL.Query().Get("window_days"))
		json.NewEncoder(w).Encode(PromptPreview{InstanceCount: 3, PromptChars: 1200, UserPrompt: "u"})
	})

	p, err := c.PreviewPrompt(context.Background(), 60)
	require.NoError(t, err)
	assert.Equal(t, 3, p.InstanceCount)
}

func TestListInstances_NoData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"detail":"No instance data in the last 30 days."}`)
	})

	_, err := c.ListInstances(context.Background())
	require.Error(t, err)
	assert.True(t, IsRejected(err))
	assert.Equal(t, "No instance data in the last 30 days.", err.Error())
}

func TestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClientWithConfig(&ClientConfig{BaseURL: url, ConnectTimeout: time.Second})
	_, err := c.Health(context.Background())
	require.Error(t, err)
	assert.True(t, IsConnection(err))
	assert.Equal(t, ErrUnreachable.Message, UserMessage(err))
}

// =============================================================================
// ANALYSE TESTS
// =============================================================================

func TestAnalyse_Streams(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/analyse", r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(30), body["window_days"])
		assert.Equal(t, []any{}, body["instance_ids"])
		assert.Nil(t, body["question"])

		w.Header().Set("Content-Type", "text/event-stream")
		f := w.(http.Flusher)
		for _, part := range []string{`data: {"tok`, `en": "## Hi"}` + "\n\n", "garbage\n", `data: {"token": "!"}` + "\n\ndata: [DONE]\n\n"} {
			fmt.Fprint(w, part)
			f.Flush()
		}
	})

	s, err := c.Analyse(context.Background(), defaultRequest())
	require.NoError(t, err)
	defer s.Close()

	evs, err := drain(t, s)
	require.NoError(t, err)
	assert.Equal(t, []stream.Event{stream.Token("## Hi"), stream.Token("!"), stream.End()}, evs)
	assert.Equal(t, 1, s.Dropped())
	assert.Positive(t, s.BytesRead())
	assert.NoError(t, s.Close())
}

func TestAnalyse_RejectedWithDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"detail":"window_days must be one of [10,30,60,90]"}`)
	})

	s, err := c.Analyse(context.Background(), defaultRequest())
	assert.Nil(t, s)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, "window_days must be one of [10,30,60,90]", UserMessage(err))
}

func TestAnalyse_RejectedWithoutDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "<html>bad gateway</html>")
	})

	_, err := c.Analyse(context.Background(), defaultRequest())
	require.Error(t, err)
	assert.Equal(t, "analysis request failed (HTTP 502)", UserMessage(err))
}

func TestAnalyse_CleanCloseWithoutSentinel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"token\": \"a\"}\n\ndata: {\"token\": \"tail")
	})

	s, err := c.Analyse(context.Background(), defaultRequest())
	require.NoError(t, err)
	defer s.Close()

	evs, err := drain(t, s)
	require.NoError(t, err)
	assert.Equal(t, []stream.Event{stream.Token("a")}, evs)
}

func TestAnalyse_ConnectionDropsMidStream(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"token\": \"partial\"}\n\n")
		w.(http.Flusher).Flush()

		conn, _, err := w.(http.Hijacker).Hijack()
		if !assert.NoError(t, err) {
			return
		}
		conn.Close()
	})

	s, err := c.Analyse(context.Background(), defaultRequest())
	require.NoError(t, err)
	defer s.Close()

	evs, err := drain(t, s)
	require.Error(t, err)
	assert.Equal(t, []stream.Event{stream.Token("partial")}, evs)

	var ce *ClientError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrTypeStream, ce.Type)
	assert.False(t, IsCanceled(err))
}

func TestAnalyse_CancelUnblocksRead(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"token\": \"first\"}\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	s, err := c.Analyse(ctx, defaultRequest())
	require.NoError(t, err)
	defer s.Close()

	ev, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, stream.Token("first"), ev)

	done := make(chan error, 1)
	go func() {
		_, err := s.Next()
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.True(t, IsCanceled(err), "got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after cancel")
	}
}

// =============================================================================
// DETAIL DECODING TESTS
// =============================================================================

func TestDecodeDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string", `{"detail":"boom"}`, "boom"},
		{"validation list", `{"detail":[{"loc":["body","window_days"],"msg":"must be one of [10,30,60,90]","type":"value_error"},{"loc":["body"],"msg":"bad focus"}]}`, "window_days: must be one of [10,30,60,90]; bad focus"},
		{"null", `{"detail":null}`, ""},
		{"missing", `{"error":"x"}`, ""},
		{"not json", `oops`, ""},
		{"object", `{"detail":{"code":7}}`, `{"code":7}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeDetail([]byte(tt.body)))
		})
	}
}
