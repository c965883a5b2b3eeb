// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jeranaias/fleetwise-tui/internal/logging"
	"github.com/jeranaias/fleetwise-tui/internal/model"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// DefaultBaseURL is where the backend listens by default.
const DefaultBaseURL = "http://127.0.0.1:8000"

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 * 1024

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL of the analysis service (default: http://127.0.0.1:8000)
	BaseURL string

	// Timeout for non-streaming requests such as /instances (default: 15s)
	Timeout time.Duration

	// ConnectTimeout bounds dialing for every request, including /analyse (default: 10s)
	ConnectTimeout time.Duration

	// UserAgent sent with every request
	UserAgent string

	// Logger for request logging; nil discards
	Logger *slog.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:        DefaultBaseURL,
		Timeout:        15 * time.Second,
		ConnectTimeout: 10 * time.Second,
		UserAgent:      "fleetwise",
	}
}

// ValidateBaseURL checks that raw is an absolute http(s) URL and returns it
// without a trailing slash.
func ValidateBaseURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid backend URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid backend URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid backend URL %q: missing host", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the analysis backend. It is safe for concurrent use.
type Client struct {
	config       *ClientConfig
	httpClient   *http.Client
	streamClient *http.Client
	log          *slog.Logger
}

// NewClient creates a client with the default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a client, filling zero values from DefaultConfig.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = defaults.ConnectTimeout
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   config.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext

	return &Client{
		config: config,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		// No overall timeout: an analysis streams for as long as the model
		// writes. Cancellation comes from the context.
		streamClient: &http.Client{Transport: transport},
		log:          logging.Or(config.Logger),
	}
}

// BaseURL returns the configured service URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// SIMPLE ENDPOINTS
// =============================================================================

// Health calls GET /health.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var out HealthResponse
	if err := c.getJSON(ctx, "/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListInstances calls GET /instances.
func (c *Client) ListInstances(ctx context.Context) ([]model.Instance, error) {
	var out InstancesResponse
	if err := c.getJSON(ctx, "/instances", &out); err != nil {
		return nil, err
	}
	return out.Instances, nil
}

// PreviewPrompt calls GET /preview-prompt for the given window.
func (c *Client) PreviewPrompt(ctx context.Context, window model.WindowDays) (*PromptPreview, error) {
	var out PromptPreview
	path := "/preview-prompt?window_days=" + strconv.Itoa(int(window))
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	c.log.Debug("backend request", "method", http.MethodGet, "path", path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return rejection(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return nil
}

// =============================================================================
// ANALYSIS
// =============================================================================

// Analyse issues POST /analyse and returns once the response headers have
// been accepted. A non-2xx answer is returned as *APIError without a
// stream. The returned Stream must be closed.
func (c *Client) Analyse(ctx context.Context, ar model.AnalysisRequest) (*Stream, error) {
	body, err := json.Marshal(ar)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/analyse", bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	c.log.Info("analysis requested", "summary", ar.Summary())
	start := time.Now()
	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := rejection(resp)
		c.log.Info("analysis rejected", "status", resp.StatusCode, "detail", apiErr.Detail)
		return nil, apiErr
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "text/event-stream") {
		c.log.Debug("analysis stream has unexpected content type", "content_type", ct)
	}
	c.log.Debug("analysis stream opened", "status", resp.StatusCode, "wait", time.Since(start))
	return newStream(ctx, resp.Body, c.log), nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.config.UserAgent)
}

// transportError classifies a failed Do. Cancellation is passed through as
// the context error.
func (c *Client) transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
		return ctxErr
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &ClientError{Type: ErrTypeTimeout, Message: ErrTimeout.Message, Cause: err}
	}
	c.log.Debug("backend unreachable", "url", c.config.BaseURL, "error", err)
	return &ClientError{Type: ErrTypeConnection, Message: ErrUnreachable.Message, Cause: err}
}

// rejection reads the error body of a non-2xx response.
func rejection(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{StatusCode: resp.StatusCode, Detail: decodeDetail(body)}
}
