// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/jeranaias/fleetwise-tui/internal/logging"
	"github.com/jeranaias/fleetwise-tui/internal/model"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is where the real backend listens.
	DefaultAddr = "127.0.0.1:8000"

	// ModelName is reported by /health.
	ModelName = "mock-analyst"

	// MaxRequestBodySize bounds POST bodies.
	MaxRequestBodySize = 64 * 1024

	// MaxQuestionLength mirrors the client's hard limit.
	MaxQuestionLength = 20000
)

// Fault markers recognised in the question text.
const (
	FaultFailMidstream = "#fail-midstream"
	FaultNoDone        = "#no-done"
	FaultGarbage       = "#garbage"
)

// ============================================================================
// SERVER STATS
// ============================================================================

// ServerStats counts what the mock has served.
type ServerStats struct {
	Requests  atomic.Int64
	Analyses  atomic.Int64
	Rejected  atomic.Int64
	Tokens    atomic.Int64
	StartTime time.Time
}

// StatsSnapshot is the JSON form of ServerStats.
type StatsSnapshot struct {
	Requests int64  `json:"requests"`
	Analyses int64  `json:"analyses"`
	Rejected int64  `json:"rejected"`
	Tokens   int64  `json:"tokens"`
	Uptime   string `json:"uptime"`
}

// Snapshot copies the counters.
func (s *ServerStats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Requests: s.Requests.Load(),
		Analyses: s.Analyses.Load(),
		Rejected: s.Rejected.Load(),
		Tokens:   s.Tokens.Load(),
		Uptime:   time.Since(s.StartTime).Truncate(time.Second).String(),
	}
}

// ============================================================================
// OPTIONS
// ============================================================================

// Options configures the mock.
type Options struct {
	// Fleet served by /instances and analysed by /analyse (default: DefaultFleet()).
	Fleet Fleet

	// TokensPerSecond paces the stream; 0 sends as fast as possible.
	TokensPerSecond float64

	// Burst is the limiter burst (default: 1).
	Burst int

	// FailInventory makes /instances answer 500.
	FailInventory bool

	Logger *slog.Logger
}

// ============================================================================
// SERVER
// ============================================================================

// Server is a stand-in for the analysis backend with the same wire contract.
type Server struct {
	opts   Options
	router *chi.Mux
	stats  *ServerStats
	log    *slog.Logger
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Fleet == nil {
		opts.Fleet = DefaultFleet()
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	s := &Server{
		opts:   opts,
		router: chi.NewRouter(),
		stats:  &ServerStats{StartTime: time.Now()},
		log:    logging.Or(opts.Logger),
	}
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler, for httptest or a custom listener.
func (s *Server) Handler() http.Handler { return s.router }

// Stats returns the live counters.
func (s *Server) Stats() *ServerStats { return s.stats }

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully. ready, if set, receives the bound address.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	if ready != nil {
		ready(ln.Addr())
	}
	s.log.Info("mock backend listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// ============================================================================
// ROUTES
// ============================================================================

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(LoggingMiddleware(s.log))
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.countRequests)

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/instances", s.handleInstances)
	s.router.Get("/preview-prompt", s.handlePreviewPrompt)
	s.router.Get("/stats", s.handleStats)
	s.router.Post("/analyse", s.handleAnalyse)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.stats.Requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

// ============================================================================
// SIMPLE HANDLERS
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "model": ModelName})
}

func (s *Server) handleInstances(w http.ResponseWriter, r *http.Request) {
	if s.opts.FailInventory {
		writeDetail(w, http.StatusInternalServerError, "metrics database is unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"instances": s.opts.Fleet.Instances()})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

func (s *Server) handlePreviewPrompt(w http.ResponseWriter, r *http.Request) {
	window := model.DefaultWindow
	if raw := r.URL.Query().Get("window_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || !model.WindowDays(n).Valid() {
			s.stats.Rejected.Add(1)
			writeValidation(w, fieldError{Loc: []any{"query", "window_days"}, Msg: model.ErrInvalidWindow.Error(), Type: "value_error"})
			return
		}
		window = model.WindowDays(n)
	}

	rows := s.opts.Fleet.Select(nil)
	p := BuildPrompts(rows, window, model.AllFocus, "")
	writeJSON(w, http.StatusOK, map[string]any{
		"instance_count": len(rows),
		"prompt_chars":   len(p.User),
		"system_prompt":  p.System,
		"user_prompt":    p.User,
	})
}

// ============================================================================
// ANALYSE
// ============================================================================

// fieldError is one entry of a validation failure body.
type fieldError struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// validate checks a decoded request the way the backend's schema does.
func validate(req model.AnalysisRequest) []fieldError {
	var errs []fieldError
	if !req.WindowDays.Valid() {
		errs = append(errs, fieldError{Loc: []any{"body", "window_days"}, Msg: model.ErrInvalidWindow.Error(), Type: "value_error"})
	}
	if len(req.Focus) == 0 {
		errs = append(errs, fieldError{Loc: []any{"body", "focus"}, Msg: model.ErrEmptyFocus.Error(), Type: "value_error"})
	}
	for i, f := range req.Focus {
		if !f.Valid() {
			errs = append(errs, fieldError{Loc: []any{"body", "focus", i}, Msg: fmt.Sprintf("unknown focus %q", f), Type: "enum"})
		}
	}
	if q := req.QuestionText(); len(q) > MaxQuestionLength {
		errs = append(errs, fieldError{Loc: []any{"body", "question"}, Msg: fmt.Sprintf("at most %d characters", MaxQuestionLength), Type: "string_too_long"})
	}
	return errs
}

func (s *Server) handleAnalyse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req model.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.stats.Rejected.Add(1)
		s.log.Debug("invalid analyse body", "error", err)
		writeValidation(w, fieldError{Loc: []any{"body"}, Msg: "request body is not valid JSON", Type: "json_invalid"})
		return
	}
	if errs := validate(req); len(errs) > 0 {
		s.stats.Rejected.Add(1)
		writeValidation(w, errs...)
		return
	}

	rows := s.opts.Fleet.Select(req.InstanceIDs)
	if len(rows) == 0 {
		s.stats.Rejected.Add(1)
		writeDetail(w, http.StatusNotFound,
			fmt.Sprintf("No data found for window=%dd. Check that metrics have been collected for the selected instances.", int(req.WindowDays)))
		return
	}

	question := req.QuestionText()
	report := ComposeReport(rows, req.WindowDays, req.Focus, stripFaults(question))
	s.stats.Analyses.Add(1)
	s.log.Info("analysis streaming", "summary", req.Summary(), "instances", len(rows), "chars", len(report))

	s.streamReport(w, r, report, question)
}

// streamReport writes report as token events, applying any fault named in
// the question.
func (s *Server) streamReport(w http.ResponseWriter, r *http.Request, report, question string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeDetail(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	ctx := r.Context()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var limiter *rate.Limiter
	if s.opts.TokensPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.opts.TokensPerSecond), s.opts.Burst)
	}

	tokens := Tokenize(report)
	failAt := -1
	if strings.Contains(question, FaultFailMidstream) {
		failAt = len(tokens) / 2
	}
	garbage := strings.Contains(question, FaultGarbage)

	for i, tok := range tokens {
		if i == failAt {
			s.log.Info("dropping connection mid-stream", "after_tokens", i)
			// aborts the response without the terminating chunk
			panic(http.ErrAbortHandler)
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}
		if garbage && i%3 == 0 {
			fmt.Fprint(w, garbageLines[(i/3)%len(garbageLines)])
		}
		payload, _ := json.Marshal(map[string]string{"token": tok})
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return
		}
		flusher.Flush()
		s.stats.Tokens.Add(1)
	}

	if strings.Contains(question, FaultNoDone) {
		return
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// garbageLines are framing errors a lenient client must skip.
var garbageLines = []string{
	": keep-alive\n\n",
	"data: {\"token\": unterminated\n\n",
	"event: ping\n\n",
	"data: {\"text\": \"wrong key\"}\n\n",
	"data: [1, 2, 3]\n\n",
}

// stripFaults removes fault markers so they do not appear in the report.
func stripFaults(q string) string {
	for _, f := range []string{FaultFailMidstream, FaultNoDone, FaultGarbage} {
		q = strings.ReplaceAll(q, f, "")
	}
	return strings.Join(strings.Fields(q), " ")
}

// Tokenize splits text into model-sized pieces: each word keeps its
// trailing whitespace, so joining the tokens restores text exactly.
func Tokenize(text string) []string {
	var out []string
	start := 0
	inSpace := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if inSpace && !space {
			out = append(out, text[start:i])
			start = i
		}
		inSpace = space
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// ============================================================================
// RESPONSE HELPERS
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail sends the backend's error envelope.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeValidation sends a 422 with a list detail.
func writeValidation(w http.ResponseWriter, errs ...fieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string][]fieldError{"detail": errs})
}
