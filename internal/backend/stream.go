// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/jeranaias/fleetwise-tui/internal/logging"
	"github.com/jeranaias/fleetwise-tui/internal/stream"
)

// Stream is an open /analyse response body.
type Stream struct {
	ctx    context.Context
	body   io.ReadCloser
	reader *stream.Reader
	log    *slog.Logger

	closeOnce sync.Once
}

func newStream(ctx context.Context, body io.ReadCloser, log *slog.Logger) *Stream {
	r := stream.NewReader(body)
	log = logging.Or(log)
	r.Demuxer().OnDrop = func(line []byte) {
		log.Debug("dropped stream line", "line", logging.Preview(string(line)))
	}
	return &Stream{ctx: ctx, body: body, reader: r, log: log}
}

// NewStream wraps an arbitrary body, for callers that already hold one.
func NewStream(ctx context.Context, body io.ReadCloser) *Stream {
	return newStream(ctx, body, nil)
}

// Next returns the next event. It returns io.EOF when the backend closed the
// stream cleanly, the context error after cancellation, and a *ClientError
// of type ErrTypeStream when the connection broke.
func (s *Stream) Next() (stream.Event, error) {
	ev, err := s.reader.Next()
	if err == nil {
		return ev, nil
	}
	if errors.Is(err, io.EOF) {
		return stream.Event{}, io.EOF
	}
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		return stream.Event{}, ctxErr
	}
	s.log.Info("analysis stream broke", "error", err, "bytes", s.reader.BytesRead())
	return stream.Event{}, &ClientError{Type: ErrTypeStream, Message: StreamInterruptedMessage, Cause: err}
}

// BytesRead returns the number of body bytes consumed.
func (s *Stream) BytesRead() int64 { return s.reader.BytesRead() }

// Dropped returns the number of discarded framing lines.
func (s *Stream) Dropped() int { return s.reader.Demuxer().Dropped() }

// Close releases the response body. It is safe to call more than once.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.body.Close() })
	return err
}
