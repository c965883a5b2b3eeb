// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"io"
)

// DefaultReadSize is the size of each read from the source.
const DefaultReadSize = 4 * 1024

// Reader pulls chunks from an io.Reader and yields events one at a time.
//
// Next returns io.EOF once the source closed cleanly and every event has been
// delivered. Any other error is a transport failure and is returned as is, so
// callers can tell a finished stream from a broken one.
type Reader struct {
	src     io.Reader
	demux   *Demuxer
	buf     []byte
	pending []Event
	err     error
	bytes   int64
}

// NewReader wraps src.
func NewReader(src io.Reader) *Reader {
	return NewReaderSize(src, DefaultReadSize)
}

// NewReaderSize wraps src using reads of at most size bytes.
func NewReaderSize(src io.Reader, size int) *Reader {
	if size <= 0 {
		size = DefaultReadSize
	}
	return &Reader{
		src:   src,
		demux: NewDemuxer(),
		buf:   make([]byte, size),
	}
}

// Demuxer exposes the underlying demuxer for statistics and drop hooks.
func (r *Reader) Demuxer() *Demuxer { return r.demux }

// BytesRead returns the number of bytes consumed from the source.
func (r *Reader) BytesRead() int64 { return r.bytes }

// Next returns the next event.
func (r *Reader) Next() (Event, error) {
	for len(r.pending) == 0 {
		if r.err != nil {
			return Event{}, r.err
		}
		n, err := r.src.Read(r.buf)
		if n > 0 {
			r.bytes += int64(n)
			r.pending = append(r.pending, r.demux.Feed(r.buf[:n])...)
		}
		switch {
		case errors.Is(err, io.EOF):
			r.demux.Close()
			r.err = io.EOF
		case err != nil:
			r.err = err
		}
	}

	ev := r.pending[0]
	r.pending = r.pending[1:]
	return ev, nil
}

// ReadAll drains the reader. It returns the events seen and nil on a clean
// close, or the events seen so far and the transport error.
func ReadAll(src io.Reader) ([]Event, error) {
	r := NewReader(src)
	var out []Event
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
}
