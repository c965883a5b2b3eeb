// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"encoding/json"
)

// =============================================================================
// FRAMING CONSTANTS
// =============================================================================

const (
	// DataPrefix marks a line carrying an event payload.
	DataPrefix = "data:"

	// DoneSentinel is the payload that terminates a stream.
	DoneSentinel = "[DONE]"

	// MaxLineSize bounds the residual buffer. A line that grows past it
	// without a terminator is discarded as noise.
	MaxLineSize = 1 << 20
)

// =============================================================================
// EVENTS
// =============================================================================

// EventKind distinguishes token events from the end marker.
type EventKind int

const (
	EventToken EventKind = iota
	EventEnd
)

// String returns the kind name.
func (k EventKind) String() string {
	switch k {
	case EventToken:
		return "token"
	case EventEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Event is one decoded stream event. Text is empty for EventEnd.
type Event struct {
	Kind EventKind
	Text string
}

// Token returns a token event.
func Token(text string) Event { return Event{Kind: EventToken, Text: text} }

// End returns the end event.
func End() Event { return Event{Kind: EventEnd} }

// tokenCarrier is the JSON object each token line carries.
type tokenCarrier struct {
	Token *string `json:"token"`
}

// =============================================================================
// DEMUXER
// =============================================================================

// Demuxer turns chunks into events. It is not safe for concurrent use; one
// Demuxer belongs to one stream.
type Demuxer struct {
	residual []byte
	dropped  int
	events   int

	// OnDrop, when set, is called with every discarded line.
	OnDrop func(line []byte)
}

// NewDemuxer returns an empty demuxer.
func NewDemuxer() *Demuxer {
	return &Demuxer{}
}

// Feed appends chunk to the residual buffer and returns every event completed
// by it, in arrival order. The remainder after the last line terminator is
// kept for the next call.
func (d *Demuxer) Feed(chunk []byte) []Event {
	d.residual = append(d.residual, chunk...)

	var out []Event
	for {
		i := bytes.IndexByte(d.residual, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSuffix(d.residual[:i], []byte{'\r'})
		if ev, ok := d.parseLine(line); ok {
			out = append(out, ev)
		}
		d.residual = d.residual[i+1:]
	}

	if len(d.residual) > MaxLineSize {
		d.drop(d.residual)
		d.residual = nil
	}
	if len(d.residual) == 0 {
		// release the backing array between lines
		d.residual = nil
	}
	return out
}

// Close signals the end of the source. Any unterminated remainder is an
// incomplete fragment and is discarded; the number of discarded bytes is
// returned.
func (d *Demuxer) Close() int {
	n := len(d.residual)
	if n > 0 {
		d.drop(d.residual)
	}
	d.residual = nil
	return n
}

// Pending returns the number of buffered bytes not yet forming a line.
func (d *Demuxer) Pending() int { return len(d.residual) }

// Dropped returns how many non-blank lines were discarded so far.
func (d *Demuxer) Dropped() int { return d.dropped }

// Events returns how many events were emitted so far.
func (d *Demuxer) Events() int { return d.events }

func (d *Demuxer) parseLine(line []byte) (Event, bool) {
	if len(bytes.TrimSpace(line)) == 0 {
		// event separator
		return Event{}, false
	}
	if !bytes.HasPrefix(line, []byte(DataPrefix)) {
		d.drop(line)
		return Event{}, false
	}

	payload := bytes.TrimSpace(line[len(DataPrefix):])
	if string(payload) == DoneSentinel {
		d.events++
		return End(), true
	}

	var carrier tokenCarrier
	if err := json.Unmarshal(payload, &carrier); err != nil || carrier.Token == nil {
		d.drop(line)
		return Event{}, false
	}
	d.events++
	return Token(*carrier.Token), true
}

func (d *Demuxer) drop(line []byte) {
	d.dropped++
	if d.OnDrop != nil {
		d.OnDrop(line)
	}
}
