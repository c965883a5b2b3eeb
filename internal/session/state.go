// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

// =============================================================================
// STATUS
// =============================================================================

// Status is the lifecycle position of the session.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusStreaming
	StatusDone
	StatusError
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusStreaming:
		return "streaming"
	case StatusDone:
		return "done"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText lets the status appear by name in JSON and YAML output.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Active reports whether a request is in flight.
func (s Status) Active() bool {
	return s == StatusLoading || s == StatusStreaming
}

// Terminal reports whether the session finished, successfully or not.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// =============================================================================
// HANDLE
// =============================================================================

// Handle identifies one submission. The zero Handle matches nothing.
type Handle string

// Valid reports whether h is a real handle.
func (h Handle) Valid() bool { return h != "" }

// =============================================================================
// STATE
// =============================================================================

// State is the session record. Buffer only grows while Active; Err is set
// only in StatusError; Handle is set only while Active.
type State struct {
	Status Status
	Buffer string
	Err    string
	Handle Handle
}

// Idle returns the initial state.
func Idle() State { return State{} }

// =============================================================================
// EVENTS
// =============================================================================

// EventKind names an input to the state machine.
type EventKind int

const (
	// user actions
	EventSubmit EventKind = iota
	EventCancel
	EventClear

	// produced by the network reader
	EventAccepted
	EventRejected
	EventToken
	EventEnd
	EventClosed
	EventFailed
)

var eventNames = [...]string{
	EventSubmit:   "submit",
	EventCancel:   "cancel",
	EventClear:    "clear",
	EventAccepted: "accepted",
	EventRejected: "rejected",
	EventToken:    "token",
	EventEnd:      "end",
	EventClosed:   "closed",
	EventFailed:   "failed",
}

// String returns the event name.
func (k EventKind) String() string {
	if int(k) >= 0 && int(k) < len(eventNames) {
		return eventNames[k]
	}
	return "unknown"
}

// Event is one input. Text carries the token for EventToken and the
// user-facing message for EventRejected and EventFailed. Bytes and Dropped
// report transport counters on terminal network events.
type Event struct {
	Kind    EventKind
	Handle  Handle
	Text    string
	Err     error
	Bytes   int64
	Dropped int
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Transition returns the state after ev. It has no side effects; events
// that do not apply in s leave it unchanged.
func Transition(s State, ev Event) State {
	switch ev.Kind {
	case EventSubmit:
		if s.Status.Active() || !ev.Handle.Valid() {
			return s
		}
		return State{Status: StatusLoading, Handle: ev.Handle}

	case EventCancel:
		if !s.Status.Active() || ev.Handle != s.Handle {
			return s
		}
		// The partial answer stays visible until the next submit.
		return State{Status: StatusIdle, Buffer: s.Buffer}

	case EventClear:
		if !s.Status.Terminal() {
			return s
		}
		return Idle()
	}

	// Everything below is produced by a network reader and only counts for
	// the active submission.
	if !s.Status.Active() || !ev.Handle.Valid() || ev.Handle != s.Handle {
		return s
	}

	switch ev.Kind {
	case EventAccepted:
		if s.Status == StatusLoading {
			s.Status = StatusStreaming
		}
	case EventRejected:
		if s.Status == StatusLoading {
			return State{Status: StatusError, Err: ev.Text}
		}
	case EventToken:
		s.Status = StatusStreaming
		s.Buffer += ev.Text
	case EventEnd, EventClosed:
		return State{Status: StatusDone, Buffer: s.Buffer}
	case EventFailed:
		return State{Status: StatusError, Buffer: s.Buffer, Err: ev.Text}
	}
	return s
}
