// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeInvalidResponse
	ErrTypeStream
)

// String returns a short name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConnection:
		return "connection"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeInvalidResponse:
		return "invalid_response"
	case ErrTypeStream:
		return "stream"
	default:
		return "unknown"
	}
}

// ClientError is a transport-level failure talking to the backend.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Sentinel errors for easy checking.
var (
	ErrUnreachable = &ClientError{Type: ErrTypeConnection, Message: "analysis backend is not reachable"}
	ErrTimeout     = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
)

// APIError is a non-2xx answer. Detail is the backend's own message when it
// sent one.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return GenericMessage(e.StatusCode)
}

// GenericMessage is shown when a rejection carries no detail.
func GenericMessage(status int) string {
	return fmt.Sprintf("analysis request failed (HTTP %d)", status)
}

// StreamInterruptedMessage is shown when the stream breaks mid-answer.
const StreamInterruptedMessage = "connection to the analysis backend was lost"

// =============================================================================
// DETAIL DECODING
// =============================================================================

// errorBody is the error envelope: {"detail": "..."} or, for validation
// failures, {"detail": [{"loc": [...], "msg": "..."}]}.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type validationItem struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

// decodeDetail extracts a human-readable message from an error body, or ""
// when there is none.
func decodeDetail(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(eb.Detail, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var items []validationItem
	if err := json.Unmarshal(eb.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg == "" {
				continue
			}
			if field := locField(it.Loc); field != "" {
				msgs = append(msgs, field+": "+it.Msg)
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	if string(eb.Detail) == "null" {
		return ""
	}
	return string(eb.Detail)
}

// locField returns the last string element of a validation location, which
// names the offending field.
func locField(loc []any) string {
	for i := len(loc) - 1; i >= 0; i-- {
		if s, ok := loc[i].(string); ok && s != "body" {
			return s
		}
	}
	return ""
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// IsRejected reports whether err is a non-2xx answer from the backend.
func IsRejected(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// IsConnection reports whether the backend could not be reached.
func IsConnection(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce) && ce.Type == ErrTypeConnection
}

// IsTimeout reports whether the request timed out.
func IsTimeout(err error) bool {
	var ce *ClientError
	if errors.As(err, &ce) && ce.Type == ErrTypeTimeout {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsCanceled reports whether err came from the caller cancelling the context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled)
}

// UserMessage returns the text to show an operator for err: the backend's
// detail for rejections, a generic line for everything else.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	var ce *ClientError
	if errors.As(err, &ce) {
		switch ce.Type {
		case ErrTypeStream:
			return StreamInterruptedMessage
		case ErrTypeTimeout:
			return ErrTimeout.Message
		case ErrTypeConnection:
			return ErrUnreachable.Message
		}
		return ce.Message
	}
	return err.Error()
}
