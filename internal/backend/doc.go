// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend is the HTTP client for the fleet analysis service.
//
// # Endpoints
//
//   - GET  /health          service and model status
//   - GET  /instances       EC2 inventory
//   - GET  /preview-prompt  prompt the backend would send for a window
//   - POST /analyse         streamed markdown analysis (server-sent events)
//
// # Errors
//
// A non-2xx answer becomes *APIError carrying the backend's "detail" text.
// Transport problems become *ClientError with an ErrorType. Cancelling the
// context is reported as the context error, never as a failure of the backend.
//
// # Usage
//
//	c := backend.NewClient()
//	s, err := c.Analyse(ctx, req)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//	for {
//	    ev, err := s.Next()
//	    ...
//	}
package backend
