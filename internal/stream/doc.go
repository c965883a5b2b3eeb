// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream reassembles server-sent token events from an arbitrarily
// chunked byte stream.
//
// The analysis backend frames every token as one line:
//
//	data: {"token": "## Findings"}
//
// and terminates the stream with
//
//	data: [DONE]
//
// Chunk boundaries carry no meaning and may fall anywhere, including inside
// the "data:" prefix or the JSON payload. Demuxer keeps the unterminated
// remainder between chunks. Lines that are not events, or whose payload does
// not decode, are dropped silently and only counted.
//
// # Usage
//
//	r := stream.NewReader(resp.Body)
//	for {
//	    ev, err := r.Next()
//	    if errors.Is(err, io.EOF) {
//	        break // clean close
//	    }
//	    if err != nil {
//	        return err // transport failure
//	    }
//	    handle(ev)
//	}
package stream
