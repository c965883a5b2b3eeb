// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codec     tokenizer.Codec
	codecOnce sync.Once
	codecErr  error
)

func getCodec() (tokenizer.Codec, error) {
	codecOnce.Do(func() {
		codec, codecErr = tokenizer.Get(tokenizer.Cl100kBase)
	})
	return codec, codecErr
}

// EstimateTokens returns the cl100k_base token count of text. The backend's
// model uses its own vocabulary, so this is an estimate.
func EstimateTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	c, err := getCodec()
	if err != nil {
		return 0, err
	}
	ids, _, err := c.Encode(text)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// EstimateTokensOrApprox falls back to four characters per token when the
// tokenizer is unavailable.
func EstimateTokensOrApprox(text string) int {
	n, err := EstimateTokens(text)
	if err != nil {
		return (len([]rune(text)) + 3) / 4
	}
	return n
}
