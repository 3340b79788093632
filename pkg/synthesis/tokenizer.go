// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package synthesis

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter provides oracle-compatible token counting and splitting.
// Uses tiktoken with cl100k_base encoding (Claude-compatible approximation).
// Constructed explicitly and injected; no process-wide singleton.
type TokenCounter struct {
	encoder *tiktoken.Tiktoken
	mu      sync.Mutex
}

// NewTokenCounter creates a token counter. If the tiktoken encoding cannot
// be loaded, the counter degrades to a chars/4 approximation.
func NewTokenCounter() *TokenCounter {
	tkm, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return &TokenCounter{encoder: nil}
	}
	return &TokenCounter{encoder: tkm}
}

// Count returns the token count for a given text.
func (tc *TokenCounter) Count(text string) int {
	if tc.encoder == nil {
		return len(text) / 4
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return len(tc.encoder.Encode(text, nil, nil))
}

// Split cuts text into contiguous, non-overlapping chunks of at most
// maxTokens tokens each, on token boundaries. Decoding the chunks in order
// reproduces the original text. With the approximate counter (no encoding
// available) splitting falls back to 4*maxTokens byte windows.
func (tc *TokenCounter) Split(text string, maxTokens int) []string {
	if maxTokens <= 0 || text == "" {
		return []string{text}
	}

	if tc.encoder == nil {
		maxBytes := maxTokens * 4
		var chunks []string
		for len(text) > maxBytes {
			// Back the cut up to a rune boundary so no chunk carries a
			// truncated multi-byte rune.
			cut := maxBytes
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				cut = maxBytes
			}
			chunks = append(chunks, text[:cut])
			text = text[cut:]
		}
		return append(chunks, text)
	}

	tc.mu.Lock()
	defer tc.mu.Unlock()

	tokens := tc.encoder.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return []string{text}
	}

	var chunks []string
	for start := 0; start < len(tokens); start += maxTokens {
		end := start + maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, tc.encoder.Decode(tokens[start:end]))
	}
	return chunks
}
