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
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCounterCount(t *testing.T) {
	counter := NewTokenCounter()

	assert.Equal(t, 0, counter.Count(""))
	assert.Greater(t, counter.Count("The quick brown fox jumps over the lazy dog."), 0)

	// Longer text counts more tokens.
	short := counter.Count("hello")
	long := counter.Count(strings.Repeat("hello world ", 100))
	assert.Greater(t, long, short)
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	counter := NewTokenCounter()

	chunks := counter.Split("short text", 1000)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}

func TestSplitRoundTrip(t *testing.T) {
	counter := NewTokenCounter()
	text := strings.Repeat("GPS altitude reading 104.2 meters at timestamp. ", 200)

	chunks := counter.Split(text, 100)
	require.Greater(t, len(chunks), 1)

	// Concatenating the chunks in order reproduces the original text.
	assert.Equal(t, text, strings.Join(chunks, ""))

	// Every chunk respects the ceiling.
	for i, chunk := range chunks {
		assert.LessOrEqual(t, counter.Count(chunk), 100, "chunk %d", i)
	}
}

func TestSplitApproximateFallbackKeepsRunesIntact(t *testing.T) {
	// No encoding loaded, so Split falls back to byte windows.
	counter := &TokenCounter{}
	text := strings.Repeat("高度104メートル", 40)

	chunks := counter.Split(text, 10)
	require.Greater(t, len(chunks), 1)

	// Cuts land on rune boundaries, so every chunk is valid UTF-8 and the
	// concatenation still round-trips.
	assert.Equal(t, text, strings.Join(chunks, ""))
	for i, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk), "chunk %d", i)
	}
}

func TestSplitZeroCeiling(t *testing.T) {
	counter := NewTokenCounter()
	chunks := counter.Split("text", 0)
	require.Len(t, chunks, 1)
	assert.Equal(t, "text", chunks[0])
}
