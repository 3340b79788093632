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

// Package types contains shared types used across the kestrel framework.
// This package breaks import cycles by providing the conversation and
// provider types that both pkg/session and pkg/llm depend on.
package types

import (
	"context"
	"time"
)

// Message represents a single message in a conversation.
type Message struct {
	// Role is the message sender (system, user, assistant)
	Role string

	// Content is the message text
	Content string

	// Timestamp when the message was created
	Timestamp time.Time

	// TokenCount for cost tracking
	TokenCount int

	// CostUSD for cost tracking
	CostUSD float64
}

// Roles used in conversation history and provider requests.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Usage tracks LLM token usage and costs.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	CostUSD      float64
}

// LLMResponse represents a response from the LLM.
type LLMResponse struct {
	// Content is the text response
	Content string

	// StopReason indicates why the LLM stopped
	StopReason string

	// Usage tracks token usage
	Usage Usage

	// Metadata contains provider-specific metadata
	Metadata map[string]interface{}
}

// LLMProvider defines the interface for LLM providers.
// This allows pluggable backends (Anthropic, Bedrock, mocks in tests).
// System instructions ride in the messages slice with RoleSystem; providers
// extract and place them wherever their API requires.
type LLMProvider interface {
	// Chat sends a conversation to the LLM and returns the response
	Chat(ctx context.Context, messages []Message) (*LLMResponse, error)

	// Name returns the provider name
	Name() string

	// Model returns the model identifier
	Model() string
}

// Proposer is the narrow structured-output capability used by the type
// selector: given a question and a candidate set, return a subset of the
// candidates. Implementations must never return names outside candidates.
// Kept separate from LLMProvider so selection strategies are swappable and
// mockable without any SDK-specific request shape.
type Proposer interface {
	Propose(ctx context.Context, question string, candidates []string) ([]string, error)
}
