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

// Package anthropic implements the oracle provider against Anthropic's
// Messages API over plain HTTP.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/teradata-labs/kestrel/pkg/llm"
	"github.com/teradata-labs/kestrel/pkg/types"
)

const (
	// DefaultModel is the default Claude model
	DefaultModel = "claude-sonnet-4-5-20250929"
	// DefaultEndpoint is the default Anthropic API endpoint
	DefaultEndpoint = "https://api.anthropic.com/v1/messages"
	// DefaultMaxTokens is the default maximum tokens per response
	DefaultMaxTokens = 4096
	// DefaultTemperature is the default LLM temperature
	DefaultTemperature = 1.0
	// DefaultTimeout is the default HTTP timeout
	DefaultTimeout = 60 * time.Second
)

// Client implements types.LLMProvider and types.Proposer for Anthropic's
// Claude API.
type Client struct {
	apiKey      string
	model       string
	endpoint    string
	httpClient  *http.Client
	maxTokens   int
	temperature float64
	rateLimiter *llm.RateLimiter
}

// Config holds configuration for the Anthropic client.
type Config struct {
	APIKey            string
	Model             string // Default: claude-sonnet-4-5-20250929
	Endpoint          string // Default: https://api.anthropic.com/v1/messages
	Timeout           time.Duration
	MaxTokens         int     // Default: 4096
	Temperature       float64 // Default: 1.0
	RateLimiterConfig llm.RateLimiterConfig
}

// NewClient creates a new Anthropic client.
func NewClient(config Config) *Client {
	if config.Model == "" {
		if envModel := os.Getenv("ANTHROPIC_DEFAULT_MODEL"); envModel != "" {
			config.Model = envModel
		} else {
			config.Model = DefaultModel
		}
	}
	if config.Endpoint == "" {
		if envEndpoint := os.Getenv("ANTHROPIC_API_ENDPOINT"); envEndpoint != "" {
			config.Endpoint = envEndpoint
		} else {
			config.Endpoint = DefaultEndpoint
		}
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	if config.Temperature == 0 {
		config.Temperature = DefaultTemperature
	}

	var rateLimiter *llm.RateLimiter
	if config.RateLimiterConfig.Enabled {
		rateLimiter = llm.NewRateLimiter(config.RateLimiterConfig)
	}

	return &Client{
		apiKey:      config.APIKey,
		model:       config.Model,
		endpoint:    config.Endpoint,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
		rateLimiter: rateLimiter,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "anthropic"
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.model
}

// Chat sends a conversation to Claude and returns the response.
func (c *Client) Chat(ctx context.Context, messages []types.Message) (*types.LLMResponse, error) {
	systemPrompt, apiMessages := convertMessages(messages)

	req := &MessagesRequest{
		Model:       c.model,
		Messages:    apiMessages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		System:      systemPrompt,
	}

	resp, err := c.callAPI(ctx, req)
	if err != nil {
		return nil, err
	}

	return c.convertResponse(resp), nil
}

// Propose asks Claude to pick a subset of candidates for the question via a
// forced tool call, so the answer arrives as a structured payload rather
// than free text. Names outside the candidate set are discarded.
func (c *Client) Propose(ctx context.Context, question string, candidates []string) ([]string, error) {
	system := "You select which telemetry message types are needed to answer a question " +
		"about a flight log. Choose the minimal sufficient subset of the offered types."

	req := &MessagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages: []Message{
			{
				Role: "user",
				Content: []ContentBlock{{
					Type: "text",
					Text: fmt.Sprintf("Question: %s\n\nAvailable types: %s",
						question, strings.Join(candidates, ", ")),
				}},
			},
		},
		Tools: []Tool{{
			Name:        llm.SelectTypesToolName,
			Description: "Report the telemetry message types needed to answer the question.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]map[string]interface{}{
					"types": {
						"type":  "array",
						"items": map[string]interface{}{"type": "string", "enum": candidates},
					},
				},
				Required: []string{"types"},
			},
		}},
		ToolChoice: &ToolChoice{Type: "tool", Name: llm.SelectTypesToolName},
	}

	resp, err := c.callAPI(ctx, req)
	if err != nil {
		return nil, err
	}

	for _, block := range resp.Content {
		if block.Type == "tool_use" && block.Name == llm.SelectTypesToolName {
			payload, err := toolInputJSON(block)
			if err != nil {
				return nil, fmt.Errorf("encoding tool input: %w", err)
			}
			proposed, err := llm.ParseTypeSelection(payload)
			if err != nil {
				return nil, err
			}
			return llm.FilterToCandidates(proposed, candidates), nil
		}
	}
	return nil, fmt.Errorf("no %s tool call in response", llm.SelectTypesToolName)
}

// convertMessages converts conversation messages to Anthropic format.
// System messages are extracted and combined, as the Messages API requires
// them in a separate "system" field, not the messages array.
func convertMessages(messages []types.Message) (string, []Message) {
	var systemPrompts []string
	var apiMessages []Message

	for _, msg := range messages {
		switch msg.Role {
		case types.RoleSystem:
			if msg.Content != "" {
				systemPrompts = append(systemPrompts, msg.Content)
			}
		case types.RoleUser, types.RoleAssistant:
			if msg.Content == "" {
				continue
			}
			apiMessages = append(apiMessages, Message{
				Role: msg.Role,
				Content: []ContentBlock{
					{Type: "text", Text: msg.Content},
				},
			})
		}
	}

	return strings.Join(systemPrompts, "\n\n"), apiMessages
}

// convertResponse converts an Anthropic response to the provider format.
func (c *Client) convertResponse(resp *MessagesResponse) *types.LLMResponse {
	llmResp := &types.LLMResponse{
		StopReason: resp.StopReason,
		Usage: types.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
			CostUSD:      calculateCost(resp.Usage.InputTokens, resp.Usage.OutputTokens),
		},
		Metadata: map[string]interface{}{
			"model":       resp.Model,
			"stop_reason": resp.StopReason,
		},
	}

	for _, block := range resp.Content {
		if block.Type == "text" {
			llmResp.Content += block.Text
		}
	}

	return llmResp
}

// calculateCost estimates the cost in USD based on token usage.
// Claude Sonnet pricing: $3 per million input tokens, $15 per million output.
func calculateCost(inputTokens, outputTokens int) float64 {
	inputCost := float64(inputTokens) * 3.0 / 1_000_000
	outputCost := float64(outputTokens) * 15.0 / 1_000_000
	return inputCost + outputCost
}

// callAPI makes the HTTP request to Anthropic's API, classifying failures
// into the provider error taxonomy. Each attempt builds a fresh request so
// the body can be re-read if the rate limiter retries.
func (c *Client) callAPI(ctx context.Context, req *MessagesRequest) (*MessagesResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	buildReq := func(ctx context.Context) (*http.Request, error) {
		r, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		r.Header.Set("Content-Type", "application/json")
		r.Header.Set("x-api-key", c.apiKey)
		r.Header.Set("anthropic-version", "2023-06-01")
		return r, nil
	}

	do := func(ctx context.Context) (interface{}, error) {
		httpReq, err := buildReq(ctx)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, &llm.TransientError{Err: err}
		}
		return resp, nil
	}

	var httpResp *http.Response
	if c.rateLimiter != nil {
		result, err := c.rateLimiter.Do(ctx, do)
		if err != nil {
			return nil, err
		}
		httpResp = result.(*http.Response)
	} else {
		result, err := do(ctx)
		if err != nil {
			return nil, err
		}
		httpResp = result.(*http.Response)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &llm.TransientError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, llm.ClassifyHTTPStatus(httpResp.StatusCode, string(respBody))
	}

	var resp MessagesResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &llm.ModelError{Err: fmt.Errorf("failed to unmarshal response: %w", err)}
	}

	if c.rateLimiter != nil {
		c.rateLimiter.RecordTokenUsage(int64(resp.Usage.InputTokens + resp.Usage.OutputTokens))
	}

	return &resp, nil
}

// Ensure Client implements the provider interfaces.
var (
	_ types.LLMProvider = (*Client)(nil)
	_ types.Proposer    = (*Client)(nil)
)
