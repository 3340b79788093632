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

// Package bedrock implements the oracle provider against Claude models on
// AWS Bedrock via the official Anthropic SDK.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/teradata-labs/kestrel/pkg/llm"
	"github.com/teradata-labs/kestrel/pkg/types"
)

const (
	// DefaultModelID uses Claude Sonnet 4.5 with cross-region inference profile (us.* prefix)
	DefaultModelID     = "us.anthropic.claude-sonnet-4-5-20250929-v1:0"
	DefaultRegion      = "us-west-2"
	DefaultMaxTokens   = 4096
	DefaultTemperature = 1.0
)

// Config holds configuration for the Bedrock client.
type Config struct {
	ModelID         string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Profile         string
	MaxTokens       int
	Temperature     float64

	RateLimiterConfig llm.RateLimiterConfig
}

// Client implements types.LLMProvider and types.Proposer on top of the
// Anthropic SDK's Bedrock backend. The SDK handles AWS SigV4 signing and
// endpoint resolution.
type Client struct {
	client      anthropic.Client
	modelID     string
	region      string
	maxTokens   int64
	temperature float64
	rateLimiter *llm.RateLimiter
}

// NewClient creates a new Bedrock client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ModelID == "" {
		if envModel := os.Getenv("AWS_BEDROCK_MODEL_ID"); envModel != "" {
			cfg.ModelID = envModel
		} else {
			cfg.ModelID = DefaultModelID
		}
	}
	if cfg.Region == "" {
		if envRegion := os.Getenv("AWS_DEFAULT_REGION"); envRegion != "" {
			cfg.Region = envRegion
		} else {
			cfg.Region = DefaultRegion
		}
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}

	var awsCfg aws.Config
	var err error

	switch {
	case cfg.AccessKeyID != "" && cfg.SecretAccessKey != "":
		awsCfg, err = config.LoadDefaultConfig(context.Background(),
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				cfg.SessionToken,
			)),
		)
	case cfg.Profile != "":
		awsCfg, err = config.LoadDefaultConfig(context.Background(),
			config.WithRegion(cfg.Region),
			config.WithSharedConfigProfile(cfg.Profile),
		)
	default:
		// Default credentials chain (IAM role, env vars, shared config).
		awsCfg, err = config.LoadDefaultConfig(context.Background(),
			config.WithRegion(cfg.Region),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var rateLimiter *llm.RateLimiter
	if cfg.RateLimiterConfig.Enabled {
		rateLimiter = llm.NewRateLimiter(cfg.RateLimiterConfig)
	}

	client := anthropic.NewClient(
		bedrock.WithConfig(awsCfg),
	)

	return &Client{
		client:      client,
		modelID:     cfg.ModelID,
		region:      cfg.Region,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
		rateLimiter: rateLimiter,
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "bedrock"
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.modelID
}

// Chat sends a conversation to Bedrock and returns the response.
func (c *Client) Chat(ctx context.Context, messages []types.Message) (*types.LLMResponse, error) {
	systemPrompt, sdkMessages := convertMessages(messages)
	if len(sdkMessages) == 0 {
		return nil, &llm.ModelError{Err: errors.New("no valid messages to send")}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.modelID),
		Messages:    sdkMessages,
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: systemPrompt},
		}
	}

	message, err := c.invoke(ctx, params)
	if err != nil {
		return nil, err
	}

	return c.convertResponse(message), nil
}

// Propose asks the model to pick a subset of candidates for the question via
// a forced tool call. Names outside the candidate set are discarded.
func (c *Client) Propose(ctx context.Context, question string, candidates []string) ([]string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.modelID),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: "You select which telemetry message types are needed to answer a question " +
				"about a flight log. Choose the minimal sufficient subset of the offered types."},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(
				fmt.Sprintf("Question: %s\n\nAvailable types: %s",
					question, strings.Join(candidates, ", ")),
			)),
		},
		Tools: []anthropic.ToolUnionParam{
			{OfTool: selectTypesTool(candidates)},
		},
		ToolChoice: anthropic.ToolChoiceUnionParam{
			OfTool: &anthropic.ToolChoiceToolParam{Name: llm.SelectTypesToolName},
		},
	}

	message, err := c.invoke(ctx, params)
	if err != nil {
		return nil, err
	}

	for _, block := range message.Content {
		if block.Type == "tool_use" && block.Name == llm.SelectTypesToolName {
			proposed, err := llm.ParseTypeSelection(block.Input)
			if err != nil {
				return nil, err
			}
			return llm.FilterToCandidates(proposed, candidates), nil
		}
	}
	return nil, fmt.Errorf("no %s tool call in response", llm.SelectTypesToolName)
}

// selectTypesTool builds the forced-selection tool definition. The schema is
// round-tripped through JSON to populate the SDK's schema param, including
// the required list.
func selectTypesTool(candidates []string) *anthropic.ToolParam {
	schemaMap := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"types": map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "string", "enum": candidates},
			},
		},
		"required": []string{"types"},
	}
	schemaJSON, _ := json.Marshal(schemaMap)
	var inputSchema anthropic.ToolInputSchemaParam
	_ = json.Unmarshal(schemaJSON, &inputSchema)

	return &anthropic.ToolParam{
		Name:        llm.SelectTypesToolName,
		Description: anthropic.String("Report the telemetry message types needed to answer the question."),
		InputSchema: inputSchema,
	}
}

// invoke calls the Messages API, applying rate limiting when configured and
// classifying SDK failures into the provider error taxonomy.
func (c *Client) invoke(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var message *anthropic.Message
	var err error

	if c.rateLimiter != nil {
		var result interface{}
		result, err = c.rateLimiter.Do(ctx, func(ctx context.Context) (interface{}, error) {
			msg, callErr := c.client.Messages.New(ctx, params)
			if callErr != nil {
				return nil, classifyError(callErr)
			}
			return msg, nil
		})
		if err != nil {
			return nil, err
		}
		message = result.(*anthropic.Message)
	} else {
		message, err = c.client.Messages.New(ctx, params)
		if err != nil {
			return nil, classifyError(err)
		}
	}

	if c.rateLimiter != nil {
		c.rateLimiter.RecordTokenUsage(message.Usage.InputTokens + message.Usage.OutputTokens)
	}

	return message, nil
}

// classifyError maps SDK errors onto the provider error taxonomy. Errors
// without an HTTP status (network, timeouts) are treated as transient.
func classifyError(err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return llm.ClassifyHTTPStatus(apierr.StatusCode, apierr.Error())
	}
	return &llm.TransientError{Err: err}
}

// convertMessages converts conversation messages to SDK format. System
// messages are combined and returned separately.
func convertMessages(messages []types.Message) (string, []anthropic.MessageParam) {
	var systemPrompts []string
	var sdkMessages []anthropic.MessageParam

	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		switch msg.Role {
		case types.RoleSystem:
			systemPrompts = append(systemPrompts, msg.Content)
		case types.RoleUser:
			sdkMessages = append(sdkMessages, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		case types.RoleAssistant:
			sdkMessages = append(sdkMessages, anthropic.NewAssistantMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		}
	}

	return strings.Join(systemPrompts, "\n\n"), sdkMessages
}

// convertResponse converts an SDK response to the provider format.
func (c *Client) convertResponse(message *anthropic.Message) *types.LLMResponse {
	llmResp := &types.LLMResponse{
		StopReason: string(message.StopReason),
		Usage: types.Usage{
			InputTokens:  int(message.Usage.InputTokens),
			OutputTokens: int(message.Usage.OutputTokens),
			TotalTokens:  int(message.Usage.InputTokens + message.Usage.OutputTokens),
			CostUSD:      c.calculateCost(int(message.Usage.InputTokens), int(message.Usage.OutputTokens)),
		},
		Metadata: map[string]interface{}{
			"model":       c.modelID,
			"stop_reason": message.StopReason,
			"message_id":  message.ID,
		},
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			llmResp.Content += block.Text
		}
	}

	return llmResp
}

// calculateCost estimates cost for Bedrock Claude models.
func (c *Client) calculateCost(inputTokens, outputTokens int) float64 {
	var inputPricePerMillion, outputPricePerMillion float64

	switch {
	case strings.Contains(c.modelID, "claude-sonnet-4"):
		inputPricePerMillion = 3.0
		outputPricePerMillion = 15.0
	case strings.Contains(c.modelID, "claude-haiku-4"):
		inputPricePerMillion = 0.8
		outputPricePerMillion = 4.0
	case strings.Contains(c.modelID, "claude-opus-4"):
		inputPricePerMillion = 15.0
		outputPricePerMillion = 75.0
	default:
		inputPricePerMillion = 3.0
		outputPricePerMillion = 15.0
	}

	inputCost := float64(inputTokens) * inputPricePerMillion / 1_000_000
	outputCost := float64(outputTokens) * outputPricePerMillion / 1_000_000
	return inputCost + outputCost
}

var (
	_ types.LLMProvider = (*Client)(nil)
	_ types.Proposer    = (*Client)(nil)
)
