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

// Package factory creates LLM providers from configuration.
package factory

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/kestrel/pkg/llm"
	"github.com/teradata-labs/kestrel/pkg/llm/anthropic"
	"github.com/teradata-labs/kestrel/pkg/llm/bedrock"
	"github.com/teradata-labs/kestrel/pkg/types"
)

// Config holds configuration for creating a provider.
type Config struct {
	// Provider is "anthropic" or "bedrock".
	Provider string

	// Anthropic configuration.
	AnthropicAPIKey   string
	AnthropicModel    string
	AnthropicEndpoint string
	AnthropicTimeout  time.Duration

	// Bedrock configuration.
	BedrockModelID         string
	BedrockRegion          string
	BedrockAccessKeyID     string
	BedrockSecretAccessKey string
	BedrockSessionToken    string
	BedrockProfile         string

	MaxTokens   int
	Temperature float64

	RateLimiter llm.RateLimiterConfig
	Logger      *zap.Logger
}

// CreateProvider builds the configured provider. Both providers implement
// types.Proposer as well, so the returned value can be asserted to it by
// callers that need structured selection.
func CreateProvider(cfg Config) (types.LLMProvider, error) {
	if cfg.RateLimiter.Enabled && cfg.RateLimiter.Logger == nil {
		cfg.RateLimiter.Logger = cfg.Logger
	}

	switch cfg.Provider {
	case "anthropic":
		apiKey := cfg.AnthropicAPIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key (set ANTHROPIC_API_KEY)")
		}
		return anthropic.NewClient(anthropic.Config{
			APIKey:            apiKey,
			Model:             cfg.AnthropicModel,
			Endpoint:          cfg.AnthropicEndpoint,
			Timeout:           cfg.AnthropicTimeout,
			MaxTokens:         cfg.MaxTokens,
			Temperature:       cfg.Temperature,
			RateLimiterConfig: cfg.RateLimiter,
		}), nil

	case "bedrock":
		return bedrock.NewClient(bedrock.Config{
			ModelID:           cfg.BedrockModelID,
			Region:            cfg.BedrockRegion,
			AccessKeyID:       cfg.BedrockAccessKeyID,
			SecretAccessKey:   cfg.BedrockSecretAccessKey,
			SessionToken:      cfg.BedrockSessionToken,
			Profile:           cfg.BedrockProfile,
			MaxTokens:         cfg.MaxTokens,
			Temperature:       cfg.Temperature,
			RateLimiterConfig: cfg.RateLimiter,
		})

	default:
		return nil, fmt.Errorf("unknown provider: %q (supported: anthropic, bedrock)", cfg.Provider)
	}
}
