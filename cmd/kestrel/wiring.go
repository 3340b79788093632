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
package main

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/kestrel/internal/log"
	"github.com/teradata-labs/kestrel/pkg/agents"
	"github.com/teradata-labs/kestrel/pkg/budget"
	"github.com/teradata-labs/kestrel/pkg/intent"
	"github.com/teradata-labs/kestrel/pkg/llm"
	"github.com/teradata-labs/kestrel/pkg/llm/factory"
	"github.com/teradata-labs/kestrel/pkg/orchestrator"
	"github.com/teradata-labs/kestrel/pkg/selector"
	"github.com/teradata-labs/kestrel/pkg/session"
	"github.com/teradata-labs/kestrel/pkg/synthesis"
	"github.com/teradata-labs/kestrel/pkg/telemetry"
	"github.com/teradata-labs/kestrel/pkg/types"
)

// buildOrchestrator assembles the full pipeline from configuration. All
// collaborators are constructed here and injected; nothing is global.
func buildOrchestrator(cfg *Config) (*orchestrator.Orchestrator, *zap.Logger, error) {
	logger, err := log.New(cfg.Logging.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}

	provider, err := factory.CreateProvider(factory.Config{
		Provider:               cfg.LLM.Provider,
		AnthropicAPIKey:        cfg.LLM.AnthropicAPIKey,
		AnthropicModel:         cfg.LLM.AnthropicModel,
		AnthropicEndpoint:      cfg.LLM.AnthropicEndpoint,
		AnthropicTimeout:       time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
		BedrockModelID:         cfg.LLM.BedrockModelID,
		BedrockRegion:          cfg.LLM.BedrockRegion,
		BedrockAccessKeyID:     cfg.LLM.BedrockAccessKeyID,
		BedrockSecretAccessKey: cfg.LLM.BedrockSecretAccessKey,
		BedrockSessionToken:    cfg.LLM.BedrockSessionToken,
		BedrockProfile:         cfg.LLM.BedrockProfile,
		MaxTokens:              cfg.LLM.MaxTokens,
		Temperature:            cfg.LLM.Temperature,
		RateLimiter:            rateLimiterConfig(cfg, logger),
		Logger:                 logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	retry := llm.RetryConfig{
		MaxRetries:   cfg.LLM.MaxRetries,
		InitialDelay: time.Duration(cfg.LLM.RetryInitialDelayMS) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.LLM.RetryMaxDelayMS) * time.Millisecond,
		Multiplier:   cfg.LLM.RetryMultiplier,
	}

	store := session.NewStore(logger)

	strategy, err := buildStrategy(cfg, provider, logger)
	if err != nil {
		return nil, nil, err
	}

	budgeter := budget.New(budget.Config{
		FullLimit:       cfg.Budget.FullLimit,
		WindowSize:      cfg.Budget.WindowSize,
		HybridThreshold: cfg.Budget.HybridThreshold,
		SampleTarget:    cfg.Budget.SampleTarget,
	}, logger)

	synthesizer := synthesis.New(provider, synthesis.NewTokenCounter(), synthesis.Config{
		MaxTokensPerCall:    cfg.Synthesis.MaxTokensPerCall,
		MaxConcurrentChunks: cfg.Synthesis.MaxConcurrentChunks,
	}, retry, logger)

	general := agents.NewGeneralAgent(provider, store, retry, logger)
	handlers := map[intent.Intent]intent.Handler{
		intent.IntentGreeting:      agents.NewGreetingAgent(provider, store, retry, logger),
		intent.IntentFactual:       agents.NewFactualAgent(store, strategy, budgeter, synthesizer, logger),
		intent.IntentAnomaly:       agents.NewAnomalyAgent(store, strategy, budgeter, synthesizer, logger),
		intent.IntentClarification: agents.NewClarificationAgent(store, strategy, budgeter, synthesizer, logger),
		intent.IntentOther:         general,
	}

	router := intent.NewRouter(provider, store, handlers, general, retry, logger)

	decoder := telemetry.NewJSONLDecoder(logger)

	return orchestrator.New(store, decoder, router, logger), logger, nil
}

// buildStrategy picks the type selection strategy. The oracle strategy needs
// a provider with structured-selection support; keyword works with any.
func buildStrategy(cfg *Config, provider types.LLMProvider, logger *zap.Logger) (selector.Strategy, error) {
	switch cfg.Selector.Strategy {
	case "oracle":
		proposer, ok := provider.(types.Proposer)
		if !ok {
			return nil, fmt.Errorf("provider %s does not support oracle type selection", provider.Name())
		}
		return selector.NewOracleStrategy(proposer, logger), nil

	case "keyword":
		table := selector.DefaultKeywordTable()
		if cfg.Selector.KeywordTable != "" {
			loaded, err := selector.LoadKeywordTable(cfg.Selector.KeywordTable)
			if err != nil {
				return nil, fmt.Errorf("loading keyword table: %w", err)
			}
			table = loaded
		}
		return selector.NewKeywordStrategy(table), nil

	default:
		return nil, fmt.Errorf("unknown selector strategy: %q (supported: keyword, oracle)", cfg.Selector.Strategy)
	}
}

func rateLimiterConfig(cfg *Config, logger *zap.Logger) llm.RateLimiterConfig {
	if !cfg.LLM.RateLimitEnabled {
		return llm.RateLimiterConfig{}
	}
	rl := llm.DefaultRateLimiterConfig()
	rl.Enabled = true
	rl.Logger = logger
	if cfg.LLM.RequestsPerSecond > 0 {
		rl.RequestsPerSecond = cfg.LLM.RequestsPerSecond
	}
	if cfg.LLM.TokensPerMinute > 0 {
		rl.TokensPerMinute = cfg.LLM.TokensPerMinute
	}
	return rl
}
