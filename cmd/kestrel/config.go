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
	"os"

	"github.com/spf13/viper"
)

// DefaultConfigFileName is the name of the config file (kestrel.yaml).
const DefaultConfigFileName = "kestrel"

// Config holds all configuration for the kestrel CLI.
// Priority: CLI flags > config file > env vars > defaults
type Config struct {
	// LLM provider configuration
	LLM LLMConfig `mapstructure:"llm"`

	// Synthesis configuration (chunked map-reduce answering)
	Synthesis SynthesisConfig `mapstructure:"synthesis"`

	// Budget configuration (telemetry context sizing)
	Budget BudgetConfig `mapstructure:"budget"`

	// Selector configuration (telemetry type selection)
	Selector SelectorConfig `mapstructure:"selector"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	// Provider is "anthropic" or "bedrock"
	Provider string `mapstructure:"provider"`

	// Anthropic configuration
	AnthropicAPIKey   string `mapstructure:"anthropic_api_key"`
	AnthropicModel    string `mapstructure:"anthropic_model"`
	AnthropicEndpoint string `mapstructure:"anthropic_endpoint"`

	// Bedrock configuration
	BedrockModelID         string `mapstructure:"bedrock_model_id"`
	BedrockRegion          string `mapstructure:"bedrock_region"`
	BedrockAccessKeyID     string `mapstructure:"bedrock_access_key_id"`
	BedrockSecretAccessKey string `mapstructure:"bedrock_secret_access_key"`
	BedrockSessionToken    string `mapstructure:"bedrock_session_token"`
	BedrockProfile         string `mapstructure:"bedrock_profile"`

	Temperature    float64 `mapstructure:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`

	// Retry configuration for transient failures
	MaxRetries          int     `mapstructure:"max_retries"`
	RetryInitialDelayMS int     `mapstructure:"retry_initial_delay_ms"`
	RetryMaxDelayMS     int     `mapstructure:"retry_max_delay_ms"`
	RetryMultiplier     float64 `mapstructure:"retry_multiplier"`

	// Rate limiting
	RateLimitEnabled  bool    `mapstructure:"rate_limit_enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	TokensPerMinute   int64   `mapstructure:"tokens_per_minute"`
}

// SynthesisConfig holds answer synthesis configuration.
type SynthesisConfig struct {
	// MaxTokensPerCall is the per-call token ceiling; larger contexts are
	// chunked and merged
	MaxTokensPerCall int `mapstructure:"max_tokens_per_call"`

	// MaxConcurrentChunks bounds chunk fan-out concurrency
	MaxConcurrentChunks int `mapstructure:"max_concurrent_chunks"`
}

// BudgetConfig holds telemetry context budgeting configuration.
type BudgetConfig struct {
	// FullLimit is the record count up to which a type is included verbatim
	FullLimit int `mapstructure:"full_limit"`

	// WindowSize is the size of each sampled window for mid-size types
	WindowSize int `mapstructure:"window_size"`

	// HybridThreshold is the record count above which a type gets the
	// summary-plus-sample treatment
	HybridThreshold int `mapstructure:"hybrid_threshold"`

	// SampleTarget is the approximate sample size for very large types
	SampleTarget int `mapstructure:"sample_target"`
}

// SelectorConfig holds telemetry type selection configuration.
type SelectorConfig struct {
	// Strategy is "keyword" or "oracle"
	Strategy string `mapstructure:"strategy"`

	// KeywordTable is an optional YAML file overriding the builtin
	// keyword-to-type table
	KeywordTable string `mapstructure:"keyword_table"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (debug, info, warn, error)
	Level string `mapstructure:"level"`
}

// LoadConfig loads configuration from file, environment and defaults.
func LoadConfig(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home + "/.kestrel")
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(DefaultConfigFileName)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file %s: %w", viper.ConfigFileUsed(), err)
		}
		// No config file is fine, defaults and env apply.
	}

	viper.SetEnvPrefix("KESTREL")
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if config.LLM.AnthropicAPIKey == "" {
		config.LLM.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("llm.provider", "anthropic")
	viper.SetDefault("llm.bedrock_region", "us-west-2")
	viper.SetDefault("llm.temperature", 1.0)
	viper.SetDefault("llm.max_tokens", 4096)
	viper.SetDefault("llm.timeout_seconds", 60)
	viper.SetDefault("llm.max_retries", 3)
	viper.SetDefault("llm.retry_initial_delay_ms", 1000)
	viper.SetDefault("llm.retry_max_delay_ms", 30000)
	viper.SetDefault("llm.retry_multiplier", 2.0)
	viper.SetDefault("llm.rate_limit_enabled", false)
	viper.SetDefault("llm.requests_per_second", 1.0)
	viper.SetDefault("llm.tokens_per_minute", 80000)

	viper.SetDefault("synthesis.max_tokens_per_call", 8000)
	viper.SetDefault("synthesis.max_concurrent_chunks", 4)

	viper.SetDefault("budget.full_limit", 500)
	viper.SetDefault("budget.window_size", 300)
	viper.SetDefault("budget.hybrid_threshold", 10000)
	viper.SetDefault("budget.sample_target", 300)

	viper.SetDefault("selector.strategy", "oracle")

	viper.SetDefault("logging.level", "info")
}
