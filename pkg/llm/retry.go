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

package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/kestrel/pkg/types"
)

// RetryConfig controls exponential-backoff retry for provider calls.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt (0 disables retry)
	MaxRetries int

	// InitialDelay before the first retry
	InitialDelay time.Duration

	// MaxDelay caps the backoff growth
	MaxDelay time.Duration

	// Multiplier applied to the delay after each retry
	Multiplier float64
}

// DefaultRetryConfig returns the standard retry policy: 3 retries,
// 1s initial delay doubling up to 30s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// CallWithRetry wraps a provider call with exponential backoff. Retries fire
// only for retryable errors (rate limit, transient); auth and model errors
// fail immediately. Context cancellation aborts the loop, including mid-sleep.
// Retry lives here at the provider boundary so orchestration logic above it
// never loops on failures itself.
func CallWithRetry(ctx context.Context, cfg RetryConfig, logger *zap.Logger,
	call func(context.Context) (*types.LLMResponse, error)) (*types.LLMResponse, error) {

	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRetries == 0 {
		return call(ctx)
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		response, err := call(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Info("llm retry succeeded", zap.Int("attempt", attempt+1))
			}
			return response, nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("llm call failed (attempt %d/%d): %w (context cancelled)",
				attempt+1, cfg.MaxRetries+1, err)
		}
		if !IsRetryable(err) {
			return nil, err
		}
		if attempt >= cfg.MaxRetries {
			break
		}

		logger.Warn("llm call failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", cfg.MaxRetries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("llm call failed (attempt %d/%d): %w (context cancelled during retry)",
				attempt+1, cfg.MaxRetries+1, ctx.Err())
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	logger.Error("llm retries exhausted",
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Error(lastErr),
	)

	return nil, fmt.Errorf("llm call failed after %d attempts: %w", cfg.MaxRetries+1, lastErr)
}
