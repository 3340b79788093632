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

// Package synthesis guarantees that no single oracle call receives more
// than a configured token ceiling, while still answering questions whose
// full bounded context exceeds it. Oversized contexts are split into
// ordered chunks, answered independently (fan-out with a bounded
// concurrency limit), and reduced by exactly one merge call (fan-in).
package synthesis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teradata-labs/kestrel/pkg/llm"
	"github.com/teradata-labs/kestrel/pkg/types"
)

// Config controls the synthesizer's chunking and fan-out behavior.
type Config struct {
	// MaxTokensPerCall is the hard token ceiling for the context portion
	// of a single oracle call.
	MaxTokensPerCall int

	// MaxConcurrentChunks bounds the per-chunk fan-out (provider rate
	// limits still apply underneath).
	MaxConcurrentChunks int
}

// DefaultConfig returns the standard synthesizer settings.
func DefaultConfig() Config {
	return Config{
		MaxTokensPerCall:    8000,
		MaxConcurrentChunks: 4,
	}
}

// Result carries the final answer plus aggregated usage across all calls.
type Result struct {
	Answer string
	Usage  types.Usage
	Chunks int
}

// Synthesizer runs the chunked map-reduce protocol over the oracle.
type Synthesizer struct {
	provider types.LLMProvider
	counter  *TokenCounter
	cfg      Config
	retry    llm.RetryConfig
	logger   *zap.Logger
}

// New creates a synthesizer. Zero-valued config fields use the defaults.
func New(provider types.LLMProvider, counter *TokenCounter, cfg Config, retry llm.RetryConfig, logger *zap.Logger) *Synthesizer {
	def := DefaultConfig()
	if cfg.MaxTokensPerCall <= 0 {
		cfg.MaxTokensPerCall = def.MaxTokensPerCall
	}
	if cfg.MaxConcurrentChunks <= 0 {
		cfg.MaxConcurrentChunks = def.MaxConcurrentChunks
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		provider: provider,
		counter:  counter,
		cfg:      cfg,
		retry:    retry,
		logger:   logger,
	}
}

// Answer produces one answer for the question over the bounded context.
// The common path is a single oracle call; when the context exceeds the
// token ceiling it is split into ordered chunks, each answered by an
// independent call with the same instructions and question, and the partial
// answers are reduced by exactly one merge call. Partial answers are
// concatenated strictly in chunk order even though per-chunk calls run
// concurrently. Any chunk failure fails the whole request with a
// GenerationError carrying the chunk index; no partial result is returned.
func (s *Synthesizer) Answer(ctx context.Context, system, question, contextText string) (*Result, error) {
	if s.counter.Count(contextText) <= s.cfg.MaxTokensPerCall {
		resp, err := s.call(ctx, system, question, contextText)
		if err != nil {
			return nil, &llm.GenerationError{Chunk: -1, Err: err}
		}
		return &Result{Answer: resp.Content, Usage: resp.Usage, Chunks: 1}, nil
	}

	chunks := s.counter.Split(contextText, s.cfg.MaxTokensPerCall)
	runID := fmt.Sprintf("synth-%s", uuid.New().String()[:8])
	startTime := time.Now()

	s.logger.Info("context exceeds token ceiling, running chunked synthesis",
		zap.String("run_id", runID),
		zap.Int("chunks", len(chunks)),
		zap.Int("ceiling", s.cfg.MaxTokensPerCall))

	// Fan out: one independent call per chunk, no shared state between
	// chunks. The errgroup limit bounds concurrency; results land in their
	// chunk's slot so the fan-in below reads them in original order.
	partials := make([]string, len(chunks))
	usages := make([]types.Usage, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxConcurrentChunks)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			resp, err := s.call(gctx, system, question, chunk)
			if err != nil {
				return &llm.GenerationError{Chunk: i, Err: err}
			}
			partials[i] = resp.Content
			usages[i] = resp.Usage
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("chunked synthesis failed",
			zap.String("run_id", runID),
			zap.Error(err))
		return nil, err
	}

	var combined strings.Builder
	for i, partial := range partials {
		fmt.Fprintf(&combined, "--- Partial answer %d of %d ---\n%s\n\n", i+1, len(partials), partial)
	}

	mergePrompt := fmt.Sprintf(
		"The question below was answered independently over %d consecutive segments of a flight log. "+
			"Merge the partial answers into one final answer. Resolve overlaps, keep concrete values, "+
			"and do not mention the segmentation.\n\nQuestion: %s\n\n%s",
		len(partials), question, combined.String())

	mergeResp, err := llm.CallWithRetry(ctx, s.retry, s.logger, func(ctx context.Context) (*types.LLMResponse, error) {
		return s.provider.Chat(ctx, []types.Message{
			{Role: types.RoleSystem, Content: system},
			{Role: types.RoleUser, Content: mergePrompt},
		})
	})
	if err != nil {
		return nil, &llm.GenerationError{Chunk: -1, Err: fmt.Errorf("merge call: %w", err)}
	}

	total := mergeResp.Usage
	for _, u := range usages {
		total.InputTokens += u.InputTokens
		total.OutputTokens += u.OutputTokens
		total.TotalTokens += u.TotalTokens
		total.CostUSD += u.CostUSD
	}

	s.logger.Info("chunked synthesis completed",
		zap.String("run_id", runID),
		zap.Int("chunks", len(chunks)),
		zap.Duration("duration", time.Since(startTime)),
		zap.Int("total_tokens", total.TotalTokens))

	return &Result{Answer: mergeResp.Content, Usage: total, Chunks: len(chunks)}, nil
}

// call issues one oracle call for a single context window, with retry at
// the provider boundary.
func (s *Synthesizer) call(ctx context.Context, system, question, contextText string) (*types.LLMResponse, error) {
	prompt := fmt.Sprintf("Telemetry context:\n%s\n\nQuestion: %s", contextText, question)
	return llm.CallWithRetry(ctx, s.retry, s.logger, func(ctx context.Context) (*types.LLMResponse, error) {
		return s.provider.Chat(ctx, []types.Message{
			{Role: types.RoleSystem, Content: system},
			{Role: types.RoleUser, Content: prompt},
		})
	})
}
