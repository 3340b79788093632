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
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// RateLimiterConfig configures the provider rate limiter.
type RateLimiterConfig struct {
	// Enabled enables rate limiting (default: true for production)
	Enabled bool

	// RequestsPerSecond is the maximum requests allowed per second.
	RequestsPerSecond float64

	// TokensPerMinute is the maximum tokens allowed per minute.
	TokensPerMinute int64

	// BurstCapacity is the maximum burst of requests allowed.
	BurstCapacity int

	// MinDelay is the minimum delay between requests (overrides
	// RequestsPerSecond if larger).
	MinDelay time.Duration

	// QueueTimeout is the maximum time a request can wait in the queue.
	QueueTimeout time.Duration

	// Logger for rate limiter events
	Logger *zap.Logger
}

// DefaultRateLimiterConfig returns conservative defaults suitable for
// entry-tier provider accounts.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 1.0,
		TokensPerMinute:   80000,
		BurstCapacity:     3,
		MinDelay:          500 * time.Millisecond,
		QueueTimeout:      5 * time.Minute,
		Logger:            zap.NewNop(),
	}
}

// RateLimiter implements token-bucket rate limiting for oracle requests.
// All calls into a provider funnel through Do; a single queue processor
// paces them so concurrent chunk fan-out cannot overrun provider limits.
type RateLimiter struct {
	config RateLimiterConfig

	// Token bucket for request pacing
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time
	mu         sync.Mutex

	// LLM token consumption tracking (sliding one-minute window)
	tokenWindow   []tokenUsage
	tokenWindowMu sync.Mutex

	queue  chan *rateLimitedRequest
	stopCh chan struct{}
	closed atomic.Bool
	wg     sync.WaitGroup
}

type tokenUsage struct {
	timestamp time.Time
	tokens    int64
}

type rateLimitedRequest struct {
	ctx      context.Context
	call     func(context.Context) (interface{}, error)
	resultCh chan *rateLimitedResult
}

type rateLimitedResult struct {
	result interface{}
	err    error
}

// NewRateLimiter creates a rate limiter and starts its queue processor.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	rl := &RateLimiter{
		config:      config,
		tokens:      float64(config.BurstCapacity),
		maxTokens:   float64(config.BurstCapacity),
		refillRate:  config.RequestsPerSecond,
		lastRefill:  time.Now(),
		tokenWindow: make([]tokenUsage, 0, 100),
		queue:       make(chan *rateLimitedRequest, config.BurstCapacity*2),
		stopCh:      make(chan struct{}),
	}

	rl.wg.Add(1)
	go rl.processQueue()

	return rl
}

// Do executes a call under the rate limit. The call waits in the queue
// until a bucket token is available; the caller's context cancels the wait.
func (rl *RateLimiter) Do(ctx context.Context, call func(context.Context) (interface{}, error)) (interface{}, error) {
	if !rl.config.Enabled {
		return call(ctx)
	}
	if rl.closed.Load() {
		return nil, fmt.Errorf("rate limiter stopped")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	req := &rateLimitedRequest{
		ctx:      ctx,
		call:     call,
		resultCh: make(chan *rateLimitedResult, 1),
	}

	queueCtx, cancel := context.WithTimeout(ctx, rl.config.QueueTimeout)
	defer cancel()

	select {
	case <-rl.stopCh:
		return nil, fmt.Errorf("rate limiter stopped")
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-queueCtx.Done():
		return nil, fmt.Errorf("rate limiter queue timeout after %v", rl.config.QueueTimeout)
	case rl.queue <- req:
	}

	select {
	case result := <-req.resultCh:
		return result.result, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-rl.stopCh:
		return nil, fmt.Errorf("rate limiter stopped")
	}
}

// RecordTokenUsage records LLM tokens consumed by a completed call for the
// sliding-window tokens-per-minute check.
func (rl *RateLimiter) RecordTokenUsage(tokens int64) {
	rl.tokenWindowMu.Lock()
	defer rl.tokenWindowMu.Unlock()

	now := time.Now()
	rl.tokenWindow = append(rl.tokenWindow, tokenUsage{timestamp: now, tokens: tokens})
	rl.pruneTokenWindowLocked(now)
}

// TokensInWindow returns the LLM tokens consumed in the last minute.
func (rl *RateLimiter) TokensInWindow() int64 {
	rl.tokenWindowMu.Lock()
	defer rl.tokenWindowMu.Unlock()

	now := time.Now()
	rl.pruneTokenWindowLocked(now)
	var total int64
	for _, u := range rl.tokenWindow {
		total += u.tokens
	}
	return total
}

// Stop shuts down the queue processor. Pending requests fail.
func (rl *RateLimiter) Stop() {
	if rl.closed.CompareAndSwap(false, true) {
		close(rl.stopCh)
		rl.wg.Wait()
	}
}

func (rl *RateLimiter) pruneTokenWindowLocked(now time.Time) {
	cutoff := now.Add(-time.Minute)
	kept := rl.tokenWindow[:0]
	for _, u := range rl.tokenWindow {
		if u.timestamp.After(cutoff) {
			kept = append(kept, u)
		}
	}
	rl.tokenWindow = kept
}

func (rl *RateLimiter) processQueue() {
	defer rl.wg.Done()

	for {
		select {
		case req := <-rl.queue:
			rl.processRequest(req)
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) processRequest(req *rateLimitedRequest) {
	for {
		if rl.acquireToken() {
			break
		}
		select {
		case <-time.After(50 * time.Millisecond):
		case <-req.ctx.Done():
			req.resultCh <- &rateLimitedResult{err: req.ctx.Err()}
			return
		case <-rl.stopCh:
			req.resultCh <- &rateLimitedResult{err: fmt.Errorf("rate limiter stopped")}
			return
		}
	}

	if rl.config.MinDelay > 0 {
		time.Sleep(rl.config.MinDelay)
	}

	// Hold the request if the sliding-window token budget is exhausted
	if rl.config.TokensPerMinute > 0 {
		for rl.TokensInWindow() >= rl.config.TokensPerMinute {
			rl.config.Logger.Warn("token budget exhausted, delaying request",
				zap.Int64("tokens_per_minute", rl.config.TokensPerMinute))
			select {
			case <-time.After(1 * time.Second):
			case <-req.ctx.Done():
				req.resultCh <- &rateLimitedResult{err: req.ctx.Err()}
				return
			case <-rl.stopCh:
				req.resultCh <- &rateLimitedResult{err: fmt.Errorf("rate limiter stopped")}
				return
			}
		}
	}

	result, err := req.call(req.ctx)
	req.resultCh <- &rateLimitedResult{result: result, err: err}
}

// acquireToken attempts to take a token from the bucket.
func (rl *RateLimiter) acquireToken() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.tokens += elapsed * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now

	if rl.tokens >= 1.0 {
		rl.tokens -= 1.0
		return true
	}
	return false
}
