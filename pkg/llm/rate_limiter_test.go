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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 100,
		BurstCapacity:     10,
		QueueTimeout:      5 * time.Second,
	}
}

func TestRateLimiterExecutesCalls(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	result, err := rl.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestRateLimiterDisabledPassesThrough(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Enabled: false})
	defer rl.Stop()

	calls := 0
	for i := 0; i < 5; i++ {
		_, err := rl.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
			calls++
			return nil, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 5, calls)
}

func TestRateLimiterConcurrentCalls(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	var mu sync.Mutex
	completed := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rl.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
				mu.Lock()
				completed++
				mu.Unlock()
				return nil, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, completed)
}

func TestRateLimiterContextCancellation(t *testing.T) {
	cfg := testRateLimiterConfig()
	cfg.RequestsPerSecond = 0.001 // effectively never refills
	cfg.BurstCapacity = 1
	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	// Consume the only bucket token.
	_, err := rl.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = rl.Do(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	assert.Error(t, err)
}

func TestRateLimiterStopRejectsNewCalls(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	rl.Stop()

	_, err := rl.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, nil
	})
	assert.Error(t, err)
}

func TestTokenWindowTracking(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	assert.Equal(t, int64(0), rl.TokensInWindow())

	rl.RecordTokenUsage(1000)
	rl.RecordTokenUsage(500)
	assert.Equal(t, int64(1500), rl.TokensInWindow())
}
