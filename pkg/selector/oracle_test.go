// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package selector

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// mockProposer scripts structured selection responses. Each call pops the
// next response; an empty script returns the error.
type mockProposer struct {
	mu        sync.Mutex
	responses [][]string
	err       error
	calls     int
	seen      [][]string
}

func (m *mockProposer) Propose(_ context.Context, _ string, candidates []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.seen = append(m.seen, append([]string(nil), candidates...))
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return nil, errors.New("no scripted response")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func TestOracleStrategyTwoPassSelection(t *testing.T) {
	proposer := &mockProposer{
		responses: [][]string{
			{"GPS", "BARO", "BAT"}, // inference pass
			{"GPS", "BARO"},        // refinement pass
		},
	}
	strategy := NewOracleStrategy(proposer, zaptest.NewLogger(t))
	snap := snapshotWith("GPS", "BARO", "BAT", "MSG")

	got, err := strategy.Select(context.Background(), "what was the peak altitude?", nil, snap)
	require.NoError(t, err)
	assert.Equal(t, []string{"GPS", "BARO"}, got)
	assert.Equal(t, 2, proposer.calls)

	// The refinement pass was offered only the inferred set.
	assert.Equal(t, []string{"GPS", "BARO", "BAT"}, proposer.seen[1])
}

func TestOracleStrategyDiscardsHallucinatedTypes(t *testing.T) {
	proposer := &mockProposer{
		responses: [][]string{
			{"GPS", "NOT_A_TYPE"},
			{"GPS", "ALSO_FAKE"},
		},
	}
	strategy := NewOracleStrategy(proposer, zaptest.NewLogger(t))
	snap := snapshotWith("GPS", "BAT")

	got, err := strategy.Select(context.Background(), "position?", nil, snap)
	require.NoError(t, err)
	assert.Equal(t, []string{"GPS"}, got)
}

func TestOracleStrategyFallbackOnError(t *testing.T) {
	proposer := &mockProposer{err: errors.New("oracle unavailable")}
	strategy := NewOracleStrategy(proposer, zaptest.NewLogger(t))
	snap := snapshotWith("GPS", "MSG", "ERR")

	got, err := strategy.Select(context.Background(), "anything odd?", nil, snap)
	require.NoError(t, err)
	assert.Equal(t, []string{"MSG", "ERR"}, got)
}

func TestOracleStrategyFallbackOnEmptyInference(t *testing.T) {
	proposer := &mockProposer{responses: [][]string{{}}}
	strategy := NewOracleStrategy(proposer, zaptest.NewLogger(t))
	snap := snapshotWith("GPS", "MODE")

	got, err := strategy.Select(context.Background(), "hm", nil, snap)
	require.NoError(t, err)
	assert.Equal(t, []string{"MODE"}, got)
	// Refinement is skipped when inference yields nothing.
	assert.Equal(t, 1, proposer.calls)
}

func TestOracleStrategyKeepsInferredWhenRefinementFails(t *testing.T) {
	proposer := &mockProposer{
		responses: [][]string{
			{"GPS", "BAT"},
			// Second call falls through to the scripted error.
		},
	}
	strategy := NewOracleStrategy(proposer, zaptest.NewLogger(t))
	snap := snapshotWith("GPS", "BAT", "MSG")

	got, err := strategy.Select(context.Background(), "battery at landing?", nil, snap)
	require.NoError(t, err)
	assert.Equal(t, []string{"GPS", "BAT"}, got)
}

func TestOracleStrategyCachesResults(t *testing.T) {
	proposer := &mockProposer{
		responses: [][]string{
			{"GPS"},
			{"GPS"},
		},
	}
	strategy := NewOracleStrategy(proposer, zaptest.NewLogger(t))
	snap := snapshotWith("GPS", "BAT")

	first, err := strategy.Select(context.Background(), "where did it fly?", nil, snap)
	require.NoError(t, err)
	require.Equal(t, []string{"GPS"}, first)
	require.Equal(t, 2, proposer.calls)

	// Same question and candidate set: served from cache, no new calls.
	second, err := strategy.Select(context.Background(), "where did it fly?", nil, snap)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, proposer.calls)
}

func TestOracleStrategyEmptySnapshot(t *testing.T) {
	proposer := &mockProposer{}
	strategy := NewOracleStrategy(proposer, zaptest.NewLogger(t))

	got, err := strategy.Select(context.Background(), "anything?", nil, snapshotWith())
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, proposer.calls)
}
