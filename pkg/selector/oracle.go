// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package selector

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/teradata-labs/kestrel/pkg/llm"
	"github.com/teradata-labs/kestrel/pkg/telemetry"
	"github.com/teradata-labs/kestrel/pkg/types"
)

// maxCacheEntries bounds the selection cache. Sessions are short-lived and
// questions repeat rarely, so a small cache is enough.
const maxCacheEntries = 256

// OracleStrategy asks the generation oracle to pick the minimal sufficient
// type subset in two passes: an inference pass over the types present in the
// session's snapshot, then a refinement pass over the inferred set. Both
// passes are constrained to the given candidates; anything else the oracle
// returns is discarded. Any failure falls back to the documented default set.
type OracleStrategy struct {
	proposer types.Proposer
	logger   *zap.Logger

	cacheMu sync.Mutex
	cache   map[string][]string
}

// NewOracleStrategy creates an oracle-backed selection strategy.
func NewOracleStrategy(proposer types.Proposer, logger *zap.Logger) *OracleStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OracleStrategy{
		proposer: proposer,
		logger:   logger,
		cache:    make(map[string][]string),
	}
}

// Select runs the two-pass inference. Results are cached per
// (question, candidate set) pair; the candidate set participates in the key
// as an unordered value, so two snapshots with the same types share entries.
func (o *OracleStrategy) Select(ctx context.Context, question string, _ []types.Message, snap *telemetry.Snapshot) ([]string, error) {
	candidates := snap.Types()
	if len(candidates) == 0 {
		return nil, nil
	}

	key := cacheKey(question, candidates)
	if cached, ok := o.lookup(key); ok {
		return cached, nil
	}

	inferred, err := o.proposer.Propose(ctx, question, candidates)
	if err != nil {
		o.logger.Warn("type inference failed, using fallback types",
			zap.Error(err))
		return FallbackTypes(snap), nil
	}
	inferred = llm.FilterToCandidates(inferred, candidates)
	if len(inferred) == 0 {
		return FallbackTypes(snap), nil
	}

	// Refinement narrows the inferred set; it must not introduce new names.
	refined, err := o.proposer.Propose(ctx, question, inferred)
	if err != nil {
		o.logger.Warn("type refinement failed, keeping inferred types",
			zap.Error(err))
		refined = inferred
	} else {
		refined = llm.FilterToCandidates(refined, inferred)
		if len(refined) == 0 {
			refined = inferred
		}
	}

	result := intersectPresent(refined, snap)
	if len(result) == 0 {
		result = FallbackTypes(snap)
	}

	o.storeResult(key, result)
	return result, nil
}

func (o *OracleStrategy) lookup(key string) ([]string, bool) {
	o.cacheMu.Lock()
	defer o.cacheMu.Unlock()
	cached, ok := o.cache[key]
	if !ok {
		return nil, false
	}
	out := make([]string, len(cached))
	copy(out, cached)
	return out, true
}

func (o *OracleStrategy) storeResult(key string, result []string) {
	o.cacheMu.Lock()
	defer o.cacheMu.Unlock()
	if len(o.cache) >= maxCacheEntries {
		// Full reset is fine at this size; no recency tracking needed.
		o.cache = make(map[string][]string)
	}
	o.cache[key] = append([]string(nil), result...)
}

// cacheKey builds a key from the question and the candidate set treated as
// an unordered value.
func cacheKey(question string, candidates []string) string {
	sorted := make([]string, len(candidates))
	copy(sorted, candidates)
	sort.Strings(sorted)
	return question + "\x00" + strings.Join(sorted, ",")
}

var _ Strategy = (*OracleStrategy)(nil)
