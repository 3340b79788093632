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
package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teradata-labs/kestrel/pkg/telemetry"
	"github.com/teradata-labs/kestrel/pkg/types"
)

func testSnapshot() *telemetry.Snapshot {
	return telemetry.NewSnapshot(map[string][]telemetry.Record{
		"GPS": {{Fields: map[string]interface{}{"alt": 100.0}}},
	})
}

func TestStoreCreateAndLookup(t *testing.T) {
	store := NewStore(zaptest.NewLogger(t))

	require.NoError(t, store.Create("s1", testSnapshot()))
	assert.True(t, store.Has("s1"))
	assert.False(t, store.Has("s2"))

	snap, err := store.Telemetry("s1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.TotalRecords())

	label, err := store.Intent("s1")
	require.NoError(t, err)
	assert.Equal(t, DefaultIntent, label)

	_, recorded, err := store.RelevantTypes("s1")
	require.NoError(t, err)
	assert.False(t, recorded)
}

func TestStoreCreateDuplicate(t *testing.T) {
	store := NewStore(zaptest.NewLogger(t))
	require.NoError(t, store.Create("s1", testSnapshot()))

	err := store.Create("s1", testSnapshot())
	require.Error(t, err)

	var dup *DuplicateSessionError
	assert.True(t, errors.As(err, &dup))
	assert.Equal(t, "s1", dup.SessionID)
}

func TestStoreUnknownSession(t *testing.T) {
	store := NewStore(zaptest.NewLogger(t))

	_, err := store.Telemetry("missing")
	var unknown *UnknownSessionError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "missing", unknown.SessionID)

	err = store.AppendTurn("missing", types.RoleUser, "hi")
	assert.True(t, errors.As(err, &unknown))
}

func TestStoreEvictAllowsReupload(t *testing.T) {
	store := NewStore(zaptest.NewLogger(t))
	require.NoError(t, store.Create("s1", testSnapshot()))

	store.Evict("s1")
	assert.False(t, store.Has("s1"))

	// Re-creating after eviction succeeds.
	assert.NoError(t, store.Create("s1", testSnapshot()))
}

func TestStoreHistoryIsAppendOnly(t *testing.T) {
	store := NewStore(zaptest.NewLogger(t))
	require.NoError(t, store.Create("s1", testSnapshot()))

	require.NoError(t, store.AppendTurn("s1", types.RoleUser, "what was the max altitude?"))
	require.NoError(t, store.AppendTurn("s1", types.RoleAssistant, "100m"))
	require.NoError(t, store.AppendTurn("s1", types.RoleUser, "and the battery?"))

	n, err := store.HistoryLength("s1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	recent, err := store.RecentTurns("s1", 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "100m", recent[0].Content)
	assert.Equal(t, "and the battery?", recent[1].Content)

	// Asking for more than exists returns the full history.
	all, err := store.RecentTurns("s1", 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "what was the max altitude?", all[0].Content)
}

func TestStoreAccumulatesUsage(t *testing.T) {
	store := NewStore(zaptest.NewLogger(t))
	require.NoError(t, store.Create("s1", testSnapshot()))

	require.NoError(t, store.AppendMessage("s1", types.Message{
		Role: types.RoleAssistant, Content: "a", TokenCount: 120, CostUSD: 0.002,
	}))
	require.NoError(t, store.AppendMessage("s1", types.Message{
		Role: types.RoleAssistant, Content: "b", TokenCount: 80, CostUSD: 0.001,
	}))

	sess, err := store.get("s1")
	require.NoError(t, err)
	assert.Equal(t, 200, sess.TotalTokens)
	assert.InDelta(t, 0.003, sess.TotalCostUSD, 1e-9)
}

func TestStoreIntentAndRelevantTypes(t *testing.T) {
	store := NewStore(zaptest.NewLogger(t))
	require.NoError(t, store.Create("s1", testSnapshot()))

	require.NoError(t, store.SetIntent("s1", "factual"))
	label, err := store.Intent("s1")
	require.NoError(t, err)
	assert.Equal(t, "factual", label)

	require.NoError(t, store.SetRelevantTypes("s1", []string{"GPS", "BAT"}))
	got, recorded, err := store.RelevantTypes("s1")
	require.NoError(t, err)
	assert.True(t, recorded)
	assert.Equal(t, []string{"GPS", "BAT"}, got)

	// An empty selection still counts as recorded.
	require.NoError(t, store.SetRelevantTypes("s1", []string{}))
	got, recorded, err = store.RelevantTypes("s1")
	require.NoError(t, err)
	assert.True(t, recorded)
	assert.Empty(t, got)
}

func TestStoreConcurrentAppends(t *testing.T) {
	store := NewStore(zaptest.NewLogger(t))
	require.NoError(t, store.Create("s1", testSnapshot()))

	const turns = 50
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.AppendTurn("s1", types.RoleUser, fmt.Sprintf("turn %d", i)))
		}(i)
	}
	wg.Wait()

	n, err := store.HistoryLength("s1")
	require.NoError(t, err)
	assert.Equal(t, turns, n)
}
