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

// Package session owns per-session conversational and derived state: the
// telemetry snapshot, the append-only conversation history, the last
// classified intent and the last computed relevance set.
package session

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/kestrel/pkg/telemetry"
	"github.com/teradata-labs/kestrel/pkg/types"
)

// DefaultIntent is returned by Intent before any classification has run.
const DefaultIntent = "unknown"

// UnknownSessionError indicates no telemetry has been uploaded for the id.
// User-facing: the caller should instruct a re-upload.
type UnknownSessionError struct {
	SessionID string
}

func (e *UnknownSessionError) Error() string {
	return fmt.Sprintf("unknown session %q: no telemetry uploaded", e.SessionID)
}

// DuplicateSessionError indicates Create was called twice for the same id
// without an intervening eviction. Create never silently overwrites.
type DuplicateSessionError struct {
	SessionID string
}

func (e *DuplicateSessionError) Error() string {
	return fmt.Sprintf("session %q already exists", e.SessionID)
}

// Session holds the state for one uploaded recording and its conversation.
// History is append-only: entries are never reordered or mutated after
// insertion. All mutation goes through the session's own mutex, so two
// concurrent turns for the same session cannot interleave writes.
type Session struct {
	mu sync.RWMutex

	// ID is the unique session identifier
	ID string

	// Telemetry is the immutable snapshot created at upload time
	Telemetry *telemetry.Snapshot

	// History is the conversation history (user and assistant turns)
	History []types.Message

	// Intent is the last classified intent label
	Intent string

	// RelevantTypes is the last computed relevance set (nil if never set)
	RelevantTypes []string

	// CreatedAt is when the session was created
	CreatedAt time.Time

	// UpdatedAt is when the session was last updated
	UpdatedAt time.Time

	// TotalTokens is the accumulated token usage
	TotalTokens int

	// TotalCostUSD is the accumulated cost for this session
	TotalCostUSD float64
}

// Store is the source of truth for "is there data for this session" and
// "what happened in this conversation so far". Safe for concurrent use
// across sessions; a single session's writes are serialized by its own lock.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *zap.Logger
}

// NewStore creates an empty in-memory session store. Durability across
// process restarts is an external concern.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// Create registers a session for the id with its telemetry snapshot.
// Fails with DuplicateSessionError if the id already exists.
func (s *Store) Create(sessionID string, snap *telemetry.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sessionID]; exists {
		return &DuplicateSessionError{SessionID: sessionID}
	}

	now := time.Now()
	s.sessions[sessionID] = &Session{
		ID:        sessionID,
		Telemetry: snap,
		Intent:    DefaultIntent,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.logger.Info("session created",
		zap.String("session_id", sessionID),
		zap.Int("telemetry_types", len(snap.Types())),
		zap.Int("telemetry_records", snap.TotalRecords()))
	return nil
}

// Has reports whether a session exists for the id.
func (s *Store) Has(sessionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[sessionID]
	return ok
}

// Evict removes a session and its snapshot. Eviction policy (TTL, explicit
// teardown) belongs to the caller; this is the mechanism only.
func (s *Store) Evict(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; ok {
		delete(s.sessions, sessionID)
		s.logger.Info("session evicted", zap.String("session_id", sessionID))
	}
}

// Telemetry returns the session's snapshot.
func (s *Store) Telemetry(sessionID string) (*telemetry.Snapshot, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Telemetry, nil
}

// AppendTurn extends the session history with one turn. The history length
// grows by exactly one; earlier entries are unchanged.
func (s *Store) AppendTurn(sessionID, role, content string) error {
	return s.AppendMessage(sessionID, types.Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// AppendMessage is AppendTurn with full message metadata (token counts,
// cost) for turns produced by the oracle.
func (s *Store) AppendMessage(sessionID string, msg types.Message) error {
	sess, err := s.get(sessionID)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	sess.History = append(sess.History, msg)
	sess.UpdatedAt = time.Now()
	sess.TotalTokens += msg.TokenCount
	sess.TotalCostUSD += msg.CostUSD
	return nil
}

// RecentTurns returns a copy of the last n turns (fewer if the history is
// shorter). Never blocks beyond the session lock.
func (s *Store) RecentTurns(sessionID string, n int) ([]types.Message, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.RLock()
	defer sess.mu.RUnlock()
	if n <= 0 || len(sess.History) == 0 {
		return nil, nil
	}
	start := len(sess.History) - n
	if start < 0 {
		start = 0
	}
	out := make([]types.Message, len(sess.History)-start)
	copy(out, sess.History[start:])
	return out, nil
}

// HistoryLength returns the number of turns recorded for the session.
func (s *Store) HistoryLength(sessionID string) (int, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return 0, err
	}
	sess.mu.RLock()
	defer sess.mu.RUnlock()
	return len(sess.History), nil
}

// SetIntent records the classified intent for the session.
func (s *Store) SetIntent(sessionID, intent string) error {
	sess, err := s.get(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.Intent = intent
	sess.UpdatedAt = time.Now()
	return nil
}

// Intent returns the last classified intent, or DefaultIntent if never set.
func (s *Store) Intent(sessionID string) (string, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return "", err
	}
	sess.mu.RLock()
	defer sess.mu.RUnlock()
	if sess.Intent == "" {
		return DefaultIntent, nil
	}
	return sess.Intent, nil
}

// SetRelevantTypes records the last computed relevance set.
func (s *Store) SetRelevantTypes(sessionID string, typeNames []string) error {
	sess, err := s.get(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.RelevantTypes = append([]string(nil), typeNames...)
	sess.UpdatedAt = time.Now()
	return nil
}

// RelevantTypes returns the last computed relevance set and whether one has
// been recorded for the session.
func (s *Store) RelevantTypes(sessionID string) ([]string, bool, error) {
	sess, err := s.get(sessionID)
	if err != nil {
		return nil, false, err
	}
	sess.mu.RLock()
	defer sess.mu.RUnlock()
	if sess.RelevantTypes == nil {
		return nil, false, nil
	}
	out := make([]string, len(sess.RelevantTypes))
	copy(out, sess.RelevantTypes)
	return out, true, nil
}

func (s *Store) get(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, &UnknownSessionError{SessionID: sessionID}
	}
	return sess, nil
}
