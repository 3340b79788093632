// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package intent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/kestrel/pkg/llm"
	"github.com/teradata-labs/kestrel/pkg/session"
	"github.com/teradata-labs/kestrel/pkg/types"
)

// classifySystemPrompt instructs the oracle to emit exactly one label.
const classifySystemPrompt = `You classify messages sent to a flight-log analysis assistant.
Reply with exactly one lowercase word from this set and nothing else:
greeting, factual, anomaly, clarification, other.

greeting: small talk, hello, thanks, goodbye.
factual: a question about values in the flight log (altitude, battery, duration, positions).
anomaly: a question about problems, failures, errors or unusual behavior in the flight.
clarification: a follow-up that narrows or reframes the previous exchange.
other: anything else.`

// Router classifies each inbound message and dispatches it to the handler
// registered for the label. Classification uses the message plus the single
// most recent turn only, keeping the call cheap.
type Router struct {
	provider types.LLMProvider
	store    *session.Store
	handlers map[Intent]Handler
	fallback Handler
	retry    llm.RetryConfig
	logger   *zap.Logger
}

// NewRouter creates a router with a fixed dispatch table. The fallback
// handler answers any label absent from the table, including malformed
// oracle output and classification failures.
func NewRouter(provider types.LLMProvider, store *session.Store, handlers map[Intent]Handler, fallback Handler, retry llm.RetryConfig, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		provider: provider,
		store:    store,
		handlers: handlers,
		fallback: fallback,
		retry:    retry,
		logger:   logger,
	}
}

// Route classifies the message, persists the intent into session state, and
// dispatches to the registered handler. Classification failure is not a
// hard error: the message silently routes to the fallback handler.
func (r *Router) Route(ctx context.Context, sessionID, message string) (string, error) {
	label := r.classify(ctx, sessionID, message)

	// Persist before dispatch so handlers can read the current intent.
	if err := r.store.SetIntent(sessionID, string(label)); err != nil {
		return "", fmt.Errorf("persisting intent: %w", err)
	}

	handler, ok := r.handlers[label]
	if !ok {
		r.logger.Debug("no handler for label, using fallback",
			zap.String("session_id", sessionID),
			zap.String("label", string(label)))
		handler = r.fallback
	}

	return handler.Respond(ctx, sessionID, message)
}

// classify returns the normalized oracle label, or IntentUnknown when the
// oracle call fails. The raw response is trimmed and lowercased but not
// validated against the closed set; dispatch handles unrecognized labels.
func (r *Router) classify(ctx context.Context, sessionID, message string) Intent {
	prompt := message
	if recent, err := r.store.RecentTurns(sessionID, 1); err == nil && len(recent) > 0 {
		prompt = fmt.Sprintf("Previous %s turn: %s\n\nMessage: %s",
			recent[0].Role, recent[0].Content, message)
	}

	resp, err := llm.CallWithRetry(ctx, r.retry, r.logger, func(ctx context.Context) (*types.LLMResponse, error) {
		return r.provider.Chat(ctx, []types.Message{
			{Role: types.RoleSystem, Content: classifySystemPrompt},
			{Role: types.RoleUser, Content: prompt},
		})
	})
	if err != nil {
		r.logger.Warn("classification failed, routing to fallback",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return IntentUnknown
	}

	label := Normalize(resp.Content)
	// Models occasionally answer in a sentence; salvage a leading label.
	if fields := strings.Fields(string(label)); len(fields) > 0 {
		label = Intent(strings.Trim(fields[0], ".,:;"))
	}

	r.logger.Debug("classified message",
		zap.String("session_id", sessionID),
		zap.String("label", string(label)))
	return label
}
