// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package agents provides the handlers behind the intent dispatch table.
// Telemetry-dependent handlers (factual, anomaly, clarification) run the
// selector → budgeter → synthesizer pipeline; conversational handlers
// (greeting, other) only consult recent turns for tone continuity.
package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/kestrel/pkg/llm"
	"github.com/teradata-labs/kestrel/pkg/session"
	"github.com/teradata-labs/kestrel/pkg/types"
)

const greetingPrompt = `You are a friendly assistant for analyzing flight telemetry logs.
The user is making small talk. Reply briefly and warmly, and remind them they
can ask questions about their uploaded flight log.`

const otherPrompt = `You are an assistant for analyzing flight telemetry logs.
The message does not match a known request category. Answer helpfully if you
can, or explain what kinds of flight-log questions you handle.`

// recentTurnsForTone is how much history conversational handlers read.
const recentTurnsForTone = 4

// ConversationalAgent answers turns that do not need telemetry. It reads a
// short slice of recent turns so replies stay consistent in tone.
type ConversationalAgent struct {
	provider types.LLMProvider
	store    *session.Store
	system   string
	retry    llm.RetryConfig
	logger   *zap.Logger
}

// NewGreetingAgent creates the handler for the greeting intent.
func NewGreetingAgent(provider types.LLMProvider, store *session.Store, retry llm.RetryConfig, logger *zap.Logger) *ConversationalAgent {
	return newConversational(provider, store, greetingPrompt, retry, logger)
}

// NewGeneralAgent creates the fallback handler for the other intent and any
// unrecognized label.
func NewGeneralAgent(provider types.LLMProvider, store *session.Store, retry llm.RetryConfig, logger *zap.Logger) *ConversationalAgent {
	return newConversational(provider, store, otherPrompt, retry, logger)
}

func newConversational(provider types.LLMProvider, store *session.Store, system string, retry llm.RetryConfig, logger *zap.Logger) *ConversationalAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConversationalAgent{
		provider: provider,
		store:    store,
		system:   system,
		retry:    retry,
		logger:   logger,
	}
}

// Respond answers the message with one oracle call.
func (a *ConversationalAgent) Respond(ctx context.Context, sessionID, message string) (string, error) {
	prompt := message
	if recent, err := a.store.RecentTurns(sessionID, recentTurnsForTone); err == nil && len(recent) > 0 {
		var sb strings.Builder
		sb.WriteString("Recent conversation:\n")
		for _, turn := range recent {
			fmt.Fprintf(&sb, "%s: %s\n", turn.Role, turn.Content)
		}
		fmt.Fprintf(&sb, "\nMessage: %s", message)
		prompt = sb.String()
	}

	resp, err := llm.CallWithRetry(ctx, a.retry, a.logger, func(ctx context.Context) (*types.LLMResponse, error) {
		return a.provider.Chat(ctx, []types.Message{
			{Role: types.RoleSystem, Content: a.system},
			{Role: types.RoleUser, Content: prompt},
		})
	})
	if err != nil {
		return "", &llm.GenerationError{Chunk: -1, Err: err}
	}
	return resp.Content, nil
}
