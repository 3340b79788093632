// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/teradata-labs/kestrel/pkg/budget"
	"github.com/teradata-labs/kestrel/pkg/selector"
	"github.com/teradata-labs/kestrel/pkg/session"
	"github.com/teradata-labs/kestrel/pkg/synthesis"
)

const factualPrompt = `You are a flight-log analyst. Answer the question using only the
telemetry context provided. Quote concrete values with their units and name the
message type each value comes from. If the context does not contain the answer,
say so plainly.`

const anomalyPrompt = `You are a flight-log analyst looking for problems. Examine the
telemetry context for errors, failures, out-of-range values and unusual behavior
relevant to the question. Name the message type behind each finding. If nothing
looks wrong, say the data appears normal.`

const clarificationPrompt = `You are a flight-log analyst. The user is following up on an
earlier exchange, shown in the recent conversation. Use the telemetry context to
refine or correct the earlier answer. Name the message type behind each value.`

// recentTurnsForSelection is how much trailing history the selector sees.
const recentTurnsForSelection = 4

// TelemetryAgent answers telemetry-dependent intents by running the full
// pipeline: type selection, context budgeting, then (possibly chunked)
// synthesis. The computed relevance set is persisted to session state.
type TelemetryAgent struct {
	store       *session.Store
	strategy    selector.Strategy
	budgeter    *budget.Budgeter
	synthesizer *synthesis.Synthesizer
	system      string
	logger      *zap.Logger
}

// NewFactualAgent creates the handler for factual questions.
func NewFactualAgent(store *session.Store, strategy selector.Strategy, budgeter *budget.Budgeter, synthesizer *synthesis.Synthesizer, logger *zap.Logger) *TelemetryAgent {
	return newTelemetryAgent(store, strategy, budgeter, synthesizer, factualPrompt, logger)
}

// NewAnomalyAgent creates the handler for anomaly questions.
func NewAnomalyAgent(store *session.Store, strategy selector.Strategy, budgeter *budget.Budgeter, synthesizer *synthesis.Synthesizer, logger *zap.Logger) *TelemetryAgent {
	return newTelemetryAgent(store, strategy, budgeter, synthesizer, anomalyPrompt, logger)
}

// NewClarificationAgent creates the handler for follow-up questions.
func NewClarificationAgent(store *session.Store, strategy selector.Strategy, budgeter *budget.Budgeter, synthesizer *synthesis.Synthesizer, logger *zap.Logger) *TelemetryAgent {
	return newTelemetryAgent(store, strategy, budgeter, synthesizer, clarificationPrompt, logger)
}

func newTelemetryAgent(store *session.Store, strategy selector.Strategy, budgeter *budget.Budgeter, synthesizer *synthesis.Synthesizer, system string, logger *zap.Logger) *TelemetryAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelemetryAgent{
		store:       store,
		strategy:    strategy,
		budgeter:    budgeter,
		synthesizer: synthesizer,
		system:      system,
		logger:      logger,
	}
}

// Respond runs the selection → budgeting → synthesis pipeline.
func (a *TelemetryAgent) Respond(ctx context.Context, sessionID, message string) (string, error) {
	snap, err := a.store.Telemetry(sessionID)
	if err != nil {
		return "", err
	}

	recent, err := a.store.RecentTurns(sessionID, recentTurnsForSelection)
	if err != nil {
		return "", err
	}

	relevant, err := a.strategy.Select(ctx, message, recent, snap)
	if err != nil {
		return "", fmt.Errorf("selecting telemetry types: %w", err)
	}
	if err := a.store.SetRelevantTypes(sessionID, relevant); err != nil {
		return "", err
	}

	a.logger.Debug("selected telemetry types",
		zap.String("session_id", sessionID),
		zap.Strings("types", relevant))

	contextText := a.budgeter.Build(snap, relevant)

	result, err := a.synthesizer.Answer(ctx, a.system, message, contextText)
	if err != nil {
		return "", err
	}

	return result.Answer, nil
}
