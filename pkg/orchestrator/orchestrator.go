// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package orchestrator exposes the two-operation surface the transport
// layer consumes: Upload ingests a telemetry recording for a session, and
// Ask answers one message through classification, dispatch and synthesis.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/kestrel/pkg/intent"
	"github.com/teradata-labs/kestrel/pkg/session"
	"github.com/teradata-labs/kestrel/pkg/telemetry"
	"github.com/teradata-labs/kestrel/pkg/types"
)

// failureReply is recorded as the assistant turn when generation fails, so
// conversation history stays consistent even on failure.
const failureReply = "Sorry, I ran into a problem answering that. Please try again."

// Orchestrator wires the session store, decoder and router into the
// upload/ask surface. All collaborators are injected at construction; there
// are no process-wide singletons.
type Orchestrator struct {
	store   *session.Store
	decoder telemetry.Decoder
	router  *intent.Router
	logger  *zap.Logger
}

// New creates an orchestrator.
func New(store *session.Store, decoder telemetry.Decoder, router *intent.Router, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:   store,
		decoder: decoder,
		router:  router,
		logger:  logger,
	}
}

// Upload decodes a raw telemetry recording and registers it for the
// session. Decode failures surface verbatim; uploading twice for the same
// id fails with DuplicateSessionError until the session is evicted.
func (o *Orchestrator) Upload(_ context.Context, sessionID string, raw []byte) error {
	start := time.Now()

	snap, err := o.decoder.Decode(raw)
	if err != nil {
		o.logger.Warn("telemetry decode failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return err
	}

	if err := o.store.Create(sessionID, snap); err != nil {
		return err
	}

	o.logger.Info("telemetry uploaded",
		zap.String("session_id", sessionID),
		zap.Int("types", len(snap.Types())),
		zap.Int("records", snap.TotalRecords()),
		zap.Duration("decode_time", time.Since(start)))
	return nil
}

// Ask answers one inbound message for the session. The user turn is always
// recorded; exactly one assistant turn is recorded per message, carrying
// either the answer or a failure message. The error returned alongside a
// failure lets the transport layer choose its own status mapping.
func (o *Orchestrator) Ask(ctx context.Context, sessionID, message string) (string, error) {
	if !o.store.Has(sessionID) {
		return "", &session.UnknownSessionError{SessionID: sessionID}
	}

	// Route before persisting the turn: the classifier and the handlers read
	// history ending at the previous exchange, and the message being answered
	// travels as an argument. Appending first would make it show up as its
	// own "most recent turn".
	answer, routeErr := o.router.Route(ctx, sessionID, message)

	reply := answer
	if routeErr != nil {
		o.logger.Error("turn failed",
			zap.String("session_id", sessionID),
			zap.Error(routeErr))
		reply = failureReply
	}

	if err := o.store.AppendTurn(sessionID, types.RoleUser, message); err != nil {
		return "", errors.Join(routeErr, err)
	}
	if err := o.store.AppendTurn(sessionID, types.RoleAssistant, reply); err != nil {
		return "", errors.Join(routeErr, err)
	}

	if routeErr != nil {
		var unknown *session.UnknownSessionError
		if errors.As(routeErr, &unknown) {
			return "", routeErr
		}
		return "", fmt.Errorf("answering message for session %s: %w", sessionID, routeErr)
	}
	return answer, nil
}

// Evict tears down a session. Lifetime policy (TTL, explicit teardown)
// belongs to the caller.
func (o *Orchestrator) Evict(sessionID string) {
	o.store.Evict(sessionID)
}
