// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package intent classifies inbound messages into a closed label set and
// dispatches each to its registered handler. Unrecognized labels degrade to
// the fallback handler rather than raising.
package intent

import (
	"context"
	"strings"
)

// Intent is a classification label from the closed set.
type Intent string

const (
	IntentGreeting      Intent = "greeting"
	IntentFactual       Intent = "factual"
	IntentAnomaly       Intent = "anomaly"
	IntentClarification Intent = "clarification"
	IntentOther         Intent = "other"

	// IntentUnknown is the stored default before any classification and
	// the label persisted when classification itself fails.
	IntentUnknown Intent = "unknown"
)

// All returns the closed label set presented to the classifier.
func All() []Intent {
	return []Intent{IntentGreeting, IntentFactual, IntentAnomaly, IntentClarification, IntentOther}
}

// Normalize trims and lowercases a raw oracle label. It deliberately does
// NOT validate against the closed set; dispatch treats unrecognized labels
// as a miss and uses the fallback handler.
func Normalize(raw string) Intent {
	return Intent(strings.ToLower(strings.TrimSpace(raw)))
}

// Handler answers one inbound message for a session. Implementations may
// read recent turns from session state; turn persistence is owned by the
// orchestrator so every message yields exactly one recorded assistant turn.
type Handler interface {
	Respond(ctx context.Context, sessionID, message string) (string, error)
}
