// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package selector maps a question (plus short trailing context) to the
// smallest sufficient set of telemetry type names. Two interchangeable
// strategies: a deterministic keyword table and an oracle-backed two-pass
// inference. Both guarantee a non-empty result for a non-empty snapshot.
package selector

import (
	"context"

	"github.com/teradata-labs/kestrel/pkg/telemetry"
	"github.com/teradata-labs/kestrel/pkg/types"
)

// Strategy selects relevant telemetry types for a question. The result is
// always a subset of the types present in the snapshot and never empty
// (the documented fallback set substitutes when nothing matches).
type Strategy interface {
	Select(ctx context.Context, question string, recent []types.Message, snap *telemetry.Snapshot) ([]string, error)
}

// fallbackPreference is the documented fallback set: status and error
// streams answer the widest range of questions when nothing else matches.
var fallbackPreference = []string{"MSG", "ERR", "MODE"}

// FallbackTypes returns the documented fallback set intersected with the
// types present in the snapshot. When none of the preferred types are
// present it degrades to the first type in sorted order, so the result is
// only empty for an empty snapshot.
func FallbackTypes(snap *telemetry.Snapshot) []string {
	var out []string
	for _, name := range fallbackPreference {
		if snap.Has(name) {
			out = append(out, name)
		}
	}
	if len(out) > 0 {
		return out
	}
	if names := snap.Types(); len(names) > 0 {
		return names[:1]
	}
	return nil
}

// intersectPresent keeps the proposed names that exist in the snapshot,
// preserving order and dropping duplicates.
func intersectPresent(proposed []string, snap *telemetry.Snapshot) []string {
	var out []string
	seen := make(map[string]bool, len(proposed))
	for _, name := range proposed {
		if snap.Has(name) && !seen[name] {
			out = append(out, name)
			seen[name] = true
		}
	}
	return out
}
