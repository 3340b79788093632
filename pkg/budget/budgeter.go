// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package budget turns a relevance set plus telemetry snapshot into one
// bounded string, regardless of the underlying series sizes. A three-tier
// volume policy applies per type: full serialization for small series,
// a deterministic three-window sample for medium ones, and a numeric
// summary plus uniform stride sample for large ones.
package budget

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/teradata-labs/kestrel/pkg/telemetry"
)

// NoRelevantData is returned when the relevance set yields no emittable
// section. Callers must treat it as valid, non-error downstream input.
const NoRelevantData = "No relevant telemetry data is available for this question."

// Config holds the tier thresholds. The defaults implement the standard
// policy: full output up to 500 records, three 300-record windows up to
// 10,000, and summary plus ~300-record stride sample above that.
type Config struct {
	FullLimit       int
	WindowSize      int
	HybridThreshold int
	SampleTarget    int
}

// DefaultConfig returns the standard tier thresholds.
func DefaultConfig() Config {
	return Config{
		FullLimit:       500,
		WindowSize:      300,
		HybridThreshold: 10000,
		SampleTarget:    300,
	}
}

// Budgeter builds bounded textual contexts from telemetry snapshots.
type Budgeter struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a budgeter. A zero-valued config uses the defaults.
func New(cfg Config, logger *zap.Logger) *Budgeter {
	def := DefaultConfig()
	if cfg.FullLimit <= 0 {
		cfg.FullLimit = def.FullLimit
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = def.WindowSize
	}
	if cfg.HybridThreshold <= 0 {
		cfg.HybridThreshold = def.HybridThreshold
	}
	if cfg.SampleTarget <= 0 {
		cfg.SampleTarget = def.SampleTarget
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Budgeter{cfg: cfg, logger: logger}
}

// Build assembles one bounded context string from the given types. Each
// emitted section is self-describing: a header names the source type and its
// record count so the oracle can attribute claims. Types absent from the
// snapshot or with zero records are silently skipped.
func (b *Budgeter) Build(snap *telemetry.Snapshot, typeNames []string) string {
	var sections []string
	for _, name := range typeNames {
		n := snap.Count(name)
		if n == 0 {
			continue
		}
		records := snap.Records(name)

		var body string
		switch {
		case n <= b.cfg.FullLimit:
			body = serializeRecords(records)
		case n <= b.cfg.HybridThreshold:
			body = b.windowSample(records)
		default:
			body = b.hybridSummary(name, records)
		}

		sections = append(sections,
			fmt.Sprintf("=== %s (%d records) ===\n%s", name, n, body))
	}

	if len(sections) == 0 {
		return NoRelevantData
	}

	context := strings.Join(sections, "\n\n")
	b.logger.Debug("built bounded context",
		zap.Int("sections", len(sections)),
		zap.Int("bytes", len(context)))
	return context
}

// windowSample takes the first, middle and last windows of the series,
// deduplicates exact index overlaps and emits the merged sequence in the
// original order. Output size is bounded by three window sizes.
func (b *Budgeter) windowSample(records []telemetry.Record) string {
	n := len(records)
	w := b.cfg.WindowSize

	include := make([]bool, n)
	mark := func(start, end int) {
		if start < 0 {
			start = 0
		}
		if end > n {
			end = n
		}
		for i := start; i < end; i++ {
			include[i] = true
		}
	}

	mark(0, w)
	mid := n / 2
	mark(mid-w/2, mid-w/2+w)
	mark(n-w, n)

	var sb strings.Builder
	for i, in := range include {
		if in {
			sb.WriteString(serializeRecord(records[i]))
			sb.WriteByte('\n')
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// hybridSummary emits a numeric summary of the full series plus a uniform
// stride sample, with an explicit downsampling note stating the original
// count.
func (b *Budgeter) hybridSummary(name string, records []telemetry.Record) string {
	n := len(records)

	stride := n / b.cfg.SampleTarget
	if stride < 1 {
		stride = 1
	}
	var sampled []telemetry.Record
	for i := 0; i < n; i += stride {
		sampled = append(sampled, records[i])
	}

	var sb strings.Builder
	sb.WriteString("--- summary ---\n")
	sb.WriteString(summarizeNumericFields(records))
	sb.WriteString("--- sample ---\n")
	for _, r := range sampled {
		sb.WriteString(serializeRecord(r))
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb,
		"NOTE: %s originally contains %d records; shown above is a uniform sample of %d records (stride %d) plus a numeric summary of the full series.",
		name, n, len(sampled), stride)
	return sb.String()
}

// summarizeNumericFields computes count, mean, std, min, max and quartiles
// per numeric field over the full series. Non-numeric fields are skipped.
func summarizeNumericFields(records []telemetry.Record) string {
	values := make(map[string][]float64)
	for _, r := range records {
		for field, v := range r.Fields {
			if f, ok := asFloat(v); ok {
				values[field] = append(values[field], f)
			}
		}
	}

	fields := make([]string, 0, len(values))
	for field := range values {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var sb strings.Builder
	for _, field := range fields {
		vals := values[field]
		sorted := make([]float64, len(vals))
		copy(sorted, vals)
		sort.Float64s(sorted)

		mean, std := stat.MeanStdDev(vals, nil)
		if len(vals) < 2 {
			std = 0
		}
		fmt.Fprintf(&sb,
			"%s: count=%d mean=%.4f std=%.4f min=%.4f max=%.4f q25=%.4f q50=%.4f q75=%.4f\n",
			field, len(vals), mean, std,
			sorted[0], sorted[len(sorted)-1],
			stat.Quantile(0.25, stat.Empirical, sorted, nil),
			stat.Quantile(0.50, stat.Empirical, sorted, nil),
			stat.Quantile(0.75, stat.Empirical, sorted, nil),
		)
	}
	return sb.String()
}

// serializeRecords emits every record, one per line.
func serializeRecords(records []telemetry.Record) string {
	var sb strings.Builder
	for _, r := range records {
		sb.WriteString(serializeRecord(r))
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

// serializeRecord emits one record as "timestamp field=value ..." with
// fields in sorted order for deterministic output.
func serializeRecord(r telemetry.Record) string {
	fields := make([]string, 0, len(r.Fields))
	for field := range r.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var sb strings.Builder
	if !r.Timestamp.IsZero() {
		sb.WriteString(r.Timestamp.UTC().Format(time.RFC3339))
		sb.WriteByte(' ')
	}
	for i, field := range fields {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s=%v", field, r.Fields[field])
	}
	return sb.String()
}

func asFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	default:
		return 0, false
	}
}
