// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package budget

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teradata-labs/kestrel/pkg/telemetry"
)

func makeSeries(n int) []telemetry.Record {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	records := make([]telemetry.Record, n)
	for i := 0; i < n; i++ {
		records[i] = telemetry.Record{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Fields:    map[string]interface{}{"seq": float64(i), "alt": 100.0 + float64(i)},
		}
	}
	return records
}

func makeSnapshot(counts map[string]int) *telemetry.Snapshot {
	series := make(map[string][]telemetry.Record, len(counts))
	for name, n := range counts {
		series[name] = makeSeries(n)
	}
	return telemetry.NewSnapshot(series)
}

func countRecordLines(section string) int {
	n := 0
	for _, line := range strings.Split(section, "\n") {
		if strings.HasPrefix(line, "2026-") {
			n++
		}
	}
	return n
}

func TestBuildSmallSeriesIncludedInFull(t *testing.T) {
	b := New(DefaultConfig(), zaptest.NewLogger(t))
	snap := makeSnapshot(map[string]int{"GPS": 500})

	out := b.Build(snap, []string{"GPS"})
	assert.Contains(t, out, "=== GPS (500 records) ===")
	assert.Equal(t, 500, countRecordLines(out))
	assert.Contains(t, out, "seq=0")
	assert.Contains(t, out, "seq=499")
}

func TestBuildMediumSeriesThreeWindows(t *testing.T) {
	b := New(DefaultConfig(), zaptest.NewLogger(t))
	snap := makeSnapshot(map[string]int{"GPS": 600})

	// 600 records with 300-record windows: first, middle and last windows
	// overlap heavily; dedup keeps each record at most once and in order.
	out := b.Build(snap, []string{"GPS"})
	assert.Contains(t, out, "=== GPS (600 records) ===")

	lines := countRecordLines(out)
	assert.LessOrEqual(t, lines, 900)
	assert.Greater(t, lines, 0)

	// Order preserved: seq=0 line appears before seq=599 line.
	assert.Less(t, strings.Index(out, "seq=0 "), strings.Index(out, "seq=599"))
}

func TestBuildMediumSeriesDisjointWindows(t *testing.T) {
	b := New(DefaultConfig(), zaptest.NewLogger(t))
	snap := makeSnapshot(map[string]int{"GPS": 5000})

	out := b.Build(snap, []string{"GPS"})
	assert.Equal(t, 900, countRecordLines(out))

	// First window, middle window, last window.
	assert.Contains(t, out, "seq=0 ")
	assert.Contains(t, out, "seq=2500 ")
	assert.Contains(t, out, "seq=4999")
	// Records between windows are excluded.
	assert.NotContains(t, out, "seq=1000 ")
}

func TestBuildLargeSeriesSummaryAndSample(t *testing.T) {
	b := New(DefaultConfig(), zaptest.NewLogger(t))
	snap := makeSnapshot(map[string]int{"IMU": 20000})

	out := b.Build(snap, []string{"IMU"})
	assert.Contains(t, out, "=== IMU (20000 records) ===")
	assert.Contains(t, out, "--- summary ---")
	assert.Contains(t, out, "--- sample ---")

	// The note states the original count so the oracle cannot mistake the
	// sample for the full series.
	assert.Contains(t, out, "originally contains 20000 records")
	assert.Contains(t, out, "uniform sample")

	// Numeric summary covers both numeric fields.
	assert.Contains(t, out, "alt: count=20000")
	assert.Contains(t, out, "seq: count=20000")

	// Stride 66 over 20000 records yields 304 sampled records.
	assert.Less(t, countRecordLines(out), 400)
}

func TestBuildSkipsAbsentAndEmptyTypes(t *testing.T) {
	b := New(DefaultConfig(), zaptest.NewLogger(t))
	snap := makeSnapshot(map[string]int{"GPS": 10})

	out := b.Build(snap, []string{"GPS", "BAT"})
	assert.Contains(t, out, "=== GPS")
	assert.NotContains(t, out, "=== BAT")
}

func TestBuildNoRelevantData(t *testing.T) {
	b := New(DefaultConfig(), zaptest.NewLogger(t))
	snap := makeSnapshot(map[string]int{"GPS": 10})

	assert.Equal(t, NoRelevantData, b.Build(snap, nil))
	assert.Equal(t, NoRelevantData, b.Build(snap, []string{"BAT"}))
}

func TestBuildMultipleSections(t *testing.T) {
	b := New(DefaultConfig(), zaptest.NewLogger(t))
	snap := makeSnapshot(map[string]int{"GPS": 5, "BAT": 3})

	out := b.Build(snap, []string{"BAT", "GPS"})

	// Sections follow the requested order.
	assert.Less(t, strings.Index(out, "=== BAT"), strings.Index(out, "=== GPS"))
}

func TestSummarizeNumericFieldsStats(t *testing.T) {
	records := make([]telemetry.Record, 0, 5)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		records = append(records, telemetry.Record{
			Fields: map[string]interface{}{"x": v, "label": "text"},
		})
	}

	out := summarizeNumericFields(records)
	assert.Contains(t, out, "x: count=5 mean=3.0000")
	assert.Contains(t, out, "min=1.0000 max=5.0000")
	// Non-numeric fields are skipped.
	assert.NotContains(t, out, "label")
}

func TestSerializeRecordDeterministic(t *testing.T) {
	r := telemetry.Record{
		Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Fields:    map[string]interface{}{"b": 2, "a": 1, "c": 3},
	}

	want := "2026-03-01T10:00:00Z a=1 b=2 c=3"
	for i := 0; i < 5; i++ {
		require.Equal(t, want, serializeRecord(r), fmt.Sprintf("iteration %d", i))
	}
}
