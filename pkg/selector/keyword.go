// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package selector

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teradata-labs/kestrel/pkg/telemetry"
	"github.com/teradata-labs/kestrel/pkg/types"
)

// KeywordTable maps lowercase keyword substrings to telemetry type sets.
type KeywordTable map[string][]string

// DefaultKeywordTable covers the common flight-log vocabulary. Keys must be
// lowercase; matching is plain substring containment on the question.
func DefaultKeywordTable() KeywordTable {
	return KeywordTable{
		"gps":          {"GPS"},
		"position":     {"GPS"},
		"latitude":     {"GPS"},
		"longitude":    {"GPS"},
		"satellite":    {"GPS"},
		"altitude":     {"GPS", "BARO"},
		"height":       {"GPS", "BARO"},
		"climb":        {"BARO"},
		"pressure":     {"BARO"},
		"battery":      {"BAT"},
		"voltage":      {"BAT"},
		"current":      {"BAT"},
		"power":        {"BAT", "POWR"},
		"attitude":     {"ATT"},
		"roll":         {"ATT"},
		"pitch":        {"ATT"},
		"yaw":          {"ATT"},
		"heading":      {"ATT", "MAG"},
		"compass":      {"MAG"},
		"magnetometer": {"MAG"},
		"vibration":    {"VIBE"},
		"vibe":         {"VIBE"},
		"motor":        {"RCOU"},
		"servo":        {"RCOU"},
		"rc ":          {"RCIN"},
		"radio":        {"RCIN"},
		"stick":        {"RCIN"},
		"mode":         {"MODE"},
		"flight mode":  {"MODE"},
		"error":        {"ERR", "MSG"},
		"fail":         {"ERR", "MSG"},
		"warning":      {"ERR", "MSG"},
		"message":      {"MSG"},
		"ekf":          {"XKF1"},
		"imu":          {"IMU"},
		"accel":        {"IMU"},
		"gyro":         {"IMU"},
		"speed":        {"GPS"},
		"velocity":     {"GPS"},
		"distance":     {"GPS"},
		"takeoff":      {"MODE", "MSG"},
		"land":         {"MODE", "MSG"},
	}
}

// LoadKeywordTable reads a keyword table from a YAML file of the form
// `keyword: [TYPE, TYPE]`. Used to override the default table per fleet.
func LoadKeywordTable(path string) (KeywordTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading keyword table: %w", err)
	}
	var table KeywordTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing keyword table %s: %w", path, err)
	}
	normalized := make(KeywordTable, len(table))
	for k, v := range table {
		normalized[strings.ToLower(k)] = v
	}
	return normalized, nil
}

// KeywordStrategy is the deterministic strategy: a pure function of the
// question text over a fixed keyword table.
type KeywordStrategy struct {
	table KeywordTable
}

// NewKeywordStrategy creates a keyword strategy. A nil table uses the default.
func NewKeywordStrategy(table KeywordTable) *KeywordStrategy {
	if table == nil {
		table = DefaultKeywordTable()
	}
	return &KeywordStrategy{table: table}
}

// Select returns the union of all table entries whose keyword appears in the
// lowercased question, restricted to types present in the snapshot. When no
// keyword matches (or no match is present) the fallback set is returned.
// Never returns an error and never returns empty for a non-empty snapshot.
func (k *KeywordStrategy) Select(_ context.Context, question string, _ []types.Message, snap *telemetry.Snapshot) ([]string, error) {
	lowered := strings.ToLower(question)

	matched := make(map[string]bool)
	for keyword, typeNames := range k.table {
		if strings.Contains(lowered, keyword) {
			for _, name := range typeNames {
				matched[name] = true
			}
		}
	}

	var union []string
	for name := range matched {
		union = append(union, name)
	}
	sort.Strings(union)

	present := intersectPresent(union, snap)
	if len(present) == 0 {
		return FallbackTypes(snap), nil
	}
	return present, nil
}

var _ Strategy = (*KeywordStrategy)(nil)
