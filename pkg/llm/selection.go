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

package llm

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// SelectTypesToolName is the forced tool providers expose to the oracle for
// structured type selection.
const SelectTypesToolName = "select_types"

// selectionSchema validates the structured payload the oracle returns for a
// type-selection call. The payload must be {"types": ["...", ...]}.
const selectionSchema = `{
	"type": "object",
	"properties": {
		"types": {
			"type": "array",
			"items": {"type": "string"}
		}
	},
	"required": ["types"]
}`

// ParseTypeSelection validates and decodes the oracle's structured
// type-selection payload. A payload that fails schema validation is treated
// as malformed; the caller falls back to its documented default set.
func ParseTypeSelection(payload []byte) ([]string, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(selectionSchema),
		gojsonschema.NewBytesLoader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("validating type selection: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("type selection payload does not match schema: %v", result.Errors())
	}

	var parsed struct {
		Types []string `json:"types"`
	}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("decoding type selection: %w", err)
	}
	return parsed.Types, nil
}

// FilterToCandidates drops any proposed name that is not in the candidate
// set, preserving proposal order and removing duplicates. The structured
// output contract requires the oracle to pick from the given candidates;
// anything else is discarded rather than trusted.
func FilterToCandidates(proposed, candidates []string) []string {
	allowed := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		allowed[c] = true
	}
	var out []string
	seen := make(map[string]bool, len(proposed))
	for _, p := range proposed {
		if allowed[p] && !seen[p] {
			out = append(out, p)
			seen[p] = true
		}
	}
	return out
}
