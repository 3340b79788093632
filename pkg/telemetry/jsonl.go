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

package telemetry

import (
	"bufio"
	"bytes"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// jsonlRecord is the wire form of one record in a JSON-Lines telemetry dump.
type jsonlRecord struct {
	Type      string                 `json:"type"`
	Timestamp string                 `json:"timestamp,omitempty"`
	Fields    map[string]interface{} `json:"fields"`
}

// JSONLDecoder is the reference decoder: one JSON object per line with a
// "type" name, an optional RFC 3339 "timestamp" and a flat "fields" object.
// Binary flight-log formats are decoded by external collaborators that
// implement the same Decoder interface; this decoder exists so the pipeline
// is usable and testable end to end without them.
type JSONLDecoder struct {
	logger *zap.Logger
}

// NewJSONLDecoder creates a JSON-Lines decoder.
func NewJSONLDecoder(logger *zap.Logger) *JSONLDecoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONLDecoder{logger: logger}
}

// Decode parses the payload line by line. Corrupt lines (malformed JSON,
// missing type) are skipped and counted. Fails with DecodeError when the
// payload yields no usable records at all.
func (d *JSONLDecoder) Decode(raw []byte) (*Snapshot, error) {
	series := make(map[string][]Record)
	skipped := 0
	lines := 0

	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lines++

		var rec jsonlRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.Type == "" {
			skipped++
			continue
		}

		var ts time.Time
		if rec.Timestamp != "" {
			parsed, err := time.Parse(time.RFC3339Nano, rec.Timestamp)
			if err != nil {
				skipped++
				continue
			}
			ts = parsed
		}

		series[rec.Type] = append(series[rec.Type], Record{
			Timestamp: ts,
			Fields:    rec.Fields,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, &DecodeError{Reason: "reading payload", Err: err}
	}

	if lines == 0 {
		return nil, &DecodeError{Reason: "empty payload"}
	}
	if len(series) == 0 {
		return nil, &DecodeError{Reason: "no decodable records in payload"}
	}

	if skipped > 0 {
		d.logger.Warn("skipped corrupt telemetry records",
			zap.Int("skipped", skipped),
			zap.Int("lines", lines))
	}

	return NewSnapshot(series), nil
}

// Ensure JSONLDecoder implements the Decoder interface.
var _ Decoder = (*JSONLDecoder)(nil)
