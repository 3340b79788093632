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

// Package telemetry defines the flight-telemetry data model: typed,
// timestamped record series grouped into an immutable per-session snapshot,
// plus the decoder contract that turns raw log bytes into a snapshot.
package telemetry

import (
	"fmt"
	"sort"
	"time"
)

// Record is a single decoded telemetry record: a flat mapping of field name
// to scalar value plus an optional timestamp (zero value means absent).
type Record struct {
	Timestamp time.Time
	Fields    map[string]interface{}
}

// Snapshot is the immutable per-session telemetry store: a mapping from
// message-type name (e.g. "GPS", "BAT", "ERR") to its ordered record series.
// Within one type's series, timestamps are non-decreasing once present.
// A Snapshot is read-only after construction; record slices returned by
// Records must not be mutated by callers.
type Snapshot struct {
	series map[string][]Record
	names  []string
	total  int
}

// NewSnapshot builds a snapshot from decoded series. Types with zero records
// are dropped. Within each series, records whose timestamp would move
// backwards are discarded to preserve the ordering invariant.
func NewSnapshot(series map[string][]Record) *Snapshot {
	s := &Snapshot{series: make(map[string][]Record, len(series))}
	for name, records := range series {
		var kept []Record
		var last time.Time
		for _, r := range records {
			if !r.Timestamp.IsZero() {
				if !last.IsZero() && r.Timestamp.Before(last) {
					continue
				}
				last = r.Timestamp
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			continue
		}
		s.series[name] = kept
		s.names = append(s.names, name)
		s.total += len(kept)
	}
	sort.Strings(s.names)
	return s
}

// Types returns the message-type names present in the snapshot, sorted.
func (s *Snapshot) Types() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Has reports whether the snapshot contains the given type.
func (s *Snapshot) Has(name string) bool {
	_, ok := s.series[name]
	return ok
}

// Records returns the ordered record series for a type, or nil if absent.
// The returned slice is shared with the snapshot and must not be mutated.
func (s *Snapshot) Records(name string) []Record {
	return s.series[name]
}

// Count returns the number of records for a type (0 if absent).
func (s *Snapshot) Count(name string) int {
	return len(s.series[name])
}

// TotalRecords returns the record count across all types.
func (s *Snapshot) TotalRecords() int {
	return s.total
}

// Decoder turns raw telemetry log bytes into a snapshot.
// Implementations must tolerate and skip records they identify as corrupt,
// and fail with DecodeError when no usable records remain.
type Decoder interface {
	Decode(raw []byte) (*Snapshot, error)
}

// DecodeError indicates the telemetry payload could not be decoded.
// It is surfaced verbatim to the caller and is not retryable.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("telemetry decode failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("telemetry decode failed: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }
