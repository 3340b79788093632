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

// Package llm provides the provider-boundary plumbing shared by all LLM
// backends: the error taxonomy, retry with exponential backoff, request
// rate limiting and the structured type-selection contract.
package llm

import (
	"errors"
	"fmt"
	"time"
)

// RateLimitError indicates the provider throttled the request (HTTP 429).
// Retryable.
type RateLimitError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited (retry after %s): %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// AuthError indicates the provider rejected the credentials (401/403).
// Not retryable.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("authentication failed: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// TransientError indicates a temporary provider failure (timeouts, 5xx,
// overloaded). Retryable.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient provider error: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// ModelError indicates the provider rejected the request itself (bad model,
// malformed request, content policy). Not retryable.
type ModelError struct {
	Err error
}

func (e *ModelError) Error() string { return fmt.Sprintf("model error: %v", e.Err) }
func (e *ModelError) Unwrap() error { return e.Err }

// GenerationError is the orchestration-facing failure surfaced after the
// provider boundary has exhausted its retries. Chunk carries the index of
// the failing chunk for chunked synthesis, or -1 when not chunk-specific.
type GenerationError struct {
	Chunk int
	Err   error
}

func (e *GenerationError) Error() string {
	if e.Chunk >= 0 {
		return fmt.Sprintf("generation failed on chunk %d: %v", e.Chunk, e.Err)
	}
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsRetryable reports whether the error is worth retrying at the provider
// boundary. Only rate limiting and transient failures qualify; auth and
// model errors never resolve on their own.
func IsRetryable(err error) bool {
	var rle *RateLimitError
	var te *TransientError
	return errors.As(err, &rle) || errors.As(err, &te)
}

// ClassifyHTTPStatus maps an HTTP status code from a provider API to the
// error taxonomy. The message is preserved as the underlying cause.
func ClassifyHTTPStatus(status int, body string) error {
	cause := fmt.Errorf("API error (status %d): %s", status, body)
	switch {
	case status == 429:
		return &RateLimitError{Err: cause}
	case status == 401 || status == 403:
		return &AuthError{Err: cause}
	case status == 408 || status == 529 || status >= 500:
		return &TransientError{Err: cause}
	default:
		return &ModelError{Err: cause}
	}
}
