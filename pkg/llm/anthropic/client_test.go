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
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/kestrel/pkg/llm"
	"github.com/teradata-labs/kestrel/pkg/types"
)

func newTestClient(endpoint string) *Client {
	return NewClient(Config{
		APIKey:   "test-key",
		Model:    "claude-test",
		Endpoint: endpoint,
	})
}

func TestChatSuccess(t *testing.T) {
	var gotReq MessagesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := MessagesResponse{
			ID:         "msg_1",
			Model:      "claude-test",
			StopReason: "end_turn",
			Content: []ContentBlock{
				{Type: "text", Text: "The peak altitude was 104.2m."},
			},
			Usage: Usage{InputTokens: 120, OutputTokens: 18},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.Chat(context.Background(), []types.Message{
		{Role: types.RoleSystem, Content: "You are a flight-log analyst."},
		{Role: types.RoleUser, Content: "What was the max altitude?"},
	})
	require.NoError(t, err)

	assert.Equal(t, "The peak altitude was 104.2m.", resp.Content)
	assert.Equal(t, 120, resp.Usage.InputTokens)
	assert.Equal(t, 18, resp.Usage.OutputTokens)
	assert.Equal(t, 138, resp.Usage.TotalTokens)
	assert.Greater(t, resp.Usage.CostUSD, 0.0)

	// System messages ride in the dedicated field, not the messages array.
	assert.Equal(t, "You are a flight-log analyst.", gotReq.System)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
}

func TestChatErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"rate limited", 429, func(t *testing.T, err error) {
			var target *llm.RateLimitError
			assert.True(t, errors.As(err, &target))
		}},
		{"bad credentials", 401, func(t *testing.T, err error) {
			var target *llm.AuthError
			assert.True(t, errors.As(err, &target))
		}},
		{"overloaded", 529, func(t *testing.T, err error) {
			var target *llm.TransientError
			assert.True(t, errors.As(err, &target))
		}},
		{"bad request", 400, func(t *testing.T, err error) {
			var target *llm.ModelError
			assert.True(t, errors.As(err, &target))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": {"message": "nope"}}`))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			_, err := client.Chat(context.Background(), []types.Message{
				{Role: types.RoleUser, Content: "hello"},
			})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestProposeParsesToolUse(t *testing.T) {
	var gotReq MessagesRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := MessagesResponse{
			StopReason: "tool_use",
			Content: []ContentBlock{
				{
					Type: "tool_use",
					ID:   "toolu_1",
					Name: llm.SelectTypesToolName,
					Input: map[string]interface{}{
						"types": []interface{}{"GPS", "BARO", "NOT_OFFERED"},
					},
				},
			},
			Usage: Usage{InputTokens: 80, OutputTokens: 12},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	got, err := client.Propose(context.Background(), "max altitude?", []string{"GPS", "BARO", "BAT"})
	require.NoError(t, err)

	// Names outside the candidate set are discarded.
	assert.Equal(t, []string{"GPS", "BARO"}, got)

	// The request forces the selection tool.
	require.NotNil(t, gotReq.ToolChoice)
	assert.Equal(t, "tool", gotReq.ToolChoice.Type)
	assert.Equal(t, llm.SelectTypesToolName, gotReq.ToolChoice.Name)
	require.Len(t, gotReq.Tools, 1)
	assert.Equal(t, llm.SelectTypesToolName, gotReq.Tools[0].Name)
}

func TestProposeNoToolCallInResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := MessagesResponse{
			StopReason: "end_turn",
			Content:    []ContentBlock{{Type: "text", Text: "GPS and BARO"}},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Propose(context.Background(), "q", []string{"GPS", "BARO"})
	assert.Error(t, err)
}

func TestProposeMalformedToolInput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := MessagesResponse{
			StopReason: "tool_use",
			Content: []ContentBlock{
				{
					Type:  "tool_use",
					Name:  llm.SelectTypesToolName,
					Input: map[string]interface{}{"wrong_key": "GPS"},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Propose(context.Background(), "q", []string{"GPS"})
	assert.Error(t, err)
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(Config{APIKey: "k"})

	assert.Equal(t, "anthropic", client.Name())
	assert.NotEmpty(t, client.Model())
	assert.Equal(t, DefaultMaxTokens, client.maxTokens)
	assert.Equal(t, DefaultTemperature, client.temperature)
	assert.Nil(t, client.rateLimiter)
}
