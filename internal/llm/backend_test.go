// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/reflexion-engine/internal/httputil"
	"github.com/pdiddy/reflexion-engine/internal/reflexion"
	"github.com/pdiddy/reflexion-engine/pkg/types"
)

// --- NewBackend ---

func TestNewBackend(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.AIConfig
		want    any
		wantErr string
	}{
		{"openai", types.AIConfig{Provider: types.ProviderOpenAI, Model: "gpt-4o", APIKey: "sk"}, &OpenAIBackend{}, ""},
		{"default provider is openai", types.AIConfig{Model: "gpt-4o", APIKey: "sk"}, &OpenAIBackend{}, ""},
		{"openai-compatible without key", types.AIConfig{Model: "llama3", BaseURL: "http://localhost:11434/v1"}, &OpenAIBackend{}, ""},
		{"anthropic", types.AIConfig{Provider: types.ProviderAnthropic, Model: "claude-sonnet-4-5", APIKey: "ak"}, &AnthropicBackend{}, ""},
		{"openai without key", types.AIConfig{Model: "gpt-4o"}, nil, "OPENAI_API_KEY"},
		{"anthropic without key", types.AIConfig{Provider: types.ProviderAnthropic, Model: "m"}, nil, "ANTHROPIC_API_KEY"},
		{"no model", types.AIConfig{APIKey: "sk"}, nil, "no model"},
		{"unknown provider", types.AIConfig{Provider: "bard", Model: "m", APIKey: "k"}, nil, "unknown AI provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewBackend(tt.cfg, nil)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, got)
		})
	}
}

// --- OpenAIBackend ---

func chatCompletion(toolName, args string) string {
	resp := map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "test-model",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "tool_calls",
			"message": map[string]any{
				"role": "assistant",
				"tool_calls": []any{map[string]any{
					"id":   "call_1",
					"type": "function",
					"function": map[string]any{
						"name":      toolName,
						"arguments": args,
					},
				}},
			},
		}},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestOpenAIBackendInvoke(t *testing.T) {
	var got map[string]any
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, chatCompletion(AnswerToolName, draftJSON))
	}))
	defer ts.Close()

	b := NewOpenAIBackend(types.AIConfig{Model: "test-model", APIKey: "sk-test", BaseURL: ts.URL + "/v1"}, ts.Client())
	req, err := buildRequest(draftInstruction, question("What is Go?"), AnswerTool)
	require.NoError(t, err)

	data, err := b.Invoke(context.Background(), req)
	require.NoError(t, err)
	assert.JSONEq(t, draftJSON, string(data))

	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "test-model", got["model"])

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 3)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
	assert.Equal(t, closingInstruction, msgs[2].(map[string]any)["content"])

	choice := got["tool_choice"].(map[string]any)
	assert.Equal(t, "function", choice["type"])
	assert.Equal(t, AnswerToolName, choice["function"].(map[string]any)["name"])

	tools := got["tools"].([]any)
	require.Len(t, tools, 1)
	assert.Equal(t, AnswerToolName, tools[0].(map[string]any)["function"].(map[string]any)["name"])
}

func TestOpenAIBackendWrongTool(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, chatCompletion("SomethingElse", "{}"))
	}))
	defer ts.Close()

	b := NewOpenAIBackend(types.AIConfig{Model: "test-model", APIKey: "sk", BaseURL: ts.URL + "/v1"}, ts.Client())
	_, err := b.Invoke(context.Background(), Request{Tool: AnswerTool})
	assert.ErrorIs(t, err, reflexion.ErrMalformedOutput)
}

func TestOpenAIBackendAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer ts.Close()

	b := NewOpenAIBackend(types.AIConfig{Model: "test-model", APIKey: "sk", BaseURL: ts.URL + "/v1"}, ts.Client())
	_, err := b.Invoke(context.Background(), Request{Tool: AnswerTool})
	require.Error(t, err)
	assert.NotErrorIs(t, err, reflexion.ErrMalformedOutput)
	assert.Contains(t, err.Error(), "bad key")
}

// --- AnthropicBackend ---

func withAnthropicServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(h)
	old := anthropicAPIURL
	anthropicAPIURL = ts.URL
	t.Cleanup(func() {
		anthropicAPIURL = old
		ts.Close()
	})
	return ts
}

func TestAnthropicBackendInvoke(t *testing.T) {
	var got anthropicRequest
	var headers http.Header
	ts := withAnthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"content":[{"type":"text","text":"thinking"},{"type":"tool_use","id":"tu_1","name":"ReviseAnswer","input":`+revisionJSON+`}],"stop_reason":"tool_use"}`)
	})

	b := &AnthropicBackend{APIKey: "ak-test", Model: "claude-test", Client: ts.Client()}
	conv := append(question("q"), types.Message{Role: types.RoleAssistant, Content: "Previous answer:\na"})
	req, err := buildRequest(reviseInstruction, conv, RevisionTool)
	require.NoError(t, err)

	data, err := b.Invoke(context.Background(), req)
	require.NoError(t, err)
	assert.JSONEq(t, revisionJSON, string(data))

	assert.Equal(t, "ak-test", headers.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, headers.Get("anthropic-version"))

	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, 4096, got.MaxTokens)
	assert.Contains(t, got.System, "You are an expert researcher.")
	assert.NotContains(t, got.System, closingInstruction)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "assistant", got.Messages[1].Role)
	assert.Equal(t, anthropicMessage{Role: "user", Content: closingInstruction}, got.Messages[2],
		"a conversation ending on the assistant turn gets the closing instruction as a user turn")
	assert.Equal(t, anthropicToolChoice{Type: "tool", Name: RevisionToolName}, got.ToolChoice)
	require.Len(t, got.Tools, 1)
	assert.Equal(t, RevisionToolName, got.Tools[0].Name)
}

func TestAnthropicBackendErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		malformed bool
		errMsg    string
	}{
		{"api error", http.StatusBadRequest, `{"error":{"message":"nope"}}`, false, "returned 400"},
		{"no tool call", http.StatusOK, `{"content":[{"type":"text","text":"hi"}],"stop_reason":"end_turn"}`, true, "did not call"},
		{"garbage body", http.StatusOK, `<html>`, true, "decoding"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := withAnthropicServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			b := &AnthropicBackend{APIKey: "ak", Model: "m", Client: ts.Client()}
			_, err := b.Invoke(context.Background(), Request{Tool: AnswerTool})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Equal(t, tt.malformed, errors.Is(err, reflexion.ErrMalformedOutput))
		})
	}
}

func TestAnthropicMessages(t *testing.T) {
	sys := func(c string) types.Message { return types.Message{Role: types.RoleSystem, Content: c} }
	user := func(c string) types.Message { return types.Message{Role: types.RoleUser, Content: c} }
	asst := func(c string) types.Message { return types.Message{Role: types.RoleAssistant, Content: c} }

	tests := []struct {
		name       string
		messages   []types.Message
		wantSystem string
		wantMsgs   []anthropicMessage
	}{
		{
			name:       "closing after user turn is folded into system",
			messages:   []types.Message{user("q"), sys("close")},
			wantSystem: "prompt\n\nclose",
			wantMsgs:   []anthropicMessage{{Role: "user", Content: "q"}},
		},
		{
			name:       "closing after assistant turn becomes a user turn",
			messages:   []types.Message{user("q"), asst("a"), sys("close")},
			wantSystem: "prompt",
			wantMsgs: []anthropicMessage{
				{Role: "user", Content: "q"},
				{Role: "assistant", Content: "a"},
				{Role: "user", Content: "close"},
			},
		},
		{
			name:       "several trailing system messages are joined",
			messages:   []types.Message{user("q"), asst("a"), sys("one"), sys("two")},
			wantSystem: "prompt",
			wantMsgs: []anthropicMessage{
				{Role: "user", Content: "q"},
				{Role: "assistant", Content: "a"},
				{Role: "user", Content: "one\n\ntwo"},
			},
		},
		{
			name:       "system messages mid conversation stay in system",
			messages:   []types.Message{sys("early"), user("q"), asst("a")},
			wantSystem: "prompt\n\nearly",
			wantMsgs: []anthropicMessage{
				{Role: "user", Content: "q"},
				{Role: "assistant", Content: "a"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			system, msgs := anthropicMessages(Request{System: "prompt", Messages: tt.messages})
			assert.Equal(t, tt.wantSystem, system)
			assert.Equal(t, tt.wantMsgs, msgs)
		})
	}
}

func TestAnthropicReviseWithoutSearchResults(t *testing.T) {
	var got anthropicRequest
	ts := withAnthropicServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		io.WriteString(w, `{"content":[{"type":"tool_use","name":"ReviseAnswer","input":`+revisionJSON+`}],"stop_reason":"tool_use"}`)
	})

	state := reflexion.NewLoopState("Why is the sky blue?")
	state.CurrentAnswer = &types.StructuredAnswer{Answer: "Rayleigh scattering."}
	conv, err := reflexion.ReviseConversation(state)
	require.NoError(t, err)

	b := &AnthropicBackend{APIKey: "ak", Model: "m", Client: ts.Client()}
	rev, err := NewRevisor(b, types.AIConfig{}, zerolog.Nop()).Revise(context.Background(), conv)
	require.NoError(t, err)
	assert.Equal(t, "Go has goroutines [1].", rev.Answer)

	require.NotEmpty(t, got.Messages)
	roles := make([]string, len(got.Messages))
	for i, m := range got.Messages {
		roles[i] = m.Role
	}
	assert.Equal(t, []string{"user", "assistant", "user"}, roles)
}

func TestAnthropicRateLimitRetries(t *testing.T) {
	old := httputil.RetryBaseDelay
	httputil.RetryBaseDelay = time.Millisecond
	t.Cleanup(func() { httputil.RetryBaseDelay = old })

	tests := []struct {
		name      string
		retries   int
		wantCalls int32
	}{
		{"negative disables HTTP retries", -1, 1},
		{"explicit budget", 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			ts := withAnthropicServer(t, func(w http.ResponseWriter, _ *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(http.StatusTooManyRequests)
			})

			b := &AnthropicBackend{APIKey: "ak", Model: "m", Client: ts.Client(), RateLimitRetries: tt.retries}
			_, err := b.Invoke(context.Background(), Request{Tool: AnswerTool})
			assert.ErrorContains(t, err, "returned 429")
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(&calls))
		})
	}
}

func TestNewBackendSeparatesRetryBudgets(t *testing.T) {
	cfg := types.AIConfig{
		Provider:         types.ProviderAnthropic,
		Model:            "m",
		APIKey:           "ak",
		MaxRetries:       2,
		RateLimitRetries: -1,
	}
	b, err := NewBackend(cfg, nil)
	require.NoError(t, err)

	ab, ok := b.(*AnthropicBackend)
	require.True(t, ok)
	assert.Equal(t, -1, ab.RateLimitRetries)
}
