// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm implements the structured responder and revisor on top of a
// chat model that supports forced tool calls. A Backend sends one request
// and returns the raw JSON arguments of the tool the model was made to
// call; the actors render prompts and validate that JSON.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/pdiddy/reflexion-engine/pkg/types"
)

// ToolSpec describes the single function the model must call.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  jsonschema.Definition
}

// Request is one forced-tool call: a system prompt, the conversation, and
// the tool whose arguments carry the structured answer.
type Request struct {
	System   string
	Messages []types.Message
	Tool     ToolSpec
}

// Backend invokes a chat model and returns the JSON arguments of the forced
// tool call. A response without that tool call is malformed output.
type Backend interface {
	Invoke(ctx context.Context, req Request) (json.RawMessage, error)
}

// NewBackend returns the backend selected by cfg.Provider. The client is
// shared by all calls; nil means a client with cfg.Timeout.
func NewBackend(cfg types.AIConfig, client *http.Client) (Backend, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("no model configured")
	}

	switch cfg.Provider {
	case types.ProviderOpenAI, "":
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("openai backend requires an API key (set .secrets/openai-api-key or OPENAI_API_KEY)")
		}
		return NewOpenAIBackend(cfg, client), nil
	case types.ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic backend requires an API key (set .secrets/anthropic-api-key or ANTHROPIC_API_KEY)")
		}
		return &AnthropicBackend{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			UserAgent:   cfg.UserAgent,
			Client:      client,

			RateLimitRetries: cfg.RateLimitRetries,
		}, nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q (want openai or anthropic)", cfg.Provider)
	}
}
