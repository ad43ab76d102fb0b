// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/pdiddy/reflexion-engine/internal/reflexion"
	"github.com/pdiddy/reflexion-engine/pkg/types"
)

// OpenAIBackend calls the chat completions API of OpenAI or any compatible
// provider reachable at a custom base URL.
type OpenAIBackend struct {
	api         *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIBackend builds a go-openai client from cfg.
func NewOpenAIBackend(cfg types.AIConfig, client *http.Client) *OpenAIBackend {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if client != nil {
		oc.HTTPClient = client
	}
	return &OpenAIBackend{
		api:         openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		maxTokens:   cfg.MaxTokens,
	}
}

// Invoke sends the conversation with a single function tool and forces the
// model to call it.
func (b *OpenAIBackend) Invoke(ctx context.Context, req Request) (json.RawMessage, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	params := req.Tool.Parameters
	creq := openai.ChatCompletionRequest{
		Model:       b.model,
		Messages:    msgs,
		Temperature: b.temperature,
		MaxTokens:   b.maxTokens,
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        req.Tool.Name,
				Description: req.Tool.Description,
				Parameters:  &params,
			},
		}},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: req.Tool.Name},
		},
	}

	resp, err := b.api.CreateChatCompletion(ctx, creq)
	if err != nil {
		return nil, fmt.Errorf("calling chat completions: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, reflexion.Malformed("chat completion returned no choices")
	}

	for _, tc := range resp.Choices[0].Message.ToolCalls {
		if tc.Function.Name != req.Tool.Name {
			continue
		}
		return json.RawMessage(tc.Function.Arguments), nil
	}
	return nil, reflexion.Malformed("model did not call %s", req.Tool.Name)
}
