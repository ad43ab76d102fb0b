// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/pdiddy/reflexion-engine/internal/httputil"
	"github.com/pdiddy/reflexion-engine/internal/reflexion"
	"github.com/pdiddy/reflexion-engine/pkg/types"
)

// anthropicAPIURL is the Messages API endpoint. Package-level var for test substitution.
var anthropicAPIURL = "https://api.anthropic.com/v1/messages"

const anthropicVersion = "2023-06-01"

// AnthropicBackend calls the Anthropic Messages API with a single tool and a
// tool_choice that forces it.
type AnthropicBackend struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	UserAgent   string
	Client      *http.Client

	// RateLimitRetries bounds HTTP-level retries on 429 and 503, as
	// httputil.DoWithRetry counts them: zero uses the helper default and a
	// negative value disables them.
	RateLimitRetries int
}

type anthropicRequest struct {
	Model       string              `json:"model"`
	MaxTokens   int                 `json:"max_tokens"`
	System      string              `json:"system,omitempty"`
	Temperature *float64            `json:"temperature,omitempty"`
	Messages    []anthropicMessage  `json:"messages"`
	Tools       []anthropicTool     `json:"tools"`
	ToolChoice  anthropicToolChoice `json:"tool_choice"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicTool struct {
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	InputSchema jsonschema.Definition `json:"input_schema"`
}

type anthropicToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type anthropicResponse struct {
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
}

type anthropicContent struct {
	Type  string          `json:"type"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// Invoke sends the request to the Messages API. System-role messages in
// the conversation are folded into the system prompt, which the API keeps
// outside the message list, except trailing ones after an assistant turn:
// those become a final user turn so the request never ends on an
// assistant message, which the API would treat as a prefill.
func (a *AnthropicBackend) Invoke(ctx context.Context, req Request) (json.RawMessage, error) {
	system, msgs := anthropicMessages(req)

	maxTokens := a.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	body := anthropicRequest{
		Model:     a.Model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  msgs,
		Tools: []anthropicTool{{
			Name:        req.Tool.Name,
			Description: req.Tool.Description,
			InputSchema: req.Tool.Parameters,
		}},
		ToolChoice: anthropicToolChoice{Type: "tool", Name: req.Tool.Name},
	}
	if a.Temperature > 0 {
		t := a.Temperature
		body.Temperature = &t
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPIURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	if a.UserAgent != "" {
		httpReq.Header.Set("User-Agent", a.UserAgent)
	}

	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, httpReq, a.RateLimitRetries)
	if err != nil {
		return nil, fmt.Errorf("calling Anthropic API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Anthropic API returned %d: %s", resp.StatusCode, string(data))
	}

	var aResp anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&aResp); err != nil {
		return nil, reflexion.Malformed("decoding Anthropic response: %v", err)
	}

	for _, block := range aResp.Content {
		if block.Type == "tool_use" && block.Name == req.Tool.Name {
			return block.Input, nil
		}
	}
	return nil, reflexion.Malformed("model did not call %s (stop reason %q)", req.Tool.Name, aResp.StopReason)
}

// anthropicMessages splits req into the system prompt and the message list.
func anthropicMessages(req Request) (string, []anthropicMessage) {
	tail := len(req.Messages)
	for tail > 0 && req.Messages[tail-1].Role == types.RoleSystem {
		tail--
	}

	system := []string{req.System}
	var msgs []anthropicMessage
	for _, m := range req.Messages[:tail] {
		if m.Role == types.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		msgs = append(msgs, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}

	var trailing []string
	for _, m := range req.Messages[tail:] {
		trailing = append(trailing, m.Content)
	}
	switch {
	case len(trailing) == 0:
	case len(msgs) > 0 && msgs[len(msgs)-1].Role == string(types.RoleAssistant):
		msgs = append(msgs, anthropicMessage{Role: string(types.RoleUser), Content: strings.Join(trailing, "\n\n")})
	default:
		system = append(system, trailing...)
	}
	return strings.Join(system, "\n\n"), msgs
}
