// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DefaultMaxIterations bounds the number of revise steps when no other
// value is configured.
const DefaultMaxIterations = 2

// HTTPConfig holds shared HTTP settings used by adapters that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "reflexion-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// LoopConfig holds settings for the loop controller.
type LoopConfig struct {
	// MaxIterations is the number of revise steps after which the loop
	// terminates. Must be positive.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`
}

// AIProvider identifies the language model API.
type AIProvider string

const (
	ProviderOpenAI    AIProvider = "openai"
	ProviderAnthropic AIProvider = "anthropic"
)

// AIConfig holds settings for the responder and revisor.
type AIConfig struct {
	HTTPConfig `yaml:",inline"`

	// Provider selects the API: openai or anthropic.
	Provider AIProvider `json:"provider" yaml:"provider"`

	// Model is the AI model identifier (e.g. "gpt-4o").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint for OpenAI-compatible providers.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Temperature is the sampling temperature.
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// MaxTokens limits the length of each structured response.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// MaxRetries is the number of whole-call retries after a failed model
	// call (default 0: a single attempt).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RateLimitRetries bounds the HTTP retries on 429 and 503 inside one
	// call for backends speaking HTTP directly (0 = default of 5, negative
	// disables).
	RateLimitRetries int `json:"rate_limit_retries" yaml:"rate_limit_retries"`
}

// SearchProvider identifies the search backend used to resolve queries.
type SearchProvider string

const (
	SearchTavily          SearchProvider = "tavily"
	SearchSemanticScholar SearchProvider = "semantic_scholar"
	SearchArxiv           SearchProvider = "arxiv"
	SearchOpenAlex        SearchProvider = "openalex"
)

// SearchConfig holds settings for the query resolver.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// Provider selects the search backend.
	Provider SearchProvider `json:"provider" yaml:"provider"`

	// APIKey authenticates against the search backend, when it needs one.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxResults is the maximum number of hits kept per query (default 5).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// Depth is the Tavily search depth: basic or advanced.
	Depth string `json:"depth,omitempty" yaml:"depth,omitempty"`

	// Email is sent to OpenAlex as the mailto parameter for polite pool access.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// RequestsPerSecond paces provider calls within a batch (0 = unlimited).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// HistoryConfig holds settings for the run archive.
type HistoryConfig struct {
	// Enabled controls whether finished runs are archived.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Dir is the directory holding the history database.
	Dir string `json:"dir" yaml:"dir"`

	// MaxResults is the default number of runs listed (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// LoggingConfig holds settings for diagnostic logging.
type LoggingConfig struct {
	// Level is a zerolog level name: debug, info, warn, error.
	Level string `json:"level" yaml:"level"`

	// Format is console or json.
	Format string `json:"format" yaml:"format"`
}

// Config groups all settings for a reflexion run.
type Config struct {
	Loop    LoopConfig    `json:"loop" yaml:"loop"`
	AI      AIConfig      `json:"ai" yaml:"ai"`
	Search  SearchConfig  `json:"search" yaml:"search"`
	History HistoryConfig `json:"history" yaml:"history"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Loop: LoopConfig{MaxIterations: DefaultMaxIterations},
		AI: AIConfig{
			HTTPConfig: HTTPConfig{Timeout: 120 * time.Second, UserAgent: "reflexion-engine/0.1"},
			Provider:   ProviderOpenAI,
			Model:      "gpt-4o",
			MaxTokens:  4096,
		},
		Search: SearchConfig{
			HTTPConfig: HTTPConfig{Timeout: 30 * time.Second, UserAgent: "reflexion-engine/0.1"},
			Provider:   SearchTavily,
			MaxResults: 5,
			Depth:      "basic",
		},
		History: HistoryConfig{
			Enabled:    true,
			Dir:        ".reflexion",
			MaxResults: 20,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}
