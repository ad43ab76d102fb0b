// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/reflexion-engine/internal/secrets"
	"github.com/pdiddy/reflexion-engine/pkg/types"
)

// setConfigDefaults registers every config key with its default value so
// that environment variables and config files can override any of them.
func setConfigDefaults(v *viper.Viper) {
	d := types.DefaultConfig()

	v.SetDefault("loop.max_iterations", d.Loop.MaxIterations)

	v.SetDefault("ai.provider", string(d.AI.Provider))
	v.SetDefault("ai.model", d.AI.Model)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "")
	v.SetDefault("ai.temperature", d.AI.Temperature)
	v.SetDefault("ai.max_tokens", d.AI.MaxTokens)
	v.SetDefault("ai.max_retries", d.AI.MaxRetries)
	v.SetDefault("ai.rate_limit_retries", d.AI.RateLimitRetries)
	v.SetDefault("ai.timeout", d.AI.Timeout)
	v.SetDefault("ai.user_agent", d.AI.UserAgent)

	v.SetDefault("search.provider", string(d.Search.Provider))
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.max_results", d.Search.MaxResults)
	v.SetDefault("search.depth", d.Search.Depth)
	v.SetDefault("search.email", "")
	v.SetDefault("search.requests_per_second", d.Search.RequestsPerSecond)
	v.SetDefault("search.timeout", d.Search.Timeout)
	v.SetDefault("search.user_agent", d.Search.UserAgent)

	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.dir", d.History.Dir)
	v.SetDefault("history.max_results", d.History.MaxResults)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// loadConfig assembles a Config from v. API keys not set through config or
// environment are taken from the loaded secrets.
func loadConfig(v *viper.Viper, loaded map[string]string) types.Config {
	cfg := types.Config{
		Loop: types.LoopConfig{
			MaxIterations: v.GetInt("loop.max_iterations"),
		},
		AI: types.AIConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   v.GetDuration("ai.timeout"),
				UserAgent: v.GetString("ai.user_agent"),
			},
			Provider:    types.AIProvider(v.GetString("ai.provider")),
			Model:       v.GetString("ai.model"),
			APIKey:      v.GetString("ai.api_key"),
			BaseURL:     v.GetString("ai.base_url"),
			Temperature: v.GetFloat64("ai.temperature"),
			MaxTokens:   v.GetInt("ai.max_tokens"),
			MaxRetries:  v.GetInt("ai.max_retries"),

			RateLimitRetries: v.GetInt("ai.rate_limit_retries"),
		},
		Search: types.SearchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   v.GetDuration("search.timeout"),
				UserAgent: v.GetString("search.user_agent"),
			},
			Provider:          types.SearchProvider(v.GetString("search.provider")),
			APIKey:            v.GetString("search.api_key"),
			MaxResults:        v.GetInt("search.max_results"),
			Depth:             v.GetString("search.depth"),
			Email:             v.GetString("search.email"),
			RequestsPerSecond: v.GetFloat64("search.requests_per_second"),
		},
		History: types.HistoryConfig{
			Enabled:    v.GetBool("history.enabled"),
			Dir:        v.GetString("history.dir"),
			MaxResults: v.GetInt("history.max_results"),
		},
		Logging: types.LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if cfg.AI.APIKey == "" {
		switch cfg.AI.Provider {
		case types.ProviderAnthropic:
			cfg.AI.APIKey = secrets.Lookup(loaded, secrets.AnthropicKey)
		default:
			cfg.AI.APIKey = secrets.Lookup(loaded, secrets.OpenAIKey)
		}
	}
	if cfg.Search.APIKey == "" {
		switch cfg.Search.Provider {
		case types.SearchTavily, "":
			cfg.Search.APIKey = secrets.Lookup(loaded, secrets.TavilyKey)
		case types.SearchSemanticScholar:
			cfg.Search.APIKey = secrets.Lookup(loaded, secrets.SemanticScholarKey)
		}
	}
	return cfg
}

// bindFlags binds the named flags of cmd to config keys. Binding happens
// when the command runs so that commands sharing a key do not override
// each other's flags.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			return fmt.Errorf("unknown flag %q for key %s", flag, key)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}
