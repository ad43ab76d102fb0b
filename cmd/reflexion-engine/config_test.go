// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/reflexion-engine/pkg/types"
)

func clearKeyEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "TAVILY_API_KEY", "SEMANTIC_SCHOLAR_API_KEY"} {
		t.Setenv(name, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearKeyEnv(t)
	v := viper.New()
	setConfigDefaults(v)

	got := loadConfig(v, nil)
	want := types.DefaultConfig()
	assert.Equal(t, want, got)
}

func TestLoadConfigOverrides(t *testing.T) {
	clearKeyEnv(t)
	v := viper.New()
	setConfigDefaults(v)
	v.Set("loop.max_iterations", 4)
	v.Set("ai.provider", "anthropic")
	v.Set("ai.model", "claude-sonnet-4-5")
	v.Set("ai.timeout", "45s")
	v.Set("search.provider", "arxiv")
	v.Set("search.requests_per_second", 2.5)
	v.Set("history.enabled", false)

	cfg := loadConfig(v, nil)
	assert.Equal(t, 4, cfg.Loop.MaxIterations)
	assert.Equal(t, types.ProviderAnthropic, cfg.AI.Provider)
	assert.Equal(t, "claude-sonnet-4-5", cfg.AI.Model)
	assert.Equal(t, 45*time.Second, cfg.AI.Timeout)
	assert.Equal(t, types.SearchArxiv, cfg.Search.Provider)
	assert.InDelta(t, 2.5, cfg.Search.RequestsPerSecond, 1e-9)
	assert.False(t, cfg.History.Enabled)
}

func TestLoadConfigAPIKeys(t *testing.T) {
	loaded := map[string]string{
		"openai-api-key":           "sk-openai",
		"anthropic-api-key":        "sk-ant",
		"tavily-api-key":           "tvly-key",
		"semantic-scholar-api-key": "s2-key",
	}

	tests := []struct {
		name       string
		provider   string
		search     string
		explicit   string
		wantAI     string
		wantSearch string
	}{
		{"openai and tavily", "openai", "tavily", "", "sk-openai", "tvly-key"},
		{"anthropic and semantic scholar", "anthropic", "semantic_scholar", "", "sk-ant", "s2-key"},
		{"arxiv needs no key", "openai", "arxiv", "", "sk-openai", ""},
		{"explicit key wins", "openai", "tavily", "sk-explicit", "sk-explicit", "tvly-key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearKeyEnv(t)
			v := viper.New()
			setConfigDefaults(v)
			v.Set("ai.provider", tt.provider)
			v.Set("search.provider", tt.search)
			if tt.explicit != "" {
				v.Set("ai.api_key", tt.explicit)
			}

			cfg := loadConfig(v, loaded)
			assert.Equal(t, tt.wantAI, cfg.AI.APIKey)
			assert.Equal(t, tt.wantSearch, cfg.Search.APIKey)
		})
	}
}

func TestLoadConfigEnvFallback(t *testing.T) {
	clearKeyEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	v := viper.New()
	setConfigDefaults(v)

	cfg := loadConfig(v, map[string]string{})
	assert.Equal(t, "sk-from-env", cfg.AI.APIKey)
}

func TestBindFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().Int("max-iterations", 2, "")
	require.NoError(t, cmd.Flags().Set("max-iterations", "7"))

	v := viper.New()
	setConfigDefaults(v)
	require.NoError(t, bindFlags(v, cmd, map[string]string{"loop.max_iterations": "max-iterations"}))
	assert.Equal(t, 7, v.GetInt("loop.max_iterations"))

	err := bindFlags(v, cmd, map[string]string{"ai.model": "model"})
	assert.ErrorContains(t, err, "unknown flag")
}

func TestSetupLogging(t *testing.T) {
	assert.NoError(t, setupLogging("debug", "json"))
	assert.NoError(t, setupLogging("warn", "console"))
	assert.Error(t, setupLogging("loud", "console"))
	assert.Error(t, setupLogging("info", "xml"))
}
