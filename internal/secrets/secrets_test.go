// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		subdirs []string
		want    map[string]string
	}{
		{
			name: "trims key values",
			files: map[string]string{
				OpenAIKey:          "  sk-abc123  \n",
				SemanticScholarKey: "s2_xyz789",
				TavilyKey:          "tvly-42\n",
			},
			want: map[string]string{
				OpenAIKey:          "sk-abc123",
				SemanticScholarKey: "s2_xyz789",
				TavilyKey:          "tvly-42",
			},
		},
		{
			name: "drops blank files",
			files: map[string]string{
				AnthropicKey: "sk-ant",
				"empty":      "",
				"blank":      "   \n\t  ",
			},
			want: map[string]string{AnthropicKey: "sk-ant"},
		},
		{
			name: "ignores hidden files",
			files: map[string]string{
				".gitkeep": "",
				".old-key": "stale",
				TavilyKey:  "tvly-real",
			},
			want: map[string]string{TavilyKey: "tvly-real"},
		},
		{
			name:    "ignores directories",
			files:   map[string]string{AnthropicKey: "sk-ant"},
			subdirs: []string{"archive"},
			want:    map[string]string{AnthropicKey: "sk-ant"},
		},
		{
			name: "empty directory",
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, dir, name, content)
			}
			for _, sub := range tt.subdirs {
				require.NoError(t, os.Mkdir(filepath.Join(dir, sub), 0o700))
			}

			got, err := Load(dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestLoadNotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "plain", "x")

	_, err := Load(filepath.Join(dir, "plain"))
	assert.ErrorContains(t, err, "reading secrets directory")
}

func TestLoadSkipsUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	dir := t.TempDir()
	writeFile(t, dir, OpenAIKey, "sk-ok")

	locked := filepath.Join(dir, TavilyKey)
	require.NoError(t, os.WriteFile(locked, []byte("tvly-locked"), 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o600) })

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{OpenAIKey: "sk-ok"}, got)
}

func TestLookup(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", " tvly-env ")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("ANTHROPIC_API_KEY", "")

	loaded := map[string]string{OpenAIKey: "sk-file"}

	tests := []struct {
		name string
		key  string
		want string
	}{
		{"file wins over environment", OpenAIKey, "sk-file"},
		{"environment fallback is trimmed", TavilyKey, "tvly-env"},
		{"unset everywhere", AnthropicKey, ""},
		{"unknown key has no fallback", "custom-key", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Lookup(loaded, tt.key))
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}
