// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value. Keys missing from the directory fall back to
// well-known environment variables.
//
// Supported key files: openai-api-key, anthropic-api-key, tavily-api-key, semantic-scholar-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Key file names.
const (
	OpenAIKey          = "openai-api-key"
	AnthropicKey       = "anthropic-api-key"
	TavilyKey          = "tavily-api-key"
	SemanticScholarKey = "semantic-scholar-api-key"
)

// EnvFallbacks maps each key file name to the environment variable consulted
// when the file is absent.
var EnvFallbacks = map[string]string{
	OpenAIKey:          "OPENAI_API_KEY",
	AnthropicKey:       "ANTHROPIC_API_KEY",
	TavilyKey:          "TAVILY_API_KEY",
	SemanticScholarKey: "SEMANTIC_SCHOLAR_API_KEY",
}

// Load reads every regular, non-hidden file in dir into a map of file name
// to trimmed contents. Empty files are skipped. A missing directory yields
// an empty map. Unreadable files, and files other users can read, are
// logged as warnings.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("secret", name).Msg("could not read secret")
			continue
		}
		if info, err := entry.Info(); err == nil && info.Mode().Perm()&0o077 != 0 {
			log.Warn().Str("path", path).Stringer("mode", info.Mode().Perm()).Msg("secret file is readable by other users")
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Lookup returns the secret stored under name, falling back to the
// environment variable registered in EnvFallbacks. The empty string means
// the key is configured nowhere.
func Lookup(secrets map[string]string, name string) string {
	if v := secrets[name]; v != "" {
		return v
	}
	if env, ok := EnvFallbacks[name]; ok {
		return strings.TrimSpace(os.Getenv(env))
	}
	return ""
}
