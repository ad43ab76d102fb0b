// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the reflexion-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/reflexion-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from the secrets directory at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the reflexion-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "reflexion-engine",
	Short: "Answer questions with a bounded draft, research, and revise loop",
	Long: `reflexion-engine answers a question by drafting a ~250 word answer with a
language model, critiquing it, researching the search queries the critique
recommends, and revising the answer with numbered citations. The revise step
repeats up to a configured number of times.

Runs are archived in a local SQLite history that can be listed, searched,
and exported.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(viper.GetString("logging.level"), viper.GetString("logging.format")); err != nil {
			return err
		}

		dir, _ := cmd.Flags().GetString("secrets-dir")
		s, err := secrets.Load(dir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			log.Debug().Strs("keys", keys).Str("dir", dir).Msg("loaded secrets")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./reflexion-engine.yaml or ~/.config/reflexion-engine/reflexion-engine.yaml)")
	pf.String("secrets-dir", ".secrets/", "directory of API key files")
	pf.String("log-level", "warn", "log level: debug, info, warn, error")
	pf.String("log-format", "console", "log format: console or json")

	_ = viper.BindPFlag("logging.level", pf.Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", pf.Lookup("log-format"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("reflexion-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "reflexion-engine"))
		}
	}

	viper.SetEnvPrefix("REFLEXION_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setConfigDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setupLogging configures the global zerolog logger. Diagnostics always go
// to stderr so stdout carries only command output.
func setupLogging(level, format string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(lvl)

	switch format {
	case "json":
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	case "console", "":
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
			With().Timestamp().Logger()
	default:
		return fmt.Errorf("invalid log format %q (must be console or json)", format)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
