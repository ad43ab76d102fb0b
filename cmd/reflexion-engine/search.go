// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/reflexion-engine/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]...",
	Short: "Resolve search queries without running the loop",
	Long: `Search resolves each argument as one search query through the configured
search backend, the same way the resolve step does during a run. Queries run
concurrently; results are printed in argument order.

Use it to check provider credentials and see what a revision would be given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var searchFlagKeys = map[string]string{
	"search.provider":            "provider",
	"search.max_results":         "max-results",
	"search.depth":               "depth",
	"search.requests_per_second": "rate",
}

func runSearch(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	if err := bindFlags(v, cmd, searchFlagKeys); err != nil {
		return err
	}
	cfg := loadConfig(v, loadedSecrets)

	provider, err := search.NewProvider(cfg.Search, nil)
	if err != nil {
		return err
	}
	resolver := search.NewResolver(provider, cfg.Search, log.Logger)

	ctx := log.Logger.WithContext(cmd.Context())
	results, err := resolver.Resolve(ctx, args)
	if err != nil {
		return fmt.Errorf("%s search: %w", provider.Name(), err)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		return search.FormatJSON(results, os.Stdout)
	}
	search.FormatTable(results, os.Stdout)
	return nil
}

func init() {
	searchCmd.Flags().String("provider", "tavily", "search backend: tavily, semantic_scholar, arxiv, openalex")
	searchCmd.Flags().Int("max-results", 5, "hits kept per query")
	searchCmd.Flags().String("depth", "basic", "Tavily search depth: basic or advanced")
	searchCmd.Flags().Float64("rate", 0, "requests per second (0 = unlimited)")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
}
