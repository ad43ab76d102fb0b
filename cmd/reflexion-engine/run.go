// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/reflexion-engine/internal/history"
	"github.com/pdiddy/reflexion-engine/internal/llm"
	"github.com/pdiddy/reflexion-engine/internal/reflexion"
	"github.com/pdiddy/reflexion-engine/internal/report"
	"github.com/pdiddy/reflexion-engine/internal/search"
	"github.com/pdiddy/reflexion-engine/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run [question]",
	Short: "Answer a question with the reflexion loop",
	Long: `Run drafts an answer to the question, resolves the search queries the
model recommends, and revises the answer with numbered citations. Resolve and
revise repeat until --max-iterations revisions have completed.

Progress is printed to stderr; the final answer is printed to stdout as
Markdown, or as the full loop state with --json. Finished runs are archived
in the history database unless --no-history is set.`,
	Args: cobra.ArbitraryArgs,
	RunE: runRun,
}

// runFlagKeys maps config keys to the run command flags that override them.
var runFlagKeys = map[string]string{
	"loop.max_iterations":        "max-iterations",
	"ai.provider":                "provider",
	"ai.model":                   "model",
	"ai.base_url":                "base-url",
	"ai.temperature":             "temperature",
	"ai.max_retries":             "max-retries",
	"ai.rate_limit_retries":      "rate-limit-retries",
	"search.provider":            "search-provider",
	"search.max_results":         "max-results",
	"search.requests_per_second": "rate",
}

func runRun(cmd *cobra.Command, args []string) error {
	if graph, _ := cmd.Flags().GetBool("graph"); graph {
		fmt.Print(reflexion.Mermaid())
		return nil
	}

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("a question is required: reflexion-engine run \"your question\"")
	}

	v := viper.GetViper()
	if err := bindFlags(v, cmd, runFlagKeys); err != nil {
		return err
	}
	cfg := loadConfig(v, loadedSecrets)
	logger := log.Logger

	quiet, _ := cmd.Flags().GetBool("quiet")
	trace := &stepTrace{w: os.Stderr, quiet: quiet}

	controller, err := newController(cfg, logger, reflexion.WithObserver(trace.observe))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx = logger.WithContext(ctx)

	state, runErr := controller.Run(ctx, question)

	transcript := report.NewTranscript(state, trace.steps, controller.MaxIterations(), runErr)
	transcript.Model = cfg.AI.Model

	noHistory, _ := cmd.Flags().GetBool("no-history")
	if cfg.History.Enabled && !noHistory {
		rec := report.NewRecord(state, runErr, controller.MaxIterations(), cfg.AI.Model)
		saved, err := archiveRun(context.Background(), cfg.History, rec)
		if err != nil {
			logger.Warn().Err(err).Msg("could not archive run")
		} else {
			transcript.RunID = saved.ID
			fmt.Fprintf(os.Stderr, "Saved run %s\n", shortID(saved.ID))
		}
	}

	if path, _ := cmd.Flags().GetString("transcript"); path != "" {
		if err := report.WriteTranscriptFile(path, transcript); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("could not write transcript")
		} else {
			fmt.Fprintf(os.Stderr, "Wrote transcript %s\n", path)
		}
	}

	if c := transcript.Citations; c != nil && !c.OK() {
		logger.Warn().Ints("missing", c.Missing).Msg("answer cites references that are not listed")
	}

	if _, ok := state.Latest(); ok {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if err := writeAnswer(os.Stdout, state, jsonOutput); err != nil {
			return err
		}
	}
	return runErr
}

// newController wires the language model backend and search provider
// described by cfg into a loop controller.
func newController(cfg types.Config, logger zerolog.Logger, opts ...reflexion.Option) (*reflexion.Controller, error) {
	backend, err := llm.NewBackend(cfg.AI, nil)
	if err != nil {
		return nil, err
	}
	provider, err := search.NewProvider(cfg.Search, nil)
	if err != nil {
		return nil, err
	}

	opts = append([]reflexion.Option{reflexion.WithLogger(logger)}, opts...)
	return reflexion.New(cfg.Loop,
		llm.NewResponder(backend, cfg.AI, logger),
		search.NewResolver(provider, cfg.Search, logger),
		llm.NewRevisor(backend, cfg.AI, logger),
		opts...,
	)
}

// writeAnswer prints the latest answer as Markdown, or the whole state as
// JSON.
func writeAnswer(w io.Writer, state reflexion.LoopState, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	}
	return report.Markdown(w, state)
}

func archiveRun(ctx context.Context, cfg types.HistoryConfig, rec types.RunRecord) (types.RunRecord, error) {
	store, err := history.NewStore(cfg)
	if err != nil {
		return types.RunRecord{}, err
	}
	defer store.Close()
	return store.Save(ctx, rec)
}

func init() {
	d := types.DefaultConfig()

	runCmd.Flags().Int("max-iterations", d.Loop.MaxIterations, "number of revise steps")
	runCmd.Flags().String("provider", string(d.AI.Provider), "language model API: openai or anthropic")
	runCmd.Flags().String("model", d.AI.Model, "language model identifier")
	runCmd.Flags().String("base-url", "", "endpoint for an OpenAI-compatible API")
	runCmd.Flags().Float64("temperature", d.AI.Temperature, "sampling temperature")
	runCmd.Flags().Int("max-retries", d.AI.MaxRetries, "retries for a failed model call")
	runCmd.Flags().Int("rate-limit-retries", d.AI.RateLimitRetries, "HTTP retries on 429/503 within one Anthropic call (0 = default, negative disables)")
	runCmd.Flags().String("search-provider", string(d.Search.Provider), "search backend: tavily, semantic_scholar, arxiv, openalex")
	runCmd.Flags().Int("max-results", d.Search.MaxResults, "hits kept per search query")
	runCmd.Flags().Float64("rate", 0, "search requests per second (0 = unlimited)")
	runCmd.Flags().Bool("json", false, "print the final loop state as JSON")
	runCmd.Flags().String("transcript", "", "write a YAML transcript of the run to this path")
	runCmd.Flags().Bool("graph", false, "print the loop graph as a Mermaid diagram and exit")
	runCmd.Flags().Bool("no-history", false, "do not archive the run")
	runCmd.Flags().BoolP("quiet", "q", false, "suppress the step trace")

	rootCmd.AddCommand(runCmd)
}
