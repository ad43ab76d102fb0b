// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/reflexion-engine/internal/history"
	"github.com/pdiddy/reflexion-engine/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse archived runs (list, show, search, export, delete)",
	Long: `History manages the local SQLite archive of finished runs. Each run
records the question, the final answer and references, the number of
completed revisions, and whether the run failed.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent runs",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	recs, err := store.List(context.Background(), limit)
	if err != nil {
		return err
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRuns(os.Stdout, recs, jsonOutput)
}

// --- search subcommand ---

var historySearchCmd = &cobra.Command{
	Use:   "search [term]",
	Short: "Find runs whose question or answer contains a term",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHistorySearch,
}

func runHistorySearch(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	recs, err := store.Search(context.Background(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")
	return formatRuns(os.Stdout, recs, jsonOutput)
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one archived run",
	Long: `Show prints the question, answer, and references of one run. The ID
may be abbreviated to any unique prefix of at least four characters, as
printed by list.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistoryShow,
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(context.Background(), args[0])
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
	writeRun(os.Stdout, rec)
	return nil
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the whole archive to YAML or JSON",
	Args:  cobra.NoArgs,
	RunE:  runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")

	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	ctx := context.Background()
	switch format {
	case "yaml", "":
		err = store.ExportYAML(ctx, w)
	case "json":
		err = store.ExportJSON(ctx, w)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(os.Stderr, "Exported to %s\n", output)
	}
	return nil
}

// --- delete subcommand ---

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove one archived run",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	store, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	rec, err := store.Get(ctx, args[0])
	if err != nil {
		return err
	}
	if err := store.Delete(ctx, rec.ID); err != nil {
		return err
	}
	fmt.Printf("Deleted run %s\n", shortID(rec.ID))
	return nil
}

// --- shared helpers ---

func openHistory(cmd *cobra.Command) (*history.Store, error) {
	v := viper.GetViper()
	if err := bindFlags(v, cmd, map[string]string{"history.dir": "history-dir"}); err != nil {
		return nil, err
	}
	cfg := loadConfig(v, loadedSecrets)
	return history.NewStore(cfg.History)
}

func formatRuns(w io.Writer, recs []types.RunRecord, jsonOutput bool) error {
	if jsonOutput {
		if recs == nil {
			recs = []types.RunRecord{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}

	if len(recs) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return nil
	}

	fmt.Fprintf(w, "%-8s  %-16s  %-9s  %-5s  %s\n",
		"ID", "Created", "Status", "Iter", "Question")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, r := range recs {
		question := strings.Join(strings.Fields(r.Question), " ")
		if len(question) > 55 {
			question = question[:52] + "..."
		}
		fmt.Fprintf(w, "%-8s  %-16s  %-9s  %-5s  %s\n",
			shortID(r.ID), r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Status,
			fmt.Sprintf("%d/%d", r.Iterations, r.MaxIterations), question)
	}
	fmt.Fprintf(w, "\n%d runs\n", len(recs))
	return nil
}

func writeRun(w io.Writer, r types.RunRecord) {
	fmt.Fprintf(w, "ID:         %s\n", r.ID)
	fmt.Fprintf(w, "Created:    %s\n", r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Model:      %s\n", r.Model)
	fmt.Fprintf(w, "Status:     %s\n", r.Status)
	fmt.Fprintf(w, "Iterations: %d/%d\n", r.Iterations, r.MaxIterations)
	if r.Error != "" {
		fmt.Fprintf(w, "Error:      %s\n", r.Error)
	}
	fmt.Fprintf(w, "\n# %s\n\n%s\n", r.Question, strings.TrimSpace(r.Answer))
	if len(r.References) > 0 {
		fmt.Fprintln(w, "\n## References")
		fmt.Fprintln(w)
		for i, ref := range r.References {
			fmt.Fprintf(w, "%d. %s\n", i+1, ref)
		}
	}
}

// shortID abbreviates a run ID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	historyCmd.PersistentFlags().String("history-dir", ".reflexion", "directory holding the history database")

	historyListCmd.Flags().Int("limit", 0, "maximum runs (0 = use default)")
	historyListCmd.Flags().Bool("json", false, "output runs as JSON")

	historySearchCmd.Flags().Int("limit", 0, "maximum runs (0 = use default)")
	historySearchCmd.Flags().Bool("json", false, "output runs as JSON")

	historyShowCmd.Flags().Bool("json", false, "output the run as JSON")

	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyExportCmd.Flags().StringP("output", "o", "", "write to a file instead of stdout")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historySearchCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}
