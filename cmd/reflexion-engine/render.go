// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/reflexion-engine/internal/report"
)

var renderCmd = &cobra.Command{
	Use:   "render <transcript.yaml>",
	Short: "Render a run transcript as Markdown",
	Long: `Render reads a transcript written by run --transcript and prints the
final answer as Markdown, or the recorded loop state as JSON with --json.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func runRender(cmd *cobra.Command, args []string) error {
	t, err := report.ReadTranscriptFile(args[0])
	if err != nil {
		return err
	}
	if t.Error != "" {
		fmt.Fprintf(os.Stderr, "Run failed: %s\n", t.Error)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	return writeAnswer(os.Stdout, t.State, jsonOutput)
}

func init() {
	renderCmd.Flags().Bool("json", false, "print the recorded loop state as JSON")

	rootCmd.AddCommand(renderCmd)
}
