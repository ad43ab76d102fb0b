// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/pdiddy/reflexion-engine/internal/reflexion"
)

var (
	draftLabel   = color.New(color.FgCyan, color.Bold)
	resolveLabel = color.New(color.FgYellow, color.Bold)
	reviseLabel  = color.New(color.FgGreen, color.Bold)
)

// stepTrace records the nodes a run executes and prints one progress line
// per completed node.
type stepTrace struct {
	w     io.Writer
	quiet bool
	steps []reflexion.Step
}

// observe is registered as the controller's observer.
func (t *stepTrace) observe(step reflexion.Step, state reflexion.LoopState) {
	t.steps = append(t.steps, step)
	if t.quiet || t.w == nil {
		return
	}
	fmt.Fprintf(t.w, "%s %s\n", stepLabel(step).Sprintf("%-8s", step), summarizeStep(step, state))
}

func stepLabel(step reflexion.Step) *color.Color {
	switch step {
	case reflexion.StepDraft:
		return draftLabel
	case reflexion.StepResolve:
		return resolveLabel
	default:
		return reviseLabel
	}
}

// summarizeStep describes what a node added to state.
func summarizeStep(step reflexion.Step, state reflexion.LoopState) string {
	switch step {
	case reflexion.StepDraft:
		if state.CurrentAnswer == nil {
			return "no answer"
		}
		return fmt.Sprintf("%d words, %d search queries",
			wordCount(state.CurrentAnswer.Answer), len(state.CurrentAnswer.SearchQueries))
	case reflexion.StepResolve:
		if latest, ok := state.Latest(); !ok || len(latest.SearchQueries) == 0 {
			return "skipped (no search queries)"
		}
		hits := 0
		for _, r := range state.SearchResults {
			hits += len(r.Hits)
		}
		return fmt.Sprintf("%d queries, %d hits", len(state.SearchResults), hits)
	case reflexion.StepRevise:
		if state.RevisedAnswer == nil {
			return fmt.Sprintf("iteration %d", state.Iterations)
		}
		return fmt.Sprintf("iteration %d, %d words, %d references",
			state.Iterations, wordCount(state.RevisedAnswer.Answer), len(state.RevisedAnswer.References))
	default:
		return ""
	}
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
