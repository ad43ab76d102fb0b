// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reflexion

import "strings"

// ShouldContinue decides what follows a revise step. It depends only on the
// iteration count and the bound.
func ShouldContinue(state LoopState, maxIterations int) Step {
	if state.Iterations < maxIterations {
		return StepResolve
	}
	return StepTerminated
}

// Next is the transition function of the state machine:
//
//	draft -> resolve -> revise -> (resolve | terminated)
func Next(step Step, state LoopState, maxIterations int) Step {
	switch step {
	case StepDraft:
		return StepResolve
	case StepResolve:
		return StepRevise
	case StepRevise:
		return ShouldContinue(state, maxIterations)
	default:
		return StepTerminated
	}
}

// Mermaid renders the state machine as a Mermaid flowchart.
func Mermaid() string {
	var b strings.Builder
	b.WriteString("graph TD;\n")
	b.WriteString("\t__start__([start]) --> draft;\n")
	b.WriteString("\tdraft --> resolve;\n")
	b.WriteString("\tresolve --> revise;\n")
	b.WriteString("\trevise -. iterations < max .-> resolve;\n")
	b.WriteString("\trevise -. iterations >= max .-> __end__([end]);\n")
	return b.String()
}
