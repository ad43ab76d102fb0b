// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reflexion

import (
	"fmt"

	"github.com/pdiddy/reflexion-engine/pkg/types"
)

// Step names a node of the reflexion state machine.
type Step int

const (
	StepDraft Step = iota
	StepResolve
	StepRevise
	StepTerminated
)

var stepNames = [...]string{"draft", "resolve", "revise", "terminated"}

func (s Step) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return fmt.Sprintf("Step(%d)", int(s))
	}
	return stepNames[s]
}

// LoopState is the record threaded through the state machine. Each node
// returns a new value and overwrites only the fields it owns: draft sets
// CurrentAnswer, resolve sets SearchResults, revise sets RevisedAnswer and
// increments Iterations.
type LoopState struct {
	// Question is the user's request. It never changes during a run.
	Question string `json:"question" yaml:"question"`

	// CurrentAnswer is the draft produced by the responder.
	CurrentAnswer *types.StructuredAnswer `json:"current_answer,omitempty" yaml:"current_answer,omitempty"`

	// RevisedAnswer is the most recent revision.
	RevisedAnswer *types.Revision `json:"revised_answer,omitempty" yaml:"revised_answer,omitempty"`

	// SearchResults holds the results of the last resolved batch, one per query.
	SearchResults []types.SearchResult `json:"search_results" yaml:"search_results"`

	// Iterations counts completed revise steps.
	Iterations int `json:"iterations" yaml:"iterations"`
}

// NewLoopState returns the initial state for question.
func NewLoopState(question string) LoopState {
	return LoopState{
		Question:      question,
		SearchResults: []types.SearchResult{},
	}
}

// Clone returns a deep copy of s. Node functions build their result from a
// clone so earlier states stay untouched.
func (s LoopState) Clone() LoopState {
	out := LoopState{
		Question:      s.Question,
		SearchResults: types.CloneSearchResults(s.SearchResults),
		Iterations:    s.Iterations,
	}
	if s.CurrentAnswer != nil {
		a := s.CurrentAnswer.Clone()
		out.CurrentAnswer = &a
	}
	if s.RevisedAnswer != nil {
		r := s.RevisedAnswer.Clone()
		out.RevisedAnswer = &r
	}
	return out
}

// Latest returns the most recent answer: the revision once one exists,
// otherwise the draft. ok is false before the draft step has run.
func (s LoopState) Latest() (answer types.StructuredAnswer, ok bool) {
	switch {
	case s.RevisedAnswer != nil:
		return s.RevisedAnswer.StructuredAnswer, true
	case s.CurrentAnswer != nil:
		return *s.CurrentAnswer, true
	default:
		return types.StructuredAnswer{}, false
	}
}
