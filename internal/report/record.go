// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"time"

	"github.com/pdiddy/reflexion-engine/internal/reflexion"
	"github.com/pdiddy/reflexion-engine/pkg/types"
)

// NewRecord summarizes a run for the history store. The answer is the
// latest one produced; a failed run keeps whatever it reached and the
// error message.
func NewRecord(state reflexion.LoopState, runErr error, maxIterations int, model string) types.RunRecord {
	rec := types.RunRecord{
		Question:      state.Question,
		References:    []string{},
		Iterations:    state.Iterations,
		MaxIterations: maxIterations,
		Status:        types.RunCompleted,
		Model:         model,
		CreatedAt:     time.Now().UTC(),
	}
	if answer, ok := state.Latest(); ok {
		rec.Answer = answer.Answer
	}
	if state.RevisedAnswer != nil {
		rec.References = append(rec.References, state.RevisedAnswer.References...)
	}
	if runErr != nil {
		rec.Status = types.RunFailed
		rec.Error = runErr.Error()
	}
	return rec
}
