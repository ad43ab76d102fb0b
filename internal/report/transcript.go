// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"io"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/reflexion-engine/internal/reflexion"
	"github.com/pdiddy/reflexion-engine/pkg/types"
)

// Transcript is the YAML document written for one run: metadata, the
// step trace, and the final loop state.
type Transcript struct {
	RunID         string              `yaml:"run_id,omitempty"`
	Model         string              `yaml:"model,omitempty"`
	MaxIterations int                 `yaml:"max_iterations"`
	CreatedAt     time.Time           `yaml:"created_at"`
	Steps         []string            `yaml:"steps"`
	Error         string              `yaml:"error,omitempty"`
	Citations     *CitationCheck      `yaml:"citations,omitempty"`
	State         reflexion.LoopState `yaml:"state"`
}

// NewTranscript builds a transcript of a finished run. The citation check
// is included once a revision exists.
func NewTranscript(state reflexion.LoopState, steps []reflexion.Step, maxIterations int, runErr error) Transcript {
	t := Transcript{
		MaxIterations: maxIterations,
		CreatedAt:     time.Now().UTC(),
		Steps:         make([]string, len(steps)),
		State:         state.Clone(),
	}
	for i, s := range steps {
		t.Steps[i] = s.String()
	}
	if runErr != nil {
		t.Error = runErr.Error()
	}
	if state.RevisedAnswer != nil {
		check := ValidateCitations(*state.RevisedAnswer)
		t.Citations = &check
	}
	return t
}

// WriteTranscript encodes t as YAML to w.
func WriteTranscript(w io.Writer, t Transcript) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("marshaling transcript: %w", err)
	}
	return enc.Close()
}

// WriteTranscriptFile writes t to path, replacing any existing file.
func WriteTranscriptFile(path string, t Transcript) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating transcript: %w", err)
	}
	if err := WriteTranscript(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadTranscriptFile loads a transcript written by WriteTranscriptFile.
func ReadTranscriptFile(path string) (Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Transcript{}, fmt.Errorf("reading transcript: %w", err)
	}
	var t Transcript
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Transcript{}, fmt.Errorf("parsing transcript %s: %w", path, err)
	}
	if t.State.SearchResults == nil {
		t.State.SearchResults = []types.SearchResult{}
	}
	return t, nil
}
