// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RunStatus records how a reflexion run ended.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunRecord is the archived summary of one reflexion run.
type RunRecord struct {
	// ID is a UUID assigned when the run is archived.
	ID string `json:"id" yaml:"id"`

	// Question is the user's original request.
	Question string `json:"question" yaml:"question"`

	// Answer is the final revised answer text, or the draft when the run
	// failed after drafting.
	Answer string `json:"answer" yaml:"answer"`

	// References lists the citations of the final revision.
	References []string `json:"references" yaml:"references"`

	// Iterations is the number of completed revise steps.
	Iterations int `json:"iterations" yaml:"iterations"`

	// MaxIterations is the bound the run was configured with.
	MaxIterations int `json:"max_iterations" yaml:"max_iterations"`

	// Status is completed or failed.
	Status RunStatus `json:"status" yaml:"status"`

	// Error holds the failure message for failed runs.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// Model is the language model identifier used for the run.
	Model string `json:"model" yaml:"model"`

	// CreatedAt is when the run finished.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
