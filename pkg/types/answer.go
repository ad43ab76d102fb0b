// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the reflexion engine:
// conversation messages, the structured answers produced by the language
// model, search results, run records, and configuration.
package types

// Role tags a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry in a conversation sent to a language model.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Reflection is the model's critique of its own answer.
type Reflection struct {
	// Missing describes what the answer lacks.
	Missing string `json:"missing" yaml:"missing"`

	// Superfluous describes what should be cut from the answer.
	Superfluous string `json:"superfluous" yaml:"superfluous"`
}

// StructuredAnswer is the draft produced by the responder.
type StructuredAnswer struct {
	// Answer is the free-text answer, roughly 250 words.
	Answer string `json:"answer" yaml:"answer"`

	// Reflection is the self-critique of Answer.
	Reflection Reflection `json:"reflection" yaml:"reflection"`

	// SearchQueries lists follow-up queries (normally 1-3) that would
	// improve the answer.
	SearchQueries []string `json:"search_queries" yaml:"search_queries"`
}

// Revision is a StructuredAnswer rewritten with retrieved information and
// numbered citations.
type Revision struct {
	StructuredAnswer `yaml:",inline"`

	// References lists citations in order; References[0] is cited as [1].
	References []string `json:"references" yaml:"references"`
}

// Clone returns a deep copy of the answer.
func (a StructuredAnswer) Clone() StructuredAnswer {
	a.SearchQueries = cloneStrings(a.SearchQueries)
	return a
}

// Clone returns a deep copy of the revision.
func (r Revision) Clone() Revision {
	r.StructuredAnswer = r.StructuredAnswer.Clone()
	r.References = cloneStrings(r.References)
	return r
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
