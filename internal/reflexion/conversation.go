// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reflexion

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/reflexion-engine/pkg/types"
)

// DraftConversation is the single-turn conversation sent to the responder.
func DraftConversation(question string) []types.Message {
	return []types.Message{{Role: types.RoleUser, Content: question}}
}

// ReviseConversation builds the revisor's input: the question, the previous
// answer with its critique, and the search results when there are any.
func ReviseConversation(state LoopState) ([]types.Message, error) {
	latest, ok := state.Latest()
	if !ok {
		return nil, ErrNoDraft
	}

	var refs []string
	if state.RevisedAnswer != nil {
		refs = state.RevisedAnswer.References
	}

	messages := []types.Message{
		{Role: types.RoleUser, Content: state.Question},
		{Role: types.RoleAssistant, Content: previousAnswer(latest, refs)},
	}

	if len(state.SearchResults) > 0 {
		data, err := json.MarshalIndent(state.SearchResults, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding search results: %w", err)
		}
		messages = append(messages, types.Message{
			Role:    types.RoleUser,
			Content: "Search results:\n" + string(data),
		})
	}
	return messages, nil
}

func previousAnswer(a types.StructuredAnswer, refs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Previous answer:\n%s\n", a.Answer)
	if len(refs) > 0 {
		b.WriteString("\nReferences:\n")
		for i, r := range refs {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, r)
		}
	}
	fmt.Fprintf(&b, "\nCritique (missing): %s\n", a.Reflection.Missing)
	fmt.Fprintf(&b, "Critique (superfluous): %s\n", a.Reflection.Superfluous)
	if len(a.SearchQueries) > 0 {
		fmt.Fprintf(&b, "\nSearch queries: %s\n", strings.Join(a.SearchQueries, "; "))
	}
	return b.String()
}
