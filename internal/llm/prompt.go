// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"text/template"
	"time"

	"github.com/pdiddy/reflexion-engine/pkg/types"
)

// actorPromptTmpl is the system prompt shared by the responder and the
// revisor. Only the first numbered instruction differs between them.
var actorPromptTmpl = template.Must(template.New("actor").Parse(`You are an expert researcher.
Current time: {{.Now}}

1. {{.FirstInstruction}}
2. Reflect and critique your answer. Be severe to maximize the quality of the answer.
3. Recommend search queries to research information and improve the answer.

IMPORTANT: Your response must include:
- answer: Your detailed response
- reflection: An object with 'missing' and 'superfluous' critiques
- search_queries: A list of search queries (NOT inside reflection)`))

const draftInstruction = "Provide a detailed ~250 words answer."

const reviseInstruction = `Revise your previous answer using the new information.
   - You should use the previous critique to add important information to your answer.
   - You MUST include numerical citations in your revised answer to ensure accuracy.
   - Add a "References" section at the end of your answer (which doesn't count towards the word limit). In form of:
       - [1] https://example.com
       - [2] https://example.com
   - You should use the previous critique to remove superfluous information from your answer and make SURE it is not more than 250 words.`

// closingInstruction is appended after the conversation as a final system message.
const closingInstruction = "Answer the user's question above using the required format."

// now is the clock used for the prompt timestamp. Tests replace it.
var now = time.Now

// renderPrompt executes the actor prompt template with the given first instruction.
func renderPrompt(firstInstruction string) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Now              string
		FirstInstruction string
	}{
		Now:              now().Format(time.RFC3339),
		FirstInstruction: firstInstruction,
	}
	if err := actorPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// buildRequest renders the system prompt and frames the conversation with
// the closing instruction.
func buildRequest(firstInstruction string, conversation []types.Message, tool ToolSpec) (Request, error) {
	system, err := renderPrompt(firstInstruction)
	if err != nil {
		return Request{}, err
	}
	msgs := make([]types.Message, 0, len(conversation)+1)
	msgs = append(msgs, conversation...)
	msgs = append(msgs, types.Message{Role: types.RoleSystem, Content: closingInstruction})
	return Request{System: system, Messages: msgs, Tool: tool}, nil
}
