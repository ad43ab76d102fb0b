// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pdiddy/reflexion-engine/internal/reflexion"
)

// referencesHeading detects an answer that already ends with its own
// References section.
var referencesHeading = regexp.MustCompile(`(?im)^\s*(#+\s*)?\**references\**:?\s*$`)

// Markdown writes the latest answer of state as a Markdown document: the
// question as a heading, the answer, and a References section unless the
// answer already carries one. A run that never drafted renders only the
// question.
func Markdown(w io.Writer, state reflexion.LoopState) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", oneLine(state.Question))

	answer, ok := state.Latest()
	if !ok {
		b.WriteString("_No answer was produced._\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteString(strings.TrimSpace(answer.Answer))
	b.WriteString("\n")

	if rev := state.RevisedAnswer; rev != nil && len(rev.References) > 0 && !referencesHeading.MatchString(rev.Answer) {
		b.WriteString("\n## References\n\n")
		for i, ref := range rev.References {
			if referencePrefix.MatchString(ref) {
				fmt.Fprintf(&b, "- %s\n", ref)
			} else {
				fmt.Fprintf(&b, "- [%d] %s\n", i+1, ref)
			}
		}
	}

	if state.RevisedAnswer == nil {
		fmt.Fprintf(&b, "\n_Draft answer: no revision was completed._\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
