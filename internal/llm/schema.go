// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/pdiddy/reflexion-engine/internal/reflexion"
	"github.com/pdiddy/reflexion-engine/pkg/types"
)

// Tool names the model is forced to call.
const (
	AnswerToolName   = "AnswerQuestion"
	RevisionToolName = "ReviseAnswer"
)

var reflectionSchema = jsonschema.Definition{
	Type:        jsonschema.Object,
	Description: "Your reflection on the answer with missing and superfluous critiques.",
	Properties: map[string]jsonschema.Definition{
		"missing":     {Type: jsonschema.String, Description: "Critique of what is missing."},
		"superfluous": {Type: jsonschema.String, Description: "Critique of what is superfluous."},
	},
	Required: []string{"missing", "superfluous"},
}

var searchQueriesSchema = jsonschema.Definition{
	Type:        jsonschema.Array,
	Description: "SEPARATE list of 1-3 search queries for researching improvements. This is NOT part of reflection.",
	Items:       &jsonschema.Definition{Type: jsonschema.String},
}

// AnswerTool is the schema of the first draft.
var AnswerTool = ToolSpec{
	Name:        AnswerToolName,
	Description: "Answer the question with a structured reflection and search recommendations.",
	Parameters: jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"answer":         {Type: jsonschema.String, Description: "~250 words detailed answer to the question."},
			"reflection":     reflectionSchema,
			"search_queries": searchQueriesSchema,
		},
		Required: []string{"answer", "reflection", "search_queries"},
	},
}

// RevisionTool is the schema of a revised answer: the draft fields plus references.
var RevisionTool = ToolSpec{
	Name:        RevisionToolName,
	Description: "Revise the previous answer with citations, a reflection, and search recommendations.",
	Parameters: jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"answer":         {Type: jsonschema.String, Description: "~250 words detailed answer with numerical citations."},
			"reflection":     reflectionSchema,
			"search_queries": searchQueriesSchema,
			"references": {
				Type:        jsonschema.Array,
				Description: "Citations supporting your updated answer.",
				Items:       &jsonschema.Definition{Type: jsonschema.String},
			},
		},
		Required: []string{"answer", "reflection", "search_queries", "references"},
	},
}

// rawAnswer mirrors the tool arguments with pointers so absent fields can be
// told apart from empty ones.
type rawAnswer struct {
	Answer        *string        `json:"answer"`
	Reflection    *rawReflection `json:"reflection"`
	SearchQueries *[]string      `json:"search_queries"`
	References    *[]string      `json:"references"`
}

type rawReflection struct {
	Missing     *string `json:"missing"`
	Superfluous *string `json:"superfluous"`
}

// DecodeAnswer validates tool arguments against AnswerTool. Missing or
// mistyped required fields are malformed output.
func DecodeAnswer(data json.RawMessage) (types.StructuredAnswer, error) {
	raw, err := decodeRaw(data)
	if err != nil {
		return types.StructuredAnswer{}, err
	}
	return raw.structured()
}

// DecodeRevision validates tool arguments against RevisionTool.
func DecodeRevision(data json.RawMessage) (types.Revision, error) {
	raw, err := decodeRaw(data)
	if err != nil {
		return types.Revision{}, err
	}
	answer, err := raw.structured()
	if err != nil {
		return types.Revision{}, err
	}
	if raw.References == nil {
		return types.Revision{}, reflexion.Malformed("missing field %q", "references")
	}
	refs := make([]string, 0, len(*raw.References))
	for _, ref := range *raw.References {
		if ref = strings.TrimSpace(ref); ref != "" {
			refs = append(refs, ref)
		}
	}
	return types.Revision{StructuredAnswer: answer, References: refs}, nil
}

func decodeRaw(data json.RawMessage) (rawAnswer, error) {
	var raw rawAnswer
	if len(bytes.TrimSpace(data)) == 0 {
		return raw, reflexion.Malformed("empty tool arguments")
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return raw, reflexion.Malformed("parsing tool arguments: %v", err)
	}
	return raw, nil
}

func (r rawAnswer) structured() (types.StructuredAnswer, error) {
	switch {
	case r.Answer == nil:
		return types.StructuredAnswer{}, reflexion.Malformed("missing field %q", "answer")
	case r.Reflection == nil:
		return types.StructuredAnswer{}, reflexion.Malformed("missing field %q", "reflection")
	case r.Reflection.Missing == nil:
		return types.StructuredAnswer{}, reflexion.Malformed("missing field %q", "reflection.missing")
	case r.Reflection.Superfluous == nil:
		return types.StructuredAnswer{}, reflexion.Malformed("missing field %q", "reflection.superfluous")
	case r.SearchQueries == nil:
		return types.StructuredAnswer{}, reflexion.Malformed("missing field %q", "search_queries")
	}

	queries := make([]string, 0, len(*r.SearchQueries))
	for _, q := range *r.SearchQueries {
		if q = strings.TrimSpace(q); q != "" {
			queries = append(queries, q)
		}
	}
	return types.StructuredAnswer{
		Answer: *r.Answer,
		Reflection: types.Reflection{
			Missing:     *r.Reflection.Missing,
			Superfluous: *r.Reflection.Superfluous,
		},
		SearchQueries: queries,
	}, nil
}
