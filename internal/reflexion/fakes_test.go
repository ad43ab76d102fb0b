// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package reflexion

import (
	"context"

	"github.com/pdiddy/reflexion-engine/pkg/types"
)

// --- fake adapters ---

type fakeResponder struct {
	answer        types.StructuredAnswer
	err           error
	conversations [][]types.Message
}

func (f *fakeResponder) Respond(_ context.Context, conversation []types.Message) (types.StructuredAnswer, error) {
	f.conversations = append(f.conversations, conversation)
	if f.err != nil {
		return types.StructuredAnswer{}, f.err
	}
	return f.answer, nil
}

// fakeResolver answers each query with a single hit whose content is
// produced by content, or "R:<query>" by default. failOn makes the n-th
// call (1-based) fail.
type fakeResolver struct {
	content func(query string) string
	short   bool
	err     error
	failOn  int
	batches [][]string
}

func (f *fakeResolver) Resolve(_ context.Context, queries []string) ([]types.SearchResult, error) {
	f.batches = append(f.batches, queries)
	if f.err != nil && (f.failOn == 0 || f.failOn == len(f.batches)) {
		return nil, f.err
	}
	results := make([]types.SearchResult, 0, len(queries))
	for _, q := range queries {
		c := "R:" + q
		if f.content != nil {
			c = f.content(q)
		}
		results = append(results, types.SearchResult{
			Query: q,
			Hits:  []types.SearchHit{{Content: c}},
		})
	}
	if f.short && len(results) > 0 {
		results = results[:len(results)-1]
	}
	return results, nil
}

// fakeRevisor returns revisions in order; the last one repeats.
type fakeRevisor struct {
	revisions     []types.Revision
	err           error
	conversations [][]types.Message
}

func (f *fakeRevisor) Revise(_ context.Context, conversation []types.Message) (types.Revision, error) {
	f.conversations = append(f.conversations, conversation)
	if f.err != nil {
		return types.Revision{}, f.err
	}
	i := len(f.conversations) - 1
	if i >= len(f.revisions) {
		i = len(f.revisions) - 1
	}
	return f.revisions[i], nil
}

func answer(text string, queries ...string) types.StructuredAnswer {
	return types.StructuredAnswer{
		Answer:        text,
		Reflection:    types.Reflection{Missing: "more detail", Superfluous: "nothing"},
		SearchQueries: queries,
	}
}

func revision(text string, refs []string, queries ...string) types.Revision {
	return types.Revision{StructuredAnswer: answer(text, queries...), References: refs}
}
