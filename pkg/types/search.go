// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SearchHit is one document returned by a search provider.
type SearchHit struct {
	// Title is the document title as returned by the provider.
	Title string `json:"title" yaml:"title"`

	// URL locates the document. Revisions cite it in their references.
	URL string `json:"url" yaml:"url"`

	// Content is the snippet, abstract, or extracted page text.
	Content string `json:"content" yaml:"content"`

	// Score is the provider's relevance score in [0,1], when available.
	Score float64 `json:"score,omitempty" yaml:"score,omitempty"`

	// Source identifies the provider that found the hit (e.g. "tavily", "arxiv").
	Source string `json:"source" yaml:"source"`
}

// SearchResult holds everything retrieved for one search query. The loop
// controller treats it as an opaque payload and forwards it verbatim.
type SearchResult struct {
	// Query is the query string this result answers.
	Query string `json:"query" yaml:"query"`

	// Hits lists the retrieved documents in provider rank order.
	Hits []SearchHit `json:"results" yaml:"results"`
}

// CloneSearchResults returns a deep copy of results.
func CloneSearchResults(results []SearchResult) []SearchResult {
	if results == nil {
		return nil
	}
	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{Query: r.Query}
		if r.Hits != nil {
			out[i].Hits = make([]SearchHit, len(r.Hits))
			copy(out[i].Hits, r.Hits)
		}
	}
	return out
}
