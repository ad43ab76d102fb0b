// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/reflexion-engine/internal/httputil"
	"github.com/pdiddy/reflexion-engine/pkg/types"
)

// openAlexSearchBase is the OpenAlex Works search endpoint. Declared as a
// var so tests can substitute an httptest server.
var openAlexSearchBase = "https://api.openalex.org/works"

// OpenAlexProvider queries the OpenAlex API.
type OpenAlexProvider struct {
	Client *http.Client

	// Email is sent as mailto parameter for polite pool access.
	Email string

	MaxResults int
	UserAgent  string
}

// Name returns the provider identifier.
func (p *OpenAlexProvider) Name() string { return "openalex" }

// Search queries the OpenAlex API and returns results.
func (p *OpenAlexProvider) Search(ctx context.Context, query string) ([]types.SearchHit, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("empty OpenAlex query")
	}

	maxResults := p.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	if maxResults > 200 {
		maxResults = 200
	}

	params := url.Values{
		"search":   {q},
		"per_page": {strconv.Itoa(maxResults)},
		"page":     {"1"},
	}
	if p.Email != "" {
		params.Set("mailto", p.Email)
	}
	reqURL := openAlexSearchBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, p.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var oar openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oar); err != nil {
		return nil, fmt.Errorf("parsing OpenAlex response: %w", err)
	}

	total := len(oar.Results)
	hits := make([]types.SearchHit, 0, total)
	for i, work := range oar.Results {
		// OpenAlex is DOI-centric; the DOI is already a full https://doi.org/ URL.
		link := work.DOI
		if link == "" {
			link = work.ID
		}
		content := reconstructAbstract(work.AbstractInvertedIndex)
		if content == "" {
			content = work.Title
		}
		hits = append(hits, types.SearchHit{
			Title:   work.Title,
			URL:     link,
			Content: content,
			Score:   positionScore(i, total),
			Source:  "openalex",
		})
	}
	return hits, nil
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID                    string           `json:"id"`
	Title                 string           `json:"title"`
	DOI                   string           `json:"doi"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
}
