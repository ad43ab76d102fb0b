// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/reflexion-engine/internal/httputil"
	"github.com/pdiddy/reflexion-engine/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivProvider queries the arXiv API.
type ArxivProvider struct {
	Client     *http.Client
	MaxResults int
	UserAgent  string
}

// Name returns the provider identifier.
func (p *ArxivProvider) Name() string { return "arxiv" }

// Search queries the arXiv API and returns one hit per feed entry.
func (p *ArxivProvider) Search(ctx context.Context, query string) ([]types.SearchHit, error) {
	q := buildArxivQuery(query)
	if q == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}

	maxResults := p.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	params := url.Values{
		"search_query": {q},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(maxResults)},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}
	reqURL := arxivAPIBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, p.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	total := len(feed.Entries)
	var hits []types.SearchHit
	for i, entry := range feed.Entries {
		arxivID := extractArxivID(entry.ID)
		if arxivID == "" {
			continue
		}
		hits = append(hits, types.SearchHit{
			Title:   collapseSpace(entry.Title),
			URL:     "https://arxiv.org/abs/" + arxivID,
			Content: collapseSpace(entry.Summary),
			Score:   positionScore(i, total),
			Source:  "arxiv",
		})
	}
	return hits, nil
}

// buildArxivQuery turns a free-text query into an all-fields conjunction
// (e.g. "graph neural nets" becomes "all:graph AND all:neural AND all:nets").
func buildArxivQuery(query string) string {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return ""
	}
	for i, t := range terms {
		terms[i] = "all:" + t
	}
	return strings.Join(terms, " AND ")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" becomes "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := idURL[idx+len(prefix):]

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}
