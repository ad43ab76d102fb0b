// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/reflexion-engine/internal/httputil"
	"github.com/pdiddy/reflexion-engine/pkg/types"
)

// semanticAPIBase is the Semantic Scholar paper search endpoint. Declared
// as a var so tests can substitute an httptest server.
var semanticAPIBase = "https://api.semanticscholar.org/graph/v1/paper/search"

const semanticFields = "title,abstract,authors,externalIds,year,url"

// SemanticScholarProvider queries the Semantic Scholar API.
type SemanticScholarProvider struct {
	Client     *http.Client
	APIKey     string
	MaxResults int
	UserAgent  string
}

// Name returns the provider identifier.
func (p *SemanticScholarProvider) Name() string { return "semantic_scholar" }

// Search queries the Semantic Scholar API. Abstracts become hit content;
// papers without one fall back to title, authors, and year.
func (p *SemanticScholarProvider) Search(ctx context.Context, query string) ([]types.SearchHit, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("empty Semantic Scholar query")
	}

	maxResults := p.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	params := url.Values{
		"query":  {q},
		"limit":  {strconv.Itoa(maxResults)},
		"fields": {semanticFields},
	}
	reqURL := semanticAPIBase + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}
	if p.APIKey != "" {
		req.Header.Set("x-api-key", p.APIKey)
	}

	resp, err := httputil.DoWithRetry(ctx, p.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Semantic Scholar API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Semantic Scholar API returned HTTP %d", resp.StatusCode)
	}

	var sr semanticResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Semantic Scholar response: %w", err)
	}

	total := len(sr.Data)
	hits := make([]types.SearchHit, 0, total)
	for i, paper := range sr.Data {
		hits = append(hits, types.SearchHit{
			Title:   paper.Title,
			URL:     semanticURL(paper),
			Content: semanticContent(paper),
			Score:   positionScore(i, total),
			Source:  "semantic_scholar",
		})
	}
	return hits, nil
}

// semanticURL prefers an arXiv link, then a DOI link, then the Semantic
// Scholar page.
func semanticURL(p semanticPaper) string {
	switch {
	case p.ExternalIDs.ArXiv != "":
		return "https://arxiv.org/abs/" + p.ExternalIDs.ArXiv
	case p.ExternalIDs.DOI != "":
		return "https://doi.org/" + p.ExternalIDs.DOI
	case p.URL != "":
		return p.URL
	default:
		return "https://www.semanticscholar.org/paper/" + p.PaperID
	}
}

func semanticContent(p semanticPaper) string {
	if p.Abstract != "" {
		return p.Abstract
	}
	var names []string
	for _, a := range p.Authors {
		names = append(names, a.Name)
	}
	parts := []string{p.Title}
	if len(names) > 0 {
		parts = append(parts, strings.Join(names, ", "))
	}
	if p.Year > 0 {
		parts = append(parts, strconv.Itoa(p.Year))
	}
	return strings.Join(parts, ". ")
}

// Semantic Scholar API JSON structures.
type semanticResponse struct {
	Total  int             `json:"total"`
	Offset int             `json:"offset"`
	Data   []semanticPaper `json:"data"`
}

type semanticPaper struct {
	PaperID     string              `json:"paperId"`
	Title       string              `json:"title"`
	Abstract    string              `json:"abstract"`
	Year        int                 `json:"year"`
	URL         string              `json:"url"`
	Authors     []semanticAuthor    `json:"authors"`
	ExternalIDs semanticExternalIDs `json:"externalIds"`
}

type semanticAuthor struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

type semanticExternalIDs struct {
	DOI   string `json:"DOI"`
	ArXiv string `json:"ArXiv"`
}
