// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/reflexion-engine/internal/httputil"
	"github.com/pdiddy/reflexion-engine/pkg/types"
)

// tavilyAPIURL is the Tavily search endpoint. Declared as a var so tests
// can substitute an httptest server.
var tavilyAPIURL = "https://api.tavily.com/search"

// TavilyProvider queries the Tavily web search API.
type TavilyProvider struct {
	Client *http.Client
	APIKey string

	// Depth is basic or advanced; empty means basic.
	Depth string

	MaxResults int
	UserAgent  string
}

// Name returns the provider identifier.
func (p *TavilyProvider) Name() string { return "tavily" }

type tavilyRequest struct {
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Query   string         `json:"query"`
	Results []tavilyResult `json:"results"`
}

type tavilyResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Search posts one query to Tavily.
func (p *TavilyProvider) Search(ctx context.Context, query string) ([]types.SearchHit, error) {
	if strings.TrimSpace(p.APIKey) == "" {
		return nil, fmt.Errorf("tavily: API key is missing")
	}
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty Tavily query")
	}

	depth := p.Depth
	if depth == "" {
		depth = "basic"
	}
	maxResults := p.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	payload, err := json.Marshal(tavilyRequest{Query: query, SearchDepth: depth, MaxResults: maxResults})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyAPIURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, p.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Tavily API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("Tavily API returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("parsing Tavily response: %w", err)
	}

	hits := make([]types.SearchHit, 0, len(tr.Results))
	for _, r := range tr.Results {
		hits = append(hits, types.SearchHit{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Score:   r.Score,
			Source:  "tavily",
		})
		if len(hits) >= maxResults {
			break
		}
	}
	return hits, nil
}
