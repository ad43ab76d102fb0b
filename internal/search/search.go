// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search resolves follow-up search queries against a web or
// academic search provider. A Resolver runs every query of a batch
// concurrently and returns one result per query in query order.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pdiddy/reflexion-engine/internal/reflexion"
	"github.com/pdiddy/reflexion-engine/pkg/types"
)

// Provider searches a single API. Each provider (Tavily, Semantic Scholar,
// arXiv, OpenAlex) implements this interface.
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]types.SearchHit, error)
}

// NewProvider returns the provider selected by cfg.Provider.
func NewProvider(cfg types.SearchConfig, client *http.Client) (Provider, error) {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	switch cfg.Provider {
	case types.SearchTavily, "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("tavily search requires an API key (set .secrets/tavily-api-key or TAVILY_API_KEY)")
		}
		return &TavilyProvider{
			Client:     client,
			APIKey:     cfg.APIKey,
			Depth:      cfg.Depth,
			MaxResults: maxResults,
			UserAgent:  cfg.UserAgent,
		}, nil
	case types.SearchSemanticScholar:
		return &SemanticScholarProvider{Client: client, APIKey: cfg.APIKey, MaxResults: maxResults, UserAgent: cfg.UserAgent}, nil
	case types.SearchArxiv:
		return &ArxivProvider{Client: client, MaxResults: maxResults, UserAgent: cfg.UserAgent}, nil
	case types.SearchOpenAlex:
		return &OpenAlexProvider{Client: client, Email: cfg.Email, MaxResults: maxResults, UserAgent: cfg.UserAgent}, nil
	default:
		return nil, fmt.Errorf("unknown search provider %q (want tavily, semantic_scholar, arxiv, or openalex)", cfg.Provider)
	}
}

// defaultMaxResults matches the number of results the Tavily tool returns
// per query.
const defaultMaxResults = 5

// Resolver implements reflexion.QueryResolver over a Provider.
type Resolver struct {
	Provider Provider

	// MaxResults truncates the hits kept per query (0 = keep all).
	MaxResults int

	// Limiter paces provider calls; nil means unlimited.
	Limiter *rate.Limiter

	Log zerolog.Logger
}

var _ reflexion.QueryResolver = (*Resolver)(nil)

// NewResolver builds a Resolver from cfg around provider.
func NewResolver(provider Provider, cfg types.SearchConfig, log zerolog.Logger) *Resolver {
	r := &Resolver{Provider: provider, MaxResults: cfg.MaxResults, Log: log}
	if cfg.RequestsPerSecond > 0 {
		r.Limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return r
}

// Resolve runs every query concurrently and returns one SearchResult per
// query in query order. The batch fails if any query fails; the error of
// the lowest failing index is reported. An empty batch returns an empty
// list without calling the provider.
func (r *Resolver) Resolve(ctx context.Context, queries []string) ([]types.SearchResult, error) {
	results := make([]types.SearchResult, len(queries))
	if len(queries) == 0 {
		return results, nil
	}

	errs := make([]error, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, err := r.search(ctx, q)
			if err != nil {
				errs[i] = fmt.Errorf("query %d (%q): %w", i+1, q, err)
				return
			}
			results[i] = types.SearchResult{Query: q, Hits: hits}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (r *Resolver) search(ctx context.Context, query string) ([]types.SearchHit, error) {
	if r.Limiter != nil {
		if err := r.Limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	hits, err := r.Provider.Search(ctx, query)
	if err != nil {
		r.Log.Debug().Err(err).Str("provider", r.Provider.Name()).Str("query", query).Msg("search failed")
		return nil, err
	}
	if r.MaxResults > 0 && len(hits) > r.MaxResults {
		hits = hits[:r.MaxResults]
	}
	if hits == nil {
		hits = []types.SearchHit{}
	}
	r.Log.Debug().Str("provider", r.Provider.Name()).Str("query", query).Int("hits", len(hits)).Msg("search")
	return hits, nil
}

// positionScore gives ranked providers without scores a relevance in
// [0.1, 1] from the result position.
func positionScore(i, total int) float64 {
	if total > 1 {
		return 1.0 - float64(i)/float64(total-1)*0.9
	}
	return 1.0
}

// FormatTable writes results as a human-readable table to w, one block per query.
func FormatTable(results []types.SearchResult, w io.Writer) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	total := 0
	for _, res := range results {
		fmt.Fprintf(w, "Query: %s\n", res.Query)
		if len(res.Hits) == 0 {
			fmt.Fprintln(w, "  (no hits)")
			fmt.Fprintln(w)
			continue
		}
		fmt.Fprintf(w, "%-4s  %-60s  %-6s  %s\n", "Rank", "Title", "Score", "URL")
		fmt.Fprintln(w, strings.Repeat("-", 110))
		for i, h := range res.Hits {
			fmt.Fprintf(w, "%-4d  %-60s  %-6.2f  %s\n", i+1, truncate(h.Title, 60), h.Score, h.URL)
		}
		fmt.Fprintln(w)
		total += len(res.Hits)
	}
	fmt.Fprintf(w, "%d results for %d queries\n", total, len(results))
}

// FormatJSON writes results as indented JSON to w.
func FormatJSON(results []types.SearchResult, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
