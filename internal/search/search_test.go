// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/pdiddy/reflexion-engine/pkg/types"
)

// --- mock provider ---

type mockProvider struct {
	mu      sync.Mutex
	seen    []string
	calls   atomic.Int32
	delay   func(query string) time.Duration
	failing map[string]error
	hits    int
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Search(ctx context.Context, query string) ([]types.SearchHit, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.seen = append(m.seen, query)
	m.mu.Unlock()

	if m.delay != nil {
		select {
		case <-time.After(m.delay(query)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := m.failing[query]; err != nil {
		return nil, err
	}
	n := m.hits
	if n == 0 {
		n = 1
	}
	hits := make([]types.SearchHit, n)
	for i := range hits {
		hits[i] = types.SearchHit{Title: fmt.Sprintf("%s #%d", query, i+1), URL: "https://example.com/" + query, Source: "mock"}
	}
	return hits, nil
}

// --- Resolver ---

func TestResolvePreservesQueryOrder(t *testing.T) {
	// Later queries finish first.
	p := &mockProvider{delay: func(q string) time.Duration {
		return time.Duration(10-len(q)) * 5 * time.Millisecond
	}}
	r := &Resolver{Provider: p, Log: zerolog.Nop()}

	queries := []string{"a", "bb", "ccc", "dddd"}
	results, err := r.Resolve(context.Background(), queries)
	require.NoError(t, err)
	require.Len(t, results, len(queries))
	for i, q := range queries {
		assert.Equal(t, q, results[i].Query)
		assert.Equal(t, q+" #1", results[i].Hits[0].Title)
	}
	assert.Equal(t, int32(4), p.calls.Load())
}

func TestResolveEmptyBatch(t *testing.T) {
	p := &mockProvider{}
	r := &Resolver{Provider: p}

	results, err := r.Resolve(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Zero(t, p.calls.Load(), "provider must not be called")
}

func TestResolveFailsOnFirstFailingIndex(t *testing.T) {
	p := &mockProvider{failing: map[string]error{
		"second": fmt.Errorf("timeout"),
		"fourth": fmt.Errorf("quota"),
	}}
	r := &Resolver{Provider: p}

	results, err := r.Resolve(context.Background(), []string{"first", "second", "third", "fourth"})
	require.Error(t, err)
	assert.Nil(t, results)
	assert.Contains(t, err.Error(), `query 2 ("second")`)
	assert.Contains(t, err.Error(), "timeout")
	assert.Equal(t, int32(4), p.calls.Load(), "every query of the batch runs")
}

func TestResolveTruncatesHits(t *testing.T) {
	p := &mockProvider{hits: 8}
	r := NewResolver(p, types.SearchConfig{MaxResults: 3}, zerolog.Nop())

	results, err := r.Resolve(context.Background(), []string{"q"})
	require.NoError(t, err)
	assert.Len(t, results[0].Hits, 3)
	assert.Nil(t, r.Limiter)
}

func TestResolveRateLimited(t *testing.T) {
	p := &mockProvider{}
	r := NewResolver(p, types.SearchConfig{RequestsPerSecond: 1000}, zerolog.Nop())
	require.NotNil(t, r.Limiter)

	results, err := r.Resolve(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestResolveRateLimiterHonoursContext(t *testing.T) {
	p := &mockProvider{}
	r := &Resolver{Provider: p, Limiter: rate.NewLimiter(rate.Every(time.Hour), 1)}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := r.Resolve(ctx, []string{"a", "b"})
	require.Error(t, err)
	assert.Equal(t, int32(1), p.calls.Load(), "only the burst token reaches the provider")
}

// --- NewProvider ---

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.SearchConfig
		want    string
		wantErr string
	}{
		{"tavily", types.SearchConfig{Provider: types.SearchTavily, APIKey: "tvly"}, "tavily", ""},
		{"default is tavily", types.SearchConfig{APIKey: "tvly"}, "tavily", ""},
		{"tavily without key", types.SearchConfig{Provider: types.SearchTavily}, "", "TAVILY_API_KEY"},
		{"semantic scholar", types.SearchConfig{Provider: types.SearchSemanticScholar}, "semantic_scholar", ""},
		{"arxiv", types.SearchConfig{Provider: types.SearchArxiv}, "arxiv", ""},
		{"openalex", types.SearchConfig{Provider: types.SearchOpenAlex, Email: "me@example.com"}, "openalex", ""},
		{"unknown", types.SearchConfig{Provider: "bing"}, "", "unknown search provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.cfg, nil)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name())
		})
	}
}

func TestNewProviderDefaultsMaxResults(t *testing.T) {
	p, err := NewProvider(types.SearchConfig{Provider: types.SearchArxiv}, nil)
	require.NoError(t, err)
	assert.Equal(t, defaultMaxResults, p.(*ArxivProvider).MaxResults)
}

// --- positionScore ---

func TestPositionScore(t *testing.T) {
	assert.Equal(t, 1.0, positionScore(0, 1))
	assert.Equal(t, 1.0, positionScore(0, 5))
	assert.InDelta(t, 0.1, positionScore(4, 5), 1e-9)
	assert.InDelta(t, 0.55, positionScore(1, 3), 1e-9)
}

// --- formatting ---

func sampleResults() []types.SearchResult {
	return []types.SearchResult{
		{Query: "go scheduler", Hits: []types.SearchHit{
			{Title: "Scalable Go Scheduler Design Doc", URL: "https://golang.org/s/go11sched", Score: 0.91},
			{Title: strings.Repeat("Very long title ", 6), URL: "https://example.com/long", Score: 0.5},
		}},
		{Query: "empty one", Hits: []types.SearchHit{}},
	}
}

func TestFormatTable(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(sampleResults(), &buf)
	out := buf.String()

	assert.Contains(t, out, "Query: go scheduler")
	assert.Contains(t, out, "Scalable Go Scheduler Design Doc")
	assert.Contains(t, out, "0.91")
	assert.Contains(t, out, "...")
	assert.Contains(t, out, "(no hits)")
	assert.Contains(t, out, "2 results for 2 queries")
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short ascii unchanged", "Go", 10, "Go"},
		{"exact length unchanged", "abcdef", 6, "abcdef"},
		{"long ascii cut", "abcdefghij", 6, "abc..."},
		{"multibyte counted as runes", "Données ouvertes", 16, "Données ouvertes"},
		{"multibyte cut on rune boundary", "日本語の検索結果について", 8, "日本語の検..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.n)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestFormatTableMultibyteTitle(t *testing.T) {
	title := strings.Repeat("é", 59) + "日本"
	results := []types.SearchResult{{
		Query: "unicode",
		Hits:  []types.SearchHit{{Title: title, URL: "https://example.com", Score: 0.5}},
	}}

	var buf bytes.Buffer
	FormatTable(results, &buf)
	out := buf.String()

	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, strings.Repeat("é", 57)+"...")
}

func TestFormatTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	FormatTable(nil, &buf)
	assert.Equal(t, "No results found.\n", buf.String())
}

func TestFormatJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FormatJSON(sampleResults(), &buf))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "go scheduler", decoded[0]["query"])
	assert.Len(t, decoded[0]["results"], 2)
}
