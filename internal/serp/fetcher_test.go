package serp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapCache is a minimal SignalCache for fetcher tests
type mapCache struct {
	entries map[string]Signals
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]Signals)}
}

func (m *mapCache) Get(key string) (Signals, bool) {
	sig, ok := m.entries[key]
	return sig, ok
}

func (m *mapCache) Put(key string, sig Signals) { m.entries[key] = sig }

func (m *mapCache) Len() int { return len(m.entries) }

// fakeSearcher records queries and returns a canned response or error
type fakeSearcher struct {
	queries []string
	raw     *RawResponse
	err     error
}

func (f *fakeSearcher) Search(ctx context.Context, query string) (*RawResponse, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

func newTestFetcher(t *testing.T, searcher *fakeSearcher) *Fetcher {
	t.Helper()
	if searcher.raw == nil {
		searcher.raw = &RawResponse{
			Organic: []OrganicEntry{{Position: 1, URL: "https://example.com"}},
			Ads:     []AdEntry{{Position: 1}},
		}
		searcher.raw.SearchInfo.TotalResults = 5000
	}
	return NewFetcher(searcher, newMapCache())
}

func TestCacheKey_Normalizes(t *testing.T) {
	assert.Equal(t, "plumbing|austin|tx", CacheKey(" Plumbing ", "Austin", "TX"))
	assert.Equal(t, CacheKey("plumbing", "austin", "tx"), CacheKey("PLUMBING", " Austin ", "Tx"))
}

func TestFetch_MissThenHit(t *testing.T) {
	searcher := &fakeSearcher{}
	fetcher := newTestFetcher(t, searcher)
	ctx := context.Background()

	first, err := fetcher.Fetch(ctx, "plumbing", "Austin", "TX")
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := fetcher.Fetch(ctx, "Plumbing", "austin", "tx")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Signals, second.Signals)

	// Only the first fetch reached the provider.
	assert.Len(t, searcher.queries, 1)
	assert.Equal(t, "plumbing Austin TX", searcher.queries[0])
}

func TestFetch_DistinctKeysAreSeparateCalls(t *testing.T) {
	searcher := &fakeSearcher{}
	fetcher := newTestFetcher(t, searcher)
	ctx := context.Background()

	_, err := fetcher.Fetch(ctx, "plumbing", "Austin", "TX")
	require.NoError(t, err)
	_, err = fetcher.Fetch(ctx, "plumbing", "Dallas", "TX")
	require.NoError(t, err)

	assert.Len(t, searcher.queries, 2)
}

func TestFetch_ErrorDoesNotPopulateCache(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("provider down")}
	fetcher := newTestFetcher(t, searcher)
	ctx := context.Background()

	_, err := fetcher.Fetch(ctx, "plumbing", "Austin", "TX")
	require.Error(t, err)

	// Recovery: the next attempt goes to the provider again.
	searcher.err = nil
	result, err := fetcher.Fetch(ctx, "plumbing", "Austin", "TX")
	require.NoError(t, err)
	assert.False(t, result.FromCache)
}

func TestTriage_UsesFixedQueryAndCache(t *testing.T) {
	searcher := &fakeSearcher{}
	fetcher := newTestFetcher(t, searcher)
	ctx := context.Background()

	first, err := fetcher.Triage(ctx, "Austin", "TX")
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	require.Len(t, searcher.queries, 1)
	assert.True(t, strings.HasPrefix(searcher.queries[0], "home services near me"))

	second, err := fetcher.Triage(ctx, "Austin", "TX")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Len(t, searcher.queries, 1)
}
