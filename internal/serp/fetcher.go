package serp

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// triageQuery is the fixed go/no-go probe issued before a full scan.
// It is generic on purpose: one cheap query that samples the whole
// home-services market of a city.
const triageQuery = "home services near me"

// SignalCache stores fetched signals keyed by (category, city, state).
// Entries are write-once per key within a session; implementations decide
// eviction and staleness (see cache.Memory and storage.SignalCache).
type SignalCache interface {
	Get(key string) (Signals, bool)
	Put(key string, sig Signals)
	Len() int
}

// Searcher is the provider surface the fetcher needs; satisfied by *Client
type Searcher interface {
	Search(ctx context.Context, query string) (*RawResponse, error)
}

// FetchResult carries fetched signals plus whether they were served from
// cache (a cache hit consumes no budget and triggers no inter-call delay).
type FetchResult struct {
	Signals   Signals
	FromCache bool
}

// Fetcher fronts the provider with a cache so repeated lookups of the same
// (category, city, state) tuple within a session are never charged twice.
type Fetcher struct {
	client Searcher
	cache  SignalCache
}

// NewFetcher creates a Fetcher over the given provider client and cache
func NewFetcher(client Searcher, cache SignalCache) *Fetcher {
	return &Fetcher{client: client, cache: cache}
}

// CacheKey normalizes a (category, city, state) tuple into a cache key
func CacheKey(category, city, state string) string {
	norm := func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return norm(category) + "|" + norm(city) + "|" + norm(state)
}

// Fetch returns signals for one (category, city, state) tuple, consulting
// the cache first. A miss performs the charged provider call and stores the
// extracted signals.
func (f *Fetcher) Fetch(ctx context.Context, category, city, state string) (FetchResult, error) {
	query := fmt.Sprintf("%s %s %s", category, city, state)
	return f.fetch(ctx, query, CacheKey(category, city, state))
}

// Triage issues the fixed triage probe for a city. Cache-eligible like any
// other fetch, but never part of the per-category budget.
func (f *Fetcher) Triage(ctx context.Context, city, state string) (FetchResult, error) {
	query := fmt.Sprintf("%s %s %s", triageQuery, city, state)
	return f.fetch(ctx, query, CacheKey(triageQuery, city, state))
}

func (f *Fetcher) fetch(ctx context.Context, query, key string) (FetchResult, error) {
	if sig, ok := f.cache.Get(key); ok {
		logrus.Debugf("Cache hit for %q", key)
		return FetchResult{Signals: sig, FromCache: true}, nil
	}

	raw, err := f.client.Search(ctx, query)
	if err != nil {
		return FetchResult{}, fmt.Errorf("serp fetch for %q failed: %w", query, err)
	}

	sig := ExtractSignals(raw)
	f.cache.Put(key, sig)

	return FetchResult{Signals: sig, FromCache: false}, nil
}
