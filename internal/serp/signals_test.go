package serp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractSignals_FullResponse(t *testing.T) {
	raw := &RawResponse{
		Organic: []OrganicEntry{
			{Position: 1, URL: "https://www.angi.com/plumbers/austin"},
			{Position: 2, URL: "https://joesplumbing.com"},
			{Position: 3, URL: "https://www.thumbtack.com/tx/austin/plumbers"},
			{Position: 4, URL: "https://austinpipepros.com/services"},
			{Position: 5, URL: "https://www.yelp.com/search?q=plumber"},
			{Position: 6, URL: "https://sixthresult.com"},
			{Position: 7, URL: "https://seventhresult.com"},
		},
		Ads:       []AdEntry{{Position: 1}, {Position: 2}, {Position: 3}},
		LocalPack: []LocalEntry{{Title: "A"}, {Title: "B"}, {Title: "C"}},
		LSAs:      []LocalEntry{{Title: "LSA 1"}, {Title: "LSA 2"}},
	}
	raw.SearchInfo.TotalResults = 128000

	sig := ExtractSignals(raw)

	assert.True(t, sig.HasLSAs)
	assert.Equal(t, 2, sig.LSACount)
	assert.Equal(t, 3, sig.LocalPackCount)
	assert.Equal(t, 3, sig.AdCount)
	assert.Equal(t, 128000, sig.TotalResults)
	assert.Equal(t, []int{1, 3, 5}, sig.AggregatorPositions)
	// Top organic domains are capped at five.
	assert.Equal(t, []string{
		"www.angi.com",
		"joesplumbing.com",
		"www.thumbtack.com",
		"austinpipepros.com",
		"www.yelp.com",
	}, sig.TopOrganicDomains)
}

func TestExtractSignals_EmptyResponse(t *testing.T) {
	sig := ExtractSignals(&RawResponse{})

	assert.False(t, sig.HasLSAs)
	assert.Zero(t, sig.AdCount)
	assert.Zero(t, sig.TotalResults)
	assert.Empty(t, sig.TopOrganicDomains)
	assert.Empty(t, sig.AggregatorPositions)
}

func TestExtractSignals_PositionFallback(t *testing.T) {
	// Some providers omit explicit positions; rank is then list order.
	raw := &RawResponse{
		Organic: []OrganicEntry{
			{URL: "https://first.com"},
			{URL: "https://www.homeadvisor.com/c/austin"},
		},
	}

	sig := ExtractSignals(raw)

	assert.Equal(t, []int{2}, sig.AggregatorPositions)
}

func TestExtractSignals_SkipsUnparseableURLs(t *testing.T) {
	raw := &RawResponse{
		Organic: []OrganicEntry{
			{Position: 1, URL: "/relative/path"},
			{Position: 2, URL: "https://real.com"},
		},
	}

	sig := ExtractSignals(raw)

	assert.Equal(t, []string{"real.com"}, sig.TopOrganicDomains)
}

func TestIsAggregatorDomain(t *testing.T) {
	assert.True(t, IsAggregatorDomain("www.angi.com"))
	assert.True(t, IsAggregatorDomain("homeadvisor.com"))
	assert.True(t, IsAggregatorDomain("m.yelp.com"))
	assert.False(t, IsAggregatorDomain("joesplumbing.com"))
	assert.False(t, IsAggregatorDomain("austinpipepros.com"))
}
