package serp

import (
	"net/url"
	"strings"
)

// Signals is the point-in-time competitive snapshot for one
// (category, city, state) query. Immutable once extracted.
type Signals struct {
	HasLSAs             bool     `json:"has_lsas"`
	LSACount            int      `json:"lsa_count"`
	LocalPackCount      int      `json:"local_pack_count"`
	TopOrganicDomains   []string `json:"top_organic_domains"`
	AdCount             int      `json:"ad_count"`
	AggregatorPositions []int    `json:"aggregator_positions"`
	TotalResults        int      `json:"total_results"`
}

// topOrganicLimit bounds how many organic domains feed the quality read
const topOrganicLimit = 5

// RawResponse is the provider's wire format for one SERP query
type RawResponse struct {
	Organic    []OrganicEntry `json:"organic_results"`
	Ads        []AdEntry      `json:"ads"`
	LocalPack  []LocalEntry   `json:"local_results"`
	LSAs       []LocalEntry   `json:"local_services_ads"`
	SearchInfo struct {
		TotalResults int `json:"total_results"`
	} `json:"search_information"`
}

// OrganicEntry is one organic ranking in the provider response
type OrganicEntry struct {
	Position int    `json:"position"`
	Title    string `json:"title"`
	URL      string `json:"url"`
}

// AdEntry is one paid placement in the provider response
type AdEntry struct {
	Position int    `json:"position"`
	URL      string `json:"url"`
}

// LocalEntry is one local-pack or LSA placement
type LocalEntry struct {
	Title  string  `json:"title"`
	Rating float64 `json:"rating"`
}

// ExtractSignals reduces a raw provider response to the signal set the
// analyzer consumes. Aggregator positions are 1-indexed organic ranks
// occupied by known lead-marketplace domains.
func ExtractSignals(raw *RawResponse) Signals {
	sig := Signals{
		LSACount:       len(raw.LSAs),
		HasLSAs:        len(raw.LSAs) > 0,
		LocalPackCount: len(raw.LocalPack),
		AdCount:        len(raw.Ads),
		TotalResults:   raw.SearchInfo.TotalResults,
	}

	for i, entry := range raw.Organic {
		position := entry.Position
		if position == 0 {
			position = i + 1
		}

		domain := extractDomain(entry.URL)
		if domain == "" {
			continue
		}

		if len(sig.TopOrganicDomains) < topOrganicLimit {
			sig.TopOrganicDomains = append(sig.TopOrganicDomains, domain)
		}
		if IsAggregatorDomain(domain) {
			sig.AggregatorPositions = append(sig.AggregatorPositions, position)
		}
	}

	return sig
}

// extractDomain pulls the lowercased hostname out of a result URL,
// returning "" for anything unparseable.
func extractDomain(urlStr string) string {
	if strings.HasPrefix(urlStr, "//") {
		urlStr = "https:" + urlStr
	}
	if !strings.Contains(urlStr, "://") {
		return ""
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
