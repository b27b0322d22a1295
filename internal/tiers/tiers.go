package tiers

import (
	"github.com/nichescan/nichescan/internal/config"
	"github.com/nichescan/nichescan/internal/profile"
)

// Tier classifies why a category is part of a scan
type Tier string

const (
	// Tier1 is the fixed baseline scanned in every full run
	Tier1 Tier = "tier1"
	// Tier2 categories are unlocked by city traits
	Tier2 Tier = "tier2"
	// Conditional categories are always scanned to validate market-wide
	// signals, independent of traits
	Conditional Tier = "conditional"
)

// Entry pairs a category with the tier it is scanned under
type Entry struct {
	Category string
	Tier     Tier
}

// ScanList is the ordered category plan for one full scan
type ScanList struct {
	Tier1       []string
	Tier2       []string
	Conditional []string
	Total       int
}

// CategoriesToScan builds the scan plan for a profile. Categories are unique
// across the whole list: a name already claimed by an earlier tier is not
// repeated by a later one. Total equals the number of entries Ordered returns.
func CategoriesToScan(p profile.CityProfile, cfg *config.Config) ScanList {
	seen := make(map[string]bool)

	take := func(categories []string) []string {
		var kept []string
		for _, c := range categories {
			if seen[c] {
				continue
			}
			seen[c] = true
			kept = append(kept, c)
		}
		return kept
	}

	list := ScanList{
		Tier1:       take(cfg.Tier1Categories),
		Tier2:       take(p.Tier2Categories),
		Conditional: take(cfg.ConditionalCategories),
	}
	list.Total = len(list.Tier1) + len(list.Tier2) + len(list.Conditional)
	return list
}

// Ordered flattens the plan into scan order: tier1, then tier2, then
// conditional, each in declared order.
func (s ScanList) Ordered() []Entry {
	entries := make([]Entry, 0, s.Total)
	for _, c := range s.Tier1 {
		entries = append(entries, Entry{Category: c, Tier: Tier1})
	}
	for _, c := range s.Tier2 {
		entries = append(entries, Entry{Category: c, Tier: Tier2})
	}
	for _, c := range s.Conditional {
		entries = append(entries, Entry{Category: c, Tier: Conditional})
	}
	return entries
}

// CategoryTier reverse-looks-up the tier a category would be scanned under
// for the given profile. Unknown categories default to Tier2, matching how
// ad-hoc user-added categories are treated downstream.
func CategoryTier(category string, p profile.CityProfile, cfg *config.Config) Tier {
	for _, c := range cfg.Tier1Categories {
		if c == category {
			return Tier1
		}
	}
	for _, c := range p.Tier2Categories {
		if c == category {
			return Tier2
		}
	}
	for _, c := range cfg.ConditionalCategories {
		if c == category {
			return Conditional
		}
	}
	return Tier2
}
