package scan

import (
	"sort"
	"strings"

	"github.com/nichescan/nichescan/internal/analyzer"
)

// maxTopOpportunities bounds the ranked shortlist surfaced to the caller
const maxTopOpportunities = 3

// SkipEntry pairs a skipped category with the reason it was ruled out
type SkipEntry struct {
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

// ValidationSummary aggregates anomaly evidence across the scan. Recomputed
// at completion and whenever a manual override changes.
type ValidationSummary struct {
	TotalFlags       int      `json:"total_flags"`
	CriticalWarnings []string `json:"critical_warnings"`
	TrendsValidated  int      `json:"trends_validated"`
	OverriddenCount  int      `json:"overridden_count"`
}

// Outcome is the aggregated result set of one full scan
type Outcome struct {
	Results          []analyzer.CategoryResult `json:"results"`
	TopOpportunities []analyzer.CategoryResult `json:"top_opportunities"`
	SkipList         []SkipEntry               `json:"skip_list"`
	Summary          ValidationSummary         `json:"summary"`
	Progress         Progress                  `json:"progress"`
	Stopped          bool                      `json:"stopped"`
}

func buildOutcome(results []analyzer.CategoryResult, summary ValidationSummary, progress Progress, stopped bool) *Outcome {
	return &Outcome{
		Results:          results,
		TopOpportunities: topOpportunities(results),
		SkipList:         skipList(results),
		Summary:          summary,
		Progress:         progress,
		Stopped:          stopped,
	}
}

// topOpportunities ranks strong verdicts: unflagged results always outrank
// flagged ones regardless of score, then score descending. Truncated to 3.
func topOpportunities(results []analyzer.CategoryResult) []analyzer.CategoryResult {
	var strong []analyzer.CategoryResult
	for _, r := range results {
		if r.Verdict == analyzer.VerdictStrong {
			strong = append(strong, r)
		}
	}

	sort.SliceStable(strong, func(i, j int) bool {
		iFlagged := len(strong[i].ValidationFlags) > 0
		jFlagged := len(strong[j].ValidationFlags) > 0
		if iFlagged != jFlagged {
			return !iFlagged
		}
		return strong[i].SerpScore > strong[j].SerpScore
	})

	if len(strong) > maxTopOpportunities {
		strong = strong[:maxTopOpportunities]
	}
	return strong
}

// skipList pairs every skip verdict with its headline reason: the first
// validation flag when present, otherwise the first sentence of reasoning.
func skipList(results []analyzer.CategoryResult) []SkipEntry {
	var skipped []SkipEntry
	for _, r := range results {
		if r.Verdict != analyzer.VerdictSkip {
			continue
		}
		reason := firstSentence(r.Reasoning)
		if len(r.ValidationFlags) > 0 {
			reason = r.ValidationFlags[0]
		}
		skipped = append(skipped, SkipEntry{Category: r.Category, Reason: reason})
	}
	return skipped
}

// buildSummary recomputes the validation summary over the current results
func buildSummary(results []analyzer.CategoryResult, criticalFlags []string) ValidationSummary {
	critical := make(map[string]bool, len(criticalFlags))
	for _, f := range criticalFlags {
		critical[f] = true
	}

	summary := ValidationSummary{}
	seen := make(map[string]bool)

	for _, r := range results {
		summary.TotalFlags += len(r.ValidationFlags)
		for _, f := range r.ValidationFlags {
			if critical[f] && !seen[f] {
				seen[f] = true
				summary.CriticalWarnings = append(summary.CriticalWarnings, f)
			}
		}
		if r.TrendDirection != "" {
			summary.TrendsValidated++
		}
		if r.ManualOverride {
			summary.OverriddenCount++
		}
	}

	return summary
}

func firstSentence(s string) string {
	if idx := strings.Index(s, ". "); idx >= 0 {
		return s[:idx+1]
	}
	return s
}
