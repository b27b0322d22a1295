package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nichescan/nichescan/internal/analyzer"
	"github.com/nichescan/nichescan/internal/trends"
)

func strongResult(category string, score int, flags ...string) analyzer.CategoryResult {
	return analyzer.CategoryResult{
		Category:        category,
		SerpScore:       score,
		Verdict:         analyzer.VerdictStrong,
		ValidationFlags: flags,
	}
}

func TestTopOpportunities_FlaggedNeverOutranksUnflagged(t *testing.T) {
	results := []analyzer.CategoryResult{
		strongResult("flagged high", 10, analyzer.FlagSpikeAnomaly),
		strongResult("clean low", 7),
		strongResult("clean high", 9),
	}

	top := topOpportunities(results)

	require.Len(t, top, 3)
	assert.Equal(t, "clean high", top[0].Category)
	assert.Equal(t, "clean low", top[1].Category)
	assert.Equal(t, "flagged high", top[2].Category)
}

func TestTopOpportunities_TruncatesToThreeStrongOnly(t *testing.T) {
	results := []analyzer.CategoryResult{
		strongResult("a", 7),
		strongResult("b", 8),
		strongResult("c", 9),
		strongResult("d", 10),
		{Category: "maybe one", SerpScore: 10, Verdict: analyzer.VerdictMaybe},
		{Category: "skip one", SerpScore: 10, Verdict: analyzer.VerdictSkip},
	}

	top := topOpportunities(results)

	require.Len(t, top, 3)
	for _, r := range top {
		assert.Equal(t, analyzer.VerdictStrong, r.Verdict)
	}
	assert.Equal(t, []string{"d", "c", "b"}, []string{top[0].Category, top[1].Category, top[2].Category})
}

func TestSkipList_ReasonPrefersFirstFlag(t *testing.T) {
	results := []analyzer.CategoryResult{
		{
			Category:        "dying trade",
			Verdict:         analyzer.VerdictSkip,
			Reasoning:       "dying trade in Austin, TX scores 1/10. Heavy ads.",
			ValidationFlags: []string{analyzer.FlagSevereDecline, analyzer.FlagSpikeAnomaly},
		},
		{
			Category:  "crowded trade",
			Verdict:   analyzer.VerdictSkip,
			Reasoning: "crowded trade in Austin, TX scores 2/10. The local pack is crowded.",
		},
		strongResult("keeper", 9),
	}

	skipped := skipList(results)

	require.Len(t, skipped, 2)
	assert.Equal(t, analyzer.FlagSevereDecline, skipped[0].Reason)
	assert.Equal(t, "crowded trade in Austin, TX scores 2/10.", skipped[1].Reason)
}

func TestBuildSummary_DeduplicatesCriticalFlags(t *testing.T) {
	critical := []string{analyzer.FlagSevereDecline, analyzer.FlagDataConflict}
	results := []analyzer.CategoryResult{
		{Category: "a", ValidationFlags: []string{analyzer.FlagSevereDecline, analyzer.FlagInsufficientHistory}},
		{Category: "b", ValidationFlags: []string{analyzer.FlagSevereDecline}},
		{Category: "c", TrendDirection: trends.Growing, ManualOverride: true},
	}

	summary := buildSummary(results, critical)

	assert.Equal(t, 3, summary.TotalFlags)
	assert.Equal(t, []string{analyzer.FlagSevereDecline}, summary.CriticalWarnings)
	assert.Equal(t, 1, summary.TrendsValidated)
	assert.Equal(t, 1, summary.OverriddenCount)
}
