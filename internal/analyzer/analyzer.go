package analyzer

import (
	"fmt"
	"strings"

	"github.com/nichescan/nichescan/internal/config"
	"github.com/nichescan/nichescan/internal/serp"
	"github.com/nichescan/nichescan/internal/tiers"
	"github.com/nichescan/nichescan/internal/trends"
)

// Verdict classifies a category's opportunity quality
type Verdict string

const (
	VerdictStrong Verdict = "strong"
	VerdictMaybe  Verdict = "maybe"
	VerdictSkip   Verdict = "skip"
)

// Quality buckets the raw SERP score
type Quality string

const (
	QualityWeak   Quality = "Weak"
	QualityMedium Quality = "Medium"
	QualityStrong Quality = "Strong"
)

// Validation flag vocabulary. Flags are machine-detected anomalies attached
// to a result; which of them count as critical is configuration.
const (
	FlagSpikeAnomaly        = "spike_anomaly"
	FlagSevereDecline       = "severe_decline"
	FlagDataConflict        = "data_conflict"
	FlagInsufficientHistory = "insufficient_trend_history"
	FlagNoSearchInterest    = "no_search_interest"
)

// CategoryResult is the scored outcome for one category in one scan.
// ManualOverride is the only field mutated after creation.
type CategoryResult struct {
	Category    string     `json:"category"`
	Tier        tiers.Tier `json:"tier"`
	SerpScore   int        `json:"serp_score"`
	SerpQuality Quality    `json:"serp_quality"`
	Competition string     `json:"competition"`
	LeadValue   string     `json:"lead_value"`
	Urgency     string     `json:"urgency"`
	Verdict     Verdict    `json:"verdict"`
	Reasoning   string     `json:"reasoning"`

	TrendDirection  trends.Direction `json:"trend_direction,omitempty"`
	TrendConfidence int              `json:"trend_confidence,omitempty"`
	SpikeDetected   bool             `json:"spike_detected,omitempty"`
	ValidationFlags []string         `json:"validation_flags,omitempty"`

	ManualOverride bool `json:"manual_override,omitempty"`
	FromCache      bool `json:"from_cache"`
}

// TriageResult is the outcome of the single-query viability probe
type TriageResult struct {
	OverallSignal       string `json:"overall_signal"`
	LSAPresent          bool   `json:"lsa_present"`
	AggregatorDominance bool   `json:"aggregator_dominance"`
	AdDensity           string `json:"ad_density"`
	Recommendation      string `json:"recommendation"`
	WorthFullScan       bool   `json:"worth_full_scan"`
}

// Analyzer scores categories from combined signals. All thresholds come
// from the scoring configuration so policy can be recalibrated without
// touching orchestration.
type Analyzer struct {
	scoring config.Scoring
}

// New creates an Analyzer with the given scoring policy
func New(scoring config.Scoring) *Analyzer {
	return &Analyzer{scoring: scoring}
}

// Analyze scores one category from its competitive signals and, when the
// consolidated path succeeded, its trend validation. validation may be nil.
func (a *Analyzer) Analyze(category, city, state string, sig serp.Signals, tier tiers.Tier, validation *trends.Validation) CategoryResult {
	sc := a.scoring
	score := sc.BaseScore
	var notes []string

	aggTop := aggregatorsInTopFive(sig)
	if aggTop >= sc.AggregatorGapCount {
		score += sc.AggregatorGapBonus
		notes = append(notes, fmt.Sprintf("%d of the top organic results are lead aggregators, leaving room for a real local site", aggTop))
	}

	if sig.AdCount >= sc.HighAdCount {
		score -= sc.AdCompetitionPenalty
		notes = append(notes, fmt.Sprintf("%d paid ads show established advertiser competition", sig.AdCount))
	}
	if sig.LocalPackCount >= sc.CrowdedLocalPack {
		score -= sc.LocalPackPenalty
		notes = append(notes, "the local pack is crowded")
	}
	if sig.HasLSAs {
		score -= sc.LSAPenalty
		notes = append(notes, fmt.Sprintf("%d Local Service Ads are already running", sig.LSACount))
	}

	flags := a.collectFlags(sig, validation)

	if validation != nil {
		switch {
		case validation.Direction == trends.Growing && validation.ConfidencePercent >= sc.MinTrendConfidence:
			score += sc.TrendBonus
			notes = append(notes, fmt.Sprintf("demand is growing (%d%% confidence)", validation.ConfidencePercent))
		case validation.Direction == trends.Declining:
			score -= sc.TrendPenalty
			notes = append(notes, fmt.Sprintf("demand is declining (%d%% confidence)", validation.ConfidencePercent))
		case validation.Direction == trends.Volatile:
			score -= sc.VolatilePenalty
			notes = append(notes, "demand history is volatile")
		}
	}

	score = clampScore(score)

	result := CategoryResult{
		Category:        category,
		Tier:            tier,
		SerpScore:       score,
		SerpQuality:     a.quality(score),
		Competition:     competitionLevel(sig, sc),
		LeadValue:       leadValue(tier),
		Urgency:         urgency(validation),
		Verdict:         a.verdict(score),
		Reasoning:       buildReasoning(category, city, state, score, notes),
		ValidationFlags: flags,
	}

	if validation != nil {
		result.TrendDirection = validation.Direction
		result.TrendConfidence = validation.ConfidencePercent
		result.SpikeDetected = validation.SpikeDetected
	}

	return result
}

// AnalyzeTriage runs the lightweight read on the generic market probe
func (a *Analyzer) AnalyzeTriage(sig serp.Signals) TriageResult {
	sc := a.scoring

	aggDominance := aggregatorsInTopFive(sig) >= sc.AggregatorGapCount

	adDensity := "low"
	if sig.AdCount >= sc.HighAdCount {
		adDensity = "high"
	} else if sig.AdCount > 0 {
		adDensity = "medium"
	}

	// A market worth scanning shows measurable search volume and either
	// paid activity (proven lead value) or an aggregator-heavy SERP
	// (weak incumbents).
	worth := sig.TotalResults > 0 && (sig.AdCount > 0 || sig.HasLSAs || aggDominance)

	overall := "weak"
	recommendation := "Market shows little paid activity; a full scan is unlikely to find strong opportunities."
	if worth {
		overall = "viable"
		recommendation = "Market shows active demand signals; run the full scan."
	}
	if sig.TotalResults == 0 {
		overall = "dead"
		recommendation = "No measurable search interest for home services here."
	}

	return TriageResult{
		OverallSignal:       overall,
		LSAPresent:          sig.HasLSAs,
		AggregatorDominance: aggDominance,
		AdDensity:           adDensity,
		Recommendation:      recommendation,
		WorthFullScan:       worth,
	}
}

// collectFlags derives the anomaly flags for a result
func (a *Analyzer) collectFlags(sig serp.Signals, validation *trends.Validation) []string {
	sc := a.scoring
	var flags []string

	if sig.TotalResults == 0 {
		flags = append(flags, FlagNoSearchInterest)
	}

	if validation == nil {
		return flags
	}

	if validation.SpikeDetected {
		flags = append(flags, FlagSpikeAnomaly)
	}
	if validation.Direction == trends.Declining && validation.ConfidencePercent >= sc.SevereDeclineConfidence {
		flags = append(flags, FlagSevereDecline)
	}
	if validation.ConfidencePercent < sc.InsufficientConfidence {
		flags = append(flags, FlagInsufficientHistory)
	}
	// The two providers looked at the same market and disagreed about
	// whether anyone is searching at all.
	if validation.Direction == trends.Growing && sig.TotalResults == 0 {
		flags = append(flags, FlagDataConflict)
	}

	return flags
}

func (a *Analyzer) quality(score int) Quality {
	switch {
	case score >= a.scoring.StrongScoreMin:
		return QualityStrong
	case score >= a.scoring.MediumScoreMin:
		return QualityMedium
	default:
		return QualityWeak
	}
}

// verdict maps the score onto the pursue/maybe/skip classification.
// Flags never change a verdict; they only demote it in the final ranking.
func (a *Analyzer) verdict(score int) Verdict {
	switch {
	case score >= a.scoring.StrongScoreMin:
		return VerdictStrong
	case score >= a.scoring.MediumScoreMin:
		return VerdictMaybe
	default:
		return VerdictSkip
	}
}

// aggregatorsInTopFive counts aggregator-held positions within the top 5
func aggregatorsInTopFive(sig serp.Signals) int {
	count := 0
	for _, pos := range sig.AggregatorPositions {
		if pos <= 5 {
			count++
		}
	}
	return count
}

func competitionLevel(sig serp.Signals, sc config.Scoring) string {
	switch {
	case sig.HasLSAs || sig.AdCount >= sc.HighAdCount:
		return "high"
	case sig.AdCount > 0 || sig.LocalPackCount >= sc.CrowdedLocalPack:
		return "medium"
	default:
		return "low"
	}
}

// leadValue is a coarse read: baseline emergency trades carry the highest
// ticket sizes, trait-gated niches sit in the middle.
func leadValue(tier tiers.Tier) string {
	switch tier {
	case tiers.Tier1:
		return "high"
	case tiers.Tier2:
		return "medium"
	default:
		return "medium"
	}
}

func urgency(validation *trends.Validation) string {
	if validation == nil {
		return "low"
	}
	if validation.SpikeDetected {
		return "high"
	}
	if validation.Direction == trends.Growing {
		return "medium"
	}
	return "low"
}

// buildReasoning renders the free-text explanation. The first sentence
// carries the headline so skip-list reasons stay short.
func buildReasoning(category, city, state string, score int, notes []string) string {
	headline := fmt.Sprintf("%s in %s, %s scores %d/10.", category, city, state, score)
	if len(notes) == 0 {
		return headline + " No strong competitive signals either way."
	}
	return headline + " " + upperFirst(strings.Join(notes, "; ")) + "."
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}
