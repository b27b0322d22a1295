package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// ErrMissingSerpAPIKey indicates the signal provider key is absent.
// A scan can never start without it, so this is surfaced at load time
// rather than as a per-call error.
var ErrMissingSerpAPIKey = errors.New("SERP_API_KEY is not set")

// Config holds all runtime configuration parameters
type Config struct {
	SerpBaseURL   string `json:"serp_base_url"`
	TrendsBaseURL string `json:"trends_base_url"`

	RequestTimeoutMs       int `json:"request_timeout_ms"`
	DelayBetweenSearchesMs int `json:"delay_between_searches_ms"`
	// MaxSearchesPerScan caps charged provider calls in a single full scan.
	// Zero means the budget equals the category count.
	MaxSearchesPerScan int `json:"max_searches_per_scan"`

	CacheMaxEntries int    `json:"cache_max_entries"`
	CacheTTLHours   int    `json:"cache_ttl_hours"`
	CacheDBPath     string `json:"cache_db_path"`
	MetricsPath     string `json:"metrics_path"`

	// Tier1Categories is the fixed baseline scanned in every full run.
	Tier1Categories []string `json:"tier1_categories"`
	// ConditionalCategories are always scanned to validate market-wide
	// signals; they are not gated by city traits.
	ConditionalCategories []string `json:"conditional_categories"`
	// TraitCategories maps a city trait to the tier-2 categories it unlocks.
	TraitCategories map[string][]string `json:"trait_categories"`

	// CriticalFlags is the validation-flag vocabulary treated as critical
	// when building the scan summary.
	CriticalFlags []string `json:"critical_flags"`

	Scoring Scoring `json:"scoring"`

	// Provider keys come from the environment, never from the config file.
	SerpAPIKey   string `json:"-"`
	TrendsAPIKey string `json:"-"`
}

// Scoring holds the Verdict Analyzer policy knobs. Thresholds are a tunable
// surface, not a structural contract, so they live in configuration.
type Scoring struct {
	BaseScore int `json:"base_score"`

	// An organic top-5 with at least AggregatorGapCount aggregator entries
	// signals an exploitable gap and earns AggregatorGapBonus.
	AggregatorGapCount int `json:"aggregator_gap_count"`
	AggregatorGapBonus int `json:"aggregator_gap_bonus"`

	HighAdCount          int `json:"high_ad_count"`
	AdCompetitionPenalty int `json:"ad_competition_penalty"`
	CrowdedLocalPack     int `json:"crowded_local_pack"`
	LocalPackPenalty     int `json:"local_pack_penalty"`
	LSAPenalty           int `json:"lsa_penalty"`

	TrendBonus         int `json:"trend_bonus"`
	TrendPenalty       int `json:"trend_penalty"`
	VolatilePenalty    int `json:"volatile_penalty"`
	MinTrendConfidence int `json:"min_trend_confidence"`

	// Confidence below InsufficientConfidence flags the trend history as
	// too thin to act on; a decline at or above SevereDeclineConfidence
	// flags the category as collapsing.
	InsufficientConfidence  int `json:"insufficient_confidence"`
	SevereDeclineConfidence int `json:"severe_decline_confidence"`

	StrongScoreMin int `json:"strong_score_min"`
	MediumScoreMin int `json:"medium_score_min"`
}

// LoadConfig reads and validates configuration from a JSON file.
// Provider API keys are resolved from the environment (a .env file is
// honoured when present).
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, using system environment")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	applyDefaults(&cfg)

	cfg.SerpAPIKey = os.Getenv("SERP_API_KEY")
	cfg.TrendsAPIKey = os.Getenv("TRENDS_API_KEY")

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Default returns a Config populated with defaults only, for callers that
// construct the engine without a config file (tests, embedding).
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	if cfg.SerpBaseURL == "" {
		cfg.SerpBaseURL = "https://api.serpstack.com"
	}
	if cfg.TrendsBaseURL == "" {
		cfg.TrendsBaseURL = "https://api.trendlayer.io"
	}
	if cfg.RequestTimeoutMs == 0 {
		cfg.RequestTimeoutMs = 30000
	}
	if cfg.DelayBetweenSearchesMs == 0 {
		cfg.DelayBetweenSearchesMs = 1500
	}
	if cfg.CacheMaxEntries == 0 {
		cfg.CacheMaxEntries = 500
	}
	if cfg.CacheTTLHours == 0 {
		cfg.CacheTTLHours = 24
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "scan_metrics.json"
	}
	if len(cfg.Tier1Categories) == 0 {
		cfg.Tier1Categories = []string{
			"plumbing",
			"hvac repair",
			"roofing",
			"electrician",
			"water damage restoration",
		}
	}
	if len(cfg.ConditionalCategories) == 0 {
		cfg.ConditionalCategories = []string{
			"garage door repair",
			"pest control",
		}
	}
	if cfg.TraitCategories == nil {
		cfg.TraitCategories = map[string][]string{
			"coastal":              {"pool service", "storm prep"},
			"high_income":          {"landscape design", "home remodeling"},
			"college_town":         {"moving services", "apartment cleaning"},
			"retirement_community": {"mobility ramp installation", "lawn care"},
			"tourism_hub":          {"vacation rental cleaning", "property management"},
		}
	}
	if len(cfg.CriticalFlags) == 0 {
		cfg.CriticalFlags = []string{
			"spike_anomaly",
			"severe_decline",
			"data_conflict",
		}
	}
	applyScoringDefaults(&cfg.Scoring)
}

func applyScoringDefaults(sc *Scoring) {
	if sc.BaseScore == 0 {
		sc.BaseScore = 5
	}
	if sc.AggregatorGapCount == 0 {
		sc.AggregatorGapCount = 2
	}
	if sc.AggregatorGapBonus == 0 {
		sc.AggregatorGapBonus = 2
	}
	if sc.HighAdCount == 0 {
		sc.HighAdCount = 4
	}
	if sc.AdCompetitionPenalty == 0 {
		sc.AdCompetitionPenalty = 2
	}
	if sc.CrowdedLocalPack == 0 {
		sc.CrowdedLocalPack = 3
	}
	if sc.LocalPackPenalty == 0 {
		sc.LocalPackPenalty = 1
	}
	if sc.LSAPenalty == 0 {
		sc.LSAPenalty = 1
	}
	if sc.TrendBonus == 0 {
		sc.TrendBonus = 2
	}
	if sc.TrendPenalty == 0 {
		sc.TrendPenalty = 2
	}
	if sc.VolatilePenalty == 0 {
		sc.VolatilePenalty = 1
	}
	if sc.MinTrendConfidence == 0 {
		sc.MinTrendConfidence = 60
	}
	if sc.InsufficientConfidence == 0 {
		sc.InsufficientConfidence = 30
	}
	if sc.SevereDeclineConfidence == 0 {
		sc.SevereDeclineConfidence = 70
	}
	if sc.StrongScoreMin == 0 {
		sc.StrongScoreMin = 7
	}
	if sc.MediumScoreMin == 0 {
		sc.MediumScoreMin = 4
	}
}

// validate checks that required fields are present and values are sensible
func validate(cfg *Config) error {
	if cfg.SerpAPIKey == "" {
		return ErrMissingSerpAPIKey
	}
	if cfg.RequestTimeoutMs < 1000 {
		return fmt.Errorf("request_timeout_ms must be >= 1000")
	}
	if cfg.DelayBetweenSearchesMs < 0 {
		return fmt.Errorf("delay_between_searches_ms must be >= 0")
	}
	if cfg.MaxSearchesPerScan < 0 {
		return fmt.Errorf("max_searches_per_scan must be >= 0")
	}
	if cfg.Scoring.MediumScoreMin >= cfg.Scoring.StrongScoreMin {
		return fmt.Errorf("scoring: medium_score_min must be below strong_score_min")
	}
	return nil
}
