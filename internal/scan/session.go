package scan

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nichescan/nichescan/internal/analyzer"
	"github.com/nichescan/nichescan/internal/config"
	"github.com/nichescan/nichescan/internal/metrics"
	"github.com/nichescan/nichescan/internal/profile"
	"github.com/nichescan/nichescan/internal/serp"
	"github.com/nichescan/nichescan/internal/tiers"
	"github.com/nichescan/nichescan/internal/trends"
)

// ErrScanActive is returned when a scan is started while one is running
var ErrScanActive = errors.New("a scan is already running")

// ErrCategoryNotFound is returned by SetManualOverride for unknown categories
var ErrCategoryNotFound = errors.New("category not found in results")

// Status is the session lifecycle state. The scanning flag is tracked
// separately so cancellation can be requested while status is loading.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Progress is the per-step counter block streamed to the caller
type Progress struct {
	CurrentCategory string `json:"current_category"`
	CompletedCount  int    `json:"completed_count"`
	TotalCount      int    `json:"total_count"`
	CacheHits       int    `json:"cache_hits"`
	SearchesUsed    int    `json:"searches_used"`
}

// Update is one streamed progress event. Result is set when a category
// just completed; partial results are therefore visible mid-scan.
type Update struct {
	SessionID string
	Status    Status
	Progress  Progress
	Result    *analyzer.CategoryResult
}

// Sink receives one Update per step. It is invoked from the scan loop, so
// implementations must return promptly.
type Sink func(Update)

// Fetcher is the signal source the session drives; satisfied by *serp.Fetcher
type Fetcher interface {
	Fetch(ctx context.Context, category, city, state string) (serp.FetchResult, error)
	Triage(ctx context.Context, city, state string) (serp.FetchResult, error)
}

// TrendValidator is the consolidated trend+SERP source; satisfied by
// *trends.Validator. A nil validator degrades every category to the
// decoupled path.
type TrendValidator interface {
	ValidateWithSerp(ctx context.Context, category, city, state string) (*trends.Consolidated, error)
}

// Session drives triage and full scans for one caller. All provider calls
// are strictly sequential: the signal provider rate-limits us and the
// budget counters assume one call in flight at a time.
type Session struct {
	cfg       *config.Config
	fetcher   Fetcher
	validator TrendValidator
	analyzer  *analyzer.Analyzer
	tracker   *metrics.Tracker
	sink      Sink

	mu       sync.Mutex
	status   Status
	scanning bool
	cancel   context.CancelFunc
	progress Progress
	results  []analyzer.CategoryResult
	summary  ValidationSummary
}

// NewSession creates a Session. validator and sink may be nil.
func NewSession(cfg *config.Config, fetcher Fetcher, validator TrendValidator, a *analyzer.Analyzer, tracker *metrics.Tracker, sink Sink) *Session {
	return &Session{
		cfg:       cfg,
		fetcher:   fetcher,
		validator: validator,
		analyzer:  a,
		tracker:   tracker,
		sink:      sink,
		status:    StatusIdle,
	}
}

// Status returns the current lifecycle state
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Scanning reports whether a full scan loop is currently running
func (s *Session) Scanning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scanning
}

// Results returns a copy of the results collected so far
func (s *Session) Results() []analyzer.CategoryResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]analyzer.CategoryResult, len(s.results))
	copy(out, s.results)
	return out
}

// Summary returns the current validation summary
func (s *Session) Summary() ValidationSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Stop requests cooperative cancellation. The check happens at loop
// boundaries, so a category already in flight is allowed to finish; the
// session then ends with partial results, not an error.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		logrus.Info("Stop requested, finishing current category...")
		s.cancel()
	}
}

// RunTriageScan issues the single go/no-go probe for a city. At most one
// unit of budget is consumed; zero if the probe was cached.
func (s *Session) RunTriageScan(ctx context.Context, city, state string) (*analyzer.TriageResult, error) {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return nil, ErrScanActive
	}
	s.status = StatusLoading
	s.progress = Progress{TotalCount: 1}
	s.mu.Unlock()

	start := time.Now()
	fr, err := s.fetcher.Triage(ctx, city, state)
	if err != nil {
		s.setStatus(StatusError)
		return nil, err
	}

	s.mu.Lock()
	if fr.FromCache {
		s.progress.CacheHits++
		s.tracker.IncrementCacheHits()
	} else {
		s.progress.SearchesUsed++
		s.tracker.IncrementSearches()
		s.tracker.RecordFetchTime(time.Since(start))
	}
	s.progress.CompletedCount = 1
	s.status = StatusSuccess
	s.mu.Unlock()

	result := s.analyzer.AnalyzeTriage(fr.Signals)
	logrus.Infof("Triage for %s, %s: %s (worth full scan: %t)", city, state, result.OverallSignal, result.WorthFullScan)
	s.emit(nil)
	return &result, nil
}

// RunFullScan runs the budgeted, tiered scan for a city. Categories are
// processed strictly in tier order; each completed category is streamed to
// the sink before the next one starts. Cancellation via ctx or Stop ends
// the loop with the results collected so far.
func (s *Session) RunFullScan(ctx context.Context, city, state string, p profile.CityProfile) (*Outcome, error) {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return nil, ErrScanActive
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.scanning = true
	s.status = StatusLoading
	s.results = nil
	s.summary = ValidationSummary{}

	plan := tiers.CategoriesToScan(p, s.cfg)
	entries := plan.Ordered()
	s.progress = Progress{TotalCount: plan.Total}
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.scanning = false
		s.cancel = nil
		s.mu.Unlock()
	}()

	logrus.Infof("Full scan for %s, %s: %d tier1, %d tier2, %d conditional categories",
		city, state, len(plan.Tier1), len(plan.Tier2), len(plan.Conditional))

	stopped := false
	delay := time.Duration(s.cfg.DelayBetweenSearchesMs) * time.Millisecond

	for i, entry := range entries {
		if ctx.Err() != nil {
			stopped = true
			break
		}
		if s.budgetExhausted() {
			logrus.Warnf("Search budget exhausted after %d categories, stopping early", i)
			break
		}

		s.mu.Lock()
		s.progress.CurrentCategory = entry.Category
		s.mu.Unlock()

		result, fromCache, err := s.processCategory(ctx, entry, city, state)
		if err != nil {
			if ctx.Err() != nil {
				// The in-flight call was interrupted by cancellation;
				// not a category failure.
				stopped = true
				break
			}
			logrus.Warnf("Skipping %q: %v", entry.Category, err)
			s.tracker.IncrementSkipped()
			continue
		}

		s.mu.Lock()
		if fromCache {
			s.progress.CacheHits++
			s.tracker.IncrementCacheHits()
		} else {
			s.progress.SearchesUsed++
			s.tracker.IncrementSearches()
		}
		s.progress.CompletedCount++
		s.results = append(s.results, result)
		s.summary = buildSummary(s.results, s.cfg.CriticalFlags)
		s.mu.Unlock()

		s.emit(&result)

		// Throttle the provider. Cache hits cost nothing, and the last
		// category has nothing after it to protect.
		if !fromCache && i < len(entries)-1 {
			if err := sleepContext(ctx, delay); err != nil {
				stopped = true
				break
			}
		}
	}

	s.mu.Lock()
	s.status = StatusSuccess
	results := make([]analyzer.CategoryResult, len(s.results))
	copy(results, s.results)
	progress := s.progress
	summary := s.summary
	s.mu.Unlock()

	outcome := buildOutcome(results, summary, progress, stopped)

	if stopped {
		logrus.Infof("Scan stopped early with %d/%d categories completed", progress.CompletedCount, progress.TotalCount)
	} else {
		logrus.Infof("Scan complete: %s", s.tracker.LogProgress())
	}

	return outcome, nil
}

// processCategory resolves signals for one category and scores it.
// Tier1 and conditional categories try the consolidated trend+SERP call
// first; any failure there falls back to the decoupled fetch+analyze path.
func (s *Session) processCategory(ctx context.Context, entry tiers.Entry, city, state string) (analyzer.CategoryResult, bool, error) {
	useConsolidated := s.validator != nil &&
		(entry.Tier == tiers.Tier1 || entry.Tier == tiers.Conditional)

	if useConsolidated {
		start := time.Now()
		cons, err := s.validator.ValidateWithSerp(ctx, entry.Category, city, state)
		if err == nil {
			s.tracker.RecordFetchTime(time.Since(start))
			s.tracker.IncrementTrendsValidated()
			s.tracker.IncrementAnalyzed()
			result := s.analyzer.Analyze(entry.Category, city, state, cons.DemandSignals, entry.Tier, &cons.Validation)
			return result, false, nil
		}
		if ctx.Err() != nil {
			return analyzer.CategoryResult{}, false, err
		}
		logrus.Warnf("Consolidated validation for %q failed (%v), falling back to decoupled fetch", entry.Category, err)
		s.tracker.IncrementFallbacks()
	}

	start := time.Now()
	fr, err := s.fetcher.Fetch(ctx, entry.Category, city, state)
	if err != nil {
		return analyzer.CategoryResult{}, false, err
	}
	if !fr.FromCache {
		s.tracker.RecordFetchTime(time.Since(start))
	}

	s.tracker.IncrementAnalyzed()
	result := s.analyzer.Analyze(entry.Category, city, state, fr.Signals, entry.Tier, nil)
	result.FromCache = fr.FromCache
	return result, fr.FromCache, nil
}

// SetManualOverride toggles the override flag on one collected result and
// recomputes the summary. Validation flags are evidence and are never
// touched: overriding changes how they are weighed, not what was detected.
func (s *Session) SetManualOverride(category string, overridden bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.results {
		if strings.EqualFold(s.results[i].Category, category) {
			s.results[i].ManualOverride = overridden
			s.summary = buildSummary(s.results, s.cfg.CriticalFlags)
			return nil
		}
	}
	return ErrCategoryNotFound
}

// budgetExhausted reports whether the optional per-scan search cap is spent
func (s *Session) budgetExhausted() bool {
	if s.cfg.MaxSearchesPerScan <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress.SearchesUsed >= s.cfg.MaxSearchesPerScan
}

// setStatus updates the lifecycle state under lock
func (s *Session) setStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

// emit streams one update to the sink, if any
func (s *Session) emit(result *analyzer.CategoryResult) {
	if s.sink == nil {
		return
	}
	s.mu.Lock()
	update := Update{
		SessionID: s.tracker.SessionID(),
		Status:    s.status,
		Progress:  s.progress,
		Result:    result,
	}
	s.mu.Unlock()
	s.sink(update)
}

// sleepContext waits for d or until ctx is cancelled
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
