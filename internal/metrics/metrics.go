package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionMetrics tracks scan statistics for export on exit
type SessionMetrics struct {
	SessionID          string    `json:"session_id"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	SearchesUsed       int       `json:"searches_used"`
	CacheHits          int       `json:"cache_hits"`
	CategoriesAnalyzed int       `json:"categories_analyzed"`
	CategoriesSkipped  int       `json:"categories_skipped"`
	FallbacksUsed      int       `json:"fallbacks_used"`
	TrendsValidated    int       `json:"trends_validated"`
	TotalFetchTimeMs   int64     `json:"total_fetch_time_ms"`
	AvgFetchTimeMs     int64     `json:"avg_fetch_time_ms"`
	TerminationReason  string    `json:"termination_reason"`
}

// Tracker holds and manages scan session metrics
type Tracker struct {
	mu               sync.Mutex
	data             SessionMetrics
	totalFetchTimeMs int64
	fetchCount       int
}

// NewTracker creates a new metrics tracker with a fresh session ID
func NewTracker() *Tracker {
	return &Tracker{
		data: SessionMetrics{
			SessionID: uuid.NewString(),
			StartTime: time.Now(),
		},
	}
}

// SessionID returns the session identifier
func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.data.SessionID
}

// IncrementSearches counts one charged provider call
func (t *Tracker) IncrementSearches() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.SearchesUsed++
}

// IncrementCacheHits counts one fetch served entirely from cache
func (t *Tracker) IncrementCacheHits() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.CacheHits++
}

// IncrementAnalyzed counts one category that produced a result
func (t *Tracker) IncrementAnalyzed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.CategoriesAnalyzed++
}

// IncrementSkipped counts one category dropped after an unrecoverable error
func (t *Tracker) IncrementSkipped() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.CategoriesSkipped++
}

// IncrementFallbacks counts one consolidated call that fell back to the
// decoupled path
func (t *Tracker) IncrementFallbacks() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.FallbacksUsed++
}

// IncrementTrendsValidated counts one category with real trend validation
func (t *Tracker) IncrementTrendsValidated() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data.TrendsValidated++
}

// RecordFetchTime records a provider call duration
func (t *Tracker) RecordFetchTime(duration time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.totalFetchTimeMs += duration.Milliseconds()
	t.fetchCount++
}

// GetSnapshot returns a copy of current metrics
func (t *Tracker) GetSnapshot() SessionMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := t.data
	snapshot.TotalFetchTimeMs = t.totalFetchTimeMs
	if t.fetchCount > 0 {
		snapshot.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}
	return snapshot
}

// WriteToFile exports metrics to a JSON file
func (t *Tracker) WriteToFile(path, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.data.EndTime = time.Now()
	t.data.TerminationReason = reason
	t.data.TotalFetchTimeMs = t.totalFetchTimeMs
	if t.fetchCount > 0 {
		t.data.AvgFetchTimeMs = t.totalFetchTimeMs / int64(t.fetchCount)
	}

	jsonData, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}

	return nil
}

// LogProgress formats current metrics for periodic log output
func (t *Tracker) LogProgress() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return fmt.Sprintf("Categories: %d analyzed, %d skipped | Searches: %d used, %d cache hits | Trends validated: %d, fallbacks: %d",
		t.data.CategoriesAnalyzed,
		t.data.CategoriesSkipped,
		t.data.SearchesUsed,
		t.data.CacheHits,
		t.data.TrendsValidated,
		t.data.FallbacksUsed,
	)
}
