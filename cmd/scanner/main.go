package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goflags "github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/nichescan/nichescan/internal/analyzer"
	"github.com/nichescan/nichescan/internal/cache"
	"github.com/nichescan/nichescan/internal/config"
	"github.com/nichescan/nichescan/internal/metrics"
	"github.com/nichescan/nichescan/internal/profile"
	"github.com/nichescan/nichescan/internal/scan"
	"github.com/nichescan/nichescan/internal/serp"
	"github.com/nichescan/nichescan/internal/storage"
	"github.com/nichescan/nichescan/internal/trends"
	"github.com/nichescan/nichescan/internal/version"
)

// options holds the scanner command-line flags
type options struct {
	Config     string `long:"config" description:"Path to config file" default:"config.json"`
	City       string `long:"city" description:"City to scan" required:"true"`
	State      string `long:"state" description:"State or region code" required:"true"`
	TriageOnly bool   `long:"triage-only" description:"Run the triage probe and exit"`
	Force      bool   `long:"force" description:"Run the full scan even if triage advises against it"`
	Verbose    bool   `long:"verbose" description:"Enable debug logging"`

	Population        *int     `long:"population" description:"Resolved city population"`
	MedianIncome      *int     `long:"median-income" description:"Median household income (USD)"`
	HomeownershipRate *float64 `long:"homeownership-rate" description:"Homeownership rate (0..1)"`
	MedianHomeValue   *int     `long:"median-home-value" description:"Median home value (USD)"`
	Lat               *float64 `long:"lat" description:"City latitude"`
	Lng               *float64 `long:"lng" description:"City longitude"`
}

func main() {
	var opts options
	parser := goflags.NewParser(&opts, goflags.Default)
	parser.Name = "scanner"
	parser.LongDescription = "Scan a local market for underserved home-service categories."

	if _, err := parser.Parse(); err != nil {
		if goflags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if opts.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logrus.Infof("NicheScan v%s starting...", version.Version)

	cfg, err := config.LoadConfig(opts.Config)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	timeout := time.Duration(cfg.RequestTimeoutMs) * time.Millisecond
	ttl := time.Duration(cfg.CacheTTLHours) * time.Hour

	var signalCache serp.SignalCache
	if cfg.CacheDBPath != "" {
		persistent, err := storage.NewSignalCache(cfg.CacheDBPath, ttl)
		if err != nil {
			logrus.Fatalf("Failed to open signal cache: %v", err)
		}
		defer persistent.Close()
		signalCache = persistent
		logrus.Infof("Using persistent signal cache: %s (%d entries)", cfg.CacheDBPath, persistent.Len())
	} else {
		signalCache = cache.NewMemory(cfg.CacheMaxEntries, ttl)
	}

	fetcher := serp.NewFetcher(serp.NewClient(cfg.SerpAPIKey, cfg.SerpBaseURL, timeout), signalCache)

	var validator scan.TrendValidator
	if cfg.TrendsAPIKey != "" {
		validator = trends.NewValidator(cfg.TrendsAPIKey, cfg.TrendsBaseURL, timeout)
	} else {
		logrus.Warn("TRENDS_API_KEY not set - trend validation disabled, using decoupled path for all categories")
	}

	tracker := metrics.NewTracker()
	sink := func(u scan.Update) {
		if u.Result != nil {
			logrus.Infof("[%d/%d] %s: %s (score %d/10, verdict %s, cached %t)",
				u.Progress.CompletedCount, u.Progress.TotalCount,
				u.Result.Category, u.Result.SerpQuality, u.Result.SerpScore,
				u.Result.Verdict, u.Result.FromCache)
		}
	}

	session := scan.NewSession(cfg, fetcher, validator, analyzer.New(cfg.Scoring), tracker, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// First signal stops the scan cooperatively; a second one forces exit.
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logrus.Infof("Received signal: %v - stopping scan after current category", sig)
		session.Stop()
		cancel()

		sig = <-sigChan
		logrus.Warnf("Received second signal (%v) - forcing immediate exit!", sig)
		if err := tracker.WriteToFile(cfg.MetricsPath, "forced_exit"); err != nil {
			logrus.Errorf("Emergency metrics save failed: %v", err)
		}
		os.Exit(1)
	}()

	triage, err := session.RunTriageScan(ctx, opts.City, opts.State)
	if err != nil {
		logrus.Fatalf("Triage scan failed: %v", err)
	}
	logrus.Infof("Triage: %s", triage.Recommendation)

	if opts.TriageOnly {
		writeMetrics(tracker, cfg.MetricsPath, "triage_only")
		return
	}
	if !triage.WorthFullScan && !opts.Force {
		logrus.Info("Triage advises against a full scan (use --force to override)")
		writeMetrics(tracker, cfg.MetricsPath, "triage_rejected")
		return
	}

	cityProfile := profile.Detect(profile.Demographics{
		Population:            opts.Population,
		MedianHouseholdIncome: opts.MedianIncome,
		HomeownershipRate:     opts.HomeownershipRate,
		MedianHomeValue:       opts.MedianHomeValue,
	}, coordinates(opts), cfg.TraitCategories)

	logrus.Infof("Detected %d city traits, %d tier-2 categories", len(cityProfile.Traits), len(cityProfile.Tier2Categories))

	outcome, err := session.RunFullScan(ctx, opts.City, opts.State, cityProfile)
	if err != nil {
		logrus.Fatalf("Full scan failed: %v", err)
	}

	printOutcome(outcome)

	reason := "completed"
	if outcome.Stopped {
		reason = "stopped"
	}
	writeMetrics(tracker, cfg.MetricsPath, reason)
}

func coordinates(opts options) *profile.Coordinates {
	if opts.Lat == nil || opts.Lng == nil {
		return nil
	}
	return &profile.Coordinates{Lat: *opts.Lat, Lng: *opts.Lng}
}

func printOutcome(outcome *scan.Outcome) {
	fmt.Println()
	fmt.Println("Top opportunities:")
	if len(outcome.TopOpportunities) == 0 {
		fmt.Println("  (none - no category earned a strong verdict)")
	}
	for i, r := range outcome.TopOpportunities {
		flagged := ""
		if len(r.ValidationFlags) > 0 {
			flagged = fmt.Sprintf(" [flags: %v]", r.ValidationFlags)
		}
		fmt.Printf("  %d. %-30s score %d/10%s\n", i+1, r.Category, r.SerpScore, flagged)
		fmt.Printf("     %s\n", r.Reasoning)
	}

	if len(outcome.SkipList) > 0 {
		fmt.Println()
		fmt.Println("Skipped categories:")
		for _, entry := range outcome.SkipList {
			fmt.Printf("  - %-30s %s\n", entry.Category, entry.Reason)
		}
	}

	fmt.Println()
	fmt.Printf("Flags: %d total, critical: %v | Trends validated: %d | Searches: %d, cache hits: %d\n",
		outcome.Summary.TotalFlags, outcome.Summary.CriticalWarnings,
		outcome.Summary.TrendsValidated,
		outcome.Progress.SearchesUsed, outcome.Progress.CacheHits)
}

func writeMetrics(tracker *metrics.Tracker, path, reason string) {
	if err := tracker.WriteToFile(path, reason); err != nil {
		logrus.Errorf("Failed to write metrics: %v", err)
	} else {
		logrus.Infof("Metrics written to %s", path)
	}
}
