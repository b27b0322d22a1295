package serp

import "regexp"

// Known lead-aggregator brands. These are marketplaces reselling leads, not
// local businesses; the more of the organic top-5 they occupy, the weaker
// the incumbent competition actually is.
var aggregatorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)angi\.com`),
	regexp.MustCompile(`(?i)angieslist\.com`),
	regexp.MustCompile(`(?i)homeadvisor\.com`),
	regexp.MustCompile(`(?i)thumbtack\.com`),
	regexp.MustCompile(`(?i)yelp\.com`),
	regexp.MustCompile(`(?i)porch\.com`),
	regexp.MustCompile(`(?i)houzz\.com`),
	regexp.MustCompile(`(?i)taskrabbit\.com`),
	regexp.MustCompile(`(?i)bark\.com`),
	regexp.MustCompile(`(?i)networx\.com`),
	regexp.MustCompile(`(?i)yellowpages\.com`),
	regexp.MustCompile(`(?i)bbb\.org`),
	regexp.MustCompile(`(?i)expertise\.com`),
	regexp.MustCompile(`(?i)nextdoor\.com`),
}

// IsAggregatorDomain checks if a domain belongs to a known lead aggregator
func IsAggregatorDomain(domain string) bool {
	for _, pattern := range aggregatorPatterns {
		if pattern.MatchString(domain) {
			return true
		}
	}
	return false
}
