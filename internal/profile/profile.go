package profile

// Trait is a derived characteristic of a scanned city
type Trait string

const (
	TraitHighIncome          Trait = "high_income"
	TraitCollegeTown         Trait = "college_town"
	TraitCoastal             Trait = "coastal"
	TraitRetirementCommunity Trait = "retirement_community"
	TraitTourismHub          Trait = "tourism_hub"
)

// traitOrder fixes the order in which trait-unlocked categories are
// appended, so detection output is deterministic.
var traitOrder = []Trait{
	TraitHighIncome,
	TraitCollegeTown,
	TraitCoastal,
	TraitRetirementCommunity,
	TraitTourismHub,
}

// Detection thresholds. These are heuristics over already-resolved census
// inputs, not tunable scan policy.
const (
	highIncomeThreshold       = 85000
	collegeTownMaxOwnership   = 0.45
	collegeTownMinPopulation  = 30000
	retirementMinOwnership    = 0.75
	retirementMaxPopulation   = 100000
	tourismHomeValueMultiple  = 6
	tourismMinMedianHomeValue = 350000
)

// Demographics holds resolved census-style inputs for a location.
// Any field may be nil when the upstream lookup had no data; a missing
// input simply fails to activate the traits that depend on it.
type Demographics struct {
	Population            *int
	MedianHouseholdIncome *int
	HomeownershipRate     *float64
	MedianHomeValue       *int
}

// Coordinates is an optional lat/lng pair for geographic heuristics
type Coordinates struct {
	Lat float64
	Lng float64
}

// CityProfile is the derived trait set for a location plus the tier-2
// categories those traits unlock. It is immutable after creation; a new
// profile is detected when the location input changes.
type CityProfile struct {
	Traits          map[Trait]bool
	Tier2Categories []string
}

// HasTrait reports whether the profile carries the given trait
func (p CityProfile) HasTrait(t Trait) bool {
	return p.Traits[t]
}

// Detect derives a CityProfile from demographics and optional coordinates.
// traitCategories maps a trait name to the tier-2 categories it unlocks
// (see config.Config.TraitCategories). Pure function: no I/O, same inputs
// always produce the same profile.
func Detect(demo Demographics, coords *Coordinates, traitCategories map[string][]string) CityProfile {
	traits := make(map[Trait]bool)

	if demo.MedianHouseholdIncome != nil && *demo.MedianHouseholdIncome >= highIncomeThreshold {
		traits[TraitHighIncome] = true
	}

	if demo.HomeownershipRate != nil && demo.Population != nil &&
		*demo.HomeownershipRate <= collegeTownMaxOwnership &&
		*demo.Population >= collegeTownMinPopulation {
		traits[TraitCollegeTown] = true
	}

	if demo.HomeownershipRate != nil && demo.Population != nil &&
		*demo.HomeownershipRate >= retirementMinOwnership &&
		*demo.Population <= retirementMaxPopulation {
		traits[TraitRetirementCommunity] = true
	}

	// Home values far out of line with local income usually mean outside
	// money: second homes and short-term rentals.
	if demo.MedianHomeValue != nil && demo.MedianHouseholdIncome != nil &&
		*demo.MedianHomeValue >= tourismMinMedianHomeValue &&
		*demo.MedianHomeValue >= tourismHomeValueMultiple*(*demo.MedianHouseholdIncome) {
		traits[TraitTourismHub] = true
	}

	if coords != nil && isCoastal(*coords) {
		traits[TraitCoastal] = true
	}

	return CityProfile{
		Traits:          traits,
		Tier2Categories: categoriesFor(traits, traitCategories),
	}
}

// isCoastal applies rough bounding boxes for the continental US coasts.
func isCoastal(c Coordinates) bool {
	// Pacific coast
	if c.Lng <= -117.0 && c.Lat >= 32.0 && c.Lat <= 49.0 {
		return true
	}
	// Atlantic seaboard
	if c.Lng >= -82.0 && c.Lng <= -66.0 && c.Lat >= 24.0 && c.Lat <= 45.0 {
		return true
	}
	// Gulf coast
	if c.Lat >= 25.0 && c.Lat <= 31.0 && c.Lng >= -98.0 && c.Lng < -82.0 {
		return true
	}
	return false
}

// categoriesFor unions the tier-2 categories unlocked by the active traits,
// de-duplicated, in fixed trait order.
func categoriesFor(traits map[Trait]bool, traitCategories map[string][]string) []string {
	seen := make(map[string]bool)
	var categories []string

	for _, trait := range traitOrder {
		if !traits[trait] {
			continue
		}
		for _, category := range traitCategories[string(trait)] {
			if seen[category] {
				continue
			}
			seen[category] = true
			categories = append(categories, category)
		}
	}

	return categories
}
