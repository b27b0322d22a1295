package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

var testTraitCategories = map[string][]string{
	"high_income":          {"landscape design", "home remodeling"},
	"college_town":         {"moving services", "apartment cleaning"},
	"coastal":              {"pool service", "storm prep"},
	"retirement_community": {"mobility ramp installation", "lawn care"},
	"tourism_hub":          {"vacation rental cleaning", "property management"},
}

func TestDetect_NoInputsNoTraits(t *testing.T) {
	p := Detect(Demographics{}, nil, testTraitCategories)

	assert.Empty(t, p.Traits)
	assert.Empty(t, p.Tier2Categories)
}

func TestDetect_HighIncome(t *testing.T) {
	demo := Demographics{MedianHouseholdIncome: intPtr(95000)}
	p := Detect(demo, nil, testTraitCategories)

	assert.True(t, p.HasTrait(TraitHighIncome))
	assert.Equal(t, []string{"landscape design", "home remodeling"}, p.Tier2Categories)
}

func TestDetect_IncomeBelowThreshold(t *testing.T) {
	demo := Demographics{MedianHouseholdIncome: intPtr(60000)}
	p := Detect(demo, nil, testTraitCategories)

	assert.False(t, p.HasTrait(TraitHighIncome))
}

func TestDetect_CollegeTown(t *testing.T) {
	demo := Demographics{
		Population:        intPtr(60000),
		HomeownershipRate: floatPtr(0.40),
	}
	p := Detect(demo, nil, testTraitCategories)

	assert.True(t, p.HasTrait(TraitCollegeTown))
	assert.False(t, p.HasTrait(TraitRetirementCommunity))
}

func TestDetect_RetirementCommunity(t *testing.T) {
	demo := Demographics{
		Population:        intPtr(40000),
		HomeownershipRate: floatPtr(0.82),
	}
	p := Detect(demo, nil, testTraitCategories)

	assert.True(t, p.HasTrait(TraitRetirementCommunity))
}

func TestDetect_TourismHub(t *testing.T) {
	demo := Demographics{
		MedianHouseholdIncome: intPtr(70000),
		MedianHomeValue:       intPtr(600000),
	}
	p := Detect(demo, nil, testTraitCategories)

	assert.True(t, p.HasTrait(TraitTourismHub))
	assert.False(t, p.HasTrait(TraitHighIncome))
}

func TestDetect_CoastalPacific(t *testing.T) {
	coords := &Coordinates{Lat: 32.7157, Lng: -117.1611} // San Diego
	p := Detect(Demographics{}, coords, testTraitCategories)

	assert.True(t, p.HasTrait(TraitCoastal))
	assert.Equal(t, []string{"pool service", "storm prep"}, p.Tier2Categories)
}

func TestDetect_InlandNotCoastal(t *testing.T) {
	coords := &Coordinates{Lat: 39.7392, Lng: -104.9903} // Denver
	p := Detect(Demographics{}, coords, testTraitCategories)

	assert.False(t, p.HasTrait(TraitCoastal))
}

func TestDetect_MissingInputActivatesNothing(t *testing.T) {
	// Homeownership alone is not enough for either rule that uses it.
	demo := Demographics{HomeownershipRate: floatPtr(0.80)}
	p := Detect(demo, nil, testTraitCategories)

	assert.Empty(t, p.Traits)
}

func TestDetect_CategoryUnionIsDeduplicated(t *testing.T) {
	overlapping := map[string][]string{
		"high_income": {"landscape design", "pool service"},
		"coastal":     {"pool service", "storm prep"},
	}
	demo := Demographics{MedianHouseholdIncome: intPtr(120000)}
	coords := &Coordinates{Lat: 33.0, Lng: -117.5}

	p := Detect(demo, coords, overlapping)

	assert.True(t, p.HasTrait(TraitHighIncome))
	assert.True(t, p.HasTrait(TraitCoastal))
	// high_income comes first in trait order; pool service appears once.
	assert.Equal(t, []string{"landscape design", "pool service", "storm prep"}, p.Tier2Categories)
}

func TestDetect_IsPure(t *testing.T) {
	demo := Demographics{MedianHouseholdIncome: intPtr(95000)}

	first := Detect(demo, nil, testTraitCategories)
	second := Detect(demo, nil, testTraitCategories)

	assert.Equal(t, first, second)
}
