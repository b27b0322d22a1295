package trends

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nichescan/nichescan/internal/serp"
)

// Direction is the historical demand trajectory for a category+location
type Direction string

const (
	Growing   Direction = "growing"
	Declining Direction = "declining"
	Flat      Direction = "flat"
	Volatile  Direction = "volatile"
)

// Validation is the trend provider's read on historical demand
type Validation struct {
	Direction         Direction `json:"direction"`
	ConfidencePercent int       `json:"confidence_percent"`
	SpikeDetected     bool      `json:"spike_detected"`
}

// Consolidated is the result of one combined provider call: trend analysis
// plus a SERP-equivalent snapshot taken at the same instant. Fetching both
// in one call avoids the data skew (and double charge) of querying the two
// providers separately.
type Consolidated struct {
	Validation    Validation
	DemandSignals serp.Signals
}

// Validator talks to the trend/demand provider over HTTP
type Validator struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewValidator creates a trend provider client
func NewValidator(apiKey, baseURL string, timeout time.Duration) *Validator {
	return &Validator{
		apiKey:  apiKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// consolidatedResponse is the provider wire format
type consolidatedResponse struct {
	Trend struct {
		Direction     string `json:"direction"`
		Confidence    int    `json:"confidence"`
		SpikeDetected bool   `json:"spike_detected"`
	} `json:"trend"`
	SerpSnapshot serp.RawResponse `json:"serp_snapshot"`
}

// ValidateWithSerp runs the consolidated call for one (category, city, state)
// tuple. Callers must treat an error here as a signal to fall back to the
// decoupled fetch+analyze path, not to abort the category.
func (v *Validator) ValidateWithSerp(ctx context.Context, category, city, state string) (*Consolidated, error) {
	requestBody := map[string]interface{}{
		"api_key":          v.apiKey,
		"keyword":          category,
		"location":         fmt.Sprintf("%s, %s", city, state),
		"include_snapshot": true,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/validate", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "NicheScan/1.0")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trend provider returned status %d", resp.StatusCode)
	}

	var decoded consolidatedResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("failed to parse trend response: %w", err)
	}

	validation := Validation{
		Direction:         parseDirection(decoded.Trend.Direction),
		ConfidencePercent: clampConfidence(decoded.Trend.Confidence),
		SpikeDetected:     decoded.Trend.SpikeDetected,
	}

	return &Consolidated{
		Validation:    validation,
		DemandSignals: serp.ExtractSignals(&decoded.SerpSnapshot),
	}, nil
}

// parseDirection maps the provider's direction string onto the enum,
// treating anything unrecognized as flat.
func parseDirection(s string) Direction {
	switch Direction(s) {
	case Growing, Declining, Flat, Volatile:
		return Direction(s)
	default:
		return Flat
	}
}

func clampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
