package serp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the SERP signal provider over HTTP
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates a provider client. The timeout applies per call; the
// provider has no streaming endpoints.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Search runs one charged provider query and returns the raw response
func (c *Client) Search(ctx context.Context, query string) (*RawResponse, error) {
	requestBody := map[string]interface{}{
		"api_key":       c.apiKey,
		"query":         query,
		"device":        "desktop",
		"include_ads":   true,
		"include_local": true,
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "NicheScan/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serp provider returned status %d", resp.StatusCode)
	}

	var raw RawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse provider response: %w", err)
	}

	return &raw, nil
}
