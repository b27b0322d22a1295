package serp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Search(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/search", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"organic_results": [{"position": 1, "url": "https://www.angi.com/x"}],
			"ads": [{"position": 1}],
			"search_information": {"total_results": 42}
		}`))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, 5*time.Second)
	raw, err := client.Search(context.Background(), "plumbing Austin TX")
	require.NoError(t, err)

	assert.Equal(t, "test-key", gotBody["api_key"])
	assert.Equal(t, "plumbing Austin TX", gotBody["query"])
	assert.Len(t, raw.Organic, 1)
	assert.Equal(t, 42, raw.SearchInfo.TotalResults)
}

func TestClient_SearchNonOK(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, 5*time.Second)
	_, err := client.Search(context.Background(), "plumbing Austin TX")
	assert.ErrorContains(t, err, "status 429")
}

func TestClient_SearchMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, 5*time.Second)
	_, err := client.Search(context.Background(), "plumbing Austin TX")
	assert.ErrorContains(t, err, "failed to parse")
}

func TestClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient("test-key", server.URL, 5*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Search(ctx, "plumbing Austin TX")
	assert.Error(t, err)
}
