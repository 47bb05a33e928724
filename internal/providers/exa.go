package providers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"garimpo/internal/core"
	"garimpo/internal/keypool"
	"garimpo/internal/urlfilter"
)

// ExaClient implements Searcher using the Exa neural search API.
type ExaClient struct {
	pool    *keypool.Pool
	client  *http.Client
	baseURL string
}

// NewExaClient creates a neural search client.
func NewExaClient(pool *keypool.Pool) *ExaClient {
	return &ExaClient{
		pool:    pool,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://api.exa.ai/search",
	}
}

// Name returns the registry name of this provider.
func (e *ExaClient) Name() string { return "exa" }

// Search performs a neural search restricted to the trailing twelve months,
// biased toward the preferred Brazilian domains.
func (e *ExaClient) Search(ctx context.Context, query string, limits Limits) (core.ProviderResponse, error) {
	payload := map[string]any{
		"query":              query,
		"numResults":         limits.MaxResults,
		"useAutoprompt":      true,
		"type":               "neural",
		"startPublishedDate": time.Now().AddDate(-1, 0, 0).Format("2006-01-02"),
		"contents":           map[string]any{"text": map[string]any{"maxCharacters": 500}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return core.ProviderResponse{}, fmt.Errorf("exa: failed to marshal payload: %w", err)
	}

	respBody, err := doWithRotation(ctx, e.client, e.pool, e.Name(), func(key string) (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, e.baseURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", key)
		return req, nil
	})
	if err != nil {
		return core.ProviderResponse{}, err
	}

	var apiResponse struct {
		Results []struct {
			Title         string  `json:"title"`
			URL           string  `json:"url"`
			Text          string  `json:"text"`
			Score         float64 `json:"score"`
			PublishedDate string  `json:"publishedDate"`
		} `json:"results"`
	}
	if err := json.Unmarshal(respBody, &apiResponse); err != nil {
		return core.ProviderResponse{}, fmt.Errorf("exa: failed to parse response: %w", err)
	}

	var results []core.SearchResult
	for _, item := range apiResponse.Results {
		if item.URL == "" || item.Title == "" {
			continue
		}
		r := core.SearchResult{
			Title:          item.Title,
			URL:            item.URL,
			Snippet:        item.Text,
			SourceProvider: e.Name(),
			RelevanceScore: clamp01(item.Score),
		}
		if urlfilter.IsPreferred(item.URL) && r.RelevanceScore < 0.9 {
			r.RelevanceScore += 0.1
		}
		if ts, err := time.Parse(time.RFC3339, item.PublishedDate); err == nil {
			r.PublishedAt = ts
		}
		results = append(results, r)
	}

	return core.Success(e.Name(), results), nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
