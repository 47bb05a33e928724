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
)

// SerperClient implements Searcher using the Serper.dev meta-search API.
// The organic[] block is the authoritative payload shape; the API also ships
// a knowledgeGraph variant that is ignored here.
type SerperClient struct {
	pool    *keypool.Pool
	client  *http.Client
	baseURL string
}

// NewSerperClient creates a meta-search aggregator client.
func NewSerperClient(pool *keypool.Pool) *SerperClient {
	return &SerperClient{
		pool:    pool,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://google.serper.dev/search",
	}
}

// Name returns the registry name of this provider.
func (s *SerperClient) Name() string { return "serper" }

// Search posts the query and maps organic results.
func (s *SerperClient) Search(ctx context.Context, query string, limits Limits) (core.ProviderResponse, error) {
	payload := map[string]any{
		"q":   query,
		"gl":  "br",
		"hl":  "pt-br",
		"num": limits.MaxResults,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return core.ProviderResponse{}, fmt.Errorf("serper: failed to marshal payload: %w", err)
	}

	respBody, err := doWithRotation(ctx, s.client, s.pool, s.Name(), func(key string) (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, s.baseURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-KEY", key)
		return req, nil
	})
	if err != nil {
		return core.ProviderResponse{}, err
	}

	results, err := parseSerperOrganic(respBody, s.Name())
	if err != nil {
		return core.ProviderResponse{}, err
	}
	return core.Success(s.Name(), results), nil
}

func parseSerperOrganic(body []byte, provider string) ([]core.SearchResult, error) {
	var apiResponse struct {
		Organic []struct {
			Title    string `json:"title"`
			Link     string `json:"link"`
			Snippet  string `json:"snippet"`
			Position int    `json:"position"`
			Date     string `json:"date"`
		} `json:"organic"`
	}
	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return nil, fmt.Errorf("serper: failed to parse response: %w", err)
	}

	var results []core.SearchResult
	for i, item := range apiResponse.Organic {
		if item.Link == "" || item.Title == "" {
			continue
		}
		rank := item.Position - 1
		if rank < 0 {
			rank = i
		}
		results = append(results, core.SearchResult{
			Title:          item.Title,
			URL:            item.Link,
			Snippet:        item.Snippet,
			SourceProvider: provider,
			RelevanceScore: rankRelevance(rank),
		})
	}
	return results, nil
}
