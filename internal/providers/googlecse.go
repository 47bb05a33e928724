package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"garimpo/internal/core"
	"garimpo/internal/keypool"
)

// GoogleCSEClient implements Searcher using the Google Custom Search API,
// pinned to Brazilian Portuguese and the trailing twelve months.
type GoogleCSEClient struct {
	pool     *keypool.Pool
	client   *http.Client
	searchID string
	baseURL  string
}

// NewGoogleCSEClient creates a custom web search client. The engine id comes
// from GOOGLE_CSE_ID; keys rotate through the pool.
func NewGoogleCSEClient(pool *keypool.Pool) *GoogleCSEClient {
	return &GoogleCSEClient{
		pool:     pool,
		client:   &http.Client{Timeout: 30 * time.Second},
		searchID: os.Getenv("GOOGLE_CSE_ID"),
		baseURL:  "https://www.googleapis.com/customsearch/v1",
	}
}

// Name returns the registry name of this provider.
func (g *GoogleCSEClient) Name() string { return "google_cse" }

// Search queries the custom search engine. Results per request cap at 10.
func (g *GoogleCSEClient) Search(ctx context.Context, query string, limits Limits) (core.ProviderResponse, error) {
	num := limits.MaxResults
	if num > 10 || num <= 0 {
		num = 10
	}

	respBody, err := doWithRotation(ctx, g.client, g.pool, g.Name(), func(key string) (*http.Request, error) {
		params := url.Values{}
		params.Set("key", key)
		params.Set("cx", g.searchID)
		params.Set("q", query)
		params.Set("num", strconv.Itoa(num))
		params.Set("lr", "lang_pt")
		params.Set("gl", "br")
		params.Set("dateRestrict", "m12")
		return http.NewRequest(http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	})
	if err != nil {
		return core.ProviderResponse{}, err
	}

	var apiResponse struct {
		Items []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"items"`
	}
	if err := json.Unmarshal(respBody, &apiResponse); err != nil {
		return core.ProviderResponse{}, fmt.Errorf("google_cse: failed to parse response: %w", err)
	}

	var results []core.SearchResult
	for i, item := range apiResponse.Items {
		if item.Link == "" || item.Title == "" {
			continue
		}
		results = append(results, core.SearchResult{
			Title:          item.Title,
			URL:            item.Link,
			Snippet:        item.Snippet,
			SourceProvider: g.Name(),
			RelevanceScore: rankRelevance(i),
		})
	}

	return core.Success(g.Name(), results), nil
}

// rankRelevance derives a [0,1] relevance from the position in a ranked
// result list; providers without native scores share it.
func rankRelevance(rank int) float64 {
	score := 1.0 - float64(rank)*0.05
	if score < 0.3 {
		score = 0.3
	}
	return score
}
