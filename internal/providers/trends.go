package providers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"garimpo/internal/core"
	"garimpo/internal/keypool"
)

// TrendsClient talks to the trends MCP endpoint. Its topics feed query
// expansion and the trends section of the artifact rather than the web pool.
type TrendsClient struct {
	pool    *keypool.Pool
	client  *http.Client
	baseURL string
}

// NewTrendsClient creates a trends client.
func NewTrendsClient(pool *keypool.Pool) *TrendsClient {
	return &TrendsClient{
		pool:    pool,
		client:  &http.Client{Timeout: 20 * time.Second},
		baseURL: "https://trends-mcp.app/api/v1/trending",
	}
}

// Name returns the registry name of this provider.
func (t *TrendsClient) Name() string { return "trends" }

// Topics returns trending topics related to the query, most relevant first.
func (t *TrendsClient) Topics(ctx context.Context, query string) ([]string, error) {
	payload := map[string]any{
		"keyword": query,
		"geo":     "BR",
		"hl":      "pt-BR",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("trends: failed to marshal payload: %w", err)
	}

	respBody, err := doWithRotation(ctx, t.client, t.pool, t.Name(), func(key string) (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, t.baseURL, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+key)
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Topics []struct {
			Title string `json:"title"`
			Query string `json:"query"`
		} `json:"topics"`
		Related []string `json:"related_queries"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("trends: failed to parse response: %w", err)
	}

	var topics []string
	seen := map[string]bool{}
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[strings.ToLower(s)] {
			return
		}
		seen[strings.ToLower(s)] = true
		topics = append(topics, s)
	}
	for _, topic := range resp.Topics {
		if topic.Title != "" {
			add(topic.Title)
		} else {
			add(topic.Query)
		}
	}
	for _, q := range resp.Related {
		add(q)
	}
	return topics, nil
}

// Search adapts topics into search results so the registry can dispatch the
// trends provider like any other. Topic entries carry no URL; consumers that
// need the trends section use Topics directly.
func (t *TrendsClient) Search(ctx context.Context, query string, limits Limits) (core.ProviderResponse, error) {
	topics, err := t.Topics(ctx, query)
	if err != nil {
		return core.ProviderResponse{}, err
	}

	var results []core.SearchResult
	for i, topic := range topics {
		if limits.MaxResults > 0 && i >= limits.MaxResults {
			break
		}
		results = append(results, core.SearchResult{
			Title:          topic,
			SourceProvider: t.Name(),
			RelevanceScore: rankRelevance(i),
		})
	}
	return core.Success(t.Name(), results), nil
}
