package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"garimpo/internal/core"
	"garimpo/internal/keypool"
)

// JinaClient wraps the Jina reader API. It has two roles: the first
// extraction strategy for arbitrary URLs, and a search proxy that reads a
// SERP page through the reader when used as a Searcher.
type JinaClient struct {
	pool    *keypool.Pool
	client  *http.Client
	baseURL string
}

// NewJinaClient creates a reader/extractor client.
func NewJinaClient(pool *keypool.Pool) *JinaClient {
	return &JinaClient{
		pool:    pool,
		client:  &http.Client{Timeout: 45 * time.Second},
		baseURL: "https://r.jina.ai/",
	}
}

// Name returns the registry name of this provider.
func (j *JinaClient) Name() string { return "jina" }

// Read fetches the cleaned textual content of a URL. The first line of the
// reader output carries the page title.
func (j *JinaClient) Read(ctx context.Context, target string) (string, string, error) {
	body, err := doWithRotation(ctx, j.client, j.pool, j.Name(), func(key string) (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, j.baseURL+target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+key)
		req.Header.Set("X-Return-Format", "text")
		return req, nil
	})
	if err != nil {
		return "", "", err
	}

	text := strings.TrimSpace(string(body))
	title := ""
	if idx := strings.IndexByte(text, '\n'); idx > 0 {
		first := strings.TrimSpace(text[:idx])
		if t, ok := strings.CutPrefix(first, "Title:"); ok {
			title = strings.TrimSpace(t)
			text = strings.TrimSpace(text[idx+1:])
		}
	}
	return title, text, nil
}

// Search proxies a web search by reading a SERP URL through the reader and
// collecting the result links it surfaces.
func (j *JinaClient) Search(ctx context.Context, query string, limits Limits) (core.ProviderResponse, error) {
	serp := "https://www.google.com/search?q=" + url.QueryEscape(query) + "&hl=pt-BR&gl=br"
	_, text, err := j.Read(ctx, serp)
	if err != nil {
		return core.ProviderResponse{}, fmt.Errorf("jina: serp read failed: %w", err)
	}

	var results []core.SearchResult
	seen := map[string]bool{}
	for _, line := range strings.Split(text, "\n") {
		// Reader output lists links as markdown: [title](url)
		start := strings.IndexByte(line, '[')
		mid := strings.Index(line, "](")
		end := strings.LastIndexByte(line, ')')
		if start < 0 || mid <= start || end <= mid {
			continue
		}
		title := strings.TrimSpace(line[start+1 : mid])
		link := strings.TrimSpace(line[mid+2 : end])
		if title == "" || !strings.HasPrefix(link, "http") || strings.Contains(link, "google.com") {
			continue
		}
		if seen[link] {
			continue
		}
		seen[link] = true
		results = append(results, core.SearchResult{
			Title:          title,
			URL:            link,
			SourceProvider: j.Name(),
			RelevanceScore: rankRelevance(len(results)),
		})
		if limits.MaxResults > 0 && len(results) >= limits.MaxResults {
			break
		}
	}

	return core.Success(j.Name(), results), nil
}
