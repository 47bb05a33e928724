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
	"garimpo/internal/viral"
)

// ApifyClient implements the multi-platform social aggregator on top of an
// Apify actor run. Posts arrive with loosely-typed engagement counters; the
// defensive metric parser normalizes them.
type ApifyClient struct {
	pool    *keypool.Pool
	client  *http.Client
	baseURL string
}

// NewApifyClient creates a social aggregator client.
func NewApifyClient(pool *keypool.Pool) *ApifyClient {
	return &ApifyClient{
		pool:    pool,
		client:  &http.Client{Timeout: 60 * time.Second},
		baseURL: "https://api.apify.com/v2/acts/apify~social-media-scraper/run-sync-get-dataset-items",
	}
}

// Name returns the registry name of this provider.
func (a *ApifyClient) Name() string { return "apify" }

// Search returns the aggregated posts as search results for the generic web
// pool; SearchPosts keeps the full social shape.
func (a *ApifyClient) Search(ctx context.Context, query string, limits Limits) (core.ProviderResponse, error) {
	posts, err := a.SearchPosts(ctx, query, nil, limits)
	if err != nil {
		return core.ProviderResponse{}, err
	}

	var results []core.SearchResult
	for i, post := range posts {
		results = append(results, core.SearchResult{
			Title:          post.Title,
			URL:            post.URL,
			Snippet:        post.Description,
			SourceProvider: a.Name(),
			RelevanceScore: rankRelevance(i),
			PublishedAt:    post.PostedAt,
		})
	}
	return core.Success(a.Name(), results), nil
}

// SearchPosts runs the aggregator for the given platforms (nil means all)
// and returns normalized social posts.
func (a *ApifyClient) SearchPosts(ctx context.Context, query string, platforms []core.Platform, limits Limits) ([]core.SocialPost, error) {
	names := make([]string, 0, len(platforms))
	for _, p := range platforms {
		names = append(names, string(p))
	}
	payload := map[string]any{
		"searchQuery":    query,
		"platforms":      names,
		"maxPostsPerPlatform": limits.MaxResults,
		"language":       "pt",
		"country":        "BR",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("apify: failed to marshal payload: %w", err)
	}

	respBody, err := doWithRotation(ctx, a.client, a.pool, a.Name(), func(key string) (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, a.baseURL+"?token="+key, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var items []struct {
		Platform    string         `json:"platform"`
		URL         string         `json:"url"`
		Title       string         `json:"title"`
		Text        string         `json:"text"`
		Author      string         `json:"authorName"`
		Followers   any            `json:"authorFollowers"`
		Likes       any            `json:"likes"`
		Comments    any            `json:"comments"`
		Shares      any            `json:"shares"`
		Views       any            `json:"views"`
		Hashtags    []string       `json:"hashtags"`
		PostedAt    string         `json:"createdAt"`
	}
	if err := json.Unmarshal(respBody, &items); err != nil {
		return nil, fmt.Errorf("apify: failed to parse dataset: %w", err)
	}

	var posts []core.SocialPost
	for _, item := range items {
		platform := normalizePlatform(item.Platform)
		if platform == "" || item.URL == "" {
			continue
		}
		title := item.Title
		if title == "" {
			title = truncate(item.Text, 120)
		}
		post := core.SocialPost{
			Platform:        platform,
			URL:             item.URL,
			Title:           title,
			Description:     item.Text,
			Author:          item.Author,
			AuthorFollowers: viral.ParseMetric(item.Followers),
			Hashtags:        item.Hashtags,
			Metrics: core.PlatformMetrics{
				Views:    viral.ParseMetric(item.Views),
				Likes:    viral.ParseMetric(item.Likes),
				Comments: viral.ParseMetric(item.Comments),
				Shares:   viral.ParseMetric(item.Shares),
			},
		}
		if ts, err := time.Parse(time.RFC3339, item.PostedAt); err == nil {
			post.PostedAt = ts
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func normalizePlatform(name string) core.Platform {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "youtube":
		return core.PlatformYouTube
	case "instagram":
		return core.PlatformInstagram
	case "facebook":
		return core.PlatformFacebook
	case "twitter", "x":
		return core.PlatformTwitter
	case "tiktok":
		return core.PlatformTikTok
	case "linkedin":
		return core.PlatformLinkedIn
	default:
		return ""
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
