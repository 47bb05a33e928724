package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/goccy/go-json"

	"garimpo/internal/core"
	"garimpo/internal/keypool"
)

// TwitterClient implements the microblog recent-search with public metrics
// expansion.
type TwitterClient struct {
	pool    *keypool.Pool
	client  *http.Client
	baseURL string
}

// NewTwitterClient creates a microblog search client.
func NewTwitterClient(pool *keypool.Pool) *TwitterClient {
	return &TwitterClient{
		pool:    pool,
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: "https://api.twitter.com/2/tweets/search/recent",
	}
}

// Name returns the registry name of this provider.
func (t *TwitterClient) Name() string { return "twitter" }

var hashtagRe = regexp.MustCompile(`#\w+`)
var mentionRe = regexp.MustCompile(`@\w+`)

// Search returns recent tweets as search results.
func (t *TwitterClient) Search(ctx context.Context, query string, limits Limits) (core.ProviderResponse, error) {
	posts, err := t.SearchPosts(ctx, query, limits)
	if err != nil {
		return core.ProviderResponse{}, err
	}

	var results []core.SearchResult
	for i, post := range posts {
		results = append(results, core.SearchResult{
			Title:          post.Title,
			URL:            post.URL,
			Snippet:        post.Description,
			SourceProvider: t.Name(),
			RelevanceScore: rankRelevance(i),
			PublishedAt:    post.PostedAt,
		})
	}
	return core.Success(t.Name(), results), nil
}

// SearchPosts runs the recent search and returns normalized posts with
// public metrics attached.
func (t *TwitterClient) SearchPosts(ctx context.Context, query string, limits Limits) ([]core.SocialPost, error) {
	num := limits.MaxResults
	if num < 10 {
		num = 10 // API minimum
	}
	if num > 100 {
		num = 100
	}

	body, err := doWithRotation(ctx, t.client, t.pool, t.Name(), func(key string) (*http.Request, error) {
		params := url.Values{}
		params.Set("query", query+" lang:pt -is:retweet")
		params.Set("max_results", fmt.Sprintf("%d", num))
		params.Set("tweet.fields", "public_metrics,created_at,author_id")
		params.Set("expansions", "author_id")
		params.Set("user.fields", "username,public_metrics")
		req, err := http.NewRequest(http.MethodGet, t.baseURL+"?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+key)
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data []struct {
			ID            string `json:"id"`
			Text          string `json:"text"`
			AuthorID      string `json:"author_id"`
			CreatedAt     string `json:"created_at"`
			PublicMetrics struct {
				RetweetCount int64 `json:"retweet_count"`
				ReplyCount   int64 `json:"reply_count"`
				LikeCount    int64 `json:"like_count"`
				QuoteCount   int64 `json:"quote_count"`
			} `json:"public_metrics"`
		} `json:"data"`
		Includes struct {
			Users []struct {
				ID            string `json:"id"`
				Username      string `json:"username"`
				PublicMetrics struct {
					FollowersCount int64 `json:"followers_count"`
				} `json:"public_metrics"`
			} `json:"users"`
		} `json:"includes"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("twitter: failed to parse response: %w", err)
	}

	users := make(map[string]struct {
		username  string
		followers int64
	}, len(resp.Includes.Users))
	for _, u := range resp.Includes.Users {
		users[u.ID] = struct {
			username  string
			followers int64
		}{u.Username, u.PublicMetrics.FollowersCount}
	}

	var posts []core.SocialPost
	for _, tweet := range resp.Data {
		author := users[tweet.AuthorID]
		username := author.username
		if username == "" {
			username = tweet.AuthorID
		}
		post := core.SocialPost{
			Platform:        core.PlatformTwitter,
			URL:             fmt.Sprintf("https://twitter.com/%s/status/%s", username, tweet.ID),
			Title:           truncate(tweet.Text, 120),
			Description:     tweet.Text,
			Author:          username,
			AuthorFollowers: author.followers,
			Hashtags:        hashtagRe.FindAllString(tweet.Text, -1),
			Mentions:        mentionRe.FindAllString(tweet.Text, -1),
			Metrics: core.PlatformMetrics{
				Retweets: tweet.PublicMetrics.RetweetCount,
				Likes:    tweet.PublicMetrics.LikeCount,
				Replies:  tweet.PublicMetrics.ReplyCount,
				Quotes:   tweet.PublicMetrics.QuoteCount,
			},
		}
		if ts, err := time.Parse(time.RFC3339, tweet.CreatedAt); err == nil {
			post.PostedAt = ts
		}
		posts = append(posts, post)
	}
	return posts, nil
}
