package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"garimpo/internal/core"
	"garimpo/internal/keypool"
)

// YouTubeClient implements Searcher against the YouTube Data API. Search
// responses carry no statistics, so a second batched call fetches view,
// like and comment counts per video id.
type YouTubeClient struct {
	pool    *keypool.Pool
	client  *http.Client
	baseURL string
}

// NewYouTubeClient creates a video search client.
func NewYouTubeClient(pool *keypool.Pool) *YouTubeClient {
	return &YouTubeClient{
		pool:    pool,
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://www.googleapis.com/youtube/v3",
	}
}

// Name returns the registry name of this provider.
func (y *YouTubeClient) Name() string { return "youtube" }

// Search finds recent videos and enriches them with statistics.
func (y *YouTubeClient) Search(ctx context.Context, query string, limits Limits) (core.ProviderResponse, error) {
	posts, err := y.SearchVideos(ctx, query, limits)
	if err != nil {
		return core.ProviderResponse{}, err
	}

	var results []core.SearchResult
	for i, post := range posts {
		results = append(results, core.SearchResult{
			Title:          post.Title,
			URL:            post.URL,
			Snippet:        post.Description,
			SourceProvider: y.Name(),
			RelevanceScore: rankRelevance(i),
			PublishedAt:    post.PostedAt,
		})
	}
	return core.Success(y.Name(), results), nil
}

// SearchVideos returns fully populated social posts for the video results.
func (y *YouTubeClient) SearchVideos(ctx context.Context, query string, limits Limits) ([]core.SocialPost, error) {
	num := limits.MaxResults
	if num <= 0 || num > 25 {
		num = 10
	}

	searchBody, err := doWithRotation(ctx, y.client, y.pool, y.Name(), func(key string) (*http.Request, error) {
		params := url.Values{}
		params.Set("part", "snippet")
		params.Set("q", query)
		params.Set("type", "video")
		params.Set("maxResults", strconv.Itoa(num))
		params.Set("regionCode", "BR")
		params.Set("relevanceLanguage", "pt")
		params.Set("order", "viewCount")
		params.Set("publishedAfter", time.Now().AddDate(-1, 0, 0).Format(time.RFC3339))
		params.Set("key", key)
		return http.NewRequest(http.MethodGet, y.baseURL+"/search?"+params.Encode(), nil)
	})
	if err != nil {
		return nil, err
	}

	var searchResp struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title        string `json:"title"`
				Description  string `json:"description"`
				ChannelTitle string `json:"channelTitle"`
				PublishedAt  string `json:"publishedAt"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := json.Unmarshal(searchBody, &searchResp); err != nil {
		return nil, fmt.Errorf("youtube: failed to parse search response: %w", err)
	}
	if len(searchResp.Items) == 0 {
		return nil, nil
	}

	var ids []string
	posts := make([]core.SocialPost, 0, len(searchResp.Items))
	for _, item := range searchResp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		ids = append(ids, item.ID.VideoID)
		post := core.SocialPost{
			Platform:    core.PlatformYouTube,
			URL:         "https://www.youtube.com/watch?v=" + item.ID.VideoID,
			Title:       item.Snippet.Title,
			Description: item.Snippet.Description,
			Author:      item.Snippet.ChannelTitle,
		}
		if ts, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			post.PostedAt = ts
		}
		posts = append(posts, post)
	}

	stats, err := y.fetchStatistics(ctx, ids)
	if err != nil {
		// Posts without statistics are still usable; virality just scores 0.
		return posts, nil
	}
	for i := range posts {
		id := VideoID(posts[i].URL)
		if m, ok := stats[id]; ok {
			posts[i].Metrics = m
		}
	}
	return posts, nil
}

func (y *YouTubeClient) fetchStatistics(ctx context.Context, ids []string) (map[string]core.PlatformMetrics, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	body, err := doWithRotation(ctx, y.client, y.pool, y.Name(), func(key string) (*http.Request, error) {
		params := url.Values{}
		params.Set("part", "statistics")
		params.Set("id", strings.Join(ids, ","))
		params.Set("key", key)
		return http.NewRequest(http.MethodGet, y.baseURL+"/videos?"+params.Encode(), nil)
	})
	if err != nil {
		return nil, err
	}

	var statsResp struct {
		Items []struct {
			ID         string `json:"id"`
			Statistics struct {
				ViewCount    string `json:"viewCount"`
				LikeCount    string `json:"likeCount"`
				CommentCount string `json:"commentCount"`
			} `json:"statistics"`
		} `json:"items"`
	}
	if err := json.Unmarshal(body, &statsResp); err != nil {
		return nil, fmt.Errorf("youtube: failed to parse statistics response: %w", err)
	}

	out := make(map[string]core.PlatformMetrics, len(statsResp.Items))
	for _, item := range statsResp.Items {
		out[item.ID] = core.PlatformMetrics{
			Views:    parseCount(item.Statistics.ViewCount),
			Likes:    parseCount(item.Statistics.LikeCount),
			Comments: parseCount(item.Statistics.CommentCount),
		}
	}
	return out, nil
}

func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// VideoID extracts the video id from the usual YouTube URL shapes. Empty
// when the URL is not a video link.
func VideoID(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	switch host {
	case "youtube.com", "m.youtube.com":
		if id := parsed.Query().Get("v"); id != "" {
			return id
		}
		if rest, ok := strings.CutPrefix(parsed.Path, "/shorts/"); ok {
			return strings.SplitN(rest, "/", 2)[0]
		}
		if rest, ok := strings.CutPrefix(parsed.Path, "/embed/"); ok {
			return strings.SplitN(rest, "/", 2)[0]
		}
	case "youtu.be":
		return strings.TrimPrefix(parsed.Path, "/")
	}
	return ""
}

// ThumbnailURLs derives the deterministic thumbnail URLs for a video link,
// best resolution first.
func ThumbnailURLs(videoURL string) []string {
	id := VideoID(videoURL)
	if id == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("https://img.youtube.com/vi/%s/maxresdefault.jpg", id),
		fmt.Sprintf("https://img.youtube.com/vi/%s/hqdefault.jpg", id),
		fmt.Sprintf("https://img.youtube.com/vi/%s/mqdefault.jpg", id),
	}
}
