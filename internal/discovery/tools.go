package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"garimpo/internal/core"
	"garimpo/internal/viral"
)

// ToolResult is the normalized payload of one extraction tool: the post image
// plus whatever engagement counters the tool surfaced.
type ToolResult struct {
	ImageURL    string
	Title       string
	Description string
	Author      string
	Estimates   core.EngagementEstimates
}

// ExtractionTool resolves a public post URL into its media and metrics.
type ExtractionTool interface {
	Name() string
	Supports(platform core.Platform) bool
	Fetch(ctx context.Context, postURL string) (*ToolResult, error)
}

// httpTool is the shared implementation for the small third-party download
// services: GET {endpoint}?url={post}, accept only 2xx JSON carrying an
// image_url.
type httpTool struct {
	name      string
	endpoint  string
	platforms map[core.Platform]bool
	client    *http.Client
}

func newHTTPTool(name, endpoint string, platforms ...core.Platform) *httpTool {
	set := make(map[core.Platform]bool, len(platforms))
	for _, p := range platforms {
		set[p] = true
	}
	return &httpTool{
		name:      name,
		endpoint:  endpoint,
		platforms: set,
		client:    &http.Client{Timeout: 20 * time.Second},
	}
}

func (t *httpTool) Name() string { return t.name }

func (t *httpTool) Supports(platform core.Platform) bool { return t.platforms[platform] }

func (t *httpTool) Fetch(ctx context.Context, postURL string) (*ToolResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		t.endpoint+"?url="+url.QueryEscape(postURL), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: status %d", t.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var payload struct {
		ImageURL    string `json:"image_url"`
		Thumbnail   string `json:"thumbnail"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Author      string `json:"author"`
		Views       any    `json:"views"`
		Likes       any    `json:"likes"`
		Comments    any    `json:"comments"`
		Shares      any    `json:"shares"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%s: invalid JSON: %w", t.name, err)
	}

	imageURL := payload.ImageURL
	if imageURL == "" {
		imageURL = payload.Thumbnail
	}
	if imageURL == "" {
		return nil, fmt.Errorf("%s: payload has no image_url", t.name)
	}

	return &ToolResult{
		ImageURL:    imageURL,
		Title:       payload.Title,
		Description: payload.Description,
		Author:      payload.Author,
		Estimates: core.EngagementEstimates{
			Views:    viral.ParseMetric(payload.Views),
			Likes:    viral.ParseMetric(payload.Likes),
			Comments: viral.ParseMetric(payload.Comments),
			Shares:   viral.ParseMetric(payload.Shares),
		},
	}, nil
}

// DefaultTools is the built-in extraction chain, first match wins per
// platform.
func DefaultTools() []ExtractionTool {
	return []ExtractionTool{
		newHTTPTool("instadl", "https://api.instadl.app/v1/media",
			core.PlatformInstagram),
		newHTTPTool("snapsave", "https://snapsave.app/api/v1/download",
			core.PlatformInstagram, core.PlatformFacebook, core.PlatformTikTok),
		newHTTPTool("tikwm", "https://www.tikwm.com/api",
			core.PlatformTikTok),
		newHTTPTool("fxtwitter", "https://api.fxtwitter.com/status",
			core.PlatformTwitter),
	}
}
