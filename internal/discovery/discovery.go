// Package discovery finds viral posts per social platform: candidate URLs via
// site-scoped searches, media and metrics via an extraction-tool chain, then
// scoring and visual capture of the top items.
package discovery

import (
	"context"
	"sort"
	"strings"

	"garimpo/internal/capture"
	"garimpo/internal/core"
	"garimpo/internal/logger"
	"garimpo/internal/providers"
	"garimpo/internal/viral"
)

// platformHosts maps each platform to the host used in site-scoped queries.
var platformHosts = map[core.Platform]string{
	core.PlatformInstagram: "instagram.com",
	core.PlatformFacebook:  "facebook.com",
	core.PlatformTikTok:    "tiktok.com",
	core.PlatformTwitter:   "twitter.com",
	core.PlatformLinkedIn:  "linkedin.com",
}

// conservativeEstimates seed a fallback record when every extraction tool
// fails. Values are deliberately low so estimated posts never outrank
// measured ones.
var conservativeEstimates = core.EngagementEstimates{
	Views:    1000,
	Likes:    50,
	Comments: 5,
	Shares:   2,
}

// Options tunes one discovery pass.
type Options struct {
	MaxPerPlatform   int
	DisableFallbacks bool
	CaptureTop       int // how many top items get image download + screenshot
}

// Discoverer runs the per-platform viral discovery.
type Discoverer struct {
	registry   *providers.Registry
	tools      []ExtractionTool
	downloader *capture.Downloader
	capturer   *capture.Capturer
	opts       Options
}

// New builds a discoverer. downloader and capturer may be nil to skip the
// visual phase (tests, capture disabled by config).
func New(registry *providers.Registry, tools []ExtractionTool, downloader *capture.Downloader, capturer *capture.Capturer, opts Options) *Discoverer {
	if opts.MaxPerPlatform <= 0 {
		opts.MaxPerPlatform = 10
	}
	if opts.CaptureTop <= 0 {
		opts.CaptureTop = 10
	}
	if tools == nil {
		tools = DefaultTools()
	}
	return &Discoverer{
		registry:   registry,
		tools:      tools,
		downloader: downloader,
		capturer:   capturer,
		opts:       opts,
	}
}

// Discover finds viral content for the requested platforms using the given
// search engine for site-scoped queries. Items come back sorted by engagement
// score, best first.
func (d *Discoverer) Discover(ctx context.Context, query string, platforms []core.Platform, engine string) []core.ViralImage {
	var items []core.ViralImage
	for _, platform := range platforms {
		host, ok := platformHosts[platform]
		if !ok {
			continue
		}
		scoped := "site:" + host + " " + query
		resp := d.registry.Search(ctx, engine, scoped, providers.Limits{MaxResults: d.opts.MaxPerPlatform})
		if !resp.OK() {
			logger.Warn("platform discovery search failed", "platform", string(platform), "reason", resp.Reason)
			continue
		}

		for _, result := range resp.Results {
			if !strings.Contains(result.URL, host) {
				continue
			}
			item, ok := d.resolvePost(ctx, result, platform)
			if !ok {
				continue
			}
			items = append(items, item)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].EngagementScore > items[j].EngagementScore
	})

	d.captureTop(ctx, items)
	return items
}

// resolvePost runs the extraction-tool chain for one post URL and falls back
// to a flagged estimate when everything fails.
func (d *Discoverer) resolvePost(ctx context.Context, result core.SearchResult, platform core.Platform) (core.ViralImage, bool) {
	for _, tool := range d.tools {
		if !tool.Supports(platform) {
			continue
		}
		res, err := tool.Fetch(ctx, result.URL)
		if err != nil {
			logger.Debug("extraction tool failed", "tool", tool.Name(), "url", result.URL, "error", err.Error())
			continue
		}
		return d.buildItem(result, platform, res, false), true
	}

	if d.opts.DisableFallbacks {
		return core.ViralImage{}, false
	}
	logger.Debug("all extraction tools failed, using estimate", "url", result.URL, "platform", string(platform))
	return d.buildItem(result, platform, &ToolResult{
		Title:     result.Title,
		Estimates: conservativeEstimates,
	}, true), true
}

func (d *Discoverer) buildItem(result core.SearchResult, platform core.Platform, res *ToolResult, estimated bool) core.ViralImage {
	title := res.Title
	if title == "" {
		title = result.Title
	}
	description := res.Description
	if description == "" {
		description = result.Snippet
	}

	post := core.SocialPost{
		Platform:    platform,
		URL:         result.URL,
		Title:       title,
		Description: description,
		Metrics: core.PlatformMetrics{
			Views:    res.Estimates.Views,
			Likes:    res.Estimates.Likes,
			Comments: res.Estimates.Comments,
			Shares:   res.Estimates.Shares,
		},
	}

	return core.ViralImage{
		ImageURL:        res.ImageURL,
		PostURL:         result.URL,
		Platform:        platform,
		Title:           title,
		Description:     description,
		EngagementScore: viral.ScorePost(post),
		Estimates:       res.Estimates,
		Author:          res.Author,
		ViralIndicators: viral.Indicators(description, nil),
		IsEstimate:      estimated,
	}
}

// captureTop downloads images and screenshots the post pages of the leading
// items. Both steps are optional and failure-tolerant.
func (d *Discoverer) captureTop(ctx context.Context, items []core.ViralImage) {
	top := items
	if len(top) > d.opts.CaptureTop {
		top = top[:d.opts.CaptureTop]
	}

	if d.downloader != nil {
		var requests []capture.ImageRequest
		var indexes []int
		for i, item := range top {
			if item.ImageURL == "" {
				continue
			}
			requests = append(requests, capture.ImageRequest{URL: item.ImageURL, Title: item.Title})
			indexes = append(indexes, i)
		}
		images := d.downloader.DownloadImages(ctx, requests)
		byURL := make(map[string]string, len(images))
		for _, img := range images {
			byURL[img.SourceURL] = img.LocalPath
		}
		for _, i := range indexes {
			if path, ok := byURL[top[i].ImageURL]; ok {
				top[i].ImageLocalPath = path
			}
		}
	}

	if d.capturer != nil {
		var targets []capture.Target
		for _, item := range top {
			if item.EngagementScore < viral.MinScoreForCapture {
				continue
			}
			targets = append(targets, capture.Target{
				URL:           item.PostURL,
				Title:         item.Title,
				Platform:      item.Platform,
				ViralScore:    item.EngagementScore,
				ViralCategory: viral.Categorize(item.EngagementScore),
			})
		}
		shots := d.capturer.CaptureScreenshots(ctx, targets, "viral_content")
		byURL := make(map[string]string, len(shots))
		for _, shot := range shots {
			byURL[shot.SourceURL] = shot.RelativePath
		}
		for i := range top {
			if path, ok := byURL[top[i].PostURL]; ok {
				top[i].ScreenshotLocalPath = path
			}
		}
	}
}
