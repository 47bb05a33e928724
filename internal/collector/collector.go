// Package collector orchestrates one collection run end to end: web, social
// and trends fan-outs, viral identification, visual capture, aggregation and
// persistence of the session artifacts.
package collector

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"garimpo/internal/capture"
	"garimpo/internal/config"
	"garimpo/internal/core"
	"garimpo/internal/discovery"
	"garimpo/internal/keypool"
	"garimpo/internal/logger"
	"garimpo/internal/providers"
	"garimpo/internal/report"
	"garimpo/internal/research"
	"garimpo/internal/session"
	"garimpo/internal/viral"
)

const (
	maxGeneralScreenshots = 8
	maxViralItems         = 10
	providerTimeout       = 30 * time.Second
)

// webEngines are the providers that contribute to the generic web pool, in
// priority order. Registration order in the registry must match.
var webEngines = []string{"exa", "google_cse", "serper", "jina", "bing_scrape", "mock"}

// discoveryPlatforms are the networks scanned by the viral discovery phase.
var discoveryPlatforms = []core.Platform{
	core.PlatformInstagram,
	core.PlatformFacebook,
	core.PlatformTikTok,
}

// Collector owns one run. Capturer and downloader are nil when the
// corresponding features are disabled.
type Collector struct {
	cfg        *config.Config
	pool       *keypool.Pool
	registry   *providers.Registry
	researcher *research.Researcher
	discoverer *discovery.Discoverer
	capturer   *capture.Capturer
	paths      *session.Paths
}

// New wires a collector over an already-populated registry.
func New(cfg *config.Config, pool *keypool.Pool, registry *providers.Registry,
	researcher *research.Researcher, discoverer *discovery.Discoverer,
	capturer *capture.Capturer, paths *session.Paths) *Collector {
	return &Collector{
		cfg:        cfg,
		pool:       pool,
		registry:   registry,
		researcher: researcher,
		discoverer: discoverer,
		capturer:   capturer,
		paths:      paths,
	}
}

// Collect runs every phase and persists the artifacts. The returned data is
// always usable; a run where everything failed comes back flagged as
// emergency rather than as an error. Only persistence problems return err.
func (c *Collector) Collect(ctx context.Context, query string, runCtx core.RunContext) (*core.MassiveData, error) {
	if c.cfg.Tuning.RunBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Tuning.RunBudget)
		defer cancel()
	}

	data := &core.MassiveData{
		SessionID:         c.paths.SessionID,
		Query:             query,
		Context:           runCtx,
		CollectionStarted: time.Now().UTC(),
	}

	logger.Info("collection started", "session", data.SessionID, "query", query)

	// Phases A-C run concurrently; each writes its own section.
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		web := c.webFanOut(gctx, query)
		mu.Lock()
		data.WebSearchData = web
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		trends := c.trendsPhase(gctx, query)
		mu.Lock()
		data.TrendsData = trends
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		social, failures := c.socialFanOut(gctx, query)
		mu.Lock()
		data.SocialMediaData = social
		data.Failures = append(data.Failures, failures...)
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		items := c.discoveryPhase(gctx, query)
		mu.Lock()
		data.ViralContent = append(data.ViralContent, items...)
		mu.Unlock()
		return nil
	})
	g.Wait()

	// Deep research reuses the web pool instead of re-dispatching providers.
	if len(data.WebSearchData.Results) > 0 {
		primary := ""
		if engines := c.availableWebEngines(); len(engines) > 0 {
			primary = engines[0]
		}
		data.Research = c.researcher.RunFromResults(ctx, data.WebSearchData.Results, runCtx, primary)
		data.ExtractedContent = data.Research.Pages
	} else {
		data.Research = core.ResearchData{
			Section:       core.Section{Success: false, Error: "sem resultados web para pesquisar"},
			EmergencyMode: true,
			Explanation:   "Pesquisa profunda em modo de emergência: sem resultados web para pesquisar",
		}
	}

	// Phase D: viral identification across every social post.
	c.identifyViral(data)

	// Phase E: general screenshots, sequential through one browser.
	if c.capturer != nil {
		targets := c.screenshotTargets(data)
		data.ScreenshotsCaptured = c.capturer.CaptureScreenshots(ctx, targets, "screenshot")
	}

	// Phase F: aggregate and persist.
	data.CollectionEnded = time.Now().UTC()
	c.computeStats(data)
	c.flagEmergency(data)

	if err := c.persist(data); err != nil {
		return data, err
	}

	logger.Info("collection finished", "session", data.SessionID,
		"sources", data.Statistics.TotalSources,
		"duration_s", data.Statistics.CollectionTimeSeconds)
	return data, nil
}

// availableWebEngines filters the fixed engine order by registry availability.
func (c *Collector) availableWebEngines() []string {
	available := map[string]bool{}
	for _, name := range c.registry.Available() {
		available[name] = true
	}
	var out []string
	for _, name := range webEngines {
		if available[name] {
			out = append(out, name)
		}
	}
	return out
}

// webFanOut dispatches every available web engine concurrently and merges the
// results into a deduplicated pool.
func (c *Collector) webFanOut(ctx context.Context, query string) core.WebSearchData {
	engines := c.availableWebEngines()
	if len(engines) == 0 {
		return core.WebSearchData{Section: core.Section{Success: false, Error: "nenhum provedor web disponível"}}
	}

	perEngine := c.cfg.Tuning.MaxPages / len(engines)
	if perEngine < 1 {
		perEngine = 1
	}

	var mu sync.Mutex
	byURL := map[string]core.SearchResult{}

	g, gctx := errgroup.WithContext(ctx)
	for _, engine := range engines {
		engine := engine
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, providerTimeout)
			defer cancel()
			resp := c.registry.Search(callCtx, engine, query, providers.Limits{MaxResults: perEngine})
			if !resp.OK() {
				return nil
			}
			mu.Lock()
			for _, r := range resp.Results {
				if r.URL == "" {
					continue
				}
				existing, ok := byURL[r.URL]
				if !ok || betterResult(r, existing, c.registry) {
					byURL[r.URL] = r
				}
			}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	results := make([]core.SearchResult, 0, len(byURL))
	for _, r := range byURL {
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].RelevanceScore != results[j].RelevanceScore {
			return results[i].RelevanceScore > results[j].RelevanceScore
		}
		return c.registry.Priority(results[i].SourceProvider) < c.registry.Priority(results[j].SourceProvider)
	})

	return core.WebSearchData{
		Section: core.Section{Success: len(results) > 0},
		Results: results,
	}
}

// betterResult decides which duplicate wins: higher relevance, then earlier
// provider registration.
func betterResult(a, b core.SearchResult, reg *providers.Registry) bool {
	if a.RelevanceScore != b.RelevanceScore {
		return a.RelevanceScore > b.RelevanceScore
	}
	return reg.Priority(a.SourceProvider) < reg.Priority(b.SourceProvider)
}

// trendsPhase fetches trending topics when the feature and client are
// available.
func (c *Collector) trendsPhase(ctx context.Context, query string) core.TrendsData {
	if !c.cfg.Features.EnableTrends {
		return core.TrendsData{Section: core.Section{Success: false, Error: "trends desabilitado por configuração"}}
	}
	client, ok := c.registry.Client("trends")
	if !ok {
		return core.TrendsData{Section: core.Section{Success: false, Error: "provedor de trends não registrado"}}
	}
	trendsClient, ok := client.(*providers.TrendsClient)
	if !ok {
		return core.TrendsData{Section: core.Section{Success: false, Error: "provedor de trends incompatível"}}
	}

	callCtx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()
	topics, err := trendsClient.Topics(callCtx, query)
	if err != nil {
		logger.Warn("trends phase failed", "error", err.Error())
		return core.TrendsData{Section: core.Section{Success: false, Error: err.Error()}}
	}
	return core.TrendsData{Section: core.Section{Success: true}, Topics: topics}
}

// socialFanOut runs the video, microblog and aggregator searches in parallel
// and buckets the posts per platform.
func (c *Collector) socialFanOut(ctx context.Context, query string) (core.SocialMediaData, []core.ProviderFailure) {
	var mu sync.Mutex
	platforms := map[core.Platform]core.PlatformBucket{}
	var failures []core.ProviderFailure

	addPosts := func(posts []core.SocialPost) {
		mu.Lock()
		defer mu.Unlock()
		for _, post := range posts {
			bucket := platforms[post.Platform]
			bucket.Posts = append(bucket.Posts, post)
			platforms[post.Platform] = bucket
		}
	}
	addFailure := func(provider, reason string) {
		mu.Lock()
		failures = append(failures, core.ProviderFailure{Provider: provider, Reason: reason})
		mu.Unlock()
	}
	limits := providers.Limits{MaxResults: c.cfg.Tuning.MaxImagesPerPlatform * 2}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		client, ok := c.clientFor("youtube")
		if !ok {
			addFailure("youtube", "sem credenciais configuradas")
			return nil
		}
		yt, ok := client.(*providers.YouTubeClient)
		if !ok {
			return nil
		}
		callCtx, cancel := context.WithTimeout(gctx, providerTimeout)
		defer cancel()
		posts, err := yt.SearchVideos(callCtx, providers.EnhanceQuery(query), limits)
		if err != nil {
			addFailure("youtube", err.Error())
			return nil
		}
		addPosts(posts)
		return nil
	})
	g.Go(func() error {
		client, ok := c.clientFor("twitter")
		if !ok {
			addFailure("twitter", "sem credenciais configuradas")
			return nil
		}
		tw, ok := client.(*providers.TwitterClient)
		if !ok {
			return nil
		}
		callCtx, cancel := context.WithTimeout(gctx, providerTimeout)
		defer cancel()
		posts, err := tw.SearchPosts(callCtx, query, limits)
		if err != nil {
			addFailure("twitter", err.Error())
			return nil
		}
		addPosts(posts)
		return nil
	})
	g.Go(func() error {
		client, ok := c.clientFor("apify")
		if !ok {
			addFailure("apify", "sem credenciais configuradas")
			return nil
		}
		ap, ok := client.(*providers.ApifyClient)
		if !ok {
			return nil
		}
		callCtx, cancel := context.WithTimeout(gctx, 60*time.Second)
		defer cancel()
		posts, err := ap.SearchPosts(callCtx, query, discoveryPlatforms, limits)
		if err != nil {
			addFailure("apify", err.Error())
			return nil
		}
		addPosts(posts)
		return nil
	})
	g.Wait()

	return core.SocialMediaData{
		Section:   core.Section{Success: len(platforms) > 0},
		Platforms: platforms,
	}, failures
}

// clientFor returns a registered client only when the registry considers it
// dispatchable (credentials present or keyless).
func (c *Collector) clientFor(name string) (providers.Searcher, bool) {
	for _, available := range c.registry.Available() {
		if available == name {
			return c.registry.Client(name)
		}
	}
	return nil, false
}

// discoveryPhase runs platform-specific viral discovery when a web engine is
// available to drive the site-scoped searches.
func (c *Collector) discoveryPhase(ctx context.Context, query string) []core.ViralImage {
	if c.discoverer == nil {
		return nil
	}
	engines := c.availableWebEngines()
	if len(engines) == 0 {
		return nil
	}
	return c.discoverer.Discover(ctx, query, discoveryPlatforms, engines[0])
}

// identifyViral scores every social post, attaches categories in place and
// keeps the run-level viral list bounded.
func (c *Collector) identifyViral(data *core.MassiveData) {
	minScore := c.cfg.Tuning.MinViralScoreForCapture
	if minScore <= 0 {
		minScore = viral.MinScoreForCapture
	}

	for platform, bucket := range data.SocialMediaData.Platforms {
		for i := range bucket.Posts {
			bucket.Posts[i].ViralScore = viral.ScorePost(bucket.Posts[i])
			bucket.Posts[i].ViralCategory = viral.Categorize(bucket.Posts[i].ViralScore)
		}
		data.SocialMediaData.Platforms[platform] = bucket
	}

	var all []core.SocialPost
	for _, bucket := range data.SocialMediaData.Platforms {
		all = append(all, bucket.Posts...)
	}
	top := viral.IdentifyViral(all, minScore)
	if len(top) > maxViralItems {
		top = top[:maxViralItems]
	}

	seen := map[string]bool{}
	for _, item := range data.ViralContent {
		seen[item.PostURL] = true
	}
	for _, post := range top {
		if seen[post.URL] {
			continue
		}
		seen[post.URL] = true
		item := core.ViralImage{
			PostURL:         post.URL,
			Platform:        post.Platform,
			Title:           post.Title,
			Description:     post.Description,
			EngagementScore: post.ViralScore,
			Estimates: core.EngagementEstimates{
				Views:    post.Metrics.Views,
				Likes:    post.Metrics.Likes,
				Comments: post.Metrics.Comments,
				Shares:   post.Metrics.Shares,
			},
			Author:          post.Author,
			AuthorFollowers: post.AuthorFollowers,
			PostedAt:        post.PostedAt,
			Hashtags:        post.Hashtags,
			ViralIndicators: viral.Indicators(post.Description, post.Hashtags),
		}
		if post.Platform == core.PlatformYouTube {
			if thumbs := providers.ThumbnailURLs(post.URL); len(thumbs) > 0 {
				item.ImageURL = thumbs[0]
			}
		}
		data.ViralContent = append(data.ViralContent, item)
	}

	sort.SliceStable(data.ViralContent, func(i, j int) bool {
		return data.ViralContent[i].EngagementScore > data.ViralContent[j].EngagementScore
	})
	if len(data.ViralContent) > maxViralItems {
		data.ViralContent = data.ViralContent[:maxViralItems]
	}
}

// screenshotTargets ranks the combined URLs: viral score first, then quality.
func (c *Collector) screenshotTargets(data *core.MassiveData) []capture.Target {
	var targets []capture.Target
	seen := map[string]bool{}

	for _, item := range data.ViralContent {
		if seen[item.PostURL] || item.PostURL == "" {
			continue
		}
		seen[item.PostURL] = true
		targets = append(targets, capture.Target{
			URL:           item.PostURL,
			Title:         item.Title,
			Platform:      item.Platform,
			ViralScore:    item.EngagementScore,
			ViralCategory: viral.Categorize(item.EngagementScore),
		})
	}
	for _, page := range data.ExtractedContent {
		if seen[page.URL] {
			continue
		}
		seen[page.URL] = true
		targets = append(targets, capture.Target{URL: page.URL, Title: page.Title})
	}

	if len(targets) > maxGeneralScreenshots {
		targets = targets[:maxGeneralScreenshots]
	}
	return targets
}

// computeStats fills the statistics block from the collected sections.
func (c *Collector) computeStats(data *core.MassiveData) {
	socialCount := 0
	youtubeCount := 0
	for platform, bucket := range data.SocialMediaData.Platforms {
		if platform == core.PlatformYouTube {
			youtubeCount += len(bucket.Posts)
		} else {
			socialCount += len(bucket.Posts)
		}
	}

	unique := map[string]bool{}
	for _, r := range data.WebSearchData.Results {
		unique[r.URL] = true
	}
	for _, bucket := range data.SocialMediaData.Platforms {
		for _, post := range bucket.Posts {
			unique[post.URL] = true
		}
	}

	contentChars := 0
	for _, page := range data.ExtractedContent {
		contentChars += len(page.ContentText)
	}

	rotations := map[string]int{}
	successRate := map[string]float64{}
	for provider, stats := range c.pool.Stats() {
		rotations[provider] = stats.Rotations
		if stats.Rotations > 0 {
			successRate[provider] = 1 - float64(stats.Failures)/float64(stats.Rotations)
		}
	}

	sourcesByType := map[string]int{
		"web":     len(data.WebSearchData.Results),
		"social":  socialCount,
		"youtube": youtubeCount,
		"trends":  len(data.TrendsData.Topics),
	}
	total := 0
	for _, n := range sourcesByType {
		total += n
	}

	data.Statistics = core.Stats{
		TotalSources:          total,
		UniqueURLs:            len(unique),
		TotalContentChars:     contentChars,
		APICallsPerProvider:   c.registry.CallCounts(),
		APIRotations:          rotations,
		SourcesByType:         sourcesByType,
		ScreenshotCount:       len(data.ScreenshotsCaptured),
		CollectionTimeSeconds: data.CollectionEnded.Sub(data.CollectionStarted).Seconds(),
		SuccessRatePerSource:  successRate,
	}
}

// flagEmergency marks the run when every phase came back empty.
func (c *Collector) flagEmergency(data *core.MassiveData) {
	if len(data.WebSearchData.Results) == 0 &&
		len(data.SocialMediaData.Platforms) == 0 &&
		len(data.TrendsData.Topics) == 0 &&
		len(data.ViralContent) == 0 {
		data.EmergencyMode = true
		data.EmergencyReason = "nenhuma fase de coleta produziu resultados"
		logger.Error("collection ended in emergency mode", nil, "session", data.SessionID)
	}
}

// persist writes the JSON artifact, the Markdown report and the incorporation
// report under the session directory.
func (c *Collector) persist(data *core.MassiveData) error {
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.paths.ArtifactPath(), payload, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(c.paths.ReportPath(), report.Render(data), 0o644); err != nil {
		return err
	}
	return os.WriteFile(c.paths.IncorporationPath(), []byte(report.Incorporation(data)), 0o644)
}
