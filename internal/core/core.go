package core

import "time"

// Platform identifies a social network a post or image came from.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformInstagram Platform = "instagram"
	PlatformFacebook  Platform = "facebook"
	PlatformTwitter   Platform = "twitter"
	PlatformTikTok    Platform = "tiktok"
	PlatformLinkedIn  Platform = "linkedin"
)

// ViralCategory is the band a viral score falls into.
type ViralCategory string

const (
	CategoryMegaViral ViralCategory = "MEGA_VIRAL" // score >= 9
	CategoryViral     ViralCategory = "VIRAL"      // score >= 7
	CategoryTrending  ViralCategory = "TRENDING"   // score >= 5
	CategoryPopular   ViralCategory = "POPULAR"    // everything else
)

// SearchResult is the normalized shape every provider client returns.
type SearchResult struct {
	Title          string    `json:"title"`
	URL            string    `json:"url"`
	Snippet        string    `json:"snippet"`
	SourceProvider string    `json:"source_provider"`
	RelevanceScore float64   `json:"relevance_score"` // [0,1]
	PublishedAt    time.Time `json:"published_at,omitempty"`
}

// ExtractedPage is a page that survived filtering, extraction and quality scoring.
// Pages below the quality threshold are rejected, never stored.
type ExtractedPage struct {
	URL               string    `json:"url"`
	Title             string    `json:"title"`
	ContentText       string    `json:"content_text"`
	QualityScore      int       `json:"quality_score"` // [0,100]
	Insights          []string  `json:"insights"`
	IsPreferredSource bool      `json:"is_preferred_source"`
	WordCount         int       `json:"word_count"`
	ExtractionMethod  string    `json:"extraction_method"`
	ExtractedAt       time.Time `json:"extracted_at"`
}

// PlatformMetrics carries per-platform engagement counters. Only the fields
// meaningful for the platform are populated; missing values default to 0.
type PlatformMetrics struct {
	Views    int64 `json:"views,omitempty"`
	Likes    int64 `json:"likes,omitempty"`
	Comments int64 `json:"comments,omitempty"`
	Shares   int64 `json:"shares,omitempty"`
	Retweets int64 `json:"retweets,omitempty"`
	Replies  int64 `json:"replies,omitempty"`
	Quotes   int64 `json:"quotes,omitempty"`
}

// SocialPost is a normalized post from any social platform.
type SocialPost struct {
	Platform        Platform        `json:"platform"`
	URL             string          `json:"url"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Author          string          `json:"author"`
	AuthorFollowers int64           `json:"author_followers,omitempty"`
	Metrics         PlatformMetrics `json:"metrics"`
	Hashtags        []string        `json:"hashtags,omitempty"`
	Mentions        []string        `json:"mentions,omitempty"`
	PostedAt        time.Time       `json:"posted_at,omitempty"`
	ViralScore      float64         `json:"viral_score"` // [0,10]
	ViralCategory   ViralCategory   `json:"viral_category,omitempty"`
}

// EngagementEstimates are the estimated counters attached to a ViralImage.
type EngagementEstimates struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
	Shares   int64 `json:"shares"`
}

// ViralImage is a piece of visual content discovered on a social platform.
// When ImageLocalPath is set the file exists on disk and passed the minimum
// size and MIME checks.
type ViralImage struct {
	ImageURL            string              `json:"image_url"`
	PostURL             string              `json:"post_url"`
	Platform            Platform            `json:"platform"`
	Title               string              `json:"title"`
	Description         string              `json:"description"`
	EngagementScore     float64             `json:"engagement_score"`
	Estimates           EngagementEstimates `json:"estimates"`
	Author              string              `json:"author"`
	AuthorFollowers     int64               `json:"author_followers,omitempty"`
	PostedAt            time.Time           `json:"posted_at,omitempty"`
	Hashtags            []string            `json:"hashtags,omitempty"`
	ImageLocalPath      string              `json:"image_local_path,omitempty"`
	ScreenshotLocalPath string              `json:"screenshot_local_path,omitempty"`
	QualityScore        int                 `json:"quality_score"`
	ViralIndicators     []string            `json:"viral_indicators,omitempty"`
	IsEstimate          bool                `json:"is_estimate"`
}

// Screenshot is one captured page image. RelativePath is session-scoped so
// artifacts stay relocatable; AbsolutePath is only meaningful for the run
// that produced it.
type Screenshot struct {
	RelativePath   string        `json:"relative_path"`
	AbsolutePath   string        `json:"-"`
	SourceURL      string        `json:"source_url"`
	FinalURL       string        `json:"final_url,omitempty"`
	Title          string        `json:"title,omitempty"`
	Platform       Platform      `json:"platform,omitempty"`
	ViralScore     float64       `json:"viral_score,omitempty"`
	ViralCategory  ViralCategory `json:"viral_category,omitempty"`
	CapturedAt     time.Time     `json:"captured_at"`
	FileSizeBytes  int64         `json:"file_size_bytes"`
	ContentMetrics string        `json:"content_metrics,omitempty"`
}

// LocalImage is an image downloaded to disk by the capture layer.
type LocalImage struct {
	SourceURL     string    `json:"source_url"`
	LocalPath     string    `json:"local_path"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	MIMEType      string    `json:"mime_type"`
	DownloadedAt  time.Time `json:"downloaded_at"`
}

// Section wraps an optional part of the artifact. Absent sections are either
// omitted entirely or carry Success=false with a reason; downstream consumers
// must tolerate both.
type Section struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// PlatformBucket groups the posts collected for one platform.
type PlatformBucket struct {
	Posts []SocialPost `json:"posts"`
}

// SocialMediaData is the normalized social section of the artifact.
type SocialMediaData struct {
	Section
	Platforms map[Platform]PlatformBucket `json:"platforms,omitempty"`
}

// WebSearchData is the web section of the artifact.
type WebSearchData struct {
	Section
	Results []SearchResult `json:"results,omitempty"`
}

// TrendsData is the trends section of the artifact.
type TrendsData struct {
	Section
	Topics []string `json:"topics,omitempty"`
}

// ResearchData is the deep-research section of the artifact. EmergencyMode is
// set when level 1 produced nothing and the record is a flagged placeholder.
type ResearchData struct {
	Section
	EmergencyMode bool            `json:"emergency_mode,omitempty"`
	Explanation   string          `json:"explanation,omitempty"`
	TopInsights   []string        `json:"top_insights,omitempty"`
	Trends        []string        `json:"trends,omitempty"`
	Opportunities []string        `json:"opportunities,omitempty"`
	Pages         []ExtractedPage `json:"pages,omitempty"`
}

// Stats holds the run counters the artifact and the report surface.
type Stats struct {
	TotalSources          int                `json:"total_sources"`
	UniqueURLs            int                `json:"unique_urls"`
	TotalContentChars     int                `json:"total_content_length"`
	APICallsPerProvider   map[string]int     `json:"api_calls"`
	APIRotations          map[string]int     `json:"api_rotations"`
	SourcesByType         map[string]int     `json:"sources_by_type"`
	ScreenshotCount       int                `json:"screenshot_count"`
	CollectionTimeSeconds float64            `json:"collection_time"`
	SuccessRatePerSource  map[string]float64 `json:"success_rate,omitempty"`
}

// ProviderFailure records a provider or phase that contributed nothing.
type ProviderFailure struct {
	Provider string `json:"provider"`
	Reason   string `json:"reason"`
}

// RunContext is the lightweight business context a collection run carries.
// It drives quality scoring and query expansion.
type RunContext struct {
	Segment  string `json:"segment,omitempty"`
	Product  string `json:"product,omitempty"`
	Audience string `json:"audience,omitempty"`
}

// Terms returns the non-empty context terms in a fixed order.
func (c RunContext) Terms() []string {
	var terms []string
	for _, t := range []string{c.Segment, c.Product, c.Audience} {
		if t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// MassiveData is the aggregate artifact of one collection run. It is created
// and mutated only by the collector and handed read-only to the deep-study
// phase and the report renderer.
type MassiveData struct {
	SessionID          string            `json:"session_id"`
	Query              string            `json:"query"`
	Context            RunContext        `json:"context"`
	CollectionStarted  time.Time         `json:"collection_started"`
	CollectionEnded    time.Time         `json:"collection_ended"`
	EmergencyMode      bool              `json:"emergency_mode,omitempty"`
	EmergencyReason    string            `json:"emergency_reason,omitempty"`
	WebSearchData      WebSearchData     `json:"web_search_data"`
	SocialMediaData    SocialMediaData   `json:"social_media_data"`
	TrendsData         TrendsData        `json:"trends_data"`
	Research           ResearchData      `json:"research"`
	ViralContent       []ViralImage      `json:"viral_content"`
	ScreenshotsCaptured []Screenshot     `json:"screenshots_captured"`
	ExtractedContent   []ExtractedPage   `json:"extracted_content"`
	Failures           []ProviderFailure `json:"failures,omitempty"`
	Statistics         Stats             `json:"statistics"`
}
