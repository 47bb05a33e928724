package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"garimpo/internal/core"
)

// BingScrapeClient implements Searcher by parsing the Bing HTML result page.
// It needs no credentials and serves as the always-available fallback engine.
type BingScrapeClient struct {
	client    *http.Client
	userAgent string
	baseURL   string
}

// NewBingScrapeClient creates the HTML SERP scraper.
func NewBingScrapeClient() *BingScrapeClient {
	return &BingScrapeClient{
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		baseURL:   "https://www.bing.com/search",
	}
}

// Name returns the registry name of this provider.
func (b *BingScrapeClient) Name() string { return "bing_scrape" }

// Keyless marks this provider as needing no credentials.
func (b *BingScrapeClient) Keyless() bool { return true }

// Search fetches and parses the result page, resolving tracker redirects
// back to their targets.
func (b *BingScrapeClient) Search(ctx context.Context, query string, limits Limits) (core.ProviderResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("setlang", "pt-BR")
	params.Set("cc", "BR")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return core.ProviderResponse{}, fmt.Errorf("bing_scrape: failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", b.userAgent)
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9")

	resp, err := b.client.Do(req)
	if err != nil {
		return core.ProviderResponse{}, fmt.Errorf("bing_scrape: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.ProviderResponse{}, fmt.Errorf("bing_scrape: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return core.ProviderResponse{}, fmt.Errorf("bing_scrape: failed to parse HTML: %w", err)
	}

	var results []core.SearchResult
	doc.Find("li.b_algo").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if limits.MaxResults > 0 && len(results) >= limits.MaxResults {
			return false
		}
		anchor := s.Find("h2 a").First()
		href, ok := anchor.Attr("href")
		if !ok {
			return true
		}
		title := strings.TrimSpace(anchor.Text())
		snippet := strings.TrimSpace(s.Find("div.b_caption p").First().Text())
		if snippet == "" {
			snippet = strings.TrimSpace(s.Find("p").First().Text())
		}

		target := ResolveBingRedirect(href)
		if title == "" || !strings.HasPrefix(target, "http") {
			return true
		}
		results = append(results, core.SearchResult{
			Title:          title,
			URL:            target,
			Snippet:        snippet,
			SourceProvider: b.Name(),
			RelevanceScore: rankRelevance(i),
		})
		return true
	})

	return core.Success(b.Name(), results), nil
}

// ResolveBingRedirect decodes the tracker redirect Bing wraps outbound links
// in (`/ck/a?...&u=a1<base64url>`). The u parameter carries a two-character
// version prefix before the base64 payload. After two failed decode
// attempts the wrapper URL is kept as-is.
func ResolveBingRedirect(href string) string {
	if !strings.Contains(href, "bing.com/ck/") && !strings.HasPrefix(href, "/ck/") {
		return href
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	encoded := parsed.Query().Get("u")
	if len(encoded) <= 2 {
		return href
	}
	payload := encoded[2:] // strip the version prefix, usually "a1"

	if decoded, err := base64.RawURLEncoding.DecodeString(payload); err == nil {
		if target := string(decoded); strings.HasPrefix(target, "http") {
			return target
		}
	}
	// Second attempt: standard alphabet with padding restored.
	if pad := len(payload) % 4; pad != 0 {
		payload += strings.Repeat("=", 4-pad)
	}
	if decoded, err := base64.URLEncoding.DecodeString(payload); err == nil {
		if target := string(decoded); strings.HasPrefix(target, "http") {
			return target
		}
	}

	return href
}
