package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"garimpo/internal/core"
	"garimpo/internal/keypool"
	"garimpo/internal/providers"
)

type stubTool struct {
	name     string
	platform core.Platform
	result   *ToolResult
	err      error
	calls    int
}

func (s *stubTool) Name() string                         { return s.name }
func (s *stubTool) Supports(p core.Platform) bool        { return p == s.platform }
func (s *stubTool) Fetch(ctx context.Context, postURL string) (*ToolResult, error) {
	s.calls++
	return s.result, s.err
}

func testRegistry(results []core.SearchResult) *providers.Registry {
	pool := keypool.New(nil, 5*time.Minute)
	reg := providers.NewRegistry(pool)
	mock := providers.NewMockClient()
	mock.SetResults(results)
	reg.Register(mock, 100)
	return reg
}

func instagramResults() []core.SearchResult {
	return []core.SearchResult{
		{URL: "https://www.instagram.com/p/abc123/", Title: "Post viral", Snippet: "compre agora, link na bio", SourceProvider: "mock", RelevanceScore: 0.9},
		{URL: "https://outra.com.br/pagina", Title: "Fora da plataforma", SourceProvider: "mock", RelevanceScore: 0.8},
	}
}

func TestDiscoverBuildsMeasuredItems(t *testing.T) {
	tool := &stubTool{
		name:     "instadl",
		platform: core.PlatformInstagram,
		result: &ToolResult{
			ImageURL:    "https://cdn.site/imagem.jpg",
			Title:       "Post medido",
			Description: "compre agora, link na bio",
			Author:      "marca_oficial",
			Estimates:   core.EngagementEstimates{Likes: 50000, Comments: 2000, Shares: 500},
		},
	}

	d := New(testRegistry(instagramResults()), []ExtractionTool{tool}, nil, nil, Options{})
	items := d.Discover(context.Background(), "cosméticos", []core.Platform{core.PlatformInstagram}, "mock")

	if len(items) != 1 {
		t.Fatalf("expected 1 item (off-platform URL dropped), got %d", len(items))
	}
	item := items[0]
	if item.IsEstimate {
		t.Error("tool-resolved item must not be flagged as estimate")
	}
	if item.EngagementScore != 10 {
		t.Errorf("expected capped engagement score 10, got %v", item.EngagementScore)
	}
	if item.ImageURL != "https://cdn.site/imagem.jpg" {
		t.Errorf("image url lost: %q", item.ImageURL)
	}
	if len(item.ViralIndicators) == 0 {
		t.Error("description with CTA patterns should yield indicators")
	}
	if tool.calls != 1 {
		t.Errorf("tool should be called once, got %d", tool.calls)
	}
}

func TestDiscoverFallbackEstimate(t *testing.T) {
	tool := &stubTool{name: "instadl", platform: core.PlatformInstagram, err: errors.New("boom")}

	d := New(testRegistry(instagramResults()), []ExtractionTool{tool}, nil, nil, Options{})
	items := d.Discover(context.Background(), "cosméticos", []core.Platform{core.PlatformInstagram}, "mock")

	if len(items) != 1 {
		t.Fatalf("expected fallback item, got %d", len(items))
	}
	item := items[0]
	if !item.IsEstimate {
		t.Error("fallback must be flagged as estimate")
	}
	if item.Estimates != conservativeEstimates {
		t.Errorf("fallback must carry conservative estimates, got %+v", item.Estimates)
	}
	if item.EngagementScore >= 5 {
		t.Errorf("conservative estimates must score below capture threshold, got %v", item.EngagementScore)
	}
}

func TestDiscoverDisableFallbacks(t *testing.T) {
	tool := &stubTool{name: "instadl", platform: core.PlatformInstagram, err: errors.New("boom")}

	d := New(testRegistry(instagramResults()), []ExtractionTool{tool}, nil, nil, Options{DisableFallbacks: true})
	items := d.Discover(context.Background(), "cosméticos", []core.Platform{core.PlatformInstagram}, "mock")

	if len(items) != 0 {
		t.Errorf("fallbacks disabled must yield no placeholder items, got %d", len(items))
	}
}

func TestDiscoverSortsByEngagement(t *testing.T) {
	low := &stubTool{name: "fb", platform: core.PlatformFacebook, result: &ToolResult{
		ImageURL:  "https://cdn.site/fb.jpg",
		Estimates: core.EngagementEstimates{Likes: 500},
	}}
	high := &stubTool{name: "ig", platform: core.PlatformInstagram, result: &ToolResult{
		ImageURL:  "https://cdn.site/ig.jpg",
		Estimates: core.EngagementEstimates{Likes: 40000, Comments: 1000},
	}}

	pool := keypool.New(nil, 5*time.Minute)
	reg := providers.NewRegistry(pool)
	mock := providers.NewMockClient()
	reg.Register(mock, 100)
	// Platform-matching URLs per query keyword.
	mock.SetResults([]core.SearchResult{
		{URL: "https://www.facebook.com/post/1", Title: "fb", SourceProvider: "mock", RelevanceScore: 0.9},
		{URL: "https://www.instagram.com/p/2/", Title: "ig", SourceProvider: "mock", RelevanceScore: 0.9},
	})

	d := New(reg, []ExtractionTool{low, high}, nil, nil, Options{})
	items := d.Discover(context.Background(), "promo", []core.Platform{core.PlatformFacebook, core.PlatformInstagram}, "mock")

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Platform != core.PlatformInstagram {
		t.Errorf("highest engagement must come first, got %s", items[0].Platform)
	}
}

func TestHTTPToolFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("url") {
		case "https://ok":
			fmt.Fprint(w, `{"image_url":"https://cdn/img.jpg","title":"T","likes":"1.2K","comments":30}`)
		case "https://sem-imagem":
			fmt.Fprint(w, `{"title":"sem mídia"}`)
		case "https://quebrado":
			fmt.Fprint(w, `nada de json`)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer server.Close()

	tool := newHTTPTool("teste", server.URL, core.PlatformInstagram)

	res, err := tool.Fetch(context.Background(), "https://ok")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if res.ImageURL != "https://cdn/img.jpg" {
		t.Errorf("unexpected image url %q", res.ImageURL)
	}
	if res.Estimates.Likes != 1200 {
		t.Errorf("suffixed metric not parsed: %d", res.Estimates.Likes)
	}
	if res.Estimates.Comments != 30 {
		t.Errorf("numeric metric not parsed: %d", res.Estimates.Comments)
	}

	if _, err := tool.Fetch(context.Background(), "https://sem-imagem"); err == nil {
		t.Error("payload without image_url must fail")
	}
	if _, err := tool.Fetch(context.Background(), "https://quebrado"); err == nil {
		t.Error("non-JSON payload must fail")
	}
	if _, err := tool.Fetch(context.Background(), "https://erro"); err == nil {
		t.Error("non-2xx must fail")
	}
}
