package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"garimpo/internal/keypool"
)

func TestResolveBingRedirect(t *testing.T) {
	target := "https://g1.globo.com/economia/noticia.html"
	encoded := "a1" + base64.RawURLEncoding.EncodeToString([]byte(target))

	tests := []struct {
		name string
		href string
		want string
	}{
		{
			name: "decodes wrapped target",
			href: "https://www.bing.com/ck/a?!&&p=abc&u=" + encoded + "&ntb=1",
			want: target,
		},
		{
			name: "relative tracker path",
			href: "/ck/a?u=" + encoded,
			want: target,
		},
		{
			name: "plain link passes through",
			href: "https://exame.com/negocios/materia",
			want: "https://exame.com/negocios/materia",
		},
		{
			name: "undecodable payload keeps wrapper",
			href: "https://www.bing.com/ck/a?u=a1%%%garbage",
			want: "https://www.bing.com/ck/a?u=a1%%%garbage",
		},
		{
			name: "payload too short keeps wrapper",
			href: "https://www.bing.com/ck/a?u=a1",
			want: "https://www.bing.com/ck/a?u=a1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveBingRedirect(tt.href); got != tt.want {
				t.Errorf("ResolveBingRedirect(%q) = %q, want %q", tt.href, got, tt.want)
			}
		})
	}
}

func TestParseSerperOrganic(t *testing.T) {
	body := []byte(`{
		"organic": [
			{"title": "Primeiro", "link": "https://a.com.br/1", "snippet": "resumo um", "position": 1},
			{"title": "Segundo", "link": "https://b.com.br/2", "snippet": "resumo dois", "position": 2},
			{"title": "", "link": "https://sem-titulo.com.br", "position": 3},
			{"title": "Sem posicao", "link": "https://c.com.br/3", "snippet": "resumo tres"}
		]
	}`)

	results, err := parseSerperOrganic(body, "serper")
	if err != nil {
		t.Fatalf("parseSerperOrganic failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results (untitled dropped), got %d", len(results))
	}
	if results[0].URL != "https://a.com.br/1" || results[0].Title != "Primeiro" {
		t.Errorf("first result mismatched: %+v", results[0])
	}
	if results[0].SourceProvider != "serper" {
		t.Errorf("provider tag missing: %q", results[0].SourceProvider)
	}
	if results[0].RelevanceScore <= results[1].RelevanceScore {
		t.Error("relevance should decrease with position")
	}
	// Missing position falls back to slice order.
	if results[2].RelevanceScore >= results[1].RelevanceScore {
		t.Error("positionless result should rank below positioned ones")
	}

	if _, err := parseSerperOrganic([]byte("not json"), "serper"); err == nil {
		t.Error("expected error on malformed body")
	}
}

func TestEnhanceQuery(t *testing.T) {
	year := fmt.Sprintf("%d", time.Now().Year())

	enhanced := EnhanceQuery("mercado de cosméticos")
	if !strings.Contains(enhanced, "Brasil") {
		t.Errorf("expected Brasil hint, got %q", enhanced)
	}
	if !strings.Contains(enhanced, year) {
		t.Errorf("expected year hint, got %q", enhanced)
	}

	already := "cosméticos Brasil " + year
	if got := EnhanceQuery(already); got != already {
		t.Errorf("query with hints must pass through, got %q", got)
	}

	partial := EnhanceQuery("tendências brasileiras")
	if strings.Contains(partial, "Brasil ") && strings.Count(strings.ToLower(partial), "brasil") > 1 {
		t.Errorf("brasileiras already covers the hint, got %q", partial)
	}
}

func TestDoWithRotationRotatesOnAuthFailure(t *testing.T) {
	var seenKeys []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-Test-Key")
		seenKeys = append(seenKeys, key)
		if key == "bad-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer server.Close()

	pool := keypool.New(map[string][]string{"exa": {"bad-key", "good-key"}}, 5*time.Minute)

	body, err := doWithRotation(context.Background(), server.Client(), pool, "exa",
		func(key string) (*http.Request, error) {
			req, err := http.NewRequest(http.MethodGet, server.URL, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("X-Test-Key", key)
			return req, nil
		})
	if err != nil {
		t.Fatalf("expected rotation to recover, got %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("unexpected body: %s", body)
	}
	if len(seenKeys) != 2 || seenKeys[0] != "bad-key" || seenKeys[1] != "good-key" {
		t.Errorf("expected bad-key then good-key, got %v", seenKeys)
	}

	stats := pool.Stats()["exa"]
	if stats.Failures != 1 {
		t.Errorf("expected 1 marked failure, got %d", stats.Failures)
	}
}

func TestDoWithRotationExhaustsAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	pool := keypool.New(map[string][]string{"exa": {"k1", "k2", "k3"}}, 5*time.Minute)

	_, err := doWithRotation(context.Background(), server.Client(), pool, "exa",
		func(key string) (*http.Request, error) {
			return http.NewRequest(http.MethodGet, server.URL, nil)
		})
	if err == nil {
		t.Fatal("expected failure after exhausting attempts")
	}

	// Two attempts max per logical call, regardless of pool size.
	stats := pool.Stats()["exa"]
	if stats.Failures != 2 {
		t.Errorf("expected exactly 2 burned credentials, got %d", stats.Failures)
	}
}

func TestRegistryAvailabilityAndKeyless(t *testing.T) {
	pool := keypool.New(map[string][]string{"serper": {"s1"}}, 5*time.Minute)
	reg := NewRegistry(pool)
	reg.Register(NewSerperClient(pool), 5)
	reg.Register(NewExaClient(pool), 5) // no credentials configured
	reg.Register(NewBingScrapeClient(), 1)

	available := reg.Available()
	want := []string{"serper", "bing_scrape"}
	if len(available) != len(want) {
		t.Fatalf("expected %v, got %v", want, available)
	}
	for i := range want {
		if available[i] != want[i] {
			t.Errorf("priority order broken: expected %v, got %v", want, available)
		}
	}

	resp := reg.Search(context.Background(), "exa", "qualquer coisa", Limits{MaxResults: 5})
	if resp.OK() {
		t.Error("provider without credentials must hard-fail")
	}
	if resp := reg.Search(context.Background(), "desconhecido", "q", Limits{}); resp.OK() {
		t.Error("unregistered provider must hard-fail")
	}
}

func TestRegistrySearchDispatchesAndCounts(t *testing.T) {
	pool := keypool.New(nil, 5*time.Minute)
	reg := NewRegistry(pool)
	mock := NewMockClient()
	reg.Register(mock, 100)

	resp := reg.Search(context.Background(), "mock", "cosméticos", Limits{MaxResults: 2})
	if !resp.OK() {
		t.Fatalf("mock dispatch failed: %s", resp.Reason)
	}
	if len(resp.Results) != 2 {
		t.Errorf("expected 2 results, got %d", len(resp.Results))
	}
	// The dispatch layer applies the Brazilian enhancement before the client
	// sees the query.
	if !strings.Contains(resp.Results[0].Title, "Brasil") {
		t.Errorf("expected enhanced query in mock echo, got %q", resp.Results[0].Title)
	}

	counts := reg.CallCounts()
	if counts["mock"] != 1 {
		t.Errorf("expected 1 dispatch counted, got %d", counts["mock"])
	}
}

func TestRegistryEmptySuccessDegradesToSoftFailure(t *testing.T) {
	pool := keypool.New(nil, 5*time.Minute)
	reg := NewRegistry(pool)
	mock := NewMockClient()
	mock.SetResults(nil)
	reg.Register(mock, 100)

	resp := reg.Search(context.Background(), "mock", "sem resultados", Limits{})
	if resp.OK() {
		t.Error("empty success must degrade to soft failure")
	}
	if resp.Reason != "empty_response" {
		t.Errorf("expected empty_response marker, got %q", resp.Reason)
	}
}

func TestVideoID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/abc123XYZ_-", "abc123XYZ_-"},
		{"https://www.youtube.com/embed/abc123XYZ_-", "abc123XYZ_-"},
		{"https://m.youtube.com/watch?v=xyz", "xyz"},
		{"https://vimeo.com/12345", ""},
		{"::not a url::", ""},
	}
	for _, tt := range tests {
		if got := VideoID(tt.url); got != tt.want {
			t.Errorf("VideoID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestThumbnailURLs(t *testing.T) {
	urls := ThumbnailURLs("https://youtu.be/abc")
	if len(urls) != 3 {
		t.Fatalf("expected 3 fallback resolutions, got %d", len(urls))
	}
	if !strings.Contains(urls[0], "maxresdefault") {
		t.Errorf("best resolution must come first, got %s", urls[0])
	}
	if ThumbnailURLs("https://example.com") != nil {
		t.Error("non-video URL must yield no thumbnails")
	}
}
