package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"garimpo/internal/config"
	"garimpo/internal/core"
	"garimpo/internal/extractor"
	"garimpo/internal/keypool"
	"garimpo/internal/providers"
	"garimpo/internal/research"
	"garimpo/internal/session"
)

func testConfig() *config.Config {
	return &config.Config{
		Features: config.Features{},
		Tuning: config.Tuning{
			MaxPages:                4,
			DepthLevels:             1,
			MaxImagesPerPlatform:    5,
			MinViralScoreForCapture: 5.0,
			RunBudget:               time.Minute,
		},
	}
}

func testCollector(t *testing.T, results []core.SearchResult) (*Collector, *session.Paths) {
	t.Helper()
	paths, err := session.New(t.TempDir(), t.TempDir(), "coleta_teste")
	if err != nil {
		t.Fatalf("session setup failed: %v", err)
	}

	pool := keypool.New(nil, 5*time.Minute)
	reg := providers.NewRegistry(pool)
	mock := providers.NewMockClient()
	mock.SetResults(results)
	reg.Register(mock, 100)

	httpSession := extractor.NewSession(5 * time.Second)
	ex := extractor.New(httpSession, nil)
	researcher := research.New(reg, ex, httpSession, 4, 1)

	return New(testConfig(), pool, reg, researcher, nil, nil, paths), paths
}

func articleHTML() string {
	paragraph := "O mercado de cosméticos naturais no Brasil registrou crescimento de 45% em 2026, " +
		"com faturamento estimado em R$ 3,5 bilhões segundo levantamento setorial recente. " +
		"A demanda por produtos como o hidratante natural abre uma oportunidade concreta de expansão."
	var b strings.Builder
	b.WriteString("<html><head><title>Mercado de cosméticos</title></head><body><main>")
	for i := 0; i < 12; i++ {
		fmt.Fprintf(&b, "<p>%s Parágrafo %d complementa a análise do setor.</p>", paragraph, i)
	}
	b.WriteString("</main></body></html>")
	return b.String()
}

func TestCollectHappyPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articleHTML())
	}))
	defer server.Close()

	c, paths := testCollector(t, []core.SearchResult{
		{URL: server.URL + "/materia", Title: "Mercado de cosméticos", SourceProvider: "mock", RelevanceScore: 0.9},
	})

	runCtx := core.RunContext{Segment: "cosméticos", Product: "hidratante natural"}
	data, err := c.Collect(context.Background(), "cosméticos naturais", runCtx)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if data.EmergencyMode {
		t.Fatalf("unexpected emergency mode: %s", data.EmergencyReason)
	}
	if !data.WebSearchData.Success || len(data.WebSearchData.Results) == 0 {
		t.Error("web section should carry results")
	}
	if !data.Research.Success || len(data.Research.Pages) == 0 {
		t.Errorf("research should produce pages, got error %q", data.Research.Error)
	}
	if len(data.ExtractedContent) != len(data.Research.Pages) {
		t.Error("extracted content must mirror the research pages")
	}

	// Stats consistency.
	st := data.Statistics
	wantTotal := st.SourcesByType["web"] + st.SourcesByType["social"] +
		st.SourcesByType["youtube"] + st.SourcesByType["trends"]
	if st.TotalSources != wantTotal {
		t.Errorf("total_sources %d != sum of sources_by_type %d", st.TotalSources, wantTotal)
	}
	if st.ScreenshotCount != len(data.ScreenshotsCaptured) {
		t.Error("screenshot_count inconsistent")
	}
	if st.TotalContentChars == 0 {
		t.Error("extracted content chars not counted")
	}

	// Social providers without credentials must be recorded, not fatal.
	recorded := map[string]bool{}
	for _, f := range data.Failures {
		recorded[f.Provider] = true
	}
	for _, provider := range []string{"youtube", "twitter", "apify"} {
		if !recorded[provider] {
			t.Errorf("missing failure record for %s", provider)
		}
	}

	// Artifacts on disk.
	payload, err := os.ReadFile(paths.ArtifactPath())
	if err != nil {
		t.Fatalf("artifact not written: %v", err)
	}
	var roundTrip core.MassiveData
	if err := json.Unmarshal(payload, &roundTrip); err != nil {
		t.Fatalf("artifact is not valid JSON: %v", err)
	}
	if roundTrip.SessionID != "coleta_teste" || roundTrip.Query != "cosméticos naturais" {
		t.Errorf("artifact header mismatch: %s / %s", roundTrip.SessionID, roundTrip.Query)
	}

	reportBytes, err := os.ReadFile(paths.ReportPath())
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !strings.Contains(string(reportBytes), "# Relatório de Coleta") {
		t.Error("report missing header")
	}

	if _, err := os.Stat(paths.IncorporationPath()); err != nil {
		t.Errorf("incorporation report not written: %v", err)
	}
}

func TestCollectEmergencyMode(t *testing.T) {
	c, paths := testCollector(t, nil)

	data, err := c.Collect(context.Background(), "consulta sem nada", core.RunContext{})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if !data.EmergencyMode {
		t.Error("run with zero results must be flagged as emergency")
	}
	if data.EmergencyReason == "" {
		t.Error("emergency reason missing")
	}
	if data.Research.Success {
		t.Error("research cannot succeed without web results")
	}

	// The artifact is persisted even in emergency.
	if _, err := os.Stat(paths.ArtifactPath()); err != nil {
		t.Errorf("emergency artifact not written: %v", err)
	}
}

func TestWebFanOutDeduplicates(t *testing.T) {
	paths, err := session.New(t.TempDir(), t.TempDir(), "dedup")
	if err != nil {
		t.Fatal(err)
	}
	pool := keypool.New(nil, 5*time.Minute)
	reg := providers.NewRegistry(pool)

	weak := providers.NewMockClient()
	weak.SetName("bing_scrape")
	weak.SetResults([]core.SearchResult{
		{URL: "https://dup.com.br/a", Title: "Fraco", SourceProvider: "bing_scrape", RelevanceScore: 0.5},
		{URL: "https://dup.com.br/b", Title: "Exclusivo", SourceProvider: "bing_scrape", RelevanceScore: 0.4},
	})
	reg.Register(weak, 100)

	strong := providers.NewMockClient()
	strong.SetResults([]core.SearchResult{
		{URL: "https://dup.com.br/a", Title: "Forte", SourceProvider: "mock", RelevanceScore: 0.9},
	})
	reg.Register(strong, 100)

	c := New(testConfig(), pool, reg, nil, nil, nil, paths)

	web := c.webFanOut(context.Background(), "consulta")
	if len(web.Results) != 2 {
		t.Fatalf("expected 2 deduplicated results, got %d", len(web.Results))
	}
	if !strings.HasPrefix(web.Results[0].Title, "Forte") {
		t.Errorf("higher relevance must win the duplicate: %+v", web.Results[0])
	}
	if !strings.HasPrefix(web.Results[1].Title, "Exclusivo") {
		t.Errorf("unique result lost: %+v", web.Results[1])
	}
}

func TestScreenshotTargetsRankAndCap(t *testing.T) {
	paths, _ := session.New(t.TempDir(), t.TempDir(), "alvos")
	c := New(testConfig(), keypool.New(nil, time.Minute), providers.NewRegistry(keypool.New(nil, time.Minute)), nil, nil, nil, paths)

	data := &core.MassiveData{
		ViralContent: []core.ViralImage{
			{PostURL: "https://viral.com/1", EngagementScore: 9},
			{PostURL: "https://viral.com/2", EngagementScore: 7},
		},
	}
	for i := 0; i < 10; i++ {
		data.ExtractedContent = append(data.ExtractedContent, core.ExtractedPage{
			URL: fmt.Sprintf("https://web.com.br/%d", i), QualityScore: 90 - i,
		})
	}

	targets := c.screenshotTargets(data)
	if len(targets) != 8 {
		t.Fatalf("expected cap of 8 targets, got %d", len(targets))
	}
	if targets[0].URL != "https://viral.com/1" {
		t.Error("viral items must rank before web pages")
	}
}
