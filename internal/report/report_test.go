package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"garimpo/internal/core"
)

func sampleData() *core.MassiveData {
	started := time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC)
	return &core.MassiveData{
		SessionID:         "coleta_exemplo",
		Query:             "cosméticos naturais",
		Context:           core.RunContext{Segment: "cosméticos", Product: "hidratante"},
		CollectionStarted: started,
		CollectionEnded:   started.Add(95 * time.Second),
		WebSearchData: core.WebSearchData{
			Section: core.Section{Success: true},
			Results: []core.SearchResult{
				{Title: "Mercado em alta", URL: "https://exame.com/m", SourceProvider: "exa", RelevanceScore: 0.95},
				{Title: "Dados do setor", URL: "https://g1.globo.com/d", SourceProvider: "serper", RelevanceScore: 0.80},
			},
		},
		SocialMediaData: core.SocialMediaData{
			Section: core.Section{Success: true},
			Platforms: map[core.Platform]core.PlatformBucket{
				core.PlatformYouTube: {Posts: []core.SocialPost{
					{Platform: core.PlatformYouTube, Title: "Resenha viral", URL: "https://youtube.com/watch?v=1",
						ViralScore: 8.2, Metrics: core.PlatformMetrics{Views: 800000, Likes: 4000}},
				}},
			},
		},
		ViralContent: []core.ViralImage{
			{Platform: core.PlatformInstagram, Title: "Antes e depois", PostURL: "https://instagram.com/p/1",
				EngagementScore: 9.1, Estimates: core.EngagementEstimates{Likes: 45000, Views: 120000},
				ViralIndicators: []string{"call-to-action presente"}},
			{Platform: core.PlatformTikTok, Title: "Tutorial", PostURL: "https://tiktok.com/@x/1",
				EngagementScore: 5.5, IsEstimate: true,
				Estimates: core.EngagementEstimates{Likes: 50}},
		},
		ScreenshotsCaptured: []core.Screenshot{
			{RelativePath: "files/screenshot_01.png", SourceURL: "https://exame.com/m", FileSizeBytes: 123456},
		},
		Failures: []core.ProviderFailure{{Provider: "twitter", Reason: "sem credenciais configuradas"}},
		Statistics: core.Stats{
			TotalSources:          4,
			UniqueURLs:            4,
			TotalContentChars:     12000,
			ScreenshotCount:       1,
			CollectionTimeSeconds: 95,
			SourcesByType:         map[string]int{"web": 2, "social": 1, "youtube": 1, "trends": 0},
			APICallsPerProvider:   map[string]int{"exa": 1, "serper": 1},
			APIRotations:          map[string]int{"exa": 2},
		},
	}
}

func TestRenderSections(t *testing.T) {
	out := string(Render(sampleData()))

	for _, want := range []string{
		"# Relatório de Coleta — coleta_exemplo",
		"**Consulta:** cosméticos naturais",
		"## Resumo da Coleta",
		"## Fontes por Tipo",
		"| web | 2 |",
		"## Provedores",
		"| exa | 1 | 2 |",
		"## Principais Resultados Web",
		"[Mercado em alta](https://exame.com/m)",
		"## Destaques por Plataforma",
		"### YOUTUBE",
		"## Conteúdo Viral",
		"**[INSTAGRAM]** Antes e depois — engajamento 9.1",
		"(estimado)",
		"## Evidências Visuais",
		"`files/screenshot_01.png`",
		"## Erros e Fontes Ausentes",
		"**twitter**: sem credenciais configuradas",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestRenderIsByteStable(t *testing.T) {
	data := sampleData()
	first := Render(data)
	second := Render(data)
	if !bytes.Equal(first, second) {
		t.Error("rendering the same artifact twice must be byte-identical")
	}
}

func TestRenderEmergencyBanner(t *testing.T) {
	data := sampleData()
	data.EmergencyMode = true
	data.EmergencyReason = "todos os provedores falharam"

	out := string(Render(data))
	if !strings.Contains(out, "modo de emergência: todos os provedores falharam") {
		t.Error("emergency banner missing")
	}
}

func TestRenderCapsLists(t *testing.T) {
	data := sampleData()
	for i := 0; i < 10; i++ {
		data.WebSearchData.Results = append(data.WebSearchData.Results, core.SearchResult{
			Title: "Extra", URL: "https://site.com.br/x", SourceProvider: "exa",
		})
	}
	out := string(Render(data))
	if strings.Count(out, "[Extra]") > maxWebResults {
		t.Error("web results list not capped at 5")
	}
}

func TestIncorporationFormatAndCap(t *testing.T) {
	data := sampleData()
	out := Incorporation(data)

	if !strings.HasPrefix(out, "===== CONTEÚDO VIRAL COLETADO =====") {
		t.Error("banner line missing")
	}
	if !strings.Contains(out, "1. [INSTAGRAM] Antes e depois — engagement=9.1, likes=45000") {
		t.Errorf("numbered item line malformed:\n%s", out)
	}

	// Flood with items; output must stay under the embed cap.
	for i := 0; i < 500; i++ {
		data.ViralContent = append(data.ViralContent, core.ViralImage{
			Platform: core.PlatformInstagram, Title: strings.Repeat("título longo ", 10),
			EngagementScore: 5, Estimates: core.EngagementEstimates{Likes: 10},
		})
	}
	capped := Incorporation(data)
	if len(capped) > maxIncorporationBytes {
		t.Errorf("incorporation report exceeds cap: %d bytes", len(capped))
	}
}
