// Package report renders the human-readable outputs of a collection run: the
// Markdown report and the plain-text incorporation summary. Both are pure
// functions of the artifact, so regenerating from the same data is
// byte-stable.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"garimpo/internal/core"
)

const (
	maxWebResults      = 5
	maxPostsPerNetwork = 3
	maxViralItems      = 10
)

// Render produces the Markdown collection report.
func Render(data *core.MassiveData) []byte {
	var b strings.Builder

	duration := data.CollectionEnded.Sub(data.CollectionStarted).Round(time.Second)
	fmt.Fprintf(&b, "# Relatório de Coleta — %s\n\n", data.SessionID)
	fmt.Fprintf(&b, "**Consulta:** %s\n\n", data.Query)
	if terms := data.Context.Terms(); len(terms) > 0 {
		fmt.Fprintf(&b, "**Contexto:** %s\n\n", strings.Join(terms, ", "))
	}
	fmt.Fprintf(&b, "**Início:** %s  \n**Duração:** %s\n\n",
		data.CollectionStarted.Format("2006-01-02 15:04:05 UTC"), duration)

	if data.EmergencyMode {
		fmt.Fprintf(&b, "> ⚠️ Coleta em modo de emergência: %s\n\n", data.EmergencyReason)
	}

	b.WriteString("## Resumo da Coleta\n\n")
	st := data.Statistics
	fmt.Fprintf(&b, "- Fontes totais: %d\n", st.TotalSources)
	fmt.Fprintf(&b, "- URLs únicas: %d\n", st.UniqueURLs)
	fmt.Fprintf(&b, "- Conteúdo extraído: %d caracteres em %d páginas\n",
		st.TotalContentChars, len(data.ExtractedContent))
	fmt.Fprintf(&b, "- Screenshots: %d\n", st.ScreenshotCount)
	fmt.Fprintf(&b, "- Tempo de coleta: %.1fs\n\n", st.CollectionTimeSeconds)

	b.WriteString("## Fontes por Tipo\n\n")
	b.WriteString("| Tipo | Quantidade |\n|---|---|\n")
	for _, key := range sortedKeys(st.SourcesByType) {
		fmt.Fprintf(&b, "| %s | %d |\n", key, st.SourcesByType[key])
	}
	b.WriteString("\n")

	if len(st.APICallsPerProvider) > 0 {
		b.WriteString("## Provedores\n\n")
		b.WriteString("| Provedor | Chamadas | Rotações de chave |\n|---|---|---|\n")
		for _, name := range sortedKeys(st.APICallsPerProvider) {
			fmt.Fprintf(&b, "| %s | %d | %d |\n", name,
				st.APICallsPerProvider[name], st.APIRotations[name])
		}
		b.WriteString("\n")
	}

	renderWebResults(&b, data.WebSearchData.Results)
	renderSocialPosts(&b, data.SocialMediaData)
	renderViralContent(&b, data.ViralContent)
	renderVisualEvidence(&b, data)
	renderFailures(&b, data.Failures)

	return []byte(b.String())
}

func renderWebResults(b *strings.Builder, results []core.SearchResult) {
	if len(results) == 0 {
		return
	}
	b.WriteString("## Principais Resultados Web\n\n")
	limit := len(results)
	if limit > maxWebResults {
		limit = maxWebResults
	}
	for i := 0; i < limit; i++ {
		r := results[i]
		fmt.Fprintf(b, "%d. [%s](%s) — %s (relevância %.2f)\n",
			i+1, r.Title, r.URL, r.SourceProvider, r.RelevanceScore)
	}
	b.WriteString("\n")
}

func renderSocialPosts(b *strings.Builder, social core.SocialMediaData) {
	if len(social.Platforms) == 0 {
		return
	}
	b.WriteString("## Destaques por Plataforma\n\n")

	platforms := make([]core.Platform, 0, len(social.Platforms))
	for p := range social.Platforms {
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })

	for _, platform := range platforms {
		bucket := social.Platforms[platform]
		if len(bucket.Posts) == 0 {
			continue
		}
		fmt.Fprintf(b, "### %s\n\n", strings.ToUpper(string(platform)))

		posts := make([]core.SocialPost, len(bucket.Posts))
		copy(posts, bucket.Posts)
		sort.SliceStable(posts, func(i, j int) bool {
			return posts[i].ViralScore > posts[j].ViralScore
		})
		limit := len(posts)
		if limit > maxPostsPerNetwork {
			limit = maxPostsPerNetwork
		}
		for i := 0; i < limit; i++ {
			p := posts[i]
			fmt.Fprintf(b, "- [%s](%s) — score %.1f", p.Title, p.URL, p.ViralScore)
			if m := metricsLine(p.Metrics); m != "" {
				fmt.Fprintf(b, " (%s)", m)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
}

func renderViralContent(b *strings.Builder, items []core.ViralImage) {
	if len(items) == 0 {
		return
	}
	b.WriteString("## Conteúdo Viral\n\n")
	limit := len(items)
	if limit > maxViralItems {
		limit = maxViralItems
	}
	for i := 0; i < limit; i++ {
		item := items[i]
		fmt.Fprintf(b, "%d. **[%s]** %s — engajamento %.1f",
			i+1, strings.ToUpper(string(item.Platform)), item.Title, item.EngagementScore)
		if item.IsEstimate {
			b.WriteString(" (estimado)")
		}
		b.WriteString("\n")
		fmt.Fprintf(b, "   - %s\n", item.PostURL)
		if item.Estimates.Likes > 0 || item.Estimates.Views > 0 {
			fmt.Fprintf(b, "   - views=%d, likes=%d, comments=%d, shares=%d\n",
				item.Estimates.Views, item.Estimates.Likes,
				item.Estimates.Comments, item.Estimates.Shares)
		}
		if len(item.ViralIndicators) > 0 {
			fmt.Fprintf(b, "   - indicadores: %s\n", strings.Join(item.ViralIndicators, "; "))
		}
	}
	b.WriteString("\n")
}

func renderVisualEvidence(b *strings.Builder, data *core.MassiveData) {
	hasImages := false
	for _, item := range data.ViralContent {
		if item.ImageLocalPath != "" || item.ScreenshotLocalPath != "" {
			hasImages = true
			break
		}
	}
	if len(data.ScreenshotsCaptured) == 0 && !hasImages {
		return
	}

	b.WriteString("## Evidências Visuais\n\n")
	for _, shot := range data.ScreenshotsCaptured {
		fmt.Fprintf(b, "- `%s` — %s (%d bytes)\n", shot.RelativePath, shot.SourceURL, shot.FileSizeBytes)
	}
	for _, item := range data.ViralContent {
		if item.ImageLocalPath != "" {
			fmt.Fprintf(b, "- `%s` — imagem de %s\n", item.ImageLocalPath, item.PostURL)
		}
		if item.ScreenshotLocalPath != "" {
			fmt.Fprintf(b, "- `%s` — screenshot de %s\n", item.ScreenshotLocalPath, item.PostURL)
		}
	}
	b.WriteString("\n")
}

func renderFailures(b *strings.Builder, failures []core.ProviderFailure) {
	if len(failures) == 0 {
		return
	}
	b.WriteString("## Erros e Fontes Ausentes\n\n")
	for _, f := range failures {
		fmt.Fprintf(b, "- **%s**: %s\n", f.Provider, f.Reason)
	}
	b.WriteString("\n")
}

func metricsLine(m core.PlatformMetrics) string {
	var parts []string
	add := func(label string, v int64) {
		if v > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", label, v))
		}
	}
	add("views", m.Views)
	add("likes", m.Likes)
	add("comments", m.Comments)
	add("shares", m.Shares)
	add("retweets", m.Retweets)
	add("replies", m.Replies)
	return strings.Join(parts, ", ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
