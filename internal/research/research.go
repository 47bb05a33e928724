// Package research implements the deep researcher: three nested fan-outs that
// turn one query into a ranked set of extracted, quality-scored pages plus
// mined insights.
package research

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"garimpo/internal/core"
	"garimpo/internal/extractor"
	"garimpo/internal/llm"
	"garimpo/internal/logger"
	"garimpo/internal/providers"
	"garimpo/internal/quality"
	"garimpo/internal/urlfilter"
)

const (
	topPagesForExpansion = 5
	linksPerParent       = 3
	maxRelatedQueries    = 8
	relatedQueriesToRun  = 3
	relatedQueryCap      = 5
	relatedQueryTokens   = 256
	providerTimeout      = 30 * time.Second
)

// Researcher runs the three-level research pipeline over the registered web
// providers.
type Researcher struct {
	registry  *providers.Registry
	extractor *extractor.Extractor
	session   *extractor.Session
	generator llm.Generator
	maxPages  int
	depth     int // 1..3
}

// New builds a researcher. depth clamps to [1,3]; maxPages must be positive.
func New(registry *providers.Registry, ex *extractor.Extractor, session *extractor.Session, maxPages, depth int) *Researcher {
	if depth < 1 {
		depth = 1
	}
	if depth > 3 {
		depth = 3
	}
	if maxPages <= 0 {
		maxPages = 20
	}
	return &Researcher{
		registry:  registry,
		extractor: ex,
		session:   session,
		maxPages:  maxPages,
		depth:     depth,
	}
}

// AttachGenerator enables LLM-backed related-query expansion at level 3. With
// no generator the vocabulary templates are used.
func (r *Researcher) AttachGenerator(g llm.Generator) {
	r.generator = g
}

// Run executes the research levels against the given web engines and returns
// the aggregated research record. A run with zero level-1 pages produces an
// emergency record instead of an error.
func (r *Researcher) Run(ctx context.Context, query string, runCtx core.RunContext, engines []string) core.ResearchData {
	if len(engines) == 0 {
		return emergencyRecord("nenhum provedor de busca disponível")
	}

	pages := r.levelOne(ctx, query, runCtx, engines)
	if len(pages) == 0 {
		logger.Warn("research level 1 produced no pages", "query", query)
		return emergencyRecord("nenhuma página passou nos filtros de qualidade no nível 1")
	}

	if r.depth >= 2 {
		pages = append(pages, r.levelTwo(ctx, pages, runCtx)...)
	}
	if r.depth >= 3 {
		pages = append(pages, r.levelThree(ctx, pages, runCtx, engines[0])...)
	}

	pages = dedupeByURL(pages)
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].QualityScore > pages[j].QualityScore
	})

	terms := runCtx.Terms()
	return core.ResearchData{
		Section:       core.Section{Success: true},
		TopInsights:   MineInsights(pages, terms),
		Trends:        MineTrends(pages),
		Opportunities: MineOpportunities(pages),
		Pages:         pages,
	}
}

// RunFromResults runs the pipeline over pre-fetched level-1 results instead
// of dispatching the engines itself. The collector uses this to share its web
// fan-out with the researcher. primary names the engine used for level-3
// related queries.
func (r *Researcher) RunFromResults(ctx context.Context, results []core.SearchResult, runCtx core.RunContext, primary string) core.ResearchData {
	var mu sync.Mutex
	var pages []core.ExtractedPage

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, result := range results {
		result := result
		g.Go(func() error {
			page, ok := r.processResult(gctx, result, runCtx)
			if !ok {
				return nil
			}
			mu.Lock()
			pages = append(pages, page)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	if len(pages) == 0 {
		return emergencyRecord("nenhuma página passou nos filtros de qualidade no nível 1")
	}

	if r.depth >= 2 {
		pages = append(pages, r.levelTwo(ctx, pages, runCtx)...)
	}
	if r.depth >= 3 && primary != "" {
		pages = append(pages, r.levelThree(ctx, pages, runCtx, primary)...)
	}

	pages = dedupeByURL(pages)
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].QualityScore > pages[j].QualityScore
	})

	return core.ResearchData{
		Section:       core.Section{Success: true},
		TopInsights:   MineInsights(pages, runCtx.Terms()),
		Trends:        MineTrends(pages),
		Opportunities: MineOpportunities(pages),
		Pages:         pages,
	}
}

// levelOne fans the query out across every engine concurrently, then filters,
// extracts and scores each result.
func (r *Researcher) levelOne(ctx context.Context, query string, runCtx core.RunContext, engines []string) []core.ExtractedPage {
	perEngine := r.maxPages / len(engines)
	if perEngine < 1 {
		perEngine = 1
	}

	var mu sync.Mutex
	var pages []core.ExtractedPage
	seen := map[string]bool{}

	g, gctx := errgroup.WithContext(ctx)
	for _, engine := range engines {
		engine := engine
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(gctx, providerTimeout)
			defer cancel()

			resp := r.registry.Search(callCtx, engine, query, providers.Limits{MaxResults: perEngine})
			if !resp.OK() {
				logger.Warn("research engine contributed nothing", "engine", engine, "reason", resp.Reason)
				return nil
			}
			for _, result := range resp.Results {
				mu.Lock()
				dup := seen[result.URL]
				seen[result.URL] = true
				mu.Unlock()
				if dup {
					continue
				}
				page, ok := r.processResult(gctx, result, runCtx)
				if !ok {
					continue
				}
				mu.Lock()
				pages = append(pages, page)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()
	return pages
}

// levelTwo expands the best level-1 pages by following their internal links.
func (r *Researcher) levelTwo(ctx context.Context, pages []core.ExtractedPage, runCtx core.RunContext) []core.ExtractedPage {
	parents := make([]core.ExtractedPage, len(pages))
	copy(parents, pages)
	sort.SliceStable(parents, func(i, j int) bool {
		return parents[i].QualityScore > parents[j].QualityScore
	})
	if len(parents) > topPagesForExpansion {
		parents = parents[:topPagesForExpansion]
	}

	seen := map[string]bool{}
	for _, p := range pages {
		seen[p.URL] = true
	}

	var out []core.ExtractedPage
	for _, parent := range parents {
		links, err := r.internalLinks(ctx, parent.URL)
		if err != nil {
			logger.Debug("link expansion skipped", "url", parent.URL, "error", err.Error())
			continue
		}
		taken := 0
		for _, link := range links {
			if taken >= linksPerParent {
				break
			}
			if seen[link] {
				continue
			}
			seen[link] = true
			page, ok := r.processResult(ctx, core.SearchResult{URL: link}, runCtx)
			if !ok {
				continue
			}
			out = append(out, page)
			taken++
		}
	}
	return out
}

// levelThree synthesizes related queries and runs the best ones through the
// primary engine with a small cap.
func (r *Researcher) levelThree(ctx context.Context, pages []core.ExtractedPage, runCtx core.RunContext, primary string) []core.ExtractedPage {
	queries := r.relatedQueries(ctx, pages, runCtx)
	if len(queries) > relatedQueriesToRun {
		queries = queries[:relatedQueriesToRun]
	}

	seen := map[string]bool{}
	for _, p := range pages {
		seen[p.URL] = true
	}

	var out []core.ExtractedPage
	for _, q := range queries {
		callCtx, cancel := context.WithTimeout(ctx, providerTimeout)
		resp := r.registry.Search(callCtx, primary, q, providers.Limits{MaxResults: relatedQueryCap})
		cancel()
		if !resp.OK() {
			continue
		}
		for _, result := range resp.Results {
			if seen[result.URL] {
				continue
			}
			seen[result.URL] = true
			page, ok := r.processResult(ctx, result, runCtx)
			if !ok {
				continue
			}
			out = append(out, page)
		}
	}
	return out
}

// relatedQueries asks the attached generator for query expansions and falls
// back to the vocabulary templates when it is absent or contributes nothing.
func (r *Researcher) relatedQueries(ctx context.Context, pages []core.ExtractedPage, runCtx core.RunContext) []string {
	if r.generator != nil {
		if queries := r.generatedQueries(ctx, pages, runCtx); len(queries) > 0 {
			return queries
		}
	}
	return RelatedQueries(pages, runCtx, maxRelatedQueries)
}

func (r *Researcher) generatedQueries(ctx context.Context, pages []core.ExtractedPage, runCtx core.RunContext) []string {
	terms := Vocabulary(pages, 3)
	if len(terms) > 10 {
		terms = terms[:10]
	}
	prompt := fmt.Sprintf("Gere até %d consultas de busca curtas em português para aprofundar uma pesquisa de mercado.\nContexto: %s\nTermos frequentes nas fontes: %s\nResponda com uma consulta por linha, sem numeração.",
		maxRelatedQueries, strings.Join(runCtx.Terms(), ", "), strings.Join(terms, ", "))

	text, err := r.generator.GenerateText(ctx, prompt, relatedQueryTokens)
	if err != nil {
		logger.Debug("query expansion fell back to vocabulary templates", "error", err.Error())
		return nil
	}

	var queries []string
	seen := map[string]bool{}
	for _, line := range strings.Split(text, "\n") {
		q := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*0123456789.) "))
		if q == "" || seen[strings.ToLower(q)] {
			continue
		}
		seen[strings.ToLower(q)] = true
		queries = append(queries, q)
		if len(queries) >= maxRelatedQueries {
			break
		}
	}
	return queries
}

// processResult runs one candidate URL through the filter, extraction and
// quality gates.
func (r *Researcher) processResult(ctx context.Context, result core.SearchResult, runCtx core.RunContext) (core.ExtractedPage, bool) {
	if !urlfilter.IsRelevant(result.URL, result.Title, result.Snippet) {
		return core.ExtractedPage{}, false
	}

	extraction, err := r.extractor.Extract(ctx, result.URL)
	if err != nil {
		logger.Debug("extraction failed", "url", result.URL, "error", err.Error())
		return core.ExtractedPage{}, false
	}

	score := quality.Score(extraction.Text, result.URL, runCtx)
	if score < quality.MinScore {
		return core.ExtractedPage{}, false
	}

	title := extraction.Title
	if title == "" {
		title = result.Title
	}
	return core.ExtractedPage{
		URL:               result.URL,
		Title:             title,
		ContentText:       extraction.Text,
		QualityScore:      score,
		IsPreferredSource: urlfilter.IsPreferred(result.URL),
		WordCount:         len(strings.Fields(extraction.Text)),
		ExtractionMethod:  extraction.Method,
		ExtractedAt:       time.Now().UTC(),
	}, true
}

func dedupeByURL(pages []core.ExtractedPage) []core.ExtractedPage {
	seen := map[string]bool{}
	out := pages[:0]
	for _, p := range pages {
		if seen[p.URL] {
			continue
		}
		seen[p.URL] = true
		out = append(out, p)
	}
	return out
}

func emergencyRecord(reason string) core.ResearchData {
	return core.ResearchData{
		Section:       core.Section{Success: false, Error: reason},
		EmergencyMode: true,
		Explanation:   "Pesquisa profunda em modo de emergência: " + reason,
	}
}
