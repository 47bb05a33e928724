package research

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"garimpo/internal/core"
)

const (
	maxInsights         = 20
	minInsightSentence  = 80
	maxMinedPerCategory = 15
)

// insightMarkers are the keywords a sentence must carry (besides a context
// term) to count as an insight. Portuguese first, English for bilingual
// sources.
var insightMarkers = []string{
	"crescimento", "mercado", "oportunidade", "tendência", "aumento",
	"faturamento", "receita", "consumidor", "demanda", "expansão",
	"growth", "market", "opportunity", "trend", "revenue", "demand",
}

var trendKeywords = []string{
	"inteligência artificial", "ia generativa", "automação", "sustentabilidade",
	"personalização", "mobile", "nuvem", "analytics", "digitalização",
	"e-commerce", "influenciador",
	"ai", "automation", "sustainability", "personalization", "cloud",
}

var opportunityKeywords = []string{
	"oportunidade", "potencial", "lacuna", "demanda não atendida",
	"mercado emergente", "nicho", "espaço para",
	"opportunity", "potential", "gap", "unmet demand", "emerging market",
}

var numericPattern = regexp.MustCompile(`\d`)

var sentenceSplit = regexp.MustCompile(`[.!?]\s+`)

func sentences(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MineInsights extracts up to 20 de-duplicated insight sentences: long enough,
// carrying a context term plus a numeric token or insight marker.
func MineInsights(pages []core.ExtractedPage, contextTerms []string) []string {
	lowerTerms := make([]string, len(contextTerms))
	for i, t := range contextTerms {
		lowerTerms[i] = strings.ToLower(t)
	}

	var insights []string
	seen := map[string]bool{}
	for _, page := range pages {
		for _, sentence := range sentences(page.ContentText) {
			if len(sentence) < minInsightSentence {
				continue
			}
			lower := strings.ToLower(sentence)

			hasTerm := len(lowerTerms) == 0
			for _, term := range lowerTerms {
				if strings.Contains(lower, term) {
					hasTerm = true
					break
				}
			}
			if !hasTerm {
				continue
			}

			hasMarker := numericPattern.MatchString(sentence)
			if !hasMarker {
				for _, marker := range insightMarkers {
					if strings.Contains(lower, marker) {
						hasMarker = true
						break
					}
				}
			}
			if !hasMarker {
				continue
			}

			key := normalizeSentence(lower)
			if seen[key] {
				continue
			}
			seen[key] = true
			insights = append(insights, sentence)
			if len(insights) >= maxInsights {
				return insights
			}
		}
	}
	return insights
}

// MineTrends returns sentences mentioning trend keywords.
func MineTrends(pages []core.ExtractedPage) []string {
	return mineByKeywords(pages, trendKeywords)
}

// MineOpportunities returns sentences mentioning opportunity keywords.
func MineOpportunities(pages []core.ExtractedPage) []string {
	return mineByKeywords(pages, opportunityKeywords)
}

func mineByKeywords(pages []core.ExtractedPage, keywords []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, page := range pages {
		for _, sentence := range sentences(page.ContentText) {
			if len(sentence) < 40 {
				continue
			}
			lower := strings.ToLower(sentence)
			matched := false
			for _, kw := range keywords {
				if containsWord(lower, kw) {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
			key := normalizeSentence(lower)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, sentence)
			if len(out) >= maxMinedPerCategory {
				return out
			}
		}
	}
	return out
}

// containsWord matches a keyword on word boundaries so short keywords like
// "ai" do not fire inside unrelated words.
func containsWord(text, keyword string) bool {
	idx := 0
	for {
		pos := strings.Index(text[idx:], keyword)
		if pos < 0 {
			return false
		}
		start := idx + pos
		end := start + len(keyword)
		beforeOK := start == 0 || !isLetter(text[start-1])
		afterOK := end >= len(text) || !isLetter(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b >= 0x80
}

func normalizeSentence(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var stopwords = map[string]bool{
	"para": true, "como": true, "mais": true, "pela": true, "pelo": true,
	"este": true, "esta": true, "esse": true, "essa": true, "isso": true,
	"seus": true, "suas": true, "pode": true, "podem": true, "entre": true,
	"sobre": true, "também": true, "ainda": true, "muito": true, "quando": true,
	"depois": true, "antes": true, "onde": true, "porque": true, "assim": true,
	"ser": true, "ter": true, "fazer": true, "anos": true, "dia": true,
	"with": true, "that": true, "this": true, "from": true, "have": true,
	"will": true, "more": true, "than": true, "been": true, "were": true,
	"their": true, "which": true, "about": true, "would": true, "there": true,
}

var tokenPattern = regexp.MustCompile(`[a-zA-ZÀ-ÿ]{4,}`)

// Vocabulary counts meaningful tokens (4+ letters, stopword filtered) across
// the page contents and returns those with frequency above the floor, most
// frequent first.
func Vocabulary(pages []core.ExtractedPage, minFrequency int) []string {
	freq := map[string]int{}
	for _, page := range pages {
		for _, token := range tokenPattern.FindAllString(strings.ToLower(page.ContentText), -1) {
			if stopwords[token] {
				continue
			}
			freq[token]++
		}
	}

	var terms []string
	for term, count := range freq {
		if count > minFrequency {
			terms = append(terms, term)
		}
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	return terms
}

// RelatedQueries combines the top vocabulary terms with the context slots into
// up to max synthesized queries.
func RelatedQueries(pages []core.ExtractedPage, runCtx core.RunContext, max int) []string {
	terms := Vocabulary(pages, 3)

	var queries []string
	seen := map[string]bool{}
	add := func(q string) {
		if len(queries) >= max || seen[q] {
			return
		}
		seen[q] = true
		queries = append(queries, q)
	}

	for _, term := range terms {
		if len(queries) >= max {
			break
		}
		if runCtx.Segment != "" && !strings.EqualFold(term, runCtx.Segment) {
			add(fmt.Sprintf("%s %s oportunidades", term, runCtx.Segment))
		}
		if runCtx.Product != "" && !strings.EqualFold(term, runCtx.Product) {
			add(fmt.Sprintf("%s %s mercado", term, runCtx.Product))
		}
		if runCtx.Segment == "" && runCtx.Product == "" {
			add(term + " tendências")
		}
	}
	return queries
}
