// Package quality assigns a 0-100 score to extracted content. The model is
// additive over five signals: length, context-term overlap, domain
// reputation, information density and hard-data presence.
package quality

import (
	"regexp"
	"strings"

	"garimpo/internal/core"
	"garimpo/internal/urlfilter"
)

// MinScore is the rejection threshold used by the extraction pipeline.
const MinScore = 60

var dataPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d+%`),
	regexp.MustCompile(`R\$\s?[\d,.]+`),
	regexp.MustCompile(`\d+\s+(mil|milhão|milhões|bilhão|bilhões)`),
	regexp.MustCompile(`\b20(2[4-9]|3\d)\b`),
	regexp.MustCompile(`\d+\s+(empresas|clientes|usuários|pacientes|pessoas|profissionais)`),
}

// Score rates content fetched from url against the run context. The result
// is capped at 100.
func Score(content, url string, ctx core.RunContext) int {
	score := 0
	lower := strings.ToLower(content)

	// Length signal, up to 20.
	switch n := len(content); {
	case n >= 2000:
		score += 20
	case n >= 1000:
		score += 15
	case n >= 500:
		score += 10
	default:
		score += 5
	}

	// Context-term overlap, +10 per distinct term, up to 30.
	overlap := 0
	for _, term := range ctx.Terms() {
		if term != "" && strings.Contains(lower, strings.ToLower(term)) {
			overlap += 10
		}
	}
	if overlap > 30 {
		overlap = 30
	}
	score += overlap

	// Domain reputation, up to 20.
	switch {
	case urlfilter.IsPreferred(url):
		score += 20
	case strings.Contains(url, ".gov.br") || strings.Contains(url, ".edu.br"):
		score += 15
	case strings.Contains(url, ".org.br"):
		score += 10
	default:
		score += 5
	}

	// Information density, up to 15.
	switch words := len(strings.Fields(content)); {
	case words >= 500:
		score += 15
	case words >= 200:
		score += 10
	default:
		score += 5
	}

	// Hard-data presence, +3 per matched pattern class, up to 15.
	data := 0
	for _, re := range dataPatterns {
		if re.MatchString(content) {
			data += 3
		}
	}
	if data > 15 {
		data = 15
	}
	score += data

	if score > 100 {
		score = 100
	}
	return score
}
