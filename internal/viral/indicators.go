package viral

import "strings"

var ctaPatterns = []string{
	"link in bio", "link na bio", "buy now", "compre agora",
	"clique no link", "garanta já", "swipe up", "arrasta pra cima",
}

var urgencyPatterns = []string{
	"last spots", "últimas vagas", "offer", "oferta", "promoção",
	"só hoje", "termina hoje", "limited", "por tempo limitado",
}

var socialProofPatterns = []string{
	"customers", "clientes", "results", "resultados",
	"depoimento", "aprovado por", "mais vendido", "recomendado",
}

// Indicators inspects a post description and returns human-readable tags for
// the persuasion signals it carries. Hashtag density above 5 is itself a
// signal.
func Indicators(description string, hashtags []string) []string {
	lower := strings.ToLower(description)
	var out []string

	if matchesAny(lower, ctaPatterns) {
		out = append(out, "call-to-action presente")
	}
	if matchesAny(lower, urgencyPatterns) {
		out = append(out, "gatilho de urgência")
	}
	if matchesAny(lower, socialProofPatterns) {
		out = append(out, "prova social")
	}
	if len(hashtags) > 5 {
		out = append(out, "alta densidade de hashtags")
	}
	return out
}

func matchesAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
