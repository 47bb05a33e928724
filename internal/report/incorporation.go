package report

import (
	"fmt"
	"strings"

	"garimpo/internal/core"
)

// maxIncorporationBytes caps the plain-text summary so it embeds safely into
// a parent search record.
const maxIncorporationBytes = 8 * 1024

// Incorporation renders the compact plain-text summary of the top viral
// items: banner, query, totals, then one numbered line per item.
func Incorporation(data *core.MassiveData) string {
	var b strings.Builder

	b.WriteString("===== CONTEÚDO VIRAL COLETADO =====\n")
	fmt.Fprintf(&b, "Consulta: %s\n", data.Query)
	fmt.Fprintf(&b, "Sessão: %s\n", data.SessionID)
	fmt.Fprintf(&b, "Totais: %d fontes, %d itens virais, %d screenshots\n\n",
		data.Statistics.TotalSources, len(data.ViralContent), data.Statistics.ScreenshotCount)

	for i, item := range data.ViralContent {
		line := fmt.Sprintf("%d. [%s] %s — engagement=%.1f, likes=%d\n",
			i+1, strings.ToUpper(string(item.Platform)), item.Title,
			item.EngagementScore, item.Estimates.Likes)
		if b.Len()+len(line) > maxIncorporationBytes {
			break
		}
		b.WriteString(line)
	}
	return b.String()
}
