// Package study runs the optional AI deep-study pass: seven sequenced
// analytical phases over the collection artifact, each with its own
// wall-clock budget.
package study

import (
	"context"
	"fmt"
	"strings"
	"time"

	"garimpo/internal/core"
	"garimpo/internal/llm"
	"garimpo/internal/logger"
)

const phaseCount = 7

// maxTokensPerPhase bounds each generation so a verbose model cannot blow the
// study wall clock.
const maxTokensPerPhase = 2048

// PhaseResult is one completed (or attempted) analytical subsection.
type PhaseResult struct {
	Name        string    `json:"name"`
	Content     string    `json:"content,omitempty"`
	Complete    bool      `json:"complete"`
	Error       string    `json:"error,omitempty"`
	ElapsedSecs float64   `json:"elapsed_seconds"`
	FinishedAt  time.Time `json:"finished_at"`
}

// ExpertKnowledge is the aggregate of the seven subsections.
type ExpertKnowledge struct {
	SessionID   string        `json:"session_id"`
	Query       string        `json:"query"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Structural  PhaseResult   `json:"structural"`
	Market      PhaseResult   `json:"market"`
	Competitive PhaseResult   `json:"competitive"`
	Behavioral  PhaseResult   `json:"behavioral"`
	Trends      PhaseResult   `json:"trends"`
	Predictive  PhaseResult   `json:"predictive"`
	Strategic   PhaseResult   `json:"strategic"`
}

// Phases returns the subsections in execution order.
func (k *ExpertKnowledge) Phases() []PhaseResult {
	return []PhaseResult{
		k.Structural, k.Market, k.Competitive, k.Behavioral,
		k.Trends, k.Predictive, k.Strategic,
	}
}

// CompleteCount reports how many phases finished.
func (k *ExpertKnowledge) CompleteCount() int {
	n := 0
	for _, p := range k.Phases() {
		if p.Complete {
			n++
		}
	}
	return n
}

type phaseSpec struct {
	name   string
	prompt string
}

// Runner executes the study phases through an opaque text generator.
type Runner struct {
	generator   llm.Generator
	phaseBudget time.Duration
}

// NewRunner builds a runner splitting totalMinutes evenly across the seven
// phases. totalMinutes <= 0 defaults to 5.
func NewRunner(generator llm.Generator, totalMinutes int) *Runner {
	if totalMinutes <= 0 {
		totalMinutes = 5
	}
	return &Runner{
		generator:   generator,
		phaseBudget: time.Duration(totalMinutes) * time.Minute / phaseCount,
	}
}

// Run executes the seven phases sequentially. A phase that times out or fails
// is marked incomplete; the study itself never returns an error.
func (r *Runner) Run(ctx context.Context, data *core.MassiveData) *ExpertKnowledge {
	knowledge := &ExpertKnowledge{
		SessionID: data.SessionID,
		Query:     data.Query,
		StartedAt: time.Now().UTC(),
	}

	summary := summarize(data)

	specs := []phaseSpec{
		{"structural", "Analise a estrutura do mercado descrito nos dados abaixo: cadeias, canais e segmentação.\n\n%s"},
		{"market", "Analise tamanho de mercado, faturamento e dinâmica de crescimento com base nos dados abaixo.\n\n%s"},
		{"competitive", "Identifique concorrentes, posicionamentos e vantagens competitivas presentes nos dados abaixo.\n\n%s"},
		{"behavioral", "Analise o comportamento do consumidor e os padrões de engajamento social dos dados abaixo.\n\n%s"},
		{"trends", "Liste e explique as tendências emergentes evidenciadas pelos dados abaixo.\n\n%s"},
		{"predictive", "Projete cenários prováveis para os próximos 12 meses com base nos dados abaixo.\n\n%s"},
		{"strategic", "Recomende ações estratégicas priorizadas com base em toda a análise dos dados abaixo.\n\n%s"},
	}

	results := make([]PhaseResult, len(specs))
	for i, spec := range specs {
		select {
		case <-ctx.Done():
			results[i] = PhaseResult{Name: spec.name, Error: "estudo cancelado", FinishedAt: time.Now().UTC()}
			continue
		default:
		}
		results[i] = r.runPhase(ctx, spec, summary, r.phaseBudget)
	}

	knowledge.Structural = results[0]
	knowledge.Market = results[1]
	knowledge.Competitive = results[2]
	knowledge.Behavioral = results[3]
	knowledge.Trends = results[4]
	knowledge.Predictive = results[5]
	knowledge.Strategic = results[6]
	knowledge.FinishedAt = time.Now().UTC()

	logger.Info("deep study finished", "session", data.SessionID,
		"complete_phases", knowledge.CompleteCount(), "total_phases", phaseCount)
	return knowledge
}

func (r *Runner) runPhase(ctx context.Context, spec phaseSpec, summary string, budget time.Duration) PhaseResult {
	started := time.Now()
	phaseCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	content, err := r.generator.GenerateText(phaseCtx, fmt.Sprintf(spec.prompt, summary), maxTokensPerPhase)
	elapsed := time.Since(started)

	result := PhaseResult{
		Name:        spec.name,
		ElapsedSecs: elapsed.Seconds(),
		FinishedAt:  time.Now().UTC(),
	}
	if err != nil {
		result.Error = err.Error()
		logger.Warn("study phase incomplete", "phase", spec.name, "error", err.Error())
		return result
	}
	result.Content = content
	result.Complete = true
	return result
}

// summarize flattens the artifact into the compact textual context every
// phase prompt shares.
func summarize(data *core.MassiveData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Consulta: %s\n", data.Query)
	if terms := data.Context.Terms(); len(terms) > 0 {
		fmt.Fprintf(&b, "Contexto: %s\n", strings.Join(terms, ", "))
	}
	fmt.Fprintf(&b, "Fontes: %d web, %d plataformas sociais, %d tópicos em alta\n\n",
		len(data.WebSearchData.Results), len(data.SocialMediaData.Platforms), len(data.TrendsData.Topics))

	if len(data.Research.TopInsights) > 0 {
		b.WriteString("Principais insights:\n")
		for _, insight := range limitLines(data.Research.TopInsights, 10) {
			fmt.Fprintf(&b, "- %s\n", insight)
		}
		b.WriteString("\n")
	}
	if len(data.TrendsData.Topics) > 0 {
		fmt.Fprintf(&b, "Tópicos em alta: %s\n\n", strings.Join(limitLines(data.TrendsData.Topics, 10), ", "))
	}
	if len(data.ViralContent) > 0 {
		b.WriteString("Conteúdo viral:\n")
		for i, item := range data.ViralContent {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "- [%s] %s (engajamento %.1f)\n",
				strings.ToUpper(string(item.Platform)), item.Title, item.EngagementScore)
		}
		b.WriteString("\n")
	}
	for i, page := range data.ExtractedContent {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&b, "Fonte %d (%s): %s\n\n", i+1, page.URL, truncate(page.ContentText, 1500))
	}
	return b.String()
}

func limitLines(lines []string, max int) []string {
	if len(lines) <= max {
		return lines
	}
	return lines[:max]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
