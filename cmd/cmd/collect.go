package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"garimpo/internal/capture"
	"garimpo/internal/collector"
	"garimpo/internal/config"
	"garimpo/internal/core"
	"garimpo/internal/discovery"
	"garimpo/internal/extractor"
	"garimpo/internal/keypool"
	"garimpo/internal/llm"
	"garimpo/internal/logger"
	"garimpo/internal/providers"
	"garimpo/internal/research"
	"garimpo/internal/session"
	"garimpo/internal/study"
)

var (
	collectQuery     string
	collectSegment   string
	collectProduct   string
	collectAudience  string
	collectSessionID string
	collectStudy     bool
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Executa uma coleta completa e grava os artefatos da sessão.",
	Long: `Executa as fases de coleta (web, social, tendências, pesquisa profunda,
descoberta viral e captura visual) para a consulta informada e grava
massive_data.json, relatorio_coleta.md e relatorio_incorporacao.txt no
diretório da sessão.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(collectQuery) == "" {
			return fmt.Errorf("--query é obrigatória")
		}
		return runCollect(cmd.Context())
	},
}

func init() {
	collectCmd.Flags().StringVarP(&collectQuery, "query", "q", "", "consulta de coleta (obrigatória)")
	collectCmd.Flags().StringVar(&collectSegment, "segment", "", "segmento de mercado (contexto)")
	collectCmd.Flags().StringVar(&collectProduct, "product", "", "produto de interesse (contexto)")
	collectCmd.Flags().StringVar(&collectAudience, "audience", "", "público-alvo (contexto)")
	collectCmd.Flags().StringVar(&collectSessionID, "session-id", "", "identificador da sessão (gerado quando ausente)")
	collectCmd.Flags().BoolVar(&collectStudy, "study", false, "força o estudo profundo ao final da coleta")
	rootCmd.AddCommand(collectCmd)
}

func runCollect(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuração inválida: %w", err)
	}

	sessionID := collectSessionID
	if sessionID == "" {
		sessionID = session.NewID()
	}
	paths, err := session.New(cfg.Paths.SessionsRoot, cfg.Paths.ImagesRoot, session.SanitizeID(sessionID))
	if err != nil {
		return fmt.Errorf("não foi possível preparar a sessão: %w", err)
	}

	coll, reg := buildCollector(cfg, paths)
	logger.Info("providers available", "providers", strings.Join(reg.Available(), ","))

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr)
	}

	runCtx := core.RunContext{
		Segment:  collectSegment,
		Product:  collectProduct,
		Audience: collectAudience,
	}

	data, err := coll.Collect(ctx, collectQuery, runCtx)
	if err != nil {
		return fmt.Errorf("falha ao persistir a coleta: %w", err)
	}

	printSummary(data, paths)

	if cfg.Features.EnableDeepStudy || collectStudy {
		if err := runStudy(ctx, cfg, paths, data); err != nil {
			logger.Error("deep study skipped", err)
		}
	}
	return nil
}

// buildCollector wires the full pipeline over one key pool. Every provider
// client registers regardless of credentials; the registry filters the keyed
// ones without keys at dispatch time.
func buildCollector(cfg *config.Config, paths *session.Paths) (*collector.Collector, *providers.Registry) {
	pool := keypool.New(cfg.Providers.Keys, cfg.Tuning.KeyCooldown)
	reg := providers.NewRegistry(pool)

	jina := providers.NewJinaClient(pool)

	// Web engines first, in aggregation priority order.
	reg.Register(providers.NewExaClient(pool), 1)
	reg.Register(providers.NewGoogleCSEClient(pool), 1)
	reg.Register(providers.NewSerperClient(pool), 1)
	reg.Register(jina, 0.5)
	reg.Register(providers.NewBingScrapeClient(), 0.2)

	// Social and trends providers.
	reg.Register(providers.NewYouTubeClient(pool), 1)
	reg.Register(providers.NewApifyClient(pool), 0.5)
	reg.Register(providers.NewTwitterClient(pool), 0.5)
	reg.Register(providers.NewTrendsClient(pool), 0.5)

	var reader extractor.ReaderClient
	if len(cfg.Providers.Keys["jina"]) > 0 {
		reader = jina
	}
	httpSession := extractor.NewSession(20 * time.Second)
	ex := extractor.New(httpSession, reader)
	researcher := research.New(reg, ex, httpSession, cfg.Tuning.MaxPages, cfg.Tuning.DepthLevels)
	if cfg.AI.GeminiAPIKey != "" {
		if gen, err := llm.NewClient(cfg.AI.Model); err == nil {
			researcher.AttachGenerator(gen)
		} else {
			logger.Warn("LLM query expansion disabled", "error", err.Error())
		}
	}

	var capturer *capture.Capturer
	if cfg.Features.EnableScreenshots {
		capturer = capture.NewCapturer(paths)
	}
	var downloader *capture.Downloader
	if cfg.Features.EnableImageDownloads {
		downloader = capture.NewDownloader(paths, cfg.Tuning.MinImageBytes)
	}
	discoverer := discovery.New(reg, nil, downloader, capturer, discovery.Options{
		MaxPerPlatform:   cfg.Tuning.MaxImagesPerPlatform,
		DisableFallbacks: cfg.Features.DisableFallbacks,
	})

	return collector.New(cfg, pool, reg, researcher, discoverer, capturer, paths), reg
}

// runStudy executes the seven-phase expert study over the fresh artifact and
// stores the result beside the other session modules.
func runStudy(ctx context.Context, cfg *config.Config, paths *session.Paths, data *core.MassiveData) error {
	client, err := llm.NewClient(cfg.AI.Model)
	if err != nil {
		return err
	}

	runner := study.NewRunner(client, cfg.Tuning.StudyMinutes)
	knowledge := runner.Run(ctx, data)

	payload, err := json.MarshalIndent(knowledge, "", "  ")
	if err != nil {
		return err
	}
	out := filepath.Join(paths.ModulesDir(), "conhecimento_especialista.json")
	if err := os.WriteFile(out, payload, 0o644); err != nil {
		return err
	}
	fmt.Printf("Estudo profundo: %d/7 fases concluídas → %s\n", knowledge.CompleteCount(), out)
	return nil
}

// serveMetrics exposes the Prometheus counters for the lifetime of the run.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("metrics endpoint stopped", err, "addr", addr)
	}
}

func printSummary(data *core.MassiveData, paths *session.Paths) {
	fmt.Printf("Sessão %s concluída em %.1fs\n",
		data.SessionID, data.Statistics.CollectionTimeSeconds)
	if data.EmergencyMode {
		fmt.Printf("⚠️  Modo de emergência: %s\n", data.EmergencyReason)
	}
	fmt.Printf("Fontes: %d (web=%d social=%d youtube=%d trends=%d)\n",
		data.Statistics.TotalSources,
		data.Statistics.SourcesByType["web"],
		data.Statistics.SourcesByType["social"],
		data.Statistics.SourcesByType["youtube"],
		data.Statistics.SourcesByType["trends"])
	fmt.Printf("Páginas extraídas: %d | Conteúdo viral: %d | Screenshots: %d\n",
		len(data.ExtractedContent), len(data.ViralContent), len(data.ScreenshotsCaptured))
	fmt.Printf("Artefatos em %s\n", paths.Dir())
}
