package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"garimpo/internal/config"
	"garimpo/internal/core"
	"garimpo/internal/report"
	"garimpo/internal/session"
)

var (
	reportSessionID string
	reportStdout    bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Regenera o relatório Markdown a partir do artefato de uma sessão.",
	Long: `Lê o massive_data.json de uma sessão já coletada e regenera
relatorio_coleta.md e relatorio_incorporacao.txt. A renderização é uma
função pura do artefato, então o resultado é estável byte a byte.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportSessionID == "" {
			return fmt.Errorf("--session-id é obrigatório")
		}
		return runReport()
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportSessionID, "session-id", "", "sessão a regenerar (obrigatório)")
	reportCmd.Flags().BoolVar(&reportStdout, "stdout", false, "imprime o relatório em vez de gravar no disco")
	rootCmd.AddCommand(reportCmd)
}

func runReport() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuração inválida: %w", err)
	}

	paths, err := session.New(cfg.Paths.SessionsRoot, cfg.Paths.ImagesRoot, session.SanitizeID(reportSessionID))
	if err != nil {
		return err
	}

	payload, err := os.ReadFile(paths.ArtifactPath())
	if err != nil {
		return fmt.Errorf("artefato da sessão não encontrado: %w", err)
	}
	var data core.MassiveData
	if err := json.Unmarshal(payload, &data); err != nil {
		return fmt.Errorf("artefato inválido: %w", err)
	}

	rendered := report.Render(&data)
	if reportStdout {
		_, err = os.Stdout.Write(rendered)
		return err
	}

	if err := os.WriteFile(paths.ReportPath(), rendered, 0o644); err != nil {
		return err
	}
	if err := os.WriteFile(paths.IncorporationPath(), []byte(report.Incorporation(&data)), 0o644); err != nil {
		return err
	}
	fmt.Printf("Relatório regenerado em %s\n", paths.ReportPath())
	return nil
}
