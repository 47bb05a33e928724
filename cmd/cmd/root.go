package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "garimpo",
	Short: "Garimpo coleta dados massivos de mercado e conteúdo viral em múltiplas fontes.",
	Long: `Garimpo orquestra buscas em provedores web, redes sociais e tendências,
extrai e pontua o conteúdo das páginas, identifica posts virais e captura
evidências visuais, consolidando tudo em um artefato de sessão com
relatório em Markdown.

As credenciais vêm de variáveis de ambiente (ou de um arquivo .env):
EXA_API_KEY, SERPER_API_KEY, GOOGLE_CSE_KEY, JINA_API_KEY, YOUTUBE_API_KEY,
APIFY_API_KEY, TWITTER_BEARER_TOKEN e TRENDS_MCP_KEY, com variantes
numeradas (_1, _2, ...) para rotação de chaves.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
