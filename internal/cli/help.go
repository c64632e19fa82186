package cli

import (
	"embed"
	"io/fs"
	"os"

	"github.com/arthur-debert/envdeploy/pkg/cobrax/topics"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

//go:embed help/*.md
var helpFiles embed.FS

// installHelpTopics replaces the default help command with one that also
// serves the embedded topics. Markdown is styled only on a terminal.
func installHelpTopics(rootCmd *cobra.Command) {
	sub, err := fs.Sub(helpFiles, "help")
	if err != nil {
		log.Warn().Err(err).Msg("Help topics unavailable")
		return
	}

	var renderer topics.Renderer = &topics.PlainRenderer{}
	if isatty.IsTerminal(os.Stdout.Fd()) && os.Getenv("NO_COLOR") == "" {
		renderer = topics.NewGlamourRenderer()
	}

	if _, err := topics.InitializeWithOptions(rootCmd, sub, topics.Options{Renderer: renderer}); err != nil {
		log.Warn().Err(err).Msg("Help topics unavailable")
	}
}
