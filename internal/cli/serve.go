package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/yojana/internal/llm"
	"github.com/ppiankov/yojana/internal/pipeline"
	"github.com/ppiankov/yojana/internal/server"
	"github.com/ppiankov/yojana/internal/store"
)

var (
	serveAddr    string
	serveStore   string
	serveExplain bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored rules and matching over HTTP",
	Long: `Serve starts a JSON API over the rule store:
  GET  /health
  GET  /api/schemes
  GET  /api/schemes/{id}
  POST /api/match            body: profile (JSON, comments allowed)
       ?scheme=<id>          match a single scheme
       ?explain=true         add explanations (requires --explain)

Example:
  yojana serve
  yojana serve --addr 127.0.0.1:9090 --store ./rules`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&serveStore, "store", "", "rule store directory (default from config)")
	serveCmd.Flags().BoolVar(&serveExplain, "explain", false, "enable ?explain=true using the configured LLM provider")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if serveStore != "" {
		cfg.Store.Directory = serveStore
	}

	fs, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.NewPipeline(cfg, log)
	if serveExplain {
		explainer, err := llm.NewExplainer(ctx, llm.ConfigFromModel(cfg.LLM, cfg.HTTP), log)
		if err != nil {
			return fmt.Errorf("explainer: %w", err)
		}
		p.WithExplainer(explainer)
	}

	fmt.Fprintf(os.Stderr, "Serving %s on %s\n", fs.Dir(), cfg.Server.Addr)
	return server.New(fs, p, log).Run(ctx, cfg.Server)
}
