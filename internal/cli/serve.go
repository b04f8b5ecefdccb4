package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/planeval/internal/pipeline"
	"github.com/ppiankov/planeval/internal/server"
)

var (
	serveScoring scoringFlags
	serveAddr    string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scoring API over HTTP",
	Long: `Serve exposes scoring as an HTTP API:

  POST /v1/score   {"mode": "micro", "include_items": false, "items": [...]}
  GET  /health

Items use the same record layout as run files.

Example:
  planeval serve --addr :8080
  planeval serve --lemma none --consumption unordered`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveScoring.register(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := serveScoring.apply(cmd, cfg); err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.NewPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Lemmatizer:  %s\n", p.LemmatizerName())
		fmt.Fprintf(os.Stderr, "Consumption: %s\n", cfg.Evaluation.Consumption)
	}

	return server.NewServer(p, cfg.Server).ListenAndServe(ctx)
}
