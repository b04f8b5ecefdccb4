package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/planeval/internal/pipeline"
	"github.com/ppiankov/planeval/internal/store"
)

var (
	runsMongoURI string
	runsJSON     bool
)

// runsCmd shows a stored evaluation
var runsCmd = &cobra.Command{
	Use:   "runs <run-id>",
	Short: "Show an evaluation stored in MongoDB",
	Long: `Runs loads the scored runs saved under a run id (the run_id field of the
JSON report written by "planeval evaluate --mongo-uri ...") and prints the
summary again.

Example:
  planeval runs 3f2a9c1e-... --mongo-uri mongodb://localhost:27017
  planeval runs 3f2a9c1e-... --json`,
	Args: cobra.ExactArgs(1),
	RunE: runRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().StringVar(&runsMongoURI, "mongo-uri", "", "MongoDB URI (default: store.mongo_uri from config)")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "print the report as JSON")
}

func runRuns(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runsMongoURI != "" {
		cfg.Store.MongoURI = runsMongoURI
	}
	if cfg.Store.MongoURI == "" {
		return fmt.Errorf("--mongo-uri or store.mongo_uri is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := store.NewMongoStore(ctx, cfg.Store.MongoURI, cfg.Store.Database, cfg.Store.Collection)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close(context.Background()) }()

	docs, err := s.FindRuns(ctx, args[0])
	if err != nil {
		return err
	}

	report := store.ReportFromDocuments(docs)
	if report == nil {
		return fmt.Errorf("no runs stored under %s", args[0])
	}

	if runsJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	pipeline.NewRenderer(false).RenderSummary(os.Stdout, report)
	return nil
}
