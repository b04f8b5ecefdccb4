package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ppiankov/planeval/internal/dataset"
	"github.com/ppiankov/planeval/internal/model"
	"github.com/ppiankov/planeval/internal/pipeline"
	"github.com/ppiankov/planeval/internal/store"
)

var (
	evalScoring   scoringFlags
	workers       int
	outputDir     string
	runsFile      string
	includes      []string
	limit         int
	includeItems  bool
	writeMarkdown bool
	noJSON        bool
	mongoURI      string
	evalTimeout   time.Duration
	watch         bool
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate [results-dir]",
	Short: "Score every prediction run in a results directory",
	Long: `Evaluate discovers run files in the results directory, scores each one
against its ground truth and writes evaluation_result.csv (and .json/.md)
into the output directory.

Run files are named dataset_solver[_model].ext; everything after the first
dot is ignored. A missing model part is reported as "none".

Example:
  planeval evaluate ./results
  planeval evaluate ./results --mode macro --consumption unordered
  planeval evaluate ./results --lemma llm --llm-provider ollama --llm-model llama3
  planeval evaluate --runs-file runs.txt --output-dir ./reports
  planeval evaluate ./results --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evalScoring.register(evaluateCmd)

	evaluateCmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "number of runs scored concurrently")
	evaluateCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "output directory for reports (default: results dir)")
	evaluateCmd.Flags().StringVar(&runsFile, "runs-file", "", "file listing run paths, one per line, instead of a results dir")
	evaluateCmd.Flags().StringSliceVar(&includes, "include", nil, "glob patterns of run files, relative to the results dir")
	evaluateCmd.Flags().IntVar(&limit, "limit", 0, "score only the first N items of each run (0 = all)")
	evaluateCmd.Flags().BoolVar(&includeItems, "items", false, "include per-item results in the JSON report")
	evaluateCmd.Flags().BoolVar(&writeMarkdown, "md", false, "also write a Markdown report")
	evaluateCmd.Flags().BoolVar(&noJSON, "no-json", false, "skip the JSON report")
	evaluateCmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "MongoDB URI to store results in")
	evaluateCmd.Flags().DurationVar(&evalTimeout, "timeout", 30*time.Minute, "overall evaluation timeout")
	evaluateCmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-evaluate whenever a run file changes")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && runsFile == "" {
		return fmt.Errorf("either a results dir or --runs-file is required")
	}
	if watch && runsFile != "" {
		return fmt.Errorf("--watch needs a results dir")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := evalScoring.apply(cmd, cfg); err != nil {
		return err
	}

	if cmd.Flags().Changed("workers") || cfg.Concurrency.Workers <= 0 {
		cfg.Concurrency.Workers = workers
	}
	if len(includes) > 0 {
		cfg.Evaluation.Include = includes
	}
	if cmd.Flags().Changed("limit") {
		cfg.Evaluation.Limit = limit
	}
	cfg.Output.IncludeItems = cfg.Output.IncludeItems || includeItems
	cfg.Output.Markdown = cfg.Output.Markdown || writeMarkdown
	if noJSON {
		cfg.Output.JSON = false
	}
	if mongoURI != "" {
		cfg.Store.MongoURI = mongoURI
	}

	dir := ""
	if len(args) > 0 {
		dir = args[0]
	}
	out := outputDir
	if out == "" {
		out = cfg.Output.Dir
	}
	if out == "" {
		out = dir
	}
	if out == "" {
		out = "."
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if cfg.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Aggregation: %s\n", cfg.Evaluation.Aggregation)
		fmt.Fprintf(os.Stderr, "Consumption: %s\n", cfg.Evaluation.Consumption)
		fmt.Fprintf(os.Stderr, "Lemma:       %s (cache: %v)\n", cfg.Lemma.Backend, cfg.Lemma.Cache)
		fmt.Fprintf(os.Stderr, "Workers:     %d\n", cfg.Concurrency.Workers)
		fmt.Fprintln(os.Stderr)
	}

	p, err := pipeline.NewPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	if cfg.Store.MongoURI != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		s, err := store.NewMongoStore(connectCtx, cfg.Store.MongoURI, cfg.Store.Database, cfg.Store.Collection)
		cancel()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close(context.Background()) }()
		p.SetSaver(s)
	}

	evaluate := func() error {
		runCtx, cancel := context.WithTimeout(ctx, evalTimeout)
		defer cancel()

		var report *model.Report
		var err error
		if runsFile != "" {
			report, err = p.EvaluateListFile(runCtx, runsFile)
		} else {
			report, err = p.EvaluateDir(runCtx, dir)
		}
		if err != nil {
			return fmt.Errorf("evaluation failed: %w", err)
		}

		if _, err := p.RenderReport(report, out); err != nil {
			return fmt.Errorf("render failed: %w", err)
		}
		return nil
	}

	if err := evaluate(); err != nil {
		if !watch {
			return err
		}
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
	}

	if !watch {
		return nil
	}
	return watchDir(ctx, dir, evaluate)
}

// watchDir re-runs evaluate after run files under dir change. Bursts of events are
// coalesced, and rendered reports do not trigger a new evaluation.
func watchDir(ctx context.Context, dir string, evaluate func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	fmt.Fprintf(os.Stderr, "Watching %s for changes (Ctrl+C to stop)\n", dir)

	const settle = 500 * time.Millisecond
	timer := time.NewTimer(settle)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isRunEvent(event) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if st, err := os.Stat(event.Name); err == nil && st.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			timer.Reset(settle)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Warning: watcher: %v\n", err)

		case <-timer.C:
			fmt.Fprintf(os.Stderr, "\n⚙️  Change detected, re-evaluating...\n")
			if err := evaluate(); err != nil {
				fmt.Fprintf(os.Stderr, "✗ %v\n", err)
			}
		}
	}
}

func isRunEvent(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return !strings.HasPrefix(filepath.Base(event.Name), dataset.ReportBaseName+".")
}
