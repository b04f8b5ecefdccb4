// Package pipeline wires discovery, loading, validation, scoring and rendering
// into one evaluation run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/planeval/internal/dataset"
	"github.com/ppiankov/planeval/internal/lemma"
	"github.com/ppiankov/planeval/internal/llm"
	"github.com/ppiankov/planeval/internal/match"
	"github.com/ppiankov/planeval/internal/model"
	"github.com/ppiankov/planeval/internal/score"
	"github.com/ppiankov/planeval/internal/validate"
	"github.com/ppiankov/planeval/internal/worker"
)

// ReportSaver persists reports. store.MongoStore satisfies it.
type ReportSaver interface {
	SaveReport(ctx context.Context, report *model.Report) error
}

// Pipeline orchestrates the complete evaluation process
type Pipeline struct {
	config    *model.Config
	lemmas    *lemma.Normalizer
	scorer    *score.Scorer
	validator *validate.Validator
	renderer  *Renderer
	saver     ReportSaver
	llm       *llm.Lemmatizer
	closeFn   func() error
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(ctx context.Context, cfg *model.Config) (*Pipeline, error) {
	if _, err := model.ParseAggregationMode(string(cfg.Evaluation.Aggregation)); err != nil {
		return nil, err
	}
	consumption, err := model.ParseConsumptionMode(string(cfg.Evaluation.Consumption))
	if err != nil {
		return nil, err
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	lemmas, err := NewLemmatizer(ctx, cfg, limiter)
	if err != nil {
		return nil, fmt.Errorf("lemmatizer: %w", err)
	}

	p := NewPipelineWithLemmatizer(cfg, lemmas.Normalizer, consumption, lemmas.Close)
	p.llm = lemmas.LLM
	return p, nil
}

// NewPipelineWithLemmatizer creates a pipeline over an already built normalizer
func NewPipelineWithLemmatizer(cfg *model.Config, lemmas *lemma.Normalizer, consumption model.ConsumptionMode, closeFn func() error) *Pipeline {
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return &Pipeline{
		config:    cfg,
		lemmas:    lemmas,
		scorer:    score.NewScorer(match.NewMatcher(lemmas), consumption),
		validator: validate.NewValidator(0),
		renderer:  NewRenderer(cfg.Output.IncludeItems),
		closeFn:   closeFn,
	}
}

// SetSaver enables persistence of every evaluated report
func (p *Pipeline) SetSaver(saver ReportSaver) {
	p.saver = saver
}

// LemmatizerName returns the name of the active lemma backend
func (p *Pipeline) LemmatizerName() string {
	return p.lemmas.Name()
}

// LLMStats reports provider calls and fallbacks of the llm lemma backend.
// ok is false for the other backends.
func (p *Pipeline) LLMStats() (calls, fallbacks int64, ok bool) {
	if p.llm == nil {
		return 0, 0, false
	}
	calls, fallbacks = p.llm.Stats()
	return calls, fallbacks, true
}

// Close releases resources held by the lemmatizer
func (p *Pipeline) Close() error {
	return p.closeFn()
}

// EvaluateItems validates and scores items held in memory
func (p *Pipeline) EvaluateItems(items []model.Item, mode model.AggregationMode) (model.Result, error) {
	if err := p.validator.Validate(items); err != nil {
		return model.Result{}, err
	}
	return p.scorer.Aggregate(items, mode), nil
}

// EvaluateRun loads, validates and scores one run file
func (p *Pipeline) EvaluateRun(ctx context.Context, run dataset.Run) (*model.RunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items, err := dataset.LoadFile(run.Path, p.config.Evaluation.Limit)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", run.Key, err)
	}

	if p.config.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Evaluating %s (%d items)\n", run.Key, len(items))
	}

	result, err := p.EvaluateItems(items, p.config.Evaluation.Aggregation)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", run.Key, err)
	}

	if p.config.Output.Verbose {
		for _, sig := range result.Signals {
			fmt.Fprintf(os.Stderr, "  [%s] %s: %s\n", sig.Severity, run.Key, sig.Description)
		}
	}

	if !p.config.Output.IncludeItems {
		result.PerItem = nil
	}

	return &model.RunResult{
		Key:    run.Key,
		Source: run.Path,
		Result: result,
	}, nil
}

// EvaluateDir discovers every run under dir and evaluates them
func (p *Pipeline) EvaluateDir(ctx context.Context, dir string) (*model.Report, error) {
	runs, err := dataset.Discover(dir, p.config.Evaluation.Include)
	if err != nil {
		return nil, err
	}

	if p.config.Output.Verbose {
		fmt.Fprintf(os.Stderr, "Found %d runs in %s\n", len(runs), dir)
	}

	return p.EvaluateRuns(ctx, runs)
}

// EvaluateRuns scores runs concurrently and assembles the report.
// Any failed run fails the whole report.
func (p *Pipeline) EvaluateRuns(ctx context.Context, runs []dataset.Run) (*model.Report, error) {
	if len(runs) == 0 {
		return nil, model.ErrNoRuns
	}

	processor := worker.NewBatchProcessor(p, p.config.Concurrency.Workers)
	return p.buildReport(ctx, processor.ProcessRuns(ctx, runs))
}

// EvaluateListFile evaluates the run files listed in listPath, one path per line
func (p *Pipeline) EvaluateListFile(ctx context.Context, listPath string) (*model.Report, error) {
	processor := worker.NewBatchProcessor(p, p.config.Concurrency.Workers)
	outcomes, err := processor.ProcessFile(ctx, listPath)
	if err != nil {
		return nil, err
	}
	if len(outcomes) == 0 {
		return nil, model.ErrNoRuns
	}
	return p.buildReport(ctx, outcomes)
}

func (p *Pipeline) buildReport(ctx context.Context, outcomes []*worker.RunOutcome) (*model.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := p.newReport()
	var errs []error
	for _, outcome := range outcomes {
		if outcome.Error != nil {
			errs = append(errs, outcome.Error)
			continue
		}
		report.Runs = append(report.Runs, *outcome.Result)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if len(report.Runs) > 1 {
		report.Total = score.Total(report.Runs)
	}

	if p.config.Output.Verbose {
		if calls, fallbacks, ok := p.LLMStats(); ok {
			fmt.Fprintf(os.Stderr, "LLM lemmatizer: %d calls, %d fallbacks\n", calls, fallbacks)
		}
	}

	if p.saver != nil {
		if err := p.saver.SaveReport(ctx, report); err != nil {
			return report, fmt.Errorf("save report: %w", err)
		}
	}

	return report, nil
}

func (p *Pipeline) newReport() *model.Report {
	return &model.Report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Mode:        p.config.Evaluation.Aggregation,
		Consumption: p.scorer.Consumption(),
		Lemmatizer:  p.lemmas.Name(),
	}
}

// RenderReport writes the configured report files into dir and prints the summary
func (p *Pipeline) RenderReport(report *model.Report, dir string) ([]string, error) {
	written, err := p.renderer.RenderFiles(report, dir, p.config.Output)
	if err != nil {
		return written, err
	}

	if p.config.Output.Verbose {
		for _, path := range written {
			fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", path)
		}
	}

	p.renderer.RenderSummary(os.Stdout, report)
	return written, nil
}
