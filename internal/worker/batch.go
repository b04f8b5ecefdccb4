package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/planeval/internal/dataset"
	"github.com/ppiankov/planeval/internal/model"
)

// Evaluator scores one run
type Evaluator interface {
	EvaluateRun(ctx context.Context, run dataset.Run) (*model.RunResult, error)
}

// EvaluateJob represents one run scoring job
type EvaluateJob struct {
	Index     int
	Run       dataset.Run
	Evaluator Evaluator
}

// Execute scores the run
func (j *EvaluateJob) Execute(ctx context.Context) Result {
	start := time.Now()
	outcome := &RunOutcome{Index: j.Index, Run: j.Run}

	if err := ctx.Err(); err != nil {
		outcome.Error = err
		return outcome
	}

	result, err := j.Evaluator.EvaluateRun(ctx, j.Run)
	outcome.Result = result
	outcome.Error = err
	outcome.Duration = time.Since(start)
	return outcome
}

// RunOutcome is the result of an evaluate job
type RunOutcome struct {
	Index    int
	Run      dataset.Run
	Result   *model.RunResult
	Error    error
	Duration time.Duration
}

// GetError returns the error from the outcome
func (r *RunOutcome) GetError() error {
	return r.Error
}

// BatchProcessor scores many runs concurrently
type BatchProcessor struct {
	evaluator   Evaluator
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(evaluator Evaluator, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		evaluator:   evaluator,
		concurrency: concurrency,
	}
}

// ProcessRuns scores every run and returns the outcomes in input order
func (b *BatchProcessor) ProcessRuns(ctx context.Context, runs []dataset.Run) []*RunOutcome {
	if len(runs) == 0 {
		return []*RunOutcome{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for i, run := range runs {
		pool.Submit(&EvaluateJob{
			Index:     i,
			Run:       run,
			Evaluator: b.evaluator,
		})
	}

	results := pool.Wait()

	outcomes := make([]*RunOutcome, 0, len(results))
	for _, result := range results {
		outcomes = append(outcomes, result.(*RunOutcome))
	}
	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].Index < outcomes[j].Index
	})

	return outcomes
}

// ProcessFile reads run file paths from a list file and scores them
func (b *BatchProcessor) ProcessFile(ctx context.Context, listPath string) ([]*RunOutcome, error) {
	paths, err := ReadPathsFromFile(listPath)
	if err != nil {
		return nil, fmt.Errorf("read run list: %w", err)
	}

	runs := make([]dataset.Run, 0, len(paths))
	for _, path := range paths {
		key, err := dataset.ParseRunKey(path)
		if err != nil {
			return nil, err
		}
		runs = append(runs, dataset.Run{Key: key, Path: path})
	}

	return b.ProcessRuns(ctx, runs), nil
}

// ReadPathsFromFile reads paths from a file, one per line.
// Blank lines and # comments are skipped and duplicates dropped.
func ReadPathsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
