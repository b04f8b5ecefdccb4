package score

import "github.com/ppiankov/planeval/internal/model"

// Aggregate scores every item and derives corpus metrics in the given mode.
//
// Micro mode sums counts first and derives metrics once. Macro mode derives
// metrics per scored item and averages them. Skipped items contribute nothing
// in either mode.
func (s *Scorer) Aggregate(items []model.Item, mode model.AggregationMode) model.Result {
	if mode == "" {
		mode = model.ModeMicro
	}

	result := model.Result{
		Mode:  mode,
		Items: len(items),
	}

	var actionSum, objectSum model.Metrics
	scored := 0

	for i, item := range items {
		ir := s.ScoreItem(i, item)
		result.PerItem = append(result.PerItem, ir)

		if ir.Skipped {
			result.Skipped++
			result.Signals = append(result.Signals, ir.Signals...)
			continue
		}

		scored++
		result.Actions = result.Actions.Add(ir.Actions)
		result.Objects = result.Objects.Add(ir.Objects)

		actionSum = addMetrics(actionSum, ir.Actions.Metrics())
		objectSum = addMetrics(objectSum, ir.Objects.Metrics())
	}

	switch mode {
	case model.ModeMacro:
		result.ActionMetrics = meanMetrics(actionSum, scored)
		result.ObjectMetrics = meanMetrics(objectSum, scored)
	default:
		result.ActionMetrics = result.Actions.Metrics()
		result.ObjectMetrics = result.Objects.Metrics()
	}

	if result.ActionMetrics.Precision == 0 && result.ActionMetrics.Recall == 0 {
		result.Signals = append(result.Signals, totalsUndefinedSignal(result))
	}

	return result
}

func addMetrics(a, b model.Metrics) model.Metrics {
	return model.Metrics{
		Precision: a.Precision + b.Precision,
		Recall:    a.Recall + b.Recall,
		F1:        a.F1 + b.F1,
	}
}

func meanMetrics(sum model.Metrics, n int) model.Metrics {
	if n == 0 {
		return model.Metrics{}
	}
	return model.Metrics{
		Precision: sum.Precision / float64(n),
		Recall:    sum.Recall / float64(n),
		F1:        sum.F1 / float64(n),
	}
}

// Merge combines results scored independently in micro mode, e.g. shards of one corpus.
// Counts add commutatively, so the order of parts does not matter.
func Merge(parts ...model.Result) model.Result {
	merged := model.Result{Mode: model.ModeMicro}
	for _, p := range parts {
		merged.Items += p.Items
		merged.Skipped += p.Skipped
		merged.Actions = merged.Actions.Add(p.Actions)
		merged.Objects = merged.Objects.Add(p.Objects)
		merged.Signals = append(merged.Signals, p.Signals...)
		merged.PerItem = append(merged.PerItem, p.PerItem...)
	}
	merged.ActionMetrics = merged.Actions.Metrics()
	merged.ObjectMetrics = merged.Objects.Metrics()
	return merged
}

// Total merges every run of a report into one corpus-wide row. Signals and per-item
// results stay with their runs.
func Total(runs []model.RunResult) *model.Result {
	parts := make([]model.Result, 0, len(runs))
	for _, run := range runs {
		parts = append(parts, run.Result)
	}
	total := Merge(parts...)
	total.Signals = nil
	total.PerItem = nil
	return &total
}
