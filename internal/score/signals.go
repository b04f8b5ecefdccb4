package score

import (
	"fmt"

	"github.com/ppiankov/planeval/internal/model"
)

func missingPredictionSignal(index int, item model.Item) model.Signal {
	return model.Signal{
		Type:        model.SignalMissingPrediction,
		Severity:    model.SeverityWarning,
		Description: fmt.Sprintf("No predictions found for %s", item.Label(index)),
		Data: map[string]interface{}{
			"item":          index,
			"id":            item.ID,
			"truth_actions": len(item.Actions),
		},
	}
}

func totalsUndefinedSignal(result model.Result) model.Signal {
	return model.Signal{
		Type:        model.SignalTotalsUndefined,
		Severity:    model.SeverityWarning,
		Description: "Zero precision and recall",
		Data: map[string]interface{}{
			"matched":   result.Actions.Matched,
			"truth":     result.Actions.Truth,
			"predicted": result.Actions.Predicted,
			"skipped":   result.Skipped,
			"formula":   "precision = matched / predicted, recall = matched / truth, 0 when the denominator is 0",
		},
	}
}
