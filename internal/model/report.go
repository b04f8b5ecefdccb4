package model

import (
	"fmt"
	"time"
)

// Counts tallies matched, truth, and predicted totals at one level (actions or objects)
type Counts struct {
	Matched   int `json:"matched"`
	Truth     int `json:"truth"`
	Predicted int `json:"predicted"`
}

// Add returns the element-wise sum of two counts
func (c Counts) Add(o Counts) Counts {
	return Counts{
		Matched:   c.Matched + o.Matched,
		Truth:     c.Truth + o.Truth,
		Predicted: c.Predicted + o.Predicted,
	}
}

// Metrics derives precision, recall and F1 from the counts
func (c Counts) Metrics() Metrics {
	return NewMetrics(c.Matched, c.Truth, c.Predicted)
}

// Metrics holds precision, recall and F1 in the range [0, 1]
type Metrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// NewMetrics computes metrics with every division guarded: a zero denominator yields 0
func NewMetrics(matched, truth, predicted int) Metrics {
	var m Metrics
	if predicted > 0 {
		m.Precision = float64(matched) / float64(predicted)
	}
	if truth > 0 {
		m.Recall = float64(matched) / float64(truth)
	}
	m.F1 = F1(m.Precision, m.Recall)
	return m
}

// F1 is the harmonic mean of precision and recall, 0 when both are 0
func F1(precision, recall float64) float64 {
	if precision+recall <= 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}

// ItemResult is the scoring outcome for a single item
type ItemResult struct {
	Index   int      `json:"index"`
	ID      string   `json:"id,omitempty"`
	Skipped bool     `json:"skipped,omitempty"`
	Actions Counts   `json:"actions"`
	Objects Counts   `json:"objects"`
	Signals []Signal `json:"signals,omitempty"`
}

// Result is the aggregate scoring outcome for a collection of items
type Result struct {
	Mode          AggregationMode `json:"mode"`
	Items         int             `json:"items"`
	Skipped       int             `json:"skipped"`
	Actions       Counts          `json:"actions"`
	Objects       Counts          `json:"objects"`
	ActionMetrics Metrics         `json:"action_metrics"`
	ObjectMetrics Metrics         `json:"object_metrics"`
	Signals       []Signal        `json:"signals,omitempty"`
	PerItem       []ItemResult    `json:"per_item,omitempty"`
}

// Signal is a diagnostic notice with transparent data
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// SignalType classifies the diagnostic signal
type SignalType string

const (
	SignalMissingPrediction SignalType = "missing_prediction" // Item had no predicted actions
	SignalTotalsUndefined   SignalType = "totals_undefined"   // Precision and recall both zero
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// RunKey identifies one evaluated prediction set
type RunKey struct {
	Dataset string `json:"dataset" bson:"dataset"`
	Solver  string `json:"solver" bson:"solver"`
	Model   string `json:"model" bson:"model"`
}

func (k RunKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Dataset, k.Solver, k.Model)
}

// RunResult pairs a run with its aggregate result
type RunResult struct {
	Key    RunKey `json:"key"`
	Source string `json:"source,omitempty"`
	Result Result `json:"result"`
}

// Report is the output of one evaluation invocation over many runs
type Report struct {
	RunID       string          `json:"run_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Mode        AggregationMode `json:"mode"`
	Consumption ConsumptionMode `json:"consumption"`
	Lemmatizer  string          `json:"lemmatizer"`
	Runs        []RunResult     `json:"runs"`
	Total       *Result         `json:"total,omitempty"` // micro totals across runs, set when there are several
}
