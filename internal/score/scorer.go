// Package score turns alignments into per-item counts and corpus metrics.
package score

import "github.com/ppiankov/planeval/internal/model"

// Aligner is the action-level alignment the scorer depends on
type Aligner interface {
	TryMatch(action model.GroundTruthAction, prediction model.PredictedAction, item model.Item) (bool, model.Counts)
}

// Scorer scores items and aggregates results. It holds no per-item state,
// so one Scorer may be shared by goroutines scoring different items.
type Scorer struct {
	aligner     Aligner
	consumption model.ConsumptionMode
}

// NewScorer creates a scorer over the given aligner
func NewScorer(aligner Aligner, consumption model.ConsumptionMode) *Scorer {
	if consumption == "" {
		consumption = model.ConsumeOrdered
	}
	return &Scorer{
		aligner:     aligner,
		consumption: consumption,
	}
}

// Consumption returns the configured consumption mode
func (s *Scorer) Consumption() model.ConsumptionMode {
	return s.consumption
}
