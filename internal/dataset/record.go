// Package dataset loads annotated items with model predictions from run files.
package dataset

import (
	"fmt"

	"github.com/ppiankov/planeval/internal/model"
)

// record is the on-disk shape of one item
type record struct {
	ID    string      `json:"id,omitempty" yaml:"id,omitempty"`
	Words []string    `json:"words" yaml:"words"`
	Acts  []actRecord `json:"acts" yaml:"acts"`
	Pred  predField   `json:"pred" yaml:"pred"`
}

// actRecord is the on-disk shape of one ground-truth action.
// obj_idxs holds the required group first and the alternative group second.
type actRecord struct {
	ActIdx      *int    `json:"act_idx" yaml:"act_idx"`
	ObjIdxs     [][]int `json:"obj_idxs" yaml:"obj_idxs"`
	ActType     int     `json:"act_type" yaml:"act_type"`
	RelatedActs []int   `json:"related_acts" yaml:"related_acts"`
}

// predRecord is the on-disk shape of one predicted action
type predRecord struct {
	Verb      *string  `json:"verb" yaml:"verb"`
	Arguments []string `json:"arguments" yaml:"arguments"`
}

func (r record) item() (model.Item, error) {
	item := model.Item{
		ID:          r.ID,
		Words:       r.Words,
		Predictions: r.Pred.actions,
	}

	if r.Acts != nil {
		item.Actions = make([]model.GroundTruthAction, 0, len(r.Acts))
	}
	for i, act := range r.Acts {
		a, err := act.action()
		if err != nil {
			return model.Item{}, fmt.Errorf("act %d: %w", i, err)
		}
		item.Actions = append(item.Actions, a)
	}

	return item, nil
}

func (a actRecord) action() (model.GroundTruthAction, error) {
	if len(a.ObjIdxs) > 2 {
		return model.GroundTruthAction{}, fmt.Errorf("%w: obj_idxs has %d groups, want at most 2", model.ErrMalformedRecord, len(a.ObjIdxs))
	}

	action := model.GroundTruthAction{
		TriggerIndex:   -1,
		Kind:           model.ActionKind(a.ActType),
		ExclusionGroup: a.RelatedActs,
	}
	if a.ActIdx != nil {
		action.TriggerIndex = *a.ActIdx
	}
	if len(a.ObjIdxs) > 0 {
		action.RequiredObjects = a.ObjIdxs[0]
	}
	if len(a.ObjIdxs) > 1 {
		action.AlternativeObjects = a.ObjIdxs[1]
	}

	return action, nil
}

func toPredicted(records []predRecord) []model.PredictedAction {
	actions := make([]model.PredictedAction, 0, len(records))
	for _, r := range records {
		actions = append(actions, model.PredictedAction{
			Trigger:   r.Verb,
			Arguments: r.Arguments,
		})
	}
	return actions
}
