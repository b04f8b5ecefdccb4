package match

import "github.com/ppiankov/planeval/internal/model"

// TryMatch aligns one ground-truth action against one predicted action.
//
// A trigger mismatch short-circuits: arguments earn no credit under the wrong
// verb. On a trigger match the returned counts are the object-level alignment.
func (m *Matcher) TryMatch(action model.GroundTruthAction, prediction model.PredictedAction, item model.Item) (bool, model.Counts) {
	if !prediction.HasTrigger() {
		return false, model.Counts{}
	}

	if !m.Matches(item.Word(action.TriggerIndex), prediction.TriggerText()) {
		return false, model.Counts{}
	}

	required := item.WordsAt(action.RequiredObjects)
	alternatives := item.WordsAt(action.AlternativeObjects)

	return true, m.AlignArguments(required, prediction.Arguments, alternatives)
}
