package score

import "github.com/ppiankov/planeval/internal/model"

// ScoreItem aligns every ground-truth action of item, in order, against its predictions.
//
// Truth totals follow the action kind: required actions always count,
// conditional actions count only when matched, and an exclusivity clique
// counts once for the first member seen. Every counted clique is one credit;
// an exclusive action may only match by spending an unspent credit its clique
// overlaps, so exclusive matches never outnumber exclusive truth, even when
// related_acts are not listed in both directions.
func (s *Scorer) ScoreItem(index int, item model.Item) model.ItemResult {
	result := model.ItemResult{
		Index: index,
		ID:    item.ID,
	}

	if len(item.Predictions) == 0 {
		result.Skipped = true
		result.Signals = append(result.Signals, missingPredictionSignal(index, item))
		return result
	}

	state := newItemState(len(item.Predictions), s.consumption)

	for _, action := range item.Actions {
		var clique []int
		if action.Kind == model.KindExclusive {
			clique = action.Clique()
		}

		switch action.Kind {
		case model.KindRequired:
			result.Actions.Truth++
		case model.KindExclusive:
			if state.counted.disjoint(clique) {
				result.Actions.Truth++
				state.counted.add(clique...)
				state.credits = append(state.credits, &cliqueCredit{members: newIndexSet(clique)})
			}
		}

		var credit *cliqueCredit
		if action.Kind == model.KindExclusive {
			if credit = state.openCredit(clique); credit == nil {
				continue
			}
		}

		j, objects, ok := s.findMatch(action, item, state)
		if !ok {
			continue
		}

		if action.Kind == model.KindConditional {
			result.Actions.Truth++
		}
		if credit != nil {
			credit.spent = true
		}
		result.Actions.Matched++
		state.consume(j)
		result.Objects = result.Objects.Add(objects)
	}

	result.Actions.Predicted = len(item.Predictions)

	return result
}

// findMatch returns the first available prediction matching action
func (s *Scorer) findMatch(action model.GroundTruthAction, item model.Item, state *itemState) (int, model.Counts, bool) {
	for j := state.first(); j < len(item.Predictions); j++ {
		if !state.available(j) {
			continue
		}
		if ok, objects := s.aligner.TryMatch(action, item.Predictions[j], item); ok {
			return j, objects, true
		}
	}
	return -1, model.Counts{}, false
}

// itemState is the per-item alignment state. It is discarded after each item.
type itemState struct {
	consumption model.ConsumptionMode
	pointer     int    // ordered: predictions before pointer are consumed
	used        []bool // unordered: consumed predictions
	counted     indexSet
	credits     []*cliqueCredit
}

func newItemState(predictions int, consumption model.ConsumptionMode) *itemState {
	st := &itemState{
		consumption: consumption,
		counted:     indexSet{},
	}
	if consumption == model.ConsumeUnordered {
		st.used = make([]bool, predictions)
	}
	return st
}

func (st *itemState) first() int {
	if st.consumption == model.ConsumeUnordered {
		return 0
	}
	return st.pointer
}

func (st *itemState) available(j int) bool {
	if st.consumption == model.ConsumeUnordered {
		return !st.used[j]
	}
	return j >= st.pointer
}

func (st *itemState) consume(j int) {
	if st.consumption == model.ConsumeUnordered {
		st.used[j] = true
		return
	}
	st.pointer = j + 1
}

// cliqueCredit is one exclusive truth credit. It backs at most one match.
type cliqueCredit struct {
	members indexSet
	spent   bool
}

// openCredit returns the first unspent credit overlapping clique, or nil
func (st *itemState) openCredit(clique []int) *cliqueCredit {
	for _, c := range st.credits {
		if !c.spent && !c.members.disjoint(clique) {
			return c
		}
	}
	return nil
}

type indexSet map[int]struct{}

func newIndexSet(indices []int) indexSet {
	s := make(indexSet, len(indices))
	s.add(indices...)
	return s
}

func (s indexSet) add(indices ...int) {
	for _, i := range indices {
		s[i] = struct{}{}
	}
}

func (s indexSet) disjoint(indices []int) bool {
	for _, i := range indices {
		if _, ok := s[i]; ok {
			return false
		}
	}
	return true
}
