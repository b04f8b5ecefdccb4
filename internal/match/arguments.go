package match

import "github.com/ppiankov/planeval/internal/model"

// AlignArguments aligns ground-truth argument words against predicted arguments.
//
// The alignment is greedy and forward-only: both pointers only advance, and a
// truth argument that finds no match never retries predictions that were
// already scanned past. When predictions are ordered differently from the
// annotation this under-counts matches; it is kept for comparability with
// published numbers.
//
// alternatives, when non-empty, is an equivalent phrasing of the object: a
// prediction matching any alternative satisfies the current truth argument.
func (m *Matcher) AlignArguments(truth, predicted, alternatives []string) model.Counts {
	counts := model.Counts{
		Truth:     len(truth),
		Predicted: len(predicted),
	}
	if len(predicted) == 0 {
		return counts
	}

	truthPtr, predPtr := 0, 0
	for truthPtr < len(truth) {
		matched := false
		for predPtr < len(predicted) {
			candidate := predicted[predPtr]
			if m.Matches(truth[truthPtr], candidate) ||
				(len(alternatives) > 0 && m.MatchesAny(alternatives, candidate)) {
				matched = true
				break
			}
			predPtr++
		}

		if matched {
			counts.Matched++
			predPtr++
		}
		truthPtr++
	}

	return counts
}
