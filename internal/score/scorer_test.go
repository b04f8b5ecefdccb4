package score

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/ppiankov/planeval/internal/lemma"
	"github.com/ppiankov/planeval/internal/match"
	"github.com/ppiankov/planeval/internal/model"
)

func newTestScorer(consumption model.ConsumptionMode) *Scorer {
	m := match.NewMatcher(lemma.NewNormalizer(lemma.Map{
		"cooked":  "cook",
		"boiled":  "boil",
		"steamed": "steam",
		"fried":   "fry",
		"added":   "add",
	}))
	return NewScorer(m, consumption)
}

func pred(trigger string, args ...string) model.PredictedAction {
	return model.PredictedAction{Trigger: model.Trigger(trigger), Arguments: args}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreItem_SingleRequiredAction(t *testing.T) {
	s := newTestScorer(model.ConsumeOrdered)
	item := model.Item{
		Words: []string{"cook", "the", "rice"},
		Actions: []model.GroundTruthAction{
			{TriggerIndex: 0, RequiredObjects: []int{2}, Kind: model.KindRequired},
		},
		Predictions: []model.PredictedAction{pred("cooked", "the rice")},
	}

	got := s.ScoreItem(0, item)

	if got.Skipped {
		t.Fatal("item must not be skipped")
	}
	if got.Actions != (model.Counts{Matched: 1, Truth: 1, Predicted: 1}) {
		t.Errorf("unexpected action counts: %+v", got.Actions)
	}
	if got.Objects != (model.Counts{Matched: 1, Truth: 1, Predicted: 1}) {
		t.Errorf("unexpected object counts: %+v", got.Objects)
	}

	m := got.Actions.Metrics()
	if m.Precision != 1 || m.Recall != 1 || m.F1 != 1 {
		t.Errorf("expected perfect action metrics, got %+v", m)
	}
}

func TestScoreItem_ExclusivePairCountsOnce(t *testing.T) {
	s := newTestScorer(model.ConsumeOrdered)
	item := model.Item{
		Words: []string{"boil", "the", "rice", "steam", "it"},
		Actions: []model.GroundTruthAction{
			{TriggerIndex: 0, RequiredObjects: []int{2}, Kind: model.KindExclusive, ExclusionGroup: []int{3}},
			{TriggerIndex: 3, RequiredObjects: []int{2}, Kind: model.KindExclusive, ExclusionGroup: []int{0}},
		},
		Predictions: []model.PredictedAction{pred("steamed", "rice")},
	}

	got := s.ScoreItem(0, item)

	if got.Actions.Truth != 1 {
		t.Errorf("expected clique to contribute 1 to truth, got %d", got.Actions.Truth)
	}
	if got.Actions.Matched != 1 {
		t.Errorf("expected the second clique member to match, got %d", got.Actions.Matched)
	}
}

func TestScoreItem_MatchedCliqueSkipsRealignment(t *testing.T) {
	s := newTestScorer(model.ConsumeOrdered)
	item := model.Item{
		Words: []string{"boil", "steam", "fry", "rice"},
		Actions: []model.GroundTruthAction{
			{TriggerIndex: 0, Kind: model.KindExclusive, ExclusionGroup: []int{1, 2}},
			{TriggerIndex: 1, Kind: model.KindExclusive, ExclusionGroup: []int{0, 2}},
			{TriggerIndex: 2, Kind: model.KindExclusive, ExclusionGroup: []int{0, 1}},
		},
		Predictions: []model.PredictedAction{pred("boiled", "rice"), pred("fried", "rice")},
	}

	got := s.ScoreItem(0, item)

	if got.Actions.Truth != 1 {
		t.Errorf("clique of 3 must contribute at most 1 to truth, got %d", got.Actions.Truth)
	}
	if got.Actions.Matched != 1 {
		t.Errorf("expected later clique members to skip alignment, got %d matches", got.Actions.Matched)
	}
	if got.Actions.Predicted != 2 {
		t.Errorf("expected every prediction counted as tagged, got %d", got.Actions.Predicted)
	}
}

func TestScoreItem_AbsentTriggers(t *testing.T) {
	s := newTestScorer(model.ConsumeOrdered)
	item := model.Item{
		Words: []string{"cook", "rice"},
		Actions: []model.GroundTruthAction{
			{TriggerIndex: 0, RequiredObjects: []int{1}, Kind: model.KindRequired},
		},
		Predictions: []model.PredictedAction{
			{Arguments: []string{"rice"}},
			{Trigger: nil, Arguments: []string{"cook rice"}},
		},
	}

	got := s.ScoreItem(0, item)

	if got.Actions.Matched != 0 {
		t.Errorf("absent triggers must never match, got %d", got.Actions.Matched)
	}
	if got.Actions.Truth != 1 || got.Actions.Predicted != 2 {
		t.Errorf("unexpected totals: %+v", got.Actions)
	}
	if got.Objects != (model.Counts{}) {
		t.Errorf("no object credit without a trigger match, got %+v", got.Objects)
	}
}

func TestScoreItem_ConditionalCountsOnlyWhenMatched(t *testing.T) {
	s := newTestScorer(model.ConsumeOrdered)
	item := model.Item{
		Words: []string{"boil", "water", "add", "salt"},
		Actions: []model.GroundTruthAction{
			{TriggerIndex: 0, RequiredObjects: []int{1}, Kind: model.KindConditional},
			{TriggerIndex: 2, RequiredObjects: []int{3}, Kind: model.KindConditional},
		},
		Predictions: []model.PredictedAction{pred("boiled", "water")},
	}

	got := s.ScoreItem(0, item)

	if got.Actions != (model.Counts{Matched: 1, Truth: 1, Predicted: 1}) {
		t.Errorf("unexpected action counts: %+v", got.Actions)
	}
}

func TestScoreItem_MissingPredictions(t *testing.T) {
	s := newTestScorer(model.ConsumeOrdered)
	item := model.Item{
		ID:    "recipe-7",
		Words: []string{"cook", "rice"},
		Actions: []model.GroundTruthAction{
			{TriggerIndex: 0, RequiredObjects: []int{1}, Kind: model.KindRequired},
		},
	}

	got := s.ScoreItem(3, item)

	if !got.Skipped {
		t.Fatal("expected item to be skipped")
	}
	if got.Actions != (model.Counts{}) || got.Objects != (model.Counts{}) {
		t.Errorf("skipped item must contribute nothing, got %+v / %+v", got.Actions, got.Objects)
	}
	if len(got.Signals) != 1 || got.Signals[0].Type != model.SignalMissingPrediction {
		t.Fatalf("expected missing_prediction signal, got %+v", got.Signals)
	}
	if got.Signals[0].Data["id"] != "recipe-7" {
		t.Errorf("expected signal to carry the item id, got %v", got.Signals[0].Data)
	}
}

func TestScoreItem_ConsumedPredictionsAreNotReused(t *testing.T) {
	s := newTestScorer(model.ConsumeOrdered)
	item := model.Item{
		Words: []string{"boil", "water", "boil", "eggs"},
		Actions: []model.GroundTruthAction{
			{TriggerIndex: 0, RequiredObjects: []int{1}, Kind: model.KindRequired},
			{TriggerIndex: 2, RequiredObjects: []int{3}, Kind: model.KindRequired},
		},
		Predictions: []model.PredictedAction{pred("boiled", "water")},
	}

	got := s.ScoreItem(0, item)

	if got.Actions.Matched != 1 {
		t.Errorf("a prediction may be consumed once, got %d matches", got.Actions.Matched)
	}
	if got.Actions.Truth != 2 {
		t.Errorf("expected both required actions in truth, got %d", got.Actions.Truth)
	}
}

func TestScoreItem_Consumption(t *testing.T) {
	item := model.Item{
		Words: []string{"boil", "water", "add", "salt"},
		Actions: []model.GroundTruthAction{
			{TriggerIndex: 0, RequiredObjects: []int{1}, Kind: model.KindRequired},
			{TriggerIndex: 2, RequiredObjects: []int{3}, Kind: model.KindRequired},
		},
		Predictions: []model.PredictedAction{pred("added", "salt"), pred("boiled", "water")},
	}

	ordered := newTestScorer(model.ConsumeOrdered).ScoreItem(0, item)
	if ordered.Actions.Matched != 1 {
		t.Errorf("ordered: expected 1 match for swapped predictions, got %d", ordered.Actions.Matched)
	}

	unordered := newTestScorer(model.ConsumeUnordered).ScoreItem(0, item)
	if unordered.Actions.Matched != 2 {
		t.Errorf("unordered: expected 2 matches, got %d", unordered.Actions.Matched)
	}
	if unordered.Objects.Matched != 2 {
		t.Errorf("unordered: expected 2 object matches, got %d", unordered.Objects.Matched)
	}
}

func TestScoreItem_Idempotent(t *testing.T) {
	s := newTestScorer(model.ConsumeOrdered)
	item := model.Item{
		Words: []string{"boil", "water", "steam", "rice"},
		Actions: []model.GroundTruthAction{
			{TriggerIndex: 0, RequiredObjects: []int{1}, Kind: model.KindExclusive, ExclusionGroup: []int{2}},
			{TriggerIndex: 2, RequiredObjects: []int{3}, Kind: model.KindExclusive, ExclusionGroup: []int{0}},
		},
		Predictions: []model.PredictedAction{pred("boiled", "water"), pred("steamed", "rice")},
	}

	first := s.ScoreItem(0, item)
	second := s.ScoreItem(0, item)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-scoring changed the result:\n%+v\n%+v", first, second)
	}
	if len(item.Actions[0].ExclusionGroup) != 1 {
		t.Error("scoring must not mutate the item")
	}
}

func TestAggregate_SkippedItemDoesNotAffectTotals(t *testing.T) {
	s := newTestScorer(model.ConsumeOrdered)
	scored := model.Item{
		Words: []string{"cook", "the", "rice"},
		Actions: []model.GroundTruthAction{
			{TriggerIndex: 0, RequiredObjects: []int{2}, Kind: model.KindRequired},
		},
		Predictions: []model.PredictedAction{pred("cooked", "the rice")},
	}
	empty := model.Item{
		Words: []string{"fry", "eggs"},
		Actions: []model.GroundTruthAction{
			{TriggerIndex: 0, RequiredObjects: []int{1}, Kind: model.KindRequired},
		},
	}

	alone := s.Aggregate([]model.Item{scored}, model.ModeMicro)
	mixed := s.Aggregate([]model.Item{scored, empty}, model.ModeMicro)

	if mixed.Actions != alone.Actions || mixed.Objects != alone.Objects {
		t.Errorf("skipped item changed totals: %+v vs %+v", mixed.Actions, alone.Actions)
	}
	if mixed.ActionMetrics != alone.ActionMetrics {
		t.Errorf("skipped item changed metrics: %+v vs %+v", mixed.ActionMetrics, alone.ActionMetrics)
	}
	if mixed.Skipped != 1 || mixed.Items != 2 {
		t.Errorf("expected 2 items with 1 skipped, got %d/%d", mixed.Items, mixed.Skipped)
	}

	found := false
	for _, sig := range mixed.Signals {
		if sig.Type == model.SignalMissingPrediction {
			found = true
		}
	}
	if !found {
		t.Error("expected missing_prediction signal in aggregate")
	}

	macro := s.Aggregate([]model.Item{scored, empty}, model.ModeMacro)
	if macro.ActionMetrics.Precision != 1 || macro.ActionMetrics.Recall != 1 {
		t.Errorf("macro mean must ignore skipped items, got %+v", macro.ActionMetrics)
	}
}

func TestAggregate_MicroVersusMacro(t *testing.T) {
	s := newTestScorer(model.ConsumeOrdered)
	items := []model.Item{
		{
			Words: []string{"cook", "rice"},
			Actions: []model.GroundTruthAction{
				{TriggerIndex: 0, RequiredObjects: []int{1}, Kind: model.KindRequired},
			},
			Predictions: []model.PredictedAction{pred("cooked", "rice")},
		},
		{
			Words: []string{"boil", "add", "stir", "water"},
			Actions: []model.GroundTruthAction{
				{TriggerIndex: 0, RequiredObjects: []int{3}, Kind: model.KindRequired},
				{TriggerIndex: 1, Kind: model.KindRequired},
				{TriggerIndex: 2, Kind: model.KindRequired},
			},
			Predictions: []model.PredictedAction{pred("boiled", "water")},
		},
	}

	micro := s.Aggregate(items, model.ModeMicro)
	if micro.Actions != (model.Counts{Matched: 2, Truth: 4, Predicted: 2}) {
		t.Fatalf("unexpected micro counts: %+v", micro.Actions)
	}
	if !almostEqual(micro.ActionMetrics.Precision, 1) || !almostEqual(micro.ActionMetrics.Recall, 0.5) {
		t.Errorf("unexpected micro metrics: %+v", micro.ActionMetrics)
	}

	macro := s.Aggregate(items, model.ModeMacro)
	if macro.Mode != model.ModeMacro {
		t.Errorf("expected macro mode, got %q", macro.Mode)
	}
	if !almostEqual(macro.ActionMetrics.Precision, 1) {
		t.Errorf("expected macro precision 1, got %v", macro.ActionMetrics.Precision)
	}
	wantRecall := (1.0 + 1.0/3.0) / 2
	if !almostEqual(macro.ActionMetrics.Recall, wantRecall) {
		t.Errorf("expected macro recall %v, got %v", wantRecall, macro.ActionMetrics.Recall)
	}
	wantF1 := (1.0 + model.F1(1, 1.0/3.0)) / 2
	if !almostEqual(macro.ActionMetrics.F1, wantF1) {
		t.Errorf("expected macro F1 %v, got %v", wantF1, macro.ActionMetrics.F1)
	}
}

func TestAggregate_TotalsUndefined(t *testing.T) {
	s := newTestScorer(model.ConsumeOrdered)
	items := []model.Item{{
		Words:       []string{"cook", "rice"},
		Actions:     []model.GroundTruthAction{{TriggerIndex: 0, Kind: model.KindRequired}},
		Predictions: []model.PredictedAction{pred("fried", "eggs")},
	}}

	got := s.Aggregate(items, model.ModeMicro)

	if got.ActionMetrics != (model.Metrics{}) {
		t.Errorf("expected zero metrics, got %+v", got.ActionMetrics)
	}
	if len(got.Signals) != 1 || got.Signals[0].Type != model.SignalTotalsUndefined {
		t.Errorf("expected totals_undefined signal, got %+v", got.Signals)
	}

	empty := s.Aggregate(nil, "")
	if empty.Mode != model.ModeMicro || empty.ActionMetrics.F1 != 0 {
		t.Errorf("unexpected result for empty corpus: %+v", empty)
	}
}

func TestMerge_MatchesWholeCorpus(t *testing.T) {
	s := newTestScorer(model.ConsumeOrdered)
	items := randomItems(rand.New(rand.NewSource(7)), 40)

	whole := s.Aggregate(items, model.ModeMicro)
	merged := Merge(s.Aggregate(items[20:], model.ModeMicro), s.Aggregate(items[:20], model.ModeMicro))

	if whole.Actions != merged.Actions || whole.Objects != merged.Objects {
		t.Errorf("merged counts differ: %+v vs %+v", merged.Actions, whole.Actions)
	}
	if whole.ActionMetrics != merged.ActionMetrics {
		t.Errorf("merged metrics differ: %+v vs %+v", merged.ActionMetrics, whole.ActionMetrics)
	}
}

func TestScoreItem_MatchedNeverExceedsTotals(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, consumption := range []model.ConsumptionMode{model.ConsumeOrdered, model.ConsumeUnordered} {
		s := NewScorer(match.NewMatcher(lemma.NewNormalizer(lemma.Lowercase{})), consumption)
		items := append(randomItems(rng, 300), withOneWayCliques(rng, randomItems(rng, 300))...)
		for i, item := range items {
			got := s.ScoreItem(i, item)
			if got.Skipped {
				continue
			}
			if got.Actions.Matched > got.Actions.Truth || got.Actions.Matched > got.Actions.Predicted {
				t.Fatalf("%s item %d: action matched exceeds totals: %+v\n%+v", consumption, i, got.Actions, item)
			}
			if got.Objects.Matched > got.Objects.Truth || got.Objects.Matched > got.Objects.Predicted {
				t.Fatalf("%s item %d: object matched exceeds totals: %+v", consumption, i, got.Objects)
			}
		}
	}
}

// randomItems builds items with well-formed cliques: every exclusive action
// lists the other members of its group.
func randomItems(rng *rand.Rand, n int) []model.Item {
	vocab := []string{"boil", "cook", "fry", "add", "stir", "rice", "water", "salt"}
	items := make([]model.Item, 0, n)

	for i := 0; i < n; i++ {
		words := make([]string, len(vocab))
		for w, p := range rng.Perm(len(vocab)) {
			words[w] = vocab[p]
		}

		triggers := rng.Perm(len(words))[:1+rng.Intn(5)]
		actions := make([]model.GroundTruthAction, 0, len(triggers))
		var group []int
		for _, trig := range triggers {
			a := model.GroundTruthAction{
				TriggerIndex: trig,
				Kind:         model.ActionKind(1 + rng.Intn(3)),
			}
			for k := rng.Intn(3); k > 0; k-- {
				a.RequiredObjects = append(a.RequiredObjects, rng.Intn(len(words)))
			}
			if rng.Intn(4) == 0 {
				a.AlternativeObjects = []int{rng.Intn(len(words))}
			}
			actions = append(actions, a)
			if a.Kind == model.KindExclusive {
				group = append(group, len(actions)-1)
			}
		}

		// split exclusive actions into cliques of up to 3
		for start := 0; start < len(group); start += 3 {
			end := start + 3
			if end > len(group) {
				end = len(group)
			}
			members := group[start:end]
			for _, m := range members {
				for _, other := range members {
					if other != m {
						actions[m].ExclusionGroup = append(actions[m].ExclusionGroup, actions[other].TriggerIndex)
					}
				}
			}
		}

		preds := make([]model.PredictedAction, rng.Intn(5))
		for p := range preds {
			if rng.Intn(5) > 0 {
				preds[p].Trigger = model.Trigger(vocab[rng.Intn(len(vocab))])
			}
			for k := rng.Intn(3); k > 0; k-- {
				preds[p].Arguments = append(preds[p].Arguments, vocab[rng.Intn(len(vocab))])
			}
		}

		items = append(items, model.Item{Words: words, Actions: actions, Predictions: preds})
	}
	return items
}

// withOneWayCliques replaces every exclusion group with random trigger indices
// that are not listed back, the shape annotators produce by hand
func withOneWayCliques(rng *rand.Rand, items []model.Item) []model.Item {
	for _, item := range items {
		for a := range item.Actions {
			if item.Actions[a].Kind != model.KindExclusive {
				continue
			}
			item.Actions[a].ExclusionGroup = nil
			for k := 1 + rng.Intn(2); k > 0; k-- {
				other := item.Actions[rng.Intn(len(item.Actions))].TriggerIndex
				item.Actions[a].ExclusionGroup = append(item.Actions[a].ExclusionGroup, other)
			}
		}
	}
	return items
}

func TestScoreItem_OneWayCliquesShareOneCredit(t *testing.T) {
	// cook lists boil, boil lists y, fry lists cook: one truth credit between them
	item := model.Item{
		Words: []string{"x", "cook", "boil", "y", "fry"},
		Actions: []model.GroundTruthAction{
			{TriggerIndex: 1, Kind: model.KindExclusive, ExclusionGroup: []int{2}},
			{TriggerIndex: 2, Kind: model.KindExclusive, ExclusionGroup: []int{3}},
			{TriggerIndex: 4, Kind: model.KindExclusive, ExclusionGroup: []int{1}},
		},
		Predictions: []model.PredictedAction{
			{Trigger: model.Trigger("boiled")},
			{Trigger: model.Trigger("frying")},
		},
	}

	for _, consumption := range []model.ConsumptionMode{model.ConsumeOrdered, model.ConsumeUnordered} {
		s := NewScorer(match.NewMatcher(lemma.NewNormalizer(lemma.Lowercase{})), consumption)
		got := s.ScoreItem(0, item)
		want := model.Counts{Matched: 1, Truth: 1, Predicted: 2}
		if got.Actions != want {
			t.Errorf("%s: actions = %+v, want %+v", consumption, got.Actions, want)
		}
	}
}

func TestScoreItem_DisjointOneWayCliquesEachCount(t *testing.T) {
	// cook lists boil; fry lists y: two separate credits, both can match
	item := model.Item{
		Words: []string{"x", "cook", "boil", "y", "fry"},
		Actions: []model.GroundTruthAction{
			{TriggerIndex: 1, Kind: model.KindExclusive, ExclusionGroup: []int{2}},
			{TriggerIndex: 4, Kind: model.KindExclusive, ExclusionGroup: []int{3}},
		},
		Predictions: []model.PredictedAction{
			{Trigger: model.Trigger("cooked")},
			{Trigger: model.Trigger("frying")},
		},
	}

	s := NewScorer(match.NewMatcher(lemma.NewNormalizer(lemma.Lowercase{})), model.ConsumeOrdered)
	got := s.ScoreItem(0, item)
	if got.Actions != (model.Counts{Matched: 2, Truth: 2, Predicted: 2}) {
		t.Errorf("unexpected actions %+v", got.Actions)
	}
}
