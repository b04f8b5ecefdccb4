package model

import "fmt"

// ActionKind controls how a ground-truth action contributes to truth totals
type ActionKind int

const (
	KindUnknown     ActionKind = 0
	KindRequired    ActionKind = 1 // Always counted toward truth
	KindConditional ActionKind = 2 // Counted toward truth only when matched
	KindExclusive   ActionKind = 3 // Counted at most once per exclusivity clique
)

func (k ActionKind) String() string {
	switch k {
	case KindRequired:
		return "required"
	case KindConditional:
		return "conditional"
	case KindExclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

// Valid reports whether the kind is one of the annotated kinds
func (k ActionKind) Valid() bool {
	return k == KindRequired || k == KindConditional || k == KindExclusive
}

// GroundTruthAction is one annotated event. All indices point into the item's words.
type GroundTruthAction struct {
	TriggerIndex       int        `json:"act_idx"`
	RequiredObjects    []int      `json:"required_objects,omitempty"`
	AlternativeObjects []int      `json:"alternative_objects,omitempty"`
	Kind               ActionKind `json:"act_type"`
	ExclusionGroup     []int      `json:"related_acts,omitempty"`
}

// Clique returns the members of the action's exclusivity clique.
// Members are identified by trigger index, the same way the annotations reference them.
func (a GroundTruthAction) Clique() []int {
	clique := make([]int, 0, len(a.ExclusionGroup)+1)
	clique = append(clique, a.ExclusionGroup...)
	return append(clique, a.TriggerIndex)
}

// PredictedAction is one model-extracted event
type PredictedAction struct {
	Trigger   *string  `json:"verb"`
	Arguments []string `json:"arguments"`
}

// HasTrigger reports whether the model produced a trigger at all
func (p PredictedAction) HasTrigger() bool {
	return p.Trigger != nil
}

// TriggerText returns the trigger or an empty string when absent
func (p PredictedAction) TriggerText() string {
	if p.Trigger == nil {
		return ""
	}
	return *p.Trigger
}

// Item is one evaluation unit. It is never mutated by scoring.
type Item struct {
	ID          string              `json:"id,omitempty"`
	Words       []string            `json:"words"`
	Actions     []GroundTruthAction `json:"acts"`
	Predictions []PredictedAction   `json:"pred"`
}

// Word returns the word at index i, or an empty string when out of range
func (it Item) Word(i int) string {
	if i < 0 || i >= len(it.Words) {
		return ""
	}
	return it.Words[i]
}

// WordsAt resolves a list of indices against the item's words
func (it Item) WordsAt(indices []int) []string {
	words := make([]string, 0, len(indices))
	for _, idx := range indices {
		words = append(words, it.Word(idx))
	}
	return words
}

// Label returns a short human-readable label for diagnostics
func (it Item) Label(index int) string {
	if it.ID != "" {
		return fmt.Sprintf("item %d (%s)", index, it.ID)
	}
	return fmt.Sprintf("item %d", index)
}

// Trigger is a helper for building predicted actions with a present trigger
func Trigger(s string) *string {
	return &s
}
