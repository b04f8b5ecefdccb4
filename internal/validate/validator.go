// Package validate checks input records before any scoring happens.
package validate

import (
	"fmt"
	"strings"

	"github.com/ppiankov/planeval/internal/model"
)

const defaultMaxIssues = 20

// Issue is one contract violation in one record
type Issue struct {
	Item    int    `json:"item"`
	ID      string `json:"id,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	label := fmt.Sprintf("item %d", i.Item)
	if i.ID != "" {
		label = fmt.Sprintf("item %d (%s)", i.Item, i.ID)
	}
	return fmt.Sprintf("%s: %s: %s", label, i.Field, i.Message)
}

// Error aggregates every issue found in a batch of records.
// It matches model.ErrMalformedRecord with errors.Is.
type Error struct {
	Issues  []Issue
	Omitted int // Issues found beyond the reporting cap
}

func (e *Error) Error() string {
	lines := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		lines = append(lines, issue.String())
	}
	msg := fmt.Sprintf("%s: %s", model.ErrMalformedRecord, strings.Join(lines, "; "))
	if e.Omitted > 0 {
		msg += fmt.Sprintf(" (and %d more)", e.Omitted)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return model.ErrMalformedRecord
}

// Validator checks the record contract: words and acts present, every index in range,
// every action kind known
type Validator struct {
	maxIssues int
}

// NewValidator creates a validator reporting at most maxIssues issues
func NewValidator(maxIssues int) *Validator {
	if maxIssues <= 0 {
		maxIssues = defaultMaxIssues
	}
	return &Validator{maxIssues: maxIssues}
}

// Validate returns nil when every item is well formed, otherwise an *Error
func (v *Validator) Validate(items []model.Item) error {
	report := &Error{}

	for i, item := range items {
		for _, issue := range v.checkItem(i, item) {
			if len(report.Issues) < v.maxIssues {
				report.Issues = append(report.Issues, issue)
			} else {
				report.Omitted++
			}
		}
	}

	if len(report.Issues) == 0 {
		return nil
	}
	return report
}

func (v *Validator) checkItem(index int, item model.Item) []Issue {
	var issues []Issue
	add := func(field, format string, args ...interface{}) {
		issues = append(issues, Issue{
			Item:    index,
			ID:      item.ID,
			Field:   field,
			Message: fmt.Sprintf(format, args...),
		})
	}

	if item.Words == nil {
		add("words", "missing")
	}
	if item.Actions == nil {
		add("acts", "missing")
	}

	n := len(item.Words)
	for a, action := range item.Actions {
		field := fmt.Sprintf("acts[%d]", a)

		if !action.Kind.Valid() {
			add(field+".act_type", "unknown kind %d", int(action.Kind))
		}
		if !inRange(action.TriggerIndex, n) {
			add(field+".act_idx", "index %d out of range [0, %d)", action.TriggerIndex, n)
		}
		for _, idx := range action.RequiredObjects {
			if !inRange(idx, n) {
				add(field+".obj_idxs[0]", "index %d out of range [0, %d)", idx, n)
			}
		}
		for _, idx := range action.AlternativeObjects {
			if !inRange(idx, n) {
				add(field+".obj_idxs[1]", "index %d out of range [0, %d)", idx, n)
			}
		}
		if action.Kind == model.KindExclusive {
			for _, idx := range action.ExclusionGroup {
				if !inRange(idx, n) {
					add(field+".related_acts", "index %d out of range [0, %d)", idx, n)
				}
			}
		}
	}

	return issues
}

func inRange(idx, n int) bool {
	return idx >= 0 && idx < n
}
