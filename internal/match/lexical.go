// Package match aligns predicted actions and arguments against annotations.
package match

import (
	"strings"

	"github.com/ppiankov/planeval/internal/lemma"
)

// Matcher decides whether a ground-truth word and a predicted phrase denote the same concept
type Matcher struct {
	lemmas lemma.Lemmatizer
}

// NewMatcher creates a matcher over the given lemmatizer
func NewMatcher(lemmas lemma.Lemmatizer) *Matcher {
	return &Matcher{lemmas: lemmas}
}

// Matches reports whether the lemma of truthWord occurs as a substring of the
// lemmatized predicted phrase. "cook" matches "quickly cooked the rice".
func (m *Matcher) Matches(truthWord, predicted string) bool {
	if strings.TrimSpace(predicted) == "" {
		return false
	}

	truthLemma := m.lemmas.Lemma(truthWord)
	if truthLemma == "" {
		return false
	}

	return strings.Contains(m.lemmas.PhraseLemma(predicted), truthLemma)
}

// MatchesAny reports whether any of the truth words matches predicted
func (m *Matcher) MatchesAny(truthWords []string, predicted string) bool {
	for _, word := range truthWords {
		if m.Matches(word, predicted) {
			return true
		}
	}
	return false
}
