// Package lemma normalizes words before they are compared.
//
// The matcher only consumes the Lemmatizer capability; which dictionary or
// service produces the lemmas is decided by the Backend plugged into a
// Normalizer.
package lemma

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Lemmatizer is the normalization capability used for lexical matching
type Lemmatizer interface {
	// Lemma returns the lower-cased lemma of the first token of word
	Lemma(word string) string

	// PhraseLemma returns the space-joined lower-cased lemmas of every token in phrase
	PhraseLemma(phrase string) string
}

// Backend lemmatizes a single, already folded token
type Backend interface {
	Name() string
	Lemmatize(token string) string
}

// Normalizer implements Lemmatizer on top of a token Backend
type Normalizer struct {
	backend Backend
}

// NewNormalizer creates a Normalizer for backend
func NewNormalizer(backend Backend) *Normalizer {
	return &Normalizer{backend: backend}
}

// Name returns the backend name
func (n *Normalizer) Name() string {
	return n.backend.Name()
}

// Lemma returns the lemma of the first token of word
func (n *Normalizer) Lemma(word string) string {
	tokens := Tokenize(word)
	if len(tokens) == 0 {
		return ""
	}
	return n.lemmatize(tokens[0])
}

// PhraseLemma lemmatizes every token of phrase and joins them with single spaces
func (n *Normalizer) PhraseLemma(phrase string) string {
	tokens := Tokenize(phrase)
	lemmas := make([]string, 0, len(tokens))
	for _, token := range tokens {
		lemmas = append(lemmas, n.lemmatize(token))
	}
	return strings.Join(lemmas, " ")
}

func (n *Normalizer) lemmatize(token string) string {
	folded := Fold(token)
	lemma := Fold(n.backend.Lemmatize(folded))
	if lemma == "" {
		return folded
	}
	return lemma
}

// Fold lower-cases s with Unicode rules after NFC composition.
// cases.Caser is stateful, so a fresh one is built per call.
func Fold(s string) string {
	return cases.Lower(language.English).String(norm.NFC.String(strings.TrimSpace(s)))
}
