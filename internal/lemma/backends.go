package lemma

import (
	"fmt"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

// Golem is a dictionary lemmatizer for English
type Golem struct {
	lemmatizer *golem.Lemmatizer
}

// NewGolem loads the English dictionary
func NewGolem() (*Golem, error) {
	l, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("load english dictionary: %w", err)
	}
	return &Golem{lemmatizer: l}, nil
}

// Name returns the backend name
func (g *Golem) Name() string {
	return "golem"
}

// Lemmatize returns the dictionary lemma, or the token itself when unknown
func (g *Golem) Lemmatize(token string) string {
	return g.lemmatizer.Lemma(token)
}

// Lowercase performs no lemmatization beyond case folding
type Lowercase struct{}

// Name returns the backend name
func (Lowercase) Name() string {
	return "none"
}

// Lemmatize returns the token unchanged
func (Lowercase) Lemmatize(token string) string {
	return token
}

// Map is a fixed lemma table, falling back to the token itself.
// It is handy for tests and for pinning domain vocabulary.
type Map map[string]string

// Name returns the backend name
func (Map) Name() string {
	return "map"
}

// Lemmatize looks token up in the table
func (m Map) Lemmatize(token string) string {
	if lemma, ok := m[token]; ok {
		return lemma
	}
	return token
}
