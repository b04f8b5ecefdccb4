package lemma

import (
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Tokenize splits text into word tokens and single-rune punctuation tokens.
// Apostrophes and hyphens stay inside a word when both neighbours are letters or digits.
func Tokenize(text string) []string {
	runes := []rune(norm.NFC.String(text))
	var tokens []string
	start := -1

	flush := func(end int) {
		if start >= 0 {
			tokens = append(tokens, string(runes[start:end]))
			start = -1
		}
	}

	for i, r := range runes {
		switch {
		case IsWordRune(r):
			if start < 0 {
				start = i
			}
		case isJoiner(r) && start >= 0 && i+1 < len(runes) && IsWordRune(runes[i+1]):
			// keep "stir-fry" and "o'clock" whole
		case unicode.IsSpace(r):
			flush(i)
		default:
			flush(i)
			tokens = append(tokens, string(r))
		}
	}
	flush(len(runes))

	return tokens
}

// IsWordRune reports whether r can be part of a word token
func IsWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func isJoiner(r rune) bool {
	return r == '-' || r == '\'' || r == '’'
}
