package analysis

import (
	"strings"
	"unicode"
)

// Tokenize lowercases text and splits it into word tokens. Leading and
// trailing punctuation is stripped from each token; apostrophes and hyphens
// inside a word survive ("don't", "well-known"). Tokens left without any
// letter or digit are dropped.
func Tokenize(text string) []string {
	if text == "" {
		return nil
	}
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if tok == "" {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// CountWords returns the number of word tokens in text.
func CountWords(text string) int {
	return len(Tokenize(text))
}
