package analysis

import (
	"sort"
	"strings"
)

// DefaultFillerTerms are the filler words and phrases detected when the
// caller does not supply a custom set. Multi-word phrases must match as
// contiguous token sequences.
var DefaultFillerTerms = []string{
	"um", "uh", "like", "you know", "sort of", "kind of",
	"i mean", "just", "actually", "basically",
}

// fillerMatcher matches a term set against a token stream. Phrases are
// stored by their leading token so a single pass over the tokens suffices.
type fillerMatcher struct {
	// byFirst maps a phrase's first token to the candidate phrases starting
	// with it, longest first so "sort of" wins over a hypothetical "sort".
	byFirst map[string][][]string
}

func newFillerMatcher(terms []string) *fillerMatcher {
	m := &fillerMatcher{byFirst: make(map[string][][]string)}
	for _, term := range terms {
		phrase := Tokenize(term)
		if len(phrase) == 0 {
			continue
		}
		first := phrase[0]
		m.byFirst[first] = append(m.byFirst[first], phrase)
	}
	for first := range m.byFirst {
		phrases := m.byFirst[first]
		sort.Slice(phrases, func(i, j int) bool { return len(phrases[i]) > len(phrases[j]) })
	}
	return m
}

// count walks tokens greedily, longest phrase first. A matched phrase
// consumes its tokens, so "you know" never also counts a standalone "you".
// Matching is word-boundary-aware by construction: tokens are whole words,
// so "like" cannot match inside "likely".
func (m *fillerMatcher) count(tokens []string) (map[string]int, int) {
	counts := make(map[string]int)
	total := 0
	for i := 0; i < len(tokens); {
		matched := 0
		for _, phrase := range m.byFirst[tokens[i]] {
			if i+len(phrase) > len(tokens) {
				continue
			}
			ok := true
			for j, want := range phrase {
				if tokens[i+j] != want {
					ok = false
					break
				}
			}
			if ok {
				counts[strings.Join(phrase, " ")]++
				total++
				matched = len(phrase)
				break
			}
		}
		if matched == 0 {
			matched = 1
		}
		i += matched
	}
	return counts, total
}

// FillerPercentage is total fillers over total words, as a percentage in
// [0,100]. Zero words yields zero, never a division fault.
func FillerPercentage(totalFillers, totalWords int) float64 {
	if totalWords == 0 {
		return 0
	}
	return float64(totalFillers) / float64(totalWords) * 100
}
