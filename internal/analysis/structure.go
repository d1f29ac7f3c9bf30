package analysis

import (
	"strings"

	"github.com/orato-labs/speechcoach/internal/models"
)

// Discourse markers grouped by role. Presence of each category earns a bonus
// on top of the clause-completion fraction.
var (
	openingMarkers    = []string{"first", "to start", "let's begin", "today", "to begin"}
	transitionMarkers = []string{"so", "next", "then", "also", "however", "on the other hand"}
	conclusionMarkers = []string{"finally", "in conclusion", "to sum up", "overall", "in summary"}
)

// structureScore is a heuristic, not semantic parsing: it measures how many
// primary-speaker segments end with terminal punctuation (a completed clause
// rather than trailing off) and whether opening/transition/conclusion
// discourse markers appear anywhere in the speech. Range 0–100; zero
// segments score 0.
func structureScore(segments []models.Segment) float64 {
	if len(segments) == 0 {
		return 0
	}

	completed := 0
	var all strings.Builder
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		all.WriteString(" ")
		all.WriteString(strings.ToLower(text))
		switch text[len(text)-1] {
		case '.', '!', '?':
			completed++
		}
	}

	score := 70.0 * float64(completed) / float64(len(segments))

	full := all.String()
	for _, group := range [][]string{openingMarkers, transitionMarkers, conclusionMarkers} {
		if containsAnyPhrase(full, group) {
			score += 10
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}

// containsAnyPhrase reports whether any of the phrases occurs in text as a
// contiguous token sequence.
func containsAnyPhrase(text string, phrases []string) bool {
	tokens := Tokenize(text)
	for _, phrase := range phrases {
		want := Tokenize(phrase)
		if len(want) == 0 {
			continue
		}
		for i := 0; i+len(want) <= len(tokens); i++ {
			ok := true
			for j := range want {
				if tokens[i+j] != want[j] {
					ok = false
					break
				}
			}
			if ok {
				return true
			}
		}
	}
	return false
}
