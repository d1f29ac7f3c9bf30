package suggest

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/orato-labs/speechcoach/internal/models"
)

// Thresholds configure when each metric dimension triggers a suggestion.
// Defaults follow the documented table.
type Thresholds struct {
	FillerPercentage       float64 // trigger above
	FillerPercentageUrgent float64 // priority bumps to 5 above this
	PaceVariability        float64 // trigger above (WPM stddev)
	OptimalWPMLow          float64 // pace triggers outside [low, high]
	OptimalWPMHigh         float64
	VocabularyDiversity    float64 // trigger below
	StructureScore         float64 // trigger below
	ConfidenceScore        float64 // trigger below
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		FillerPercentage:       5,
		FillerPercentageUrgent: 8,
		PaceVariability:        15,
		OptimalWPMLow:          140,
		OptimalWPMHigh:         180,
		VocabularyDiversity:    0.5,
		StructureScore:         60,
		ConfidenceScore:        60,
	}
}

// rule is one row of the dispatch table: a dimension, its trigger, its
// priority, and the suggestion builder. Replaces the ad hoc branching of
// per-analyzer suggestion generators with data.
type rule struct {
	dimension models.SuggestionType
	triggered func(t Thresholds, m *models.MetricsSnapshot) bool
	priority  func(t Thresholds, m *models.MetricsSnapshot) int
	build     func(e *Engine, m *models.MetricsSnapshot, sourceText string) models.Suggestion
}

// dimensionRank fixes the tie order for equal priorities so output is
// byte-identical across runs.
var dimensionRank = map[models.SuggestionType]int{
	models.SuggestionFillerWords:     0,
	models.SuggestionConfidence:      1,
	models.SuggestionPace:            2,
	models.SuggestionPaceConsistency: 3,
	models.SuggestionVocabulary:      4,
	models.SuggestionStructure:       5,
}

var rules = []rule{
	{
		dimension: models.SuggestionFillerWords,
		triggered: func(t Thresholds, m *models.MetricsSnapshot) bool {
			return m.FillerPercentage > t.FillerPercentage
		},
		priority: func(t Thresholds, m *models.MetricsSnapshot) int {
			if m.FillerPercentage > t.FillerPercentageUrgent {
				return 5
			}
			return 3
		},
		build: buildFillerSuggestion,
	},
	{
		dimension: models.SuggestionConfidence,
		triggered: func(t Thresholds, m *models.MetricsSnapshot) bool {
			return m.TotalWords > 0 && m.ConfidenceScore < t.ConfidenceScore
		},
		priority: func(Thresholds, *models.MetricsSnapshot) int { return 4 },
		build: func(_ *Engine, m *models.MetricsSnapshot, _ string) models.Suggestion {
			return models.Suggestion{
				Type: models.SuggestionConfidence,
				Text: fmt.Sprintf("Your speech shows tentative language (%d hedging phrases). State your points directly - drop qualifiers like \"I guess\" and \"probably\" where you are sure.", m.HedgeCount),
			}
		},
	},
	{
		dimension: models.SuggestionPace,
		triggered: func(t Thresholds, m *models.MetricsSnapshot) bool {
			return m.AvgWPM > 0 && (m.AvgWPM < t.OptimalWPMLow || m.AvgWPM > t.OptimalWPMHigh)
		},
		priority: func(Thresholds, *models.MetricsSnapshot) int { return 4 },
		build: func(e *Engine, m *models.MetricsSnapshot, _ string) models.Suggestion {
			var text string
			if m.AvgWPM < e.thresholds.OptimalWPMLow {
				text = fmt.Sprintf("Your pace of %.0f words per minute is below the %.0f-%.0f range listeners follow best. Pick up the pace slightly to keep engagement.",
					m.AvgWPM, e.thresholds.OptimalWPMLow, e.thresholds.OptimalWPMHigh)
			} else {
				text = fmt.Sprintf("Your pace of %.0f words per minute is above the %.0f-%.0f range listeners follow best. Slow down and let pauses do some work.",
					m.AvgWPM, e.thresholds.OptimalWPMLow, e.thresholds.OptimalWPMHigh)
			}
			return models.Suggestion{Type: models.SuggestionPace, Text: text}
		},
	},
	{
		dimension: models.SuggestionPaceConsistency,
		triggered: func(t Thresholds, m *models.MetricsSnapshot) bool {
			return m.PaceVariability > t.PaceVariability
		},
		priority: func(Thresholds, *models.MetricsSnapshot) int { return 3 },
		build: func(_ *Engine, m *models.MetricsSnapshot, _ string) models.Suggestion {
			return models.Suggestion{
				Type: models.SuggestionPaceConsistency,
				Text: fmt.Sprintf("Your speaking pace swings by about %.0f WPM between moments. Aim for a steadier rhythm; vary pace deliberately, not accidentally.", m.PaceVariability),
			}
		},
	},
	{
		dimension: models.SuggestionVocabulary,
		triggered: func(t Thresholds, m *models.MetricsSnapshot) bool {
			return m.TotalWords > 0 && m.VocabularyDiversity < t.VocabularyDiversity
		},
		priority: func(Thresholds, *models.MetricsSnapshot) int { return 2 },
		build: func(_ *Engine, m *models.MetricsSnapshot, _ string) models.Suggestion {
			return models.Suggestion{
				Type: models.SuggestionVocabulary,
				Text: fmt.Sprintf("Your vocabulary diversity is %.2f; you lean on the same words repeatedly. Reach for more precise alternatives to hold attention.", m.VocabularyDiversity),
			}
		},
	},
	{
		dimension: models.SuggestionStructure,
		triggered: func(t Thresholds, m *models.MetricsSnapshot) bool {
			return m.SegmentCount > 0 && m.StructureScore < t.StructureScore
		},
		priority: func(Thresholds, *models.MetricsSnapshot) int { return 3 },
		build: func(_ *Engine, m *models.MetricsSnapshot, _ string) models.Suggestion {
			return models.Suggestion{
				Type: models.SuggestionStructure,
				Text: "Many of your thoughts trail off before completing. Finish each sentence before starting the next, and signpost with openings and conclusions.",
			}
		},
	},
}

// Engine turns a metrics snapshot into a prioritized suggestion list. It is
// stateless after construction; one instance serves all sessions.
type Engine struct {
	thresholds Thresholds
}

func NewEngine(t Thresholds) *Engine {
	return &Engine{thresholds: t}
}

// Generate evaluates every rule against the snapshot. sourceText, when
// available, lets the filler rule quote a real occurrence; pass "" for
// aggregates where the source is not retained. Output order is descending
// priority, ties broken by the fixed dimension order.
func (e *Engine) Generate(m *models.MetricsSnapshot, sourceText string) []models.Suggestion {
	if m == nil {
		return nil
	}
	var out []models.Suggestion
	for _, r := range rules {
		if !r.triggered(e.thresholds, m) {
			continue
		}
		s := r.build(e, m, sourceText)
		s.Priority = r.priority(e.thresholds, m)
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return dimensionRank[out[i].Type] < dimensionRank[out[j].Type]
	})
	return out
}

// buildFillerSuggestion targets the single most frequent filler term. When
// the source text contains a real occurrence, that sentence becomes the
// example and the improved version elides the filler with "[pause]"; a
// generic template is used otherwise - never a fabricated quote.
func buildFillerSuggestion(e *Engine, m *models.MetricsSnapshot, sourceText string) models.Suggestion {
	top := topFiller(m.FillerCounts)
	s := models.Suggestion{
		Type: models.SuggestionFillerWords,
		Text: fmt.Sprintf("You used filler words %d times (%.1f%% of your words). Replace %q with a deliberate pause to sound more confident.",
			m.TotalFillers, m.FillerPercentage, top),
	}
	if top == "" {
		s.Text = fmt.Sprintf("You used filler words %d times (%.1f%% of your words). Replace them with deliberate pauses.",
			m.TotalFillers, m.FillerPercentage)
		return s
	}
	if example := findSentenceWith(sourceText, top); example != "" {
		s.Example = example
		s.ImprovedExample = elideFiller(example, top)
	}
	return s
}

// topFiller picks the most frequent filler term, alphabetical order breaking
// ties so the choice is deterministic.
func topFiller(counts map[string]int) string {
	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	best, bestCount := "", 0
	for _, term := range terms {
		if counts[term] > bestCount {
			best, bestCount = term, counts[term]
		}
	}
	return best
}

// findSentenceWith returns the first sentence of text containing term as a
// whole word, or "".
func findSentenceWith(text, term string) string {
	if text == "" || term == "" {
		return ""
	}
	re, err := regexp.Compile(`(?i)[^.!?]*\b` + regexp.QuoteMeta(term) + `\b[^.!?]*[.!?]?`)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(re.FindString(text))
}

// elideFiller replaces whole-word occurrences of term with "[pause]" and
// tidies the surrounding punctuation commas leave behind.
func elideFiller(sentence, term string) string {
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
	if err != nil {
		return sentence
	}
	out := re.ReplaceAllString(sentence, "[pause]")
	out = strings.ReplaceAll(out, ", [pause],", " [pause]")
	out = strings.ReplaceAll(out, ", [pause]", " [pause]")
	out = strings.ReplaceAll(out, "  ", " ")
	return strings.TrimSpace(out)
}
