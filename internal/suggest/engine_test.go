package suggest

import (
	"strings"
	"testing"

	"github.com/orato-labs/speechcoach/internal/models"
)

func TestGenerateOrdering(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	m := &models.MetricsSnapshot{
		TotalWords:          200,
		TotalFillers:        20,
		FillerPercentage:    10, // urgent, priority 5
		FillerCounts:        map[string]int{"um": 12, "like": 8},
		AvgWPM:              120, // below range, priority 4
		PaceVariability:     25,  // priority 3
		VocabularyDiversity: 0.3, // priority 2
		ConfidenceScore:     40,  // priority 4
		StructureScore:      40,  // priority 3
		SegmentCount:        4,
		HedgeCount:          6,
	}
	got := e.Generate(m, "")
	want := []models.SuggestionType{
		models.SuggestionFillerWords,
		models.SuggestionConfidence,
		models.SuggestionPace,
		models.SuggestionPaceConsistency,
		models.SuggestionStructure,
		models.SuggestionVocabulary,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d suggestions, got %d", len(want), len(got))
	}
	for i, s := range got {
		if s.Type != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], s.Type)
		}
	}
	if got[0].Priority != 5 {
		t.Fatalf("expected urgent filler priority 5, got %d", got[0].Priority)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Priority > got[i-1].Priority {
			t.Fatalf("suggestions out of priority order at %d", i)
		}
	}
}

func TestFillerPriorityBoundary(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	m := &models.MetricsSnapshot{
		TotalWords:       100,
		TotalFillers:     6,
		FillerPercentage: 6,
		FillerCounts:     map[string]int{"um": 6},
	}
	got := e.Generate(m, "")
	if len(got) != 1 || got[0].Type != models.SuggestionFillerWords {
		t.Fatalf("expected a single filler suggestion, got %v", got)
	}
	if got[0].Priority != 3 {
		t.Fatalf("6%% fillers should be priority 3, got %d", got[0].Priority)
	}
}

func TestFillerExampleFromSource(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	m := &models.MetricsSnapshot{
		TotalWords:       10,
		TotalFillers:     2,
		FillerPercentage: 20,
		FillerCounts:     map[string]int{"um": 1, "uh": 1},
	}
	src := "This is, um, a test. I uh think it works."
	got := e.Generate(m, src)
	if len(got) == 0 || got[0].Type != models.SuggestionFillerWords {
		t.Fatalf("expected filler suggestion first, got %v", got)
	}
	s := got[0]
	if s.Example != "This is, um, a test." {
		t.Fatalf("unexpected example: %q", s.Example)
	}
	if s.ImprovedExample != "This is [pause] a test." {
		t.Fatalf("unexpected improved example: %q", s.ImprovedExample)
	}
}

func TestFillerExampleMixedCaseSource(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	m := &models.MetricsSnapshot{
		TotalWords:       12,
		TotalFillers:     1,
		FillerPercentage: 8,
		FillerCounts:     map[string]int{"um": 1},
	}
	// "İ" lowercases to a longer UTF-8 sequence; the extracted sentence must
	// still come out of the original text intact.
	src := "İstanbul was great. Um, I agree fully."
	got := e.Generate(m, src)
	if len(got) == 0 || got[0].Type != models.SuggestionFillerWords {
		t.Fatalf("expected filler suggestion first, got %v", got)
	}
	if got[0].Example != "Um, I agree fully." {
		t.Fatalf("unexpected example: %q", got[0].Example)
	}
	if got[0].ImprovedExample != "[pause], I agree fully." {
		t.Fatalf("unexpected improved example: %q", got[0].ImprovedExample)
	}
}

func TestFillerExampleWithoutSource(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	m := &models.MetricsSnapshot{
		TotalWords:       100,
		TotalFillers:     10,
		FillerPercentage: 10,
		FillerCounts:     map[string]int{"like": 10},
	}
	got := e.Generate(m, "nothing relevant here at all")
	if len(got) == 0 {
		t.Fatal("expected a suggestion")
	}
	if got[0].Example != "" || got[0].ImprovedExample != "" {
		t.Fatalf("expected no fabricated example, got %q / %q", got[0].Example, got[0].ImprovedExample)
	}
	if !strings.Contains(got[0].Text, `"like"`) {
		t.Fatalf("expected top filler named in text: %q", got[0].Text)
	}
}

func TestPaceDirections(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	slow := e.Generate(&models.MetricsSnapshot{TotalWords: 50, AvgWPM: 100, ConfidenceScore: 100, StructureScore: 100, VocabularyDiversity: 1, SegmentCount: 1}, "")
	if len(slow) != 1 || !strings.Contains(slow[0].Text, "below") {
		t.Fatalf("expected slow-pace advice, got %v", slow)
	}
	fast := e.Generate(&models.MetricsSnapshot{TotalWords: 50, AvgWPM: 200, ConfidenceScore: 100, StructureScore: 100, VocabularyDiversity: 1, SegmentCount: 1}, "")
	if len(fast) != 1 || !strings.Contains(fast[0].Text, "above") {
		t.Fatalf("expected fast-pace advice, got %v", fast)
	}
}

func TestCleanSnapshotNoSuggestions(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	m := &models.MetricsSnapshot{
		TotalWords:          150,
		FillerPercentage:    2,
		AvgWPM:              160,
		PaceVariability:     8,
		VocabularyDiversity: 0.7,
		ConfidenceScore:     90,
		StructureScore:      85,
		SegmentCount:        3,
	}
	if got := e.Generate(m, ""); len(got) != 0 {
		t.Fatalf("expected no suggestions, got %v", got)
	}
}

func TestEmptySnapshotSilent(t *testing.T) {
	e := NewEngine(DefaultThresholds())
	if got := e.Generate(&models.MetricsSnapshot{}, ""); len(got) != 0 {
		t.Fatalf("zero-value snapshot should stay silent, got %v", got)
	}
	if got := e.Generate(nil, ""); got != nil {
		t.Fatalf("nil snapshot should return nil, got %v", got)
	}
}
