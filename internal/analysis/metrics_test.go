package analysis

import (
	"math"
	"testing"

	"github.com/orato-labs/speechcoach/internal/models"
)

func floatNear(a, b float64) bool {
	return math.Abs(a-b) < 0.01
}

func TestAnalyzeTwoSegmentScenario(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())
	snap := a.Analyze([]models.Segment{
		{Text: "This is, um, a test.", SpeakerLabel: "SPEAKER_00", IsPrimarySpeaker: true, StartOffset: 0, EndOffset: 2},
		{Text: "I uh think it works.", SpeakerLabel: "SPEAKER_00", IsPrimarySpeaker: true, StartOffset: 2, EndOffset: 5},
	})

	if snap.FillerCounts["um"] != 1 || snap.FillerCounts["uh"] != 1 {
		t.Fatalf("unexpected filler counts: %v", snap.FillerCounts)
	}
	if snap.TotalFillers != 2 {
		t.Fatalf("expected 2 total fillers, got %d", snap.TotalFillers)
	}
	if snap.TotalWords != 10 {
		t.Fatalf("expected 10 words, got %d", snap.TotalWords)
	}
	if !floatNear(snap.FillerPercentage, 20) {
		t.Fatalf("expected 20%% filler, got %f", snap.FillerPercentage)
	}
	if !floatNear(snap.SpeakingSeconds, 5) {
		t.Fatalf("expected 5s speaking time, got %f", snap.SpeakingSeconds)
	}
	if !floatNear(snap.AvgWPM, 120) {
		t.Fatalf("expected 120 WPM, got %f", snap.AvgWPM)
	}
	if !floatNear(snap.VocabularyDiversity, 1.0) {
		t.Fatalf("expected diversity 1.0, got %f", snap.VocabularyDiversity)
	}
	// 100 - capped filler penalty (20% * 3 capped at 30).
	if !floatNear(snap.ConfidenceScore, 70) {
		t.Fatalf("expected confidence 70, got %f", snap.ConfidenceScore)
	}
	// Both segments end with terminal punctuation, no discourse markers.
	if !floatNear(snap.StructureScore, 70) {
		t.Fatalf("expected structure 70, got %f", snap.StructureScore)
	}
}

func TestAnalyzeEmptyInput(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())
	snap := a.Analyze(nil)
	if snap.TotalWords != 0 || snap.TotalFillers != 0 || snap.AvgWPM != 0 ||
		snap.FillerPercentage != 0 || snap.VocabularyDiversity != 0 ||
		snap.ConfidenceScore != 0 || snap.StructureScore != 0 || snap.OverallRating != 0 {
		t.Fatalf("expected zero snapshot, got %+v", snap)
	}
}

func TestAnalyzeExcludesNonPrimarySpeakers(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())
	snap := a.Analyze([]models.Segment{
		{Text: "um um um", SpeakerLabel: "SPEAKER_01", IsPrimarySpeaker: false, StartOffset: 0, EndOffset: 5},
		{Text: "Clear confident speech here.", SpeakerLabel: "SPEAKER_00", IsPrimarySpeaker: true, StartOffset: 5, EndOffset: 7},
	})
	if snap.TotalFillers != 0 {
		t.Fatalf("non-primary fillers leaked into metrics: %+v", snap)
	}
	if snap.TotalWords != 4 {
		t.Fatalf("expected 4 primary words, got %d", snap.TotalWords)
	}
	if snap.ParticipantCount != 2 {
		t.Fatalf("expected 2 participants, got %d", snap.ParticipantCount)
	}
}

func TestAnalyzeZeroDurationSegments(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())
	snap := a.Analyze([]models.Segment{
		{Text: "words with no time", IsPrimarySpeaker: true, StartOffset: 3, EndOffset: 3},
	})
	if snap.AvgWPM != 0 {
		t.Fatalf("expected 0 WPM for zero duration, got %f", snap.AvgWPM)
	}
	if snap.TotalWords != 4 {
		t.Fatalf("expected 4 words, got %d", snap.TotalWords)
	}
}

func TestHedgeAndFillerCountedIndependently(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())
	snap := a.Analyze([]models.Segment{
		{Text: "I just probably need it.", IsPrimarySpeaker: true, StartOffset: 0, EndOffset: 3},
	})
	// "just" is both a filler and a hedge; "probably" only a hedge.
	if snap.FillerCounts["just"] != 1 {
		t.Fatalf("expected just counted as filler: %v", snap.FillerCounts)
	}
	if snap.HedgeCount != 2 {
		t.Fatalf("expected 2 hedges, got %d", snap.HedgeCount)
	}
}

func TestOverallRatingBounds(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())
	// A pathological input: every word a filler.
	snap := a.Analyze([]models.Segment{
		{Text: "um uh um uh um uh", IsPrimarySpeaker: true, StartOffset: 0, EndOffset: 2},
	})
	if snap.OverallRating < 0 || snap.OverallRating > 100 {
		t.Fatalf("rating out of bounds: %f", snap.OverallRating)
	}
	if snap.FillerPercentage != 100 {
		t.Fatalf("expected 100%% fillers, got %f", snap.FillerPercentage)
	}
}

func TestPaceComponent(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())
	cases := []struct {
		wpm  float64
		want float64
	}{
		{0, 0},
		{160, 100},
		{140, 100},
		{180, 100},
		{120, 80},
		{200, 80},
		{400, 0},
	}
	for _, c := range cases {
		if got := a.paceComponent(c.wpm); !floatNear(got, c.want) {
			t.Fatalf("paceComponent(%f): expected %f, got %f", c.wpm, c.want, got)
		}
	}
}

func TestStructureScoreMarkers(t *testing.T) {
	a := NewAnalyzer(DefaultConfig())
	snap := a.Analyze([]models.Segment{
		{Text: "First, let me outline the plan.", IsPrimarySpeaker: true, StartOffset: 0, EndOffset: 4},
		{Text: "So the next step follows naturally.", IsPrimarySpeaker: true, StartOffset: 4, EndOffset: 8},
		{Text: "In conclusion, it worked.", IsPrimarySpeaker: true, StartOffset: 8, EndOffset: 12},
	})
	// All segments complete (70) + all three marker categories (30).
	if !floatNear(snap.StructureScore, 100) {
		t.Fatalf("expected structure 100, got %f", snap.StructureScore)
	}
}
