package analysis

import (
	"strings"
	"testing"

	"github.com/orato-labs/speechcoach/internal/models"
)

func TestWordsPerMinuteZeroDuration(t *testing.T) {
	if got := WordsPerMinute(100, 0); got != 0 {
		t.Fatalf("expected 0 WPM for zero duration, got %f", got)
	}
	if got := WordsPerMinute(9, 5); got < 107.9 || got > 108.1 {
		t.Fatalf("expected ~108 WPM, got %f", got)
	}
}

func TestPaceVariabilityConstantRate(t *testing.T) {
	// 40 segments evenly covering 600s at a constant 2 words/sec.
	text := strings.TrimSpace(strings.Repeat("word ", 30))
	var segments []models.Segment
	for i := 0; i < 40; i++ {
		segments = append(segments, models.Segment{
			Text:             text,
			IsPrimarySpeaker: true,
			StartOffset:      float64(i) * 15,
			EndOffset:        float64(i)*15 + 15,
		})
	}
	v := paceVariability(segments, 30)
	if v > 0.001 {
		t.Fatalf("expected ~0 variability for constant pace, got %f", v)
	}
}

func TestPaceVariabilityShortSession(t *testing.T) {
	segments := []models.Segment{
		{Text: "a few words here", IsPrimarySpeaker: true, StartOffset: 0, EndOffset: 10},
	}
	if v := paceVariability(segments, 30); v != 0 {
		t.Fatalf("expected 0 for session shorter than one window, got %f", v)
	}
}

func TestPaceVariabilityUnevenRate(t *testing.T) {
	fast := strings.TrimSpace(strings.Repeat("w ", 120)) // 240 WPM over 30s
	slow := strings.TrimSpace(strings.Repeat("w ", 30))  // 60 WPM over 30s
	segments := []models.Segment{
		{Text: fast, IsPrimarySpeaker: true, StartOffset: 0, EndOffset: 30},
		{Text: slow, IsPrimarySpeaker: true, StartOffset: 30, EndOffset: 60},
	}
	v := paceVariability(segments, 30)
	// Population stddev of {240, 60} is 90.
	if v < 89.9 || v > 90.1 {
		t.Fatalf("expected variability ~90, got %f", v)
	}
}

func TestPaceVariabilityNoSegments(t *testing.T) {
	if v := paceVariability(nil, 30); v != 0 {
		t.Fatalf("expected 0 for no segments, got %f", v)
	}
}
