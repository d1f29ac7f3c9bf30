package aggregate

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/orato-labs/speechcoach/internal/analysis"
	"github.com/orato-labs/speechcoach/internal/models"
	"github.com/orato-labs/speechcoach/internal/suggest"
)

func newAggregator() *DailyAggregator {
	return NewDailyAggregator(
		analysis.NewAnalyzer(analysis.DefaultConfig()),
		suggest.NewEngine(suggest.DefaultThresholds()),
	)
}

func seg(text string, start, end float64) models.Segment {
	return models.Segment{
		Text:             text,
		SpeakerLabel:     "speaker_0",
		IsPrimarySpeaker: true,
		StartOffset:      start,
		EndOffset:        end,
	}
}

func TestAggregateSumsAcrossSessions(t *testing.T) {
	agg := newAggregator()
	userID := uuid.New()
	day := time.Date(2026, 3, 14, 15, 9, 0, 0, time.UTC)

	sessions := []SessionData{
		{Segments: []models.Segment{
			seg("the quick brown fox jumps", 0, 10),
			seg("over the lazy dog today", 10, 20),
		}},
		{Segments: []models.Segment{
			seg("we shipped the release candidate", 0, 15),
		}},
	}

	res := agg.Aggregate(userID, day, sessions)
	if res.UserID != userID || !res.IsDailyRollup {
		t.Fatalf("unexpected result envelope: %+v", res)
	}
	if res.SessionsCovered != 2 {
		t.Fatalf("expected 2 sessions covered, got %d", res.SessionsCovered)
	}
	if !res.Date.Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected midnight date, got %v", res.Date)
	}
	if res.Metrics.TotalWords != 15 {
		t.Fatalf("expected 15 words across the day, got %d", res.Metrics.TotalWords)
	}
	if math.Abs(res.Metrics.SpeakingSeconds-35) > 1e-9 {
		t.Fatalf("expected 35 speaking seconds, got %v", res.Metrics.SpeakingSeconds)
	}
}

func TestAggregateRebasesOffsets(t *testing.T) {
	agg := newAggregator()
	// Two sessions whose raw offsets overlap; rebasing keeps each segment's
	// duration so the day's total never double-counts time.
	sessions := []SessionData{
		{Segments: []models.Segment{seg("one two three four", 0, 30)}},
		{Segments: []models.Segment{seg("five six seven eight", 0, 30)}},
	}
	res := agg.Aggregate(uuid.New(), time.Now(), sessions)
	if math.Abs(res.Metrics.SpeakingSeconds-60) > 1e-9 {
		t.Fatalf("expected 60 speaking seconds, got %v", res.Metrics.SpeakingSeconds)
	}
	if res.Metrics.TotalWords != 8 {
		t.Fatalf("expected 8 words, got %d", res.Metrics.TotalWords)
	}
}

func TestAggregateEmptyDay(t *testing.T) {
	agg := newAggregator()
	res := agg.Aggregate(uuid.New(), time.Now(), nil)
	if res == nil {
		t.Fatal("empty day must still produce a result")
	}
	if res.SessionsCovered != 0 {
		t.Fatalf("expected 0 sessions covered, got %d", res.SessionsCovered)
	}
	if res.Metrics == nil || res.Metrics.TotalWords != 0 {
		t.Fatalf("expected zero snapshot, got %+v", res.Metrics)
	}
	if len(res.Suggestions) != 0 {
		t.Fatalf("expected no suggestions for an empty day, got %v", res.Suggestions)
	}
}

func TestAggregateSuggestionsUseSource(t *testing.T) {
	agg := newAggregator()
	sessions := []SessionData{
		{Segments: []models.Segment{
			seg("So um I think the plan is um solid.", 0, 10),
		}},
	}
	res := agg.Aggregate(uuid.New(), time.Now(), sessions)
	var filler *models.Suggestion
	for i := range res.Suggestions {
		if res.Suggestions[i].Type == models.SuggestionFillerWords {
			filler = &res.Suggestions[i]
		}
	}
	if filler == nil {
		t.Fatalf("expected a filler suggestion, got %v", res.Suggestions)
	}
	if filler.Example == "" {
		t.Fatal("expected the example drawn from the day's own words")
	}
}

func TestTrendOrdersByDate(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2026, 4, day, 0, 0, 0, 0, time.UTC) }
	results := []*models.AnalysisResult{
		{IsDailyRollup: true, Date: d(3), Metrics: &models.MetricsSnapshot{AvgWPM: 150}},
		{IsDailyRollup: false, Date: d(1), Metrics: &models.MetricsSnapshot{AvgWPM: 999}},
		{IsDailyRollup: true, Date: d(1), Metrics: &models.MetricsSnapshot{AvgWPM: 120}},
		{IsDailyRollup: true, Date: d(2), Metrics: nil},
	}
	points := Trend(results)
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if !points[0].Date.Equal(d(1)) || points[0].AvgWPM != 120 {
		t.Fatalf("unexpected first point: %+v", points[0])
	}
	if !points[1].Date.Equal(d(3)) || points[1].AvgWPM != 150 {
		t.Fatalf("unexpected second point: %+v", points[1])
	}
}
