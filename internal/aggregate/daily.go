package aggregate

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orato-labs/speechcoach/internal/analysis"
	"github.com/orato-labs/speechcoach/internal/models"
	"github.com/orato-labs/speechcoach/internal/suggest"
)

// SessionData pairs a persisted session with its ordered segments, as loaded
// for a rollup.
type SessionData struct {
	Record   models.SessionRecord
	Segments []models.Segment
}

// DailyAggregator folds all of a user's sessions for one day into a single
// analysis result. The day's segments run through the same analyzer as a
// single session does, so per-day and per-session numbers stay comparable.
type DailyAggregator struct {
	analyzer *analysis.Analyzer
	engine   *suggest.Engine
}

func NewDailyAggregator(analyzer *analysis.Analyzer, engine *suggest.Engine) *DailyAggregator {
	return &DailyAggregator{analyzer: analyzer, engine: engine}
}

// Aggregate computes the rollup result for one user and day. Sessions are
// laid end to end on a shared timeline: each session's offsets are rebased
// past the previous session's end, so durations and pace windows never bleed
// across session boundaries and the day's word and speaking-time totals equal
// the per-session sums. A day with no sessions yields an explicit empty
// result rather than nothing.
func (a *DailyAggregator) Aggregate(userID uuid.UUID, day time.Time, sessions []SessionData) *models.AnalysisResult {
	res := &models.AnalysisResult{
		UserID:          userID,
		Date:            Day(day),
		IsDailyRollup:   true,
		SessionsCovered: len(sessions),
	}
	if len(sessions) == 0 {
		res.Metrics = a.analyzer.Analyze(nil)
		return res
	}

	var combined []models.Segment
	var source strings.Builder
	var base float64
	for _, sess := range sessions {
		var maxEnd float64
		for _, seg := range sess.Segments {
			seg.StartOffset += base
			seg.EndOffset += base
			combined = append(combined, seg)
			if seg.EndOffset > maxEnd {
				maxEnd = seg.EndOffset
			}
			if seg.IsPrimarySpeaker {
				source.WriteString(seg.Text)
				source.WriteString(" ")
			}
		}
		base = maxEnd
	}

	res.Metrics = a.analyzer.Analyze(combined)
	res.Suggestions = a.engine.Generate(res.Metrics, source.String())
	return res
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Trend converts a slice of rollup results into chart-ready points, oldest
// first. Non-rollup results are skipped.
func Trend(results []*models.AnalysisResult) []models.TrendPoint {
	var points []models.TrendPoint
	for _, r := range results {
		if r == nil || !r.IsDailyRollup || r.Metrics == nil {
			continue
		}
		points = append(points, models.TrendPoint{
			Date:                r.Date,
			FillerPercentage:    r.Metrics.FillerPercentage,
			AvgWPM:              r.Metrics.AvgWPM,
			VocabularyDiversity: r.Metrics.VocabularyDiversity,
			ConfidenceScore:     r.Metrics.ConfidenceScore,
			StructureScore:      r.Metrics.StructureScore,
			OverallRating:       r.Metrics.OverallRating,
		})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points
}
