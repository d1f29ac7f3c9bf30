package analysis

import (
	"math"
	"strings"

	"github.com/orato-labs/speechcoach/internal/models"
)

// Config carries the tunable knobs of the metrics computation. The zero
// value is not usable; start from DefaultConfig.
type Config struct {
	FillerTerms       []string
	HedgingPhrases    []string
	PaceWindowSeconds float64
	OptimalWPMLow     float64
	OptimalWPMHigh    float64
	Weights           RatingWeights
}

// RatingWeights blend the metric dimensions into the overall rating. They
// should sum to 1.
type RatingWeights struct {
	Filler     float64
	Pace       float64
	Vocabulary float64
	Confidence float64
	Structure  float64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		FillerTerms:       DefaultFillerTerms,
		HedgingPhrases:    DefaultHedgingPhrases,
		PaceWindowSeconds: 30,
		OptimalWPMLow:     140,
		OptimalWPMHigh:    180,
		Weights: RatingWeights{
			Filler:     0.25,
			Pace:       0.20,
			Vocabulary: 0.20,
			Confidence: 0.20,
			Structure:  0.15,
		},
	}
}

// Analyzer computes metrics snapshots from segment lists. It holds no
// mutable state after construction and is safe for concurrent use.
type Analyzer struct {
	cfg     Config
	fillers *fillerMatcher
	hedges  *fillerMatcher
}

func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{
		cfg:     cfg,
		fillers: newFillerMatcher(cfg.FillerTerms),
		hedges:  newFillerMatcher(cfg.HedgingPhrases),
	}
}

// Analyze computes a MetricsSnapshot over the given segments. Non-primary
// speakers are excluded from every metric except the participant count. An
// empty or wordless input produces a well-defined zero snapshot.
func (a *Analyzer) Analyze(segments []models.Segment) *models.MetricsSnapshot {
	speakers := make(map[string]struct{})
	var primary []models.Segment
	for _, seg := range segments {
		if seg.SpeakerLabel != "" {
			speakers[seg.SpeakerLabel] = struct{}{}
		}
		if seg.IsPrimarySpeaker {
			primary = append(primary, seg)
		}
	}

	snap := &models.MetricsSnapshot{
		FillerCounts:     map[string]int{},
		SegmentCount:     len(primary),
		ParticipantCount: len(speakers),
	}
	if len(primary) == 0 {
		return snap
	}

	var combined strings.Builder
	var speakingSeconds float64
	for _, seg := range primary {
		combined.WriteString(seg.Text)
		combined.WriteString(" ")
		if d := seg.Duration(); d > 0 {
			speakingSeconds += d
		}
	}
	tokens := Tokenize(combined.String())

	snap.TotalWords = len(tokens)
	snap.SpeakingSeconds = speakingSeconds

	snap.FillerCounts, snap.TotalFillers = a.fillers.count(tokens)
	snap.FillerPercentage = FillerPercentage(snap.TotalFillers, snap.TotalWords)

	_, snap.HedgeCount = a.hedges.count(tokens)

	snap.AvgWPM = WordsPerMinute(snap.TotalWords, speakingSeconds)
	snap.PaceVariability = paceVariability(primary, a.cfg.PaceWindowSeconds)

	snap.VocabularyDiversity = TypeTokenRatio(tokens)
	snap.ConfidenceScore = confidenceScore(snap.FillerPercentage, snap.HedgeCount, snap.TotalWords)
	snap.StructureScore = structureScore(primary)
	snap.OverallRating = a.overallRating(snap)

	return snap
}

// paceComponent scores the average pace against the optimal range: 100
// inside the range, minus one point per WPM of deviation outside it, floor 0.
// A zero WPM (no speech or no duration) scores 0.
func (a *Analyzer) paceComponent(avgWPM float64) float64 {
	if avgWPM <= 0 {
		return 0
	}
	var deviation float64
	switch {
	case avgWPM < a.cfg.OptimalWPMLow:
		deviation = a.cfg.OptimalWPMLow - avgWPM
	case avgWPM > a.cfg.OptimalWPMHigh:
		deviation = avgWPM - a.cfg.OptimalWPMHigh
	}
	return math.Max(0, 100-deviation)
}

func (a *Analyzer) overallRating(m *models.MetricsSnapshot) float64 {
	if m.TotalWords == 0 {
		return 0
	}
	w := a.cfg.Weights
	fillerComponent := math.Max(0, 100-m.FillerPercentage)
	rating := w.Filler*fillerComponent +
		w.Pace*a.paceComponent(m.AvgWPM) +
		w.Vocabulary*m.VocabularyDiversity*100 +
		w.Confidence*m.ConfidenceScore +
		w.Structure*m.StructureScore
	return math.Min(100, math.Max(0, rating))
}
