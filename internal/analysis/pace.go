package analysis

import (
	"math"

	"github.com/orato-labs/speechcoach/internal/models"
)

// WordsPerMinute is word count over duration, zero-safe: a zero or negative
// duration reports 0 WPM rather than a fault.
func WordsPerMinute(wordCount int, seconds float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return float64(wordCount) / (seconds / 60.0)
}

// paceVariability splits the time span covered by the segments into fixed
// windows, attributes each segment's words to windows by proportional
// overlap, and returns the population standard deviation of per-window WPM.
// Sessions shorter than one window yield 0.
func paceVariability(segments []models.Segment, windowSeconds float64) float64 {
	if len(segments) == 0 || windowSeconds <= 0 {
		return 0
	}

	minStart := segments[0].StartOffset
	maxEnd := segments[0].EndOffset
	for _, seg := range segments {
		if seg.StartOffset < minStart {
			minStart = seg.StartOffset
		}
		if seg.EndOffset > maxEnd {
			maxEnd = seg.EndOffset
		}
	}
	span := maxEnd - minStart
	if span < windowSeconds {
		return 0
	}

	numWindows := int(math.Ceil(span / windowSeconds))
	words := make([]float64, numWindows)
	covered := make([]float64, numWindows)

	for _, seg := range segments {
		dur := seg.Duration()
		if dur <= 0 {
			continue
		}
		segWords := float64(CountWords(seg.Text))
		for w := 0; w < numWindows; w++ {
			winStart := minStart + float64(w)*windowSeconds
			winEnd := winStart + windowSeconds
			overlap := math.Min(seg.EndOffset, winEnd) - math.Max(seg.StartOffset, winStart)
			if overlap <= 0 {
				continue
			}
			words[w] += segWords * (overlap / dur)
			covered[w] += overlap
		}
	}

	var wpms []float64
	for w := 0; w < numWindows; w++ {
		if covered[w] <= 0 {
			continue
		}
		wpms = append(wpms, words[w]/(covered[w]/60.0))
	}
	if len(wpms) < 2 {
		return 0
	}

	var sum float64
	for _, v := range wpms {
		sum += v
	}
	mean := sum / float64(len(wpms))
	var sq float64
	for _, v := range wpms {
		d := v - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(wpms)))
}
