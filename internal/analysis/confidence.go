package analysis

// DefaultHedgingPhrases are tentative-language markers counted separately
// from fillers. A term appearing in both sets ("just") contributes to both
// counters; each penalty below is capped independently.
var DefaultHedgingPhrases = []string{
	"i think maybe", "sort of", "just", "probably", "i guess",
}

const (
	maxFillerPenalty = 30.0
	maxHedgePenalty  = 30.0
)

// confidenceScore starts at 100 and subtracts capped penalties for filler
// usage and hedging density, floored at 0.
func confidenceScore(fillerPercentage float64, hedgeCount, totalWords int) float64 {
	score := 100.0

	if fillerPercentage > 0 {
		penalty := fillerPercentage * 3
		if penalty > maxFillerPenalty {
			penalty = maxFillerPenalty
		}
		score -= penalty
	}

	if hedgeCount > 0 && totalWords > 0 {
		hedgesPer100 := float64(hedgeCount) / float64(totalWords) * 100
		penalty := hedgesPer100 * 2
		if penalty > maxHedgePenalty {
			penalty = maxHedgePenalty
		}
		score -= penalty
	}

	if score < 0 {
		score = 0
	}
	return score
}
