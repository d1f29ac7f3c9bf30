package analysis

// TypeTokenRatio is the count of distinct case-normalized word forms over
// the total word count, in [0,1]. Stopwords are intentionally not excluded;
// diversity is measured over the full lexicon. Zero words yields 0.
func TypeTokenRatio(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	distinct := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		distinct[tok] = struct{}{}
	}
	return float64(len(distinct)) / float64(len(tokens))
}
