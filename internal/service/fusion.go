package service

// FuseScores combines a semantic similarity score and a lexical ranking
// score, each already normalized to [0,1], into a single relevance score.
// It is a pure function of its inputs so fusion policy can be tested and
// changed independently of index plumbing.
func FuseScores(semantic, lexical, semanticWeight, lexicalWeight float64) float64 {
	return clampUnit(semantic)*semanticWeight + clampUnit(lexical)*lexicalWeight
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// normalizeByMax scales a score list so the highest score becomes 1.
// BM25 scores are unbounded above, so a per-list max is the only
// index-native bound available.
func normalizeByMax(scores []float64) []float64 {
	if len(scores) == 0 {
		return scores
	}
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	if max <= 0 {
		out := make([]float64, len(scores))
		return out
	}
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = s / max
	}
	return out
}
