package vectorstore

const rrfK = 60

// fuseRankings combines two ranked candidate lists with weighted reciprocal
// rank fusion. alpha in [0,1] shifts weight toward the dense list; scores
// are normalized by the theoretical maximum so a rank-1 hit in both lists
// scores 1.0 and thresholds stay meaningful.
func fuseRankings(denseRanked, sparseRanked []string, alpha float64) map[string]float64 {
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}

	denseWeight := 2 * alpha
	sparseWeight := 2 * (1 - alpha)
	if len(sparseRanked) == 0 {
		// dense-only fallback, full weight on the one available ranking
		denseWeight = 2
		sparseWeight = 0
	}

	scores := make(map[string]float64, len(denseRanked)+len(sparseRanked))
	for i, id := range denseRanked {
		scores[id] += denseWeight / float64(rrfK+i+1)
	}
	for i, id := range sparseRanked {
		scores[id] += sparseWeight / float64(rrfK+i+1)
	}

	maxScore := (denseWeight + sparseWeight) / float64(rrfK+1)
	if maxScore > 0 {
		for id := range scores {
			scores[id] /= maxScore
		}
	}

	return scores
}
