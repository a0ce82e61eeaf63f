package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseRankings_TopOfBothListsScoresOne(t *testing.T) {
	scores := fuseRankings([]string{"a", "b"}, []string{"a", "c"}, 0.7)

	assert.InDelta(t, 1.0, scores["a"], 1e-9)
	assert.Less(t, scores["b"], scores["a"])
	assert.Less(t, scores["c"], scores["a"])
}

func TestFuseRankings_AlphaShiftsWeight(t *testing.T) {
	dense := []string{"d"}
	sparse := []string{"s"}

	high := fuseRankings(dense, sparse, 0.9)
	low := fuseRankings(dense, sparse, 0.1)

	assert.Greater(t, high["d"], high["s"])
	assert.Greater(t, low["s"], low["d"])
}

func TestFuseRankings_DenseOnlyFallback(t *testing.T) {
	// an empty sparse ranking puts full weight on the dense list, so the
	// top dense hit still reaches 1.0 regardless of alpha
	scores := fuseRankings([]string{"a", "b"}, nil, 0.3)

	assert.InDelta(t, 1.0, scores["a"], 1e-9)
	assert.Greater(t, scores["a"], scores["b"])
}

func TestFuseRankings_RankMonotonicity(t *testing.T) {
	ranked := []string{"a", "b", "c", "d"}
	scores := fuseRankings(ranked, ranked, 0.5)

	for i := 1; i < len(ranked); i++ {
		assert.Greater(t, scores[ranked[i-1]], scores[ranked[i]])
	}
}

func TestFuseRankings_AlphaClamped(t *testing.T) {
	scores := fuseRankings([]string{"a"}, []string{"b"}, 1.5)
	require.Contains(t, scores, "a")
	// all weight on dense at the clamp
	assert.InDelta(t, 1.0, scores["a"], 1e-9)
	assert.InDelta(t, 0.0, scores["b"], 1e-9)
}

func TestFuseRankings_Empty(t *testing.T) {
	assert.Empty(t, fuseRankings(nil, nil, 0.7))
}
