package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float32
	}{
		{name: "identical", a: []float32{1, 0}, b: []float32{1, 0}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "dimension mismatch", a: []float32{1, 0}, b: []float32{1, 0, 0}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, CosineSimilarity(tc.a, tc.b), 1e-6)
		})
	}
}

func TestRank_OrdersByScoreDescending(t *testing.T) {
	passages := []Passage{
		{ID: 0, Vector: []float32{0, 1}},
		{ID: 1, Vector: []float32{1, 0}},
		{ID: 2, Vector: []float32{0.7, 0.7}},
	}

	hits := Rank(passages, []float32{1, 0}, 3)
	require.Len(t, hits, 3)
	assert.Equal(t, 1, hits[0].Passage.ID)
	assert.Equal(t, 2, hits[1].Passage.ID)
	assert.Equal(t, 0, hits[2].Passage.ID)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	assert.GreaterOrEqual(t, hits[1].Score, hits[2].Score)
}

func TestRank_TieBrokenByAscendingID(t *testing.T) {
	// Identical vectors produce identical scores.
	passages := []Passage{
		{ID: 7, Vector: []float32{1, 0}},
		{ID: 3, Vector: []float32{1, 0}},
		{ID: 5, Vector: []float32{1, 0}},
	}

	hits := Rank(passages, []float32{1, 0}, 3)
	require.Len(t, hits, 3)
	assert.Equal(t, 3, hits[0].Passage.ID)
	assert.Equal(t, 5, hits[1].Passage.ID)
	assert.Equal(t, 7, hits[2].Passage.ID)
}

func TestRank_KLargerThanCorpus(t *testing.T) {
	passages := []Passage{
		{ID: 0, Vector: []float32{1, 0}},
		{ID: 1, Vector: []float32{0, 1}},
	}
	hits := Rank(passages, []float32{1, 0}, 10)
	assert.Len(t, hits, 2)
}

func TestRank_Degenerate(t *testing.T) {
	passages := []Passage{{ID: 0, Vector: []float32{1, 0}}}
	assert.Nil(t, Rank(passages, []float32{1, 0}, 0))
	assert.Nil(t, Rank(nil, []float32{1, 0}, 3))
	assert.Nil(t, Rank(passages, nil, 3))
}

func TestIndex_SearchIsDeterministic(t *testing.T) {
	ix := &Index{passages: []Passage{
		{ID: 0, Vector: []float32{1, 0}},
		{ID: 1, Vector: []float32{0.9, 0.1}},
		{ID: 2, Vector: []float32{0, 1}},
	}}

	first := ix.Search([]float32{1, 0}, 2)
	second := ix.Search([]float32{1, 0}, 2)
	assert.Equal(t, first, second)
}
