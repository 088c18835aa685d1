package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casecounsel/internal/index"
)

func hit(filename string, page int, score float32) index.Hit {
	return index.Hit{
		Passage: index.Passage{Filename: filename, Page: page},
		Score:   score,
	}
}

func TestResolveCitations_Empty(t *testing.T) {
	assert.Nil(t, ResolveCitations(nil))
	assert.Nil(t, ResolveCitations([]index.Hit{}))
}

func TestResolveCitations_DedupesKeepingBestScore(t *testing.T) {
	citations := ResolveCitations([]index.Hit{
		hit("a.pdf", 1, 0.4),
		hit("a.pdf", 1, 0.8),
		hit("a.pdf", 1, 0.6),
	})

	require.Len(t, citations, 1)
	assert.Equal(t, "a.pdf", citations[0].Filename)
	assert.Equal(t, 1, citations[0].Page)
	assert.Equal(t, float32(0.8), citations[0].Score)
}

func TestResolveCitations_DistinctPagesKept(t *testing.T) {
	citations := ResolveCitations([]index.Hit{
		hit("a.pdf", 1, 0.5),
		hit("a.pdf", 2, 0.7),
		hit("b.pdf", 1, 0.6),
	})

	require.Len(t, citations, 3)
	assert.Equal(t, Citation{Filename: "a.pdf", Page: 2, Score: 0.7}, citations[0])
	assert.Equal(t, Citation{Filename: "b.pdf", Page: 1, Score: 0.6}, citations[1])
	assert.Equal(t, Citation{Filename: "a.pdf", Page: 1, Score: 0.5}, citations[2])
}

func TestResolveCitations_TieBreakDeterministic(t *testing.T) {
	citations := ResolveCitations([]index.Hit{
		hit("b.pdf", 2, 0.5),
		hit("a.pdf", 9, 0.5),
		hit("a.pdf", 2, 0.5),
	})

	require.Len(t, citations, 3)
	assert.Equal(t, Citation{Filename: "a.pdf", Page: 2, Score: 0.5}, citations[0])
	assert.Equal(t, Citation{Filename: "a.pdf", Page: 9, Score: 0.5}, citations[1])
	assert.Equal(t, Citation{Filename: "b.pdf", Page: 2, Score: 0.5}, citations[2])
}
