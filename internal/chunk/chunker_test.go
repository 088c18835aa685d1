package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	c := New(100, 20)
	chunks := c.Split("short text")
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}

func TestSplit_EmptyText(t *testing.T) {
	c := New(100, 20)
	assert.Nil(t, c.Split(""))
}

func TestSplit_OverlapBetweenChunks(t *testing.T) {
	c := New(10, 4)
	text := "abcdefghijklmnopqrstuvwxyz"

	chunks := c.Split(text)
	require.GreaterOrEqual(t, len(chunks), 2)

	// Each chunk starts size-overlap runes after the previous one, so the
	// last overlap runes of one chunk open the next.
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1])
		tail := string(prev[len(prev)-4:])
		assert.True(t, strings.HasPrefix(chunks[i], tail),
			"chunk %d should start with the previous chunk's tail", i)
	}
}

func TestSplit_CoversWholeText(t *testing.T) {
	c := New(10, 4)
	text := "abcdefghijklmnopqrstuvwxyz0123456789"

	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	assert.True(t, strings.HasPrefix(text, chunks[0]))
	assert.True(t, strings.HasSuffix(text, chunks[len(chunks)-1]))
}

func TestSplit_Deterministic(t *testing.T) {
	c := New(50, 10)
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 20)

	first := c.Split(text)
	second := c.Split(text)
	assert.Equal(t, first, second)
}

func TestSplit_RuneBoundaries(t *testing.T) {
	c := New(4, 1)
	text := "héllo wörld ünïcode"

	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len([]rune(chunk)), 4)
		assert.True(t, strings.Contains(text, chunk))
	}
}

func TestNew_ClampsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{name: "zero size", size: 0, overlap: 10},
		{name: "negative overlap", size: 100, overlap: -1},
		{name: "overlap at size", size: 10, overlap: 10},
		{name: "overlap above size", size: 10, overlap: 50},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := New(tc.size, tc.overlap)
			// Must terminate and produce chunks no larger than the size.
			chunks := c.Split(strings.Repeat("x", 5000))
			require.NotEmpty(t, chunks)
			for _, chunk := range chunks {
				assert.LessOrEqual(t, len([]rune(chunk)), c.size)
			}
		})
	}
}
