// Package chunk splits page text into overlapping fixed-size passages.
package chunk

const (
	DefaultSize    = 1000
	DefaultOverlap = 150
)

// Chunker produces rune-window chunks with overlap so evidence spanning a
// boundary is not lost. Identical input and configuration always produce
// identical chunks.
type Chunker struct {
	size    int
	overlap int
}

func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split cuts text into chunks of at most size runes, each starting
// size-overlap runes after the previous one.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var chunks []string
	step := c.size - c.overlap
	for i := 0; i < len(runes); i += step {
		end := i + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
