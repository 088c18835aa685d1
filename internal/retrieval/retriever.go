// Package retrieval answers similarity queries against the persisted index
// and builds request-scoped transient context from uploads.
package retrieval

import (
	"context"
	"fmt"

	"casecounsel/internal/index"
)

// Embedder is the slice of the AI client needed to embed a query.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever performs top-K similarity search against a loaded index. The
// index is never mutated during serving, so Search is safe under arbitrary
// concurrent callers.
type Retriever struct {
	idx      *index.Index
	embedder Embedder
	maxTopK  int
	minScore float32
}

func NewRetriever(idx *index.Index, embedder Embedder, maxTopK int, minScore float64) *Retriever {
	if maxTopK <= 0 {
		maxTopK = 20
	}
	return &Retriever{
		idx:      idx,
		embedder: embedder,
		maxTopK:  maxTopK,
		minScore: float32(minScore),
	}
}

// ClampTopK bounds a caller-supplied k to [1, maxTopK], substituting def
// when k is unset.
func (r *Retriever) ClampTopK(k, def int) int {
	if k <= 0 {
		k = def
	}
	if k <= 0 {
		k = 1
	}
	if k > r.maxTopK {
		k = r.maxTopK
	}
	return k
}

// Search embeds the query and returns at most topK passages scoring above
// the relevance bar, ordered by descending score.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]index.Hit, error) {
	topK = r.ClampTopK(topK, topK)

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query failed: %w", err)
	}

	return filterByScore(r.idx.Search(vector, topK), r.minScore), nil
}

func filterByScore(hits []index.Hit, minScore float32) []index.Hit {
	kept := hits[:0]
	for _, h := range hits {
		if h.Score >= minScore {
			kept = append(kept, h)
		}
	}
	return kept
}
