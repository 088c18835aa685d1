// Package index implements the persisted vector index over case passages:
// an on-disk versioned artifact built offline and loaded read-only at serve
// time, plus similarity search over loaded passages.
package index

import (
	"math"
	"sort"
	"time"
)

const FormatVersion = 1

// Passage is the unit of retrieval: a bounded span of document text with
// page-level provenance and its embedding vector.
type Passage struct {
	ID       int       `json:"id"`
	Filename string    `json:"filename"`
	Page     int       `json:"page"`
	Text     string    `json:"text"`
	Vector   []float32 `json:"vector"`
}

// Hit is a passage with its similarity score. Higher is more relevant.
type Hit struct {
	Passage Passage `json:"passage"`
	Score   float32 `json:"score"`
}

// Manifest describes one index artifact. The embedding model is pinned at
// build time; querying with a different model silently corrupts similarity
// semantics, so the loader checks it against the serving configuration.
type Manifest struct {
	FormatVersion  int       `json:"format_version"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	PassageCount   int       `json:"passage_count"`
	BuiltAt        time.Time `json:"built_at"`
}

// Index holds the loaded artifact. It is immutable after load, so Search is
// safe under arbitrary concurrent callers.
type Index struct {
	manifest Manifest
	passages []Passage
}

func (ix *Index) Manifest() Manifest { return ix.manifest }

func (ix *Index) Len() int { return len(ix.passages) }

// Search returns the k nearest passages to the query vector by cosine
// similarity, ordered by descending score.
func (ix *Index) Search(vector []float32, k int) []Hit {
	return Rank(ix.passages, vector, k)
}

// Rank scores passages against the query vector and returns the top k,
// ordered by descending score with ties broken by ascending passage id so
// results are deterministic.
func Rank(passages []Passage, vector []float32, k int) []Hit {
	if k <= 0 || len(passages) == 0 || len(vector) == 0 {
		return nil
	}

	hits := make([]Hit, 0, len(passages))
	for _, p := range passages {
		hits = append(hits, Hit{Passage: p, Score: CosineSimilarity(vector, p.Vector)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Passage.ID < hits[j].Passage.ID
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k]
}

// CosineSimilarity returns 0 for mismatched or zero-norm vectors.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
