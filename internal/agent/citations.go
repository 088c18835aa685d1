package agent

import (
	"sort"

	"casecounsel/internal/index"
)

// Citation identifies the evidence backing part of an answer. Derived from
// the passages surfaced to the model, never stored independently.
type Citation struct {
	Filename string  `json:"filename"`
	Page     int     `json:"page"`
	Score    float32 `json:"score"`
}

// ResolveCitations maps the evidence surfaced during the loop to citations,
// deduplicated by (filename, page) keeping the best score, ordered by
// descending score with (filename, page) as the deterministic tie-break.
func ResolveCitations(evidence []index.Hit) []Citation {
	if len(evidence) == 0 {
		return nil
	}

	type key struct {
		filename string
		page     int
	}
	best := make(map[key]float32)
	for _, h := range evidence {
		k := key{h.Passage.Filename, h.Passage.Page}
		if score, ok := best[k]; !ok || h.Score > score {
			best[k] = h.Score
		}
	}

	citations := make([]Citation, 0, len(best))
	for k, score := range best {
		citations = append(citations, Citation{Filename: k.filename, Page: k.page, Score: score})
	}
	sort.Slice(citations, func(i, j int) bool {
		if citations[i].Score != citations[j].Score {
			return citations[i].Score > citations[j].Score
		}
		if citations[i].Filename != citations[j].Filename {
			return citations[i].Filename < citations[j].Filename
		}
		return citations[i].Page < citations[j].Page
	})
	return citations
}
