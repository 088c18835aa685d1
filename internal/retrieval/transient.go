package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"casecounsel/internal/chunk"
	"casecounsel/internal/index"
	"casecounsel/internal/ingest"
)

// ErrUnsupportedUpload marks per-request transient documents that cannot be
// used: unreadable content or content over the configured size limit.
var ErrUnsupportedUpload = errors.New("unsupported upload")

// TransientFilename names raw-text context supplied without a file.
const TransientFilename = "user_document"

// BatchEmbedder is the slice of the AI client needed to embed passages.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ContextEmbedder embeds both the request-scoped passages and the lookup
// queries run against them. The same pinned model must serve both.
type ContextEmbedder interface {
	Embedder
	BatchEmbedder
}

// PageCache caches extracted upload text keyed by content hash, so
// re-sending the same document within a session does not re-extract. It
// holds page text only; embeddings and passages stay request-scoped.
type PageCache interface {
	GetPages(ctx context.Context, key string) ([]ingest.PageText, bool, error)
	SetPages(ctx context.Context, key string, pages []ingest.PageText) error
}

// TransientContext holds passages built for a single request. They are
// structurally identical to persisted passages but are never written to the
// index and are discarded when the request ends.
type TransientContext struct {
	passages []index.Passage
	embedder Embedder
	minScore float32
}

func (t *TransientContext) Empty() bool { return t == nil || len(t.passages) == 0 }

func (t *TransientContext) Len() int {
	if t == nil {
		return 0
	}
	return len(t.passages)
}

// Search scores the transient passages against the query vector the same
// way the persisted index is searched.
func (t *TransientContext) Search(ctx context.Context, query string, topK int) ([]index.Hit, error) {
	if t.Empty() {
		return nil, nil
	}
	vector, err := t.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed transient query failed: %w", err)
	}
	return filterByScore(index.Rank(t.passages, vector, topK), t.minScore), nil
}

// TransientBuilder runs ingest, chunk and embed in memory for one request.
type TransientBuilder struct {
	chunker  *chunk.Chunker
	embedder ContextEmbedder
	cache    PageCache // optional
	maxBytes int64
	minScore float32
}

func NewTransientBuilder(chunker *chunk.Chunker, embedder ContextEmbedder, cache PageCache, maxBytes int64, minScore float64) *TransientBuilder {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &TransientBuilder{
		chunker:  chunker,
		embedder: embedder,
		cache:    cache,
		maxBytes: maxBytes,
		minScore: float32(minScore),
	}
}

// BuildFromUpload extracts, chunks and embeds an uploaded document.
func (b *TransientBuilder) BuildFromUpload(ctx context.Context, filename string, data []byte) (*TransientContext, error) {
	if int64(len(data)) > b.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit %d", ErrUnsupportedUpload, len(data), b.maxBytes)
	}

	pages, err := b.extractPages(ctx, filename, data)
	if err != nil {
		return nil, err
	}
	return b.build(ctx, filename, pages)
}

// BuildFromText wraps caller-supplied raw text as a single-page document.
func (b *TransientBuilder) BuildFromText(ctx context.Context, text string) (*TransientContext, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty document text", ErrUnsupportedUpload)
	}
	if int64(len(text)) > b.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit %d", ErrUnsupportedUpload, len(text), b.maxBytes)
	}
	return b.build(ctx, TransientFilename, []ingest.PageText{{Page: 1, Text: text}})
}

func (b *TransientBuilder) extractPages(ctx context.Context, filename string, data []byte) ([]ingest.PageText, error) {
	key := ""
	if b.cache != nil {
		sum := sha256.Sum256(data)
		key = hex.EncodeToString(sum[:])
		if pages, ok, err := b.cache.GetPages(ctx, key); err == nil && ok {
			return pages, nil
		}
	}

	doc, err := ingest.ExtractBytes(filename, data)
	if err != nil {
		if errors.Is(err, ingest.ErrUnreadableDocument) {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedUpload, err)
		}
		return nil, err
	}

	if b.cache != nil && key != "" {
		// Best effort; extraction is deterministic so a failed write only
		// costs a re-extract.
		_ = b.cache.SetPages(ctx, key, doc.Pages)
	}
	return doc.Pages, nil
}

func (b *TransientBuilder) build(ctx context.Context, filename string, pages []ingest.PageText) (*TransientContext, error) {
	var passages []index.Passage
	nextID := 0
	for _, page := range pages {
		for _, text := range b.chunker.Split(page.Text) {
			passages = append(passages, index.Passage{
				ID:       nextID,
				Filename: filename,
				Page:     page.Page,
				Text:     text,
			})
			nextID++
		}
	}
	if len(passages) == 0 {
		return nil, fmt.Errorf("%w: no usable text", ErrUnsupportedUpload)
	}

	for start := 0; start < len(passages); start += embeddingBatchSize {
		end := start + embeddingBatchSize
		if end > len(passages) {
			end = len(passages)
		}
		texts := make([]string, 0, end-start)
		for _, p := range passages[start:end] {
			texts = append(texts, p.Text)
		}
		vectors, err := b.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed transient passages failed: %w", err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embedding count mismatch for transient passages")
		}
		for i := range vectors {
			passages[start+i].Vector = vectors[i]
		}
	}

	return &TransientContext{passages: passages, embedder: b.embedder, minScore: b.minScore}, nil
}

const embeddingBatchSize = 10
