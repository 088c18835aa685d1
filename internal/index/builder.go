package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"sort"
	"time"

	"casecounsel/internal/chunk"
	"casecounsel/internal/ingest"
)

// Embedding providers commonly cap array input size.
const embeddingBatchSize = 10

// Embedder is the slice of the AI client the builder needs.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Builder walks a corpus directory, ingests and chunks every document,
// embeds all passages and writes a new index artifact.
type Builder struct {
	embedder Embedder
	chunker  *chunk.Chunker

	// Logf receives skip warnings and progress lines. Defaults to log.Printf.
	Logf func(format string, args ...interface{})
}

// BuildStats reports what a build actually processed.
type BuildStats struct {
	Documents int
	Passages  int
	Skipped   []string
}

func NewBuilder(embedder Embedder, chunker *chunk.Chunker) *Builder {
	return &Builder{
		embedder: embedder,
		chunker:  chunker,
		Logf:     log.Printf,
	}
}

// Build performs a full rebuild of the artifact at indexDir from the
// documents under caseDir. Rebuilding from an unchanged corpus yields the
// same passage set. An unreadable document is skipped with a warning and
// never aborts the build. A corpus with no documents produces an empty but
// valid artifact.
func (b *Builder) Build(ctx context.Context, caseDir, indexDir string) (*Index, *BuildStats, error) {
	lock, err := AcquireBuildLock(indexDir)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			b.Logf("release build lock failed: %v", err)
		}
	}()

	paths, err := listCorpus(caseDir)
	if err != nil {
		return nil, nil, err
	}

	stats := &BuildStats{}
	var passages []Passage
	nextID := 0
	for _, path := range paths {
		doc, err := ingest.ExtractFile(path)
		if err != nil {
			if errors.Is(err, ingest.ErrUnreadableDocument) {
				b.Logf("skipping %s: %v", path, err)
				stats.Skipped = append(stats.Skipped, filepath.Base(path))
				continue
			}
			return nil, nil, err
		}

		for _, page := range doc.Pages {
			for _, text := range b.chunker.Split(page.Text) {
				passages = append(passages, Passage{
					ID:       nextID,
					Filename: doc.Filename,
					Page:     page.Page,
					Text:     text,
				})
				nextID++
			}
		}
		stats.Documents++
	}

	if err := b.embedAll(ctx, passages); err != nil {
		return nil, nil, err
	}
	stats.Passages = len(passages)

	dimension := 0
	if len(passages) > 0 {
		dimension = len(passages[0].Vector)
	}
	for _, p := range passages {
		if len(p.Vector) != dimension {
			return nil, nil, fmt.Errorf("inconsistent embedding dimension for passage %d", p.ID)
		}
	}

	manifest := Manifest{
		FormatVersion:  FormatVersion,
		EmbeddingModel: b.embedder.Model(),
		Dimension:      dimension,
		PassageCount:   len(passages),
		BuiltAt:        time.Now().UTC(),
	}
	if err := Write(indexDir, manifest, passages); err != nil {
		return nil, nil, err
	}

	return &Index{manifest: manifest, passages: passages}, stats, nil
}

func (b *Builder) embedAll(ctx context.Context, passages []Passage) error {
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
			return fmt.Errorf("embed passages %d-%d failed: %w", start, end-1, err)
		}
		for i := range vectors {
			passages[start+i].Vector = vectors[i]
		}
	}
	return nil
}

// listCorpus returns supported document paths under dir in a stable order.
func listCorpus(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ingest.SupportedExt(d.Name()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus dir failed: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}
