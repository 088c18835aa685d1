package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"casecounsel/internal/ai"
	"casecounsel/internal/chunk"
	"casecounsel/internal/config"
	"casecounsel/internal/index"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fatalf("load config failed: %v", err)
	}

	caseDir := flag.String("case-dir", cfg.Index.CaseDir, "directory of case sheet documents")
	indexDir := flag.String("index-dir", cfg.Index.Dir, "directory to write the index artifact")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fatalf("validate config failed: %v", err)
	}

	client := ai.NewOpenAICompatibleClient(
		ai.WithTimeout(time.Duration(cfg.LLM.TimeoutSeconds)*time.Second),
		ai.WithMaxRetries(cfg.LLM.MaxRetries),
	)
	embedder := ai.NewEmbedder(client, ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
	})

	builder := index.NewBuilder(embedder, chunk.New(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap))
	builder.Logf = func(format string, args ...interface{}) {
		color.Yellow(format, args...)
	}

	color.Cyan("building index from %s into %s (model %s)", *caseDir, *indexDir, cfg.LLM.EmbeddingModel)

	idx, stats, err := builder.Build(context.Background(), *caseDir, *indexDir)
	if err != nil {
		if errors.Is(err, index.ErrBuildInProgress) {
			fatalf("another build holds the lock for %s", *indexDir)
		}
		fatalf("build failed: %v", err)
	}

	if stats.Documents == 0 {
		color.Yellow("no documents found in %s; wrote an empty index", *caseDir)
	}
	for _, skipped := range stats.Skipped {
		color.Yellow("skipped unreadable document: %s", skipped)
	}
	color.Green("indexed %d documents into %d passages (dimension %d)",
		stats.Documents, idx.Len(), idx.Manifest().Dimension)
}

func fatalf(format string, args ...interface{}) {
	color.Red(format, args...)
	os.Exit(1)
}
