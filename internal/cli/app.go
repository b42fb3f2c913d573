package cli

import (
	"context"
	"fmt"
	"log"

	gopenai "github.com/sashabaranov/go-openai"

	"github.com/legisearch/legisearch/internal/config"
	"github.com/legisearch/legisearch/internal/database"
	"github.com/legisearch/legisearch/internal/index"
	"github.com/legisearch/legisearch/internal/openai"
	"github.com/legisearch/legisearch/internal/repository"
	"github.com/legisearch/legisearch/internal/service"
	"github.com/legisearch/legisearch/internal/storage"
)

// app bundles the wired pipeline with the resources it borrowed, so
// commands can tear everything down in one call.
type app struct {
	pipeline *service.Pipeline
	close    func()
}

// newApp wires the pipeline from config: OpenAI client, snapshot store
// (Postgres when DATABASE_URL is set, files under INDEX_DIR otherwise) and
// the optional S3 document archive.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if !cfg.HasOpenAI() {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	client := openai.NewClientWithConfig(openai.Config{
		APIKey:              cfg.OpenAIAPIKey,
		EmbeddingModel:      gopenai.EmbeddingModel(cfg.LLM.EmbeddingModel),
		EmbeddingDimensions: cfg.LLM.EmbeddingDims,
		ChatModel:           cfg.LLM.Model,
	})

	closers := func() {}

	var store service.SnapshotStore
	if cfg.HasDatabase() {
		pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
		if err != nil {
			return nil, err
		}
		log.Println("connected to database")
		store = repository.NewSnapshotRepository(pool)
		closers = pool.Close
	} else {
		store = index.NewFileStore(cfg.IndexDir)
		log.Printf("using file index store at %s", cfg.IndexDir)
	}

	var archive service.DocumentArchive
	if cfg.HasS3() {
		s3, err := storage.NewArchive(ctx, storage.ArchiveConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			closers()
			return nil, fmt.Errorf("failed to create S3 archive: %w", err)
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			closers()
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		archive = s3
	}

	pipeline := service.NewPipeline(cfg, client, client, store, archive)

	return &app{pipeline: pipeline, close: closers}, nil
}
