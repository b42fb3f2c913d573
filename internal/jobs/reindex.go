package jobs

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/legisearch/legisearch/internal/service"
)

// Ingestor defines the interface for ingesting watched documents
type Ingestor interface {
	IngestPDF(ctx context.Context, data []byte, filename string) (*service.IngestStats, error)
	IngestText(ctx context.Context, text, source string) (*service.IngestStats, error)
}

// ReindexWorker scans a watched directory and re-ingests documents whose
// content changed. Unchanged documents are skipped by the fingerprint check
// in the ingestion pipeline, so a scan over an idle directory is cheap.
type ReindexWorker struct {
	dir      string
	ingestor Ingestor
}

// NewReindexWorker creates a new ReindexWorker instance
func NewReindexWorker(dir string, ingestor Ingestor) *ReindexWorker {
	return &ReindexWorker{
		dir:      dir,
		ingestor: ingestor,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *ReindexWorker) ProcessJobs(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("failed to read watch directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		name := entry.Name()
		path := filepath.Join(w.dir, name)

		var stats *service.IngestStats
		switch strings.ToLower(filepath.Ext(name)) {
		case ".pdf":
			data, err := os.ReadFile(path)
			if err != nil {
				log.Printf("reindex: failed to read %s: %v", path, err)
				continue
			}
			stats, err = w.ingestor.IngestPDF(ctx, data, name)
			if err != nil {
				log.Printf("reindex: failed to ingest %s: %v", name, err)
				continue
			}
		case ".txt":
			data, err := os.ReadFile(path)
			if err != nil {
				log.Printf("reindex: failed to read %s: %v", path, err)
				continue
			}
			stats, err = w.ingestor.IngestText(ctx, string(data), name)
			if err != nil {
				log.Printf("reindex: failed to ingest %s: %v", name, err)
				continue
			}
		default:
			continue
		}

		if !stats.Unchanged {
			log.Printf("reindex: ingested %s (%d chunks)", name, stats.Chunks)
		}
	}

	return nil
}
