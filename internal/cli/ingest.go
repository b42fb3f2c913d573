package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/legisearch/legisearch/internal/config"
	"github.com/legisearch/legisearch/internal/service"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a document into the index",
		Long:  "Extract, chunk, embed and index a PDF or plain-text document, then persist the updated index",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.pipeline.Restore(ctx); err != nil {
		return fmt.Errorf("failed to restore index: %w", err)
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	name := filepath.Base(path)
	var stats *service.IngestStats
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		stats, err = a.pipeline.IngestPDF(ctx, data, name)
	} else {
		stats, err = a.pipeline.IngestText(ctx, string(data), name)
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if stats.Unchanged {
		fmt.Printf("%s is already indexed (unchanged)\n", stats.Source)
		return nil
	}

	fmt.Printf("ingested %s: %d pages, %d chunks (%d skipped)\n",
		stats.Source, stats.Pages, stats.Chunks, stats.Skipped)
	for _, w := range stats.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}
