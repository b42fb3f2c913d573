package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/legisearch/legisearch/internal/config"
)

// AskCmd returns the ask command
func AskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question against the indexed corpus",
		Long:  "Decompose the question, run hybrid retrieval over the persisted index and print the synthesized answer with its sources",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
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

	question := strings.Join(args, " ")
	answer, err := a.pipeline.Ask(ctx, question)
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)

	if answer.LowConfidence {
		fmt.Println("\n[confiance faible : aucun extrait ne dépasse le seuil de pertinence]")
	}

	if len(answer.Sources) > 0 {
		fmt.Println("\nSources :")
		for i, src := range answer.Sources {
			label := src.Article
			if label == "" {
				label = src.Chapitre
			}
			if label == "" {
				label = src.ChunkID
			}
			fmt.Printf("  %d. %s — %s, page %d (pertinence %.0f%%)\n",
				i+1, label, src.Source, src.Page, src.Relevance*100)
		}
	}

	return nil
}
