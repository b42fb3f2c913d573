package index

import (
	"context"
	"log"
	"strings"

	"github.com/legisearch/legisearch/internal/domain"
)

// Embedder generates a fixed-dimension embedding for a text.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Builder turns chunk sets into index entries. Embedding failures are
// tracked skips: the chunk stays in the lexical index and the build
// continues.
type Builder struct {
	embedder Embedder
}

// NewBuilder creates a Builder using the given embedder.
func NewBuilder(embedder Embedder) *Builder {
	return &Builder{embedder: embedder}
}

// BuildResult carries the entries for one document plus the chunks whose
// embedding failed.
type BuildResult struct {
	Entries []Entry
	Skipped []string
}

// Build embeds every chunk and returns the entries. An empty chunk set
// yields an empty result, not an error. The only hard failure is context
// cancellation.
func (b *Builder) Build(ctx context.Context, chunks []domain.Chunk) (*BuildResult, error) {
	result := &BuildResult{Entries: make([]Entry, 0, len(chunks))}

	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		embedding, err := b.embedder.GenerateEmbedding(ctx, EmbeddingText(chunk))
		if err != nil {
			log.Printf("index build: embedding failed for chunk %s, keeping lexical only: %v", chunk.ID, err)
			result.Skipped = append(result.Skipped, chunk.ID)
			result.Entries = append(result.Entries, Entry{Chunk: chunk})
			continue
		}

		result.Entries = append(result.Entries, Entry{Chunk: chunk, Embedding: embedding})
	}

	return result, nil
}

// EmbeddingText prefixes the chunk text with its structural context so the
// embedding captures where in the document the passage sits.
func EmbeddingText(chunk domain.Chunk) string {
	var context []string
	if chunk.Metadata.Titre != "" {
		context = append(context, chunk.Metadata.Titre)
	}
	if chunk.Metadata.Chapitre != "" {
		context = append(context, chunk.Metadata.Chapitre)
	}
	if chunk.Metadata.Section != "" && chunk.Metadata.Level != domain.LevelTitre && chunk.Metadata.Level != domain.LevelChapitre {
		context = append(context, chunk.Metadata.Section)
	}

	if len(context) == 0 {
		return chunk.Text
	}
	return "[" + strings.Join(context, " > ") + "]\n" + chunk.Text
}
