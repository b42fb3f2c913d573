//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legisearch/legisearch/internal/domain"
	"github.com/legisearch/legisearch/internal/index"
	"github.com/legisearch/legisearch/internal/testutil"
)

func testSnapshot() *index.Snapshot {
	documents := []index.DocumentRef{{
		ID:          "loi-2024-pdf",
		Source:      "loi-2024.pdf",
		Fingerprint: "fp-1",
		Pages:       2,
		IngestedAt:  time.Now().UTC().Truncate(time.Microsecond),
	}}
	entries := []index.Entry{
		{
			Chunk: domain.NewChunk("loi-2024-pdf", 0, 0,
				"Article 1 : Le traitement des données personnelles est soumis au consentement.",
				domain.ChunkMetadata{
					Titre:    "TITRE I",
					Chapitre: "CHAPITRE I : Protection des données",
					Article:  "Article 1",
					Level:    domain.LevelArticle,
					Page:     1,
					Source:   "loi-2024.pdf",
				}),
			Embedding: []float32{1, 0, 0},
		},
		{
			Chunk: domain.NewChunk("loi-2024-pdf", 1, 500,
				"Article 2 : Les oeuvres de l'esprit sont protégées par le droit d'auteur.",
				domain.ChunkMetadata{
					Titre:    "TITRE I",
					Chapitre: "CHAPITRE II : Propriété intellectuelle",
					Article:  "Article 2",
					Level:    domain.LevelArticle,
					Page:     2,
					Source:   "loi-2024.pdf",
				}),
			// nil embedding: this chunk's embedding failed at build time
		},
	}
	return index.NewSnapshot(documents, entries, []string{"loi-2024-pdf:1"})
}

func TestSnapshotRepository_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSnapshotRepository(pool)
	require.NoError(t, repo.Save(ctx, testSnapshot()))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)

	require.Len(t, loaded.Documents(), 1)
	assert.Equal(t, "loi-2024-pdf", loaded.Documents()[0].ID)
	assert.Equal(t, "fp-1", loaded.Documents()[0].Fingerprint)
	assert.True(t, loaded.HasDocument("loi-2024-pdf", "fp-1"))

	require.Equal(t, 2, loaded.Len())
	assert.Equal(t, []string{"loi-2024-pdf:1"}, loaded.Skipped())

	chunk, ok := loaded.ChunkByID("loi-2024-pdf:0")
	require.True(t, ok)
	assert.Equal(t, "Article 1", chunk.Metadata.Article)
	assert.Equal(t, domain.LevelArticle, chunk.Metadata.Level)

	// Embeddings survive the round trip and semantic search works again.
	hits := loaded.SemanticSearch([]float32{1, 0, 0}, 5)
	require.NotEmpty(t, hits)
	assert.Equal(t, "loi-2024-pdf:0", hits[0].Chunk.ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-4)

	// The unembedded chunk still ranks lexically.
	lexical := loaded.LexicalSearch("droit d'auteur oeuvres", 5)
	require.NotEmpty(t, lexical)
	assert.Equal(t, "loi-2024-pdf:1", lexical[0].Chunk.ID)
}

func TestSnapshotRepository_SaveReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSnapshotRepository(pool)
	require.NoError(t, repo.Save(ctx, testSnapshot()))

	smaller := index.NewSnapshot(
		[]index.DocumentRef{{ID: "autre-doc", Source: "autre.pdf", Fingerprint: "fp-2", Pages: 1, IngestedAt: time.Now().UTC()}},
		[]index.Entry{{
			Chunk:     domain.NewChunk("autre-doc", 0, 0, "Texte unique du nouveau document juridique.", domain.ChunkMetadata{Source: "autre.pdf"}),
			Embedding: []float32{0, 1, 0},
		}},
		nil,
	)
	require.NoError(t, repo.Save(ctx, smaller))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())
	assert.False(t, loaded.HasDocument("loi-2024-pdf", "fp-1"))
	assert.True(t, loaded.HasDocument("autre-doc", "fp-2"))
}

func TestSnapshotRepository_LoadMissing(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSnapshotRepository(pool)

	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestSnapshotRepository_Reset(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSnapshotRepository(pool)
	require.NoError(t, repo.Save(ctx, testSnapshot()))
	require.NoError(t, repo.Reset(ctx))

	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}
