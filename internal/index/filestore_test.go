package index

import (
	"context"
	"testing"

	"github.com/legisearch/legisearch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_SaveAndLoad(t *testing.T) {
	store := NewFileStore(t.TempDir())
	ctx := context.Background()

	docs := []DocumentRef{{ID: "doc-1", Source: "loi.pdf", Fingerprint: "abc", Pages: 3}}
	snap := NewSnapshot(docs, testEntries(), []string{"doc-1:9"})

	require.NoError(t, store.Save(ctx, snap))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)

	assert.Equal(t, snap.Len(), loaded.Len())
	assert.Equal(t, docs, loaded.Documents())
	assert.Equal(t, []string{"doc-1:9"}, loaded.Skipped())

	// The reloaded snapshot answers queries without re-embedding.
	hits := loaded.LexicalSearch("donnees personnelles", 5)
	require.NotEmpty(t, hits)
	assert.Equal(t, "doc-1:0", hits[0].Chunk.ID)

	semantic := loaded.SemanticSearch([]float32{1, 0, 0}, 1)
	require.Len(t, semantic, 1)
	assert.Equal(t, "doc-1:0", semantic[0].Chunk.ID)
}

func TestFileStore_LoadMissing(t *testing.T) {
	store := NewFileStore(t.TempDir())

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}

func TestFileStore_SaveOverwritesAtomically(t *testing.T) {
	store := NewFileStore(t.TempDir())
	ctx := context.Background()

	first := NewSnapshot([]DocumentRef{{ID: "doc-1", Fingerprint: "v1"}}, testEntries(), nil)
	require.NoError(t, store.Save(ctx, first))

	second := NewSnapshot([]DocumentRef{{ID: "doc-1", Fingerprint: "v2"}}, testEntries()[:1], nil)
	require.NoError(t, store.Save(ctx, second))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "v2", loaded.Documents()[0].Fingerprint)
	assert.Equal(t, 1, loaded.Len())
}

func TestFileStore_Reset(t *testing.T) {
	store := NewFileStore(t.TempDir())
	ctx := context.Background()

	require.NoError(t, store.Reset(ctx))

	snap := NewSnapshot(nil, testEntries(), nil)
	require.NoError(t, store.Save(ctx, snap))
	require.NoError(t, store.Reset(ctx))

	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrSnapshotNotFound)
}
