package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChunkID(t *testing.T) {
	assert.Equal(t, "doc-1:0", ChunkID("doc-1", 0))
	assert.Equal(t, "doc-1:42", ChunkID("doc-1", 42))
}

func TestNewChunk(t *testing.T) {
	meta := ChunkMetadata{
		Chapitre: "CHAPITRE I",
		Article:  "Article 1",
		Level:    LevelArticle,
		Page:     3,
		Source:   "loi.pdf",
	}

	chunk := NewChunk("doc-1", 5, 120, "Article 1 : contenu", meta)

	assert.Equal(t, "doc-1:5", chunk.ID)
	assert.Equal(t, "doc-1", chunk.DocumentID)
	assert.Equal(t, 5, chunk.Position)
	assert.Equal(t, 120, chunk.Start)
	assert.Equal(t, meta, chunk.Metadata)
}

func TestChunk_SectionLabel(t *testing.T) {
	tests := []struct {
		name     string
		meta     ChunkMetadata
		expected string
	}{
		{
			name:     "chapter preferred",
			meta:     ChunkMetadata{Chapitre: "CHAPITRE II", Article: "Article 7"},
			expected: "CHAPITRE II",
		},
		{
			name:     "falls back to article",
			meta:     ChunkMetadata{Article: "Article 7"},
			expected: "Article 7",
		},
		{
			name:     "unknown when unstructured",
			meta:     ChunkMetadata{Level: LevelParagraphe},
			expected: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk := Chunk{Metadata: tt.meta}
			assert.Equal(t, tt.expected, chunk.SectionLabel())
		})
	}
}

func TestChunk_SourceLabel(t *testing.T) {
	chunk := Chunk{Metadata: ChunkMetadata{Article: "Article 12", Page: 34}}
	assert.Equal(t, "Article 12, page 34", chunk.SourceLabel())

	chunk = Chunk{Metadata: ChunkMetadata{Page: 2}}
	assert.Equal(t, "page 2", chunk.SourceLabel())

	chunk = Chunk{Metadata: ChunkMetadata{Source: "loi.pdf"}}
	assert.Equal(t, "loi.pdf", chunk.SourceLabel())
}

func TestFingerprintPages(t *testing.T) {
	pagesA := []Page{{Text: "alpha"}, {Text: "beta"}}
	pagesB := []Page{{Text: "alpha"}, {Text: "beta"}}
	pagesC := []Page{{Text: "alpha"}, {Text: "gamma"}}

	assert.Equal(t, FingerprintPages(pagesA), FingerprintPages(pagesB))
	assert.NotEqual(t, FingerprintPages(pagesA), FingerprintPages(pagesC))
	assert.Len(t, FingerprintPages(pagesA), 64)
}

func TestNewDocument(t *testing.T) {
	now := time.Now().UTC()
	pages := []Page{{Text: "contenu", PageNumber: 1, Source: "loi.pdf"}}

	doc := NewDocument("doc-1", "loi.pdf", pages, now)

	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, "loi.pdf", doc.Source)
	assert.Equal(t, FingerprintPages(pages), doc.Fingerprint)
	assert.Equal(t, now, doc.IngestedAt)
}

func TestValidateChunk(t *testing.T) {
	valid := NewChunk("doc-1", 0, 0, "texte", ChunkMetadata{})

	tests := []struct {
		name    string
		mutate  func(c *Chunk)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Chunk) {}, wantErr: ""},
		{
			name:    "missing id",
			mutate:  func(c *Chunk) { c.ID = "" },
			wantErr: "chunk ID is required",
		},
		{
			name:    "missing document id",
			mutate:  func(c *Chunk) { c.DocumentID = "" },
			wantErr: "chunk DocumentID is required",
		},
		{
			name:    "negative position",
			mutate:  func(c *Chunk) { c.Position = -1 },
			wantErr: "chunk Position cannot be negative",
		},
		{
			name:    "missing text",
			mutate:  func(c *Chunk) { c.Text = "" },
			wantErr: "chunk Text is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunk := valid
			tt.mutate(&chunk)
			err := ValidateChunk(&chunk)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.wantErr)
			}
		})
	}

	assert.Error(t, ValidateChunk(nil))
}
