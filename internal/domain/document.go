package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// StructureLevel identifies the structural unit a chunk was cut from.
type StructureLevel string

const (
	LevelTitre       StructureLevel = "titre"
	LevelChapitre    StructureLevel = "chapitre"
	LevelSection     StructureLevel = "section"
	LevelSousSection StructureLevel = "sous_section"
	LevelArticle     StructureLevel = "article"
	LevelParagraphe  StructureLevel = "paragraphe"
)

// Page represents one page of extracted document text.
type Page struct {
	Text       string
	PageNumber int
	TotalPages int
	Source     string
}

// Document represents an ingested source document. The text is immutable
// once ingested; Fingerprint identifies the exact extracted content so a
// changed source invalidates stale indexes.
type Document struct {
	ID          string
	Source      string
	Pages       []Page
	Fingerprint string
	IngestedAt  time.Time
}

// NewDocument creates a Document from extracted pages, computing the
// content fingerprint.
func NewDocument(id, source string, pages []Page, ingestedAt time.Time) *Document {
	return &Document{
		ID:          id,
		Source:      source,
		Pages:       pages,
		Fingerprint: FingerprintPages(pages),
		IngestedAt:  ingestedAt,
	}
}

// FingerprintPages returns the SHA-256 hex digest of the concatenated page
// texts.
func FingerprintPages(pages []Page) string {
	h := sha256.New()
	for _, p := range pages {
		h.Write([]byte(p.Text))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ChunkMetadata carries the structural context a chunk was cut from.
type ChunkMetadata struct {
	Titre    string
	Chapitre string
	Section  string
	Article  string
	Level    StructureLevel
	Page     int
	Source   string
}

// Chunk is a bounded-length contiguous segment of a document, the unit of
// retrieval. Start is the rune offset of Text within the full document
// text; consecutive chunks overlap by at most the configured overlap, so
// concatenating them by offset reconstructs the document losslessly.
type Chunk struct {
	ID         string
	DocumentID string
	Position   int
	Start      int
	Text       string
	Metadata   ChunkMetadata
}

// NewChunk creates a Chunk with a stable ID derived from the document ID
// and position.
func NewChunk(documentID string, position, start int, text string, meta ChunkMetadata) Chunk {
	return Chunk{
		ID:         ChunkID(documentID, position),
		DocumentID: documentID,
		Position:   position,
		Start:      start,
		Text:       text,
		Metadata:   meta,
	}
}

// ChunkID derives the stable chunk identifier for a document position.
func ChunkID(documentID string, position int) string {
	return fmt.Sprintf("%s:%d", documentID, position)
}

// SectionLabel returns the best-effort structural tag used for source
// diversification: the chapter heading, falling back to the article, then
// to "unknown".
func (c Chunk) SectionLabel() string {
	if c.Metadata.Chapitre != "" {
		return c.Metadata.Chapitre
	}
	if c.Metadata.Article != "" {
		return c.Metadata.Article
	}
	return "unknown"
}

// SourceLabel returns a human-readable citation label for the chunk.
func (c Chunk) SourceLabel() string {
	label := ""
	if c.Metadata.Article != "" {
		label = c.Metadata.Article
	} else if c.Metadata.Section != "" {
		label = c.Metadata.Section
	} else if c.Metadata.Chapitre != "" {
		label = c.Metadata.Chapitre
	}
	if c.Metadata.Page > 0 {
		if label != "" {
			return fmt.Sprintf("%s, page %d", label, c.Metadata.Page)
		}
		return fmt.Sprintf("page %d", c.Metadata.Page)
	}
	if label == "" {
		return c.Metadata.Source
	}
	return label
}

// ValidateChunk validates a Chunk instance.
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}

	if c.ID == "" {
		return fmt.Errorf("chunk ID is required")
	}

	if c.DocumentID == "" {
		return fmt.Errorf("chunk DocumentID is required")
	}

	if c.Position < 0 {
		return fmt.Errorf("chunk Position cannot be negative")
	}

	if c.Text == "" {
		return fmt.Errorf("chunk Text is required")
	}

	return nil
}
