// Package index builds and queries the dual retrieval index: a dense
// vector index for semantic lookup and a sparse BM25 index for keyword
// ranking. A built Snapshot is immutable; readers obtain it through a
// Handle that is swapped atomically on publish.
package index

import (
	"sync/atomic"
	"time"

	"github.com/legisearch/legisearch/internal/domain"
)

// DocumentRef identifies an indexed document version. A fingerprint
// mismatch against a freshly extracted document marks the snapshot stale.
type DocumentRef struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Fingerprint string    `json:"fingerprint"`
	Pages       int       `json:"pages"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// Entry pairs a chunk with its embedding. A nil embedding means the
// embedding call failed at build time; the chunk still participates in
// lexical ranking.
type Entry struct {
	Chunk     domain.Chunk `json:"chunk"`
	Embedding []float32    `json:"embedding,omitempty"`
}

// Hit is one index lookup result.
type Hit struct {
	Chunk domain.Chunk
	Score float64
}

// Snapshot is an immutable dual index over a chunk corpus.
type Snapshot struct {
	documents []DocumentRef
	entries   []Entry
	skipped   []string
	builtAt   time.Time

	vector  *vectorIndex
	lexical *lexicalIndex
	byID    map[string]int
}

// NewSnapshot builds the vector and lexical indexes over the given
// entries. An empty entry set yields an empty, queryable snapshot.
func NewSnapshot(documents []DocumentRef, entries []Entry, skipped []string) *Snapshot {
	byID := make(map[string]int, len(entries))
	for i, e := range entries {
		byID[e.Chunk.ID] = i
	}
	return &Snapshot{
		documents: documents,
		entries:   entries,
		skipped:   skipped,
		builtAt:   time.Now().UTC(),
		vector:    newVectorIndex(entries),
		lexical:   newLexicalIndex(entries),
		byID:      byID,
	}
}

// SemanticSearch returns up to k chunks closest to the query embedding by
// cosine similarity, descending.
func (s *Snapshot) SemanticSearch(embedding []float32, k int) []Hit {
	return s.toHits(s.vector.search(embedding, k))
}

// LexicalSearch returns up to k chunks ranked against the query by BM25,
// descending. Scores are raw BM25 values; callers normalize before fusion.
func (s *Snapshot) LexicalSearch(query string, k int) []Hit {
	return s.toHits(s.lexical.search(query, k))
}

func (s *Snapshot) toHits(results []scored) []Hit {
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{Chunk: s.entries[r.entry].Chunk, Score: r.score})
	}
	return hits
}

// ChunkByID looks up a chunk in the snapshot.
func (s *Snapshot) ChunkByID(id string) (domain.Chunk, bool) {
	i, ok := s.byID[id]
	if !ok {
		return domain.Chunk{}, false
	}
	return s.entries[i].Chunk, true
}

// Documents returns the indexed document versions.
func (s *Snapshot) Documents() []DocumentRef {
	return s.documents
}

// Entries returns the indexed entries, for persistence.
func (s *Snapshot) Entries() []Entry {
	return s.entries
}

// Skipped returns the IDs of chunks excluded from the vector index because
// their embedding failed.
func (s *Snapshot) Skipped() []string {
	return s.skipped
}

// Len returns the number of indexed chunks.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// BuiltAt returns the snapshot build time.
func (s *Snapshot) BuiltAt() time.Time {
	return s.builtAt
}

// HasDocument reports whether the snapshot contains the given document
// version.
func (s *Snapshot) HasDocument(id, fingerprint string) bool {
	for _, d := range s.documents {
		if d.ID == id && d.Fingerprint == fingerprint {
			return true
		}
	}
	return false
}

// Handle is the process-wide read handle for the published snapshot.
// Publishing replaces the whole snapshot atomically; in-flight readers
// keep the snapshot they already loaded.
type Handle struct {
	ptr atomic.Pointer[Snapshot]
}

// NewHandle returns a handle holding an empty snapshot.
func NewHandle() *Handle {
	h := &Handle{}
	h.ptr.Store(NewSnapshot(nil, nil, nil))
	return h
}

// Publish atomically replaces the current snapshot.
func (h *Handle) Publish(s *Snapshot) {
	h.ptr.Store(s)
}

// Current returns the currently published snapshot.
func (h *Handle) Current() *Snapshot {
	return h.ptr.Load()
}
