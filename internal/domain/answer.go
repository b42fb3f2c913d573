package domain

// ScoredChunk pairs a chunk with its fused relevance score and the
// sub-query that retrieved it. Scores are in [0,1]. Request-scoped, never
// persisted.
type ScoredChunk struct {
	Chunk    Chunk
	Score    float64
	SubQuery string
}

// RetrievalResult is the outcome of one hybrid search call. LowConfidence
// is set when every fused score fell below the similarity threshold and the
// best unfiltered candidate was returned instead.
type RetrievalResult struct {
	Chunks        []ScoredChunk
	LowConfidence bool
}

// AnswerSource describes one cited passage in a generated answer.
type AnswerSource struct {
	ChunkID   string
	Excerpt   string
	Article   string
	Chapitre  string
	Section   string
	Page      int
	Source    string
	Relevance float64
}

// AnswerSection groups the explanation for one theme with the chunk IDs it
// cites.
type AnswerSection struct {
	Theme    string
	Text     string
	ChunkIDs []string
}

// Answer is the structured response to one question.
type Answer struct {
	Question      string
	Text          string
	Sections      []AnswerSection
	Sources       []AnswerSource
	Model         string
	LowConfidence bool
}
