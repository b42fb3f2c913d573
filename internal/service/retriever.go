package service

import (
	"context"
	"sort"

	"github.com/legisearch/legisearch/internal/config"
	"github.com/legisearch/legisearch/internal/domain"
	"github.com/legisearch/legisearch/internal/index"
)

// SnapshotSource yields the currently published index snapshot.
type SnapshotSource interface {
	Current() *index.Snapshot
}

// HybridRetriever fuses semantic similarity and lexical ranking into a
// single ranked list per sub-query.
type HybridRetriever struct {
	embedder  index.Embedder
	snapshots SnapshotSource
	cfg       config.RetrievalConfig
}

// NewHybridRetriever creates a new HybridRetriever instance
func NewHybridRetriever(embedder index.Embedder, snapshots SnapshotSource, cfg config.RetrievalConfig) *HybridRetriever {
	return &HybridRetriever{
		embedder:  embedder,
		snapshots: snapshots,
		cfg:       cfg,
	}
}

type fusedCandidate struct {
	chunk    domain.Chunk
	semantic float64
	lexical  float64
	fused    float64
}

// Search runs the query against both indexes and returns up to k chunks
// ordered by descending fused score. When every fused score falls below
// the similarity threshold, the best candidate is still returned and the
// result is flagged low-confidence rather than coming back empty.
func (r *HybridRetriever) Search(ctx context.Context, query string, k int) (*domain.RetrievalResult, error) {
	snap := r.snapshots.Current()
	if snap == nil || snap.Len() == 0 {
		return &domain.RetrievalResult{}, nil
	}
	if k <= 0 {
		k = r.cfg.TopKResults
	}

	// Fetch extra candidates from each index so fusion has margin to work with.
	fetch := k * 2

	embedding, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	semanticHits := snap.SemanticSearch(embedding, fetch)
	lexicalHits := snap.LexicalSearch(query, fetch)

	lexicalScores := make([]float64, len(lexicalHits))
	for i, h := range lexicalHits {
		lexicalScores[i] = h.Score
	}
	lexicalScores = normalizeByMax(lexicalScores)

	candidates := make(map[string]*fusedCandidate, len(semanticHits)+len(lexicalHits))
	for _, h := range semanticHits {
		candidates[h.Chunk.ID] = &fusedCandidate{chunk: h.Chunk, semantic: h.Score}
	}
	for i, h := range lexicalHits {
		cand, ok := candidates[h.Chunk.ID]
		if !ok {
			cand = &fusedCandidate{chunk: h.Chunk}
			candidates[h.Chunk.ID] = cand
		}
		cand.lexical = lexicalScores[i]
	}

	ranked := make([]*fusedCandidate, 0, len(candidates))
	for _, cand := range candidates {
		cand.fused = FuseScores(cand.semantic, cand.lexical, r.cfg.SemanticWeight, r.cfg.LexicalWeight)
		ranked = append(ranked, cand)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].fused != ranked[j].fused {
			return ranked[i].fused > ranked[j].fused
		}
		return ranked[i].chunk.Position < ranked[j].chunk.Position
	})

	result := &domain.RetrievalResult{}
	for _, cand := range ranked {
		if cand.fused < r.cfg.SimilarityThreshold {
			continue
		}
		result.Chunks = append(result.Chunks, domain.ScoredChunk{
			Chunk:    cand.chunk,
			Score:    cand.fused,
			SubQuery: query,
		})
		if len(result.Chunks) >= k {
			break
		}
	}

	if len(result.Chunks) == 0 && len(ranked) > 0 {
		result.Chunks = append(result.Chunks, domain.ScoredChunk{
			Chunk:    ranked[0].chunk,
			Score:    ranked[0].fused,
			SubQuery: query,
		})
		result.LowConfidence = true
	}

	return result, nil
}
