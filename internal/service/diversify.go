package service

import (
	"sort"

	"github.com/legisearch/legisearch/internal/domain"
)

// Aggregate merges the ranked lists produced for each sub-query into one
// candidate set of at most totalK chunks. Duplicates are collapsed by chunk
// id keeping the maximum fused score seen across sub-queries. Selection
// favors section spread: the best chunk of each distinct section is taken
// before any section contributes a second one, because legal questions
// usually need evidence from several articles rather than near-duplicate
// hits from a single paragraph. The returned slice is ordered by descending
// score for presentation.
func Aggregate(perQuery [][]domain.ScoredChunk, totalK int) []domain.ScoredChunk {
	if totalK <= 0 {
		return nil
	}

	best := make(map[string]domain.ScoredChunk)
	for _, list := range perQuery {
		for _, sc := range list {
			existing, ok := best[sc.Chunk.ID]
			if !ok || sc.Score > existing.Score {
				best[sc.Chunk.ID] = sc
			}
		}
	}
	if len(best) == 0 {
		return nil
	}

	candidates := make([]domain.ScoredChunk, 0, len(best))
	for _, sc := range best {
		candidates = append(candidates, sc)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Chunk.Position < candidates[j].Chunk.Position
	})

	selected := make([]domain.ScoredChunk, 0, totalK)
	taken := make(map[string]bool, len(candidates))
	seenSections := make(map[string]bool)

	// First pass: best chunk of each section.
	for _, sc := range candidates {
		section := sc.Chunk.SectionLabel()
		if seenSections[section] {
			continue
		}
		seenSections[section] = true
		taken[sc.Chunk.ID] = true
		selected = append(selected, sc)
		if len(selected) >= totalK {
			break
		}
	}

	// Second pass: fill remaining slots with the highest-scored leftovers.
	if len(selected) < totalK {
		for _, sc := range candidates {
			if taken[sc.Chunk.ID] {
				continue
			}
			taken[sc.Chunk.ID] = true
			selected = append(selected, sc)
			if len(selected) >= totalK {
				break
			}
		}
	}

	sort.Slice(selected, func(i, j int) bool {
		if selected[i].Score != selected[j].Score {
			return selected[i].Score > selected[j].Score
		}
		return selected[i].Chunk.Position < selected[j].Chunk.Position
	})
	return selected
}
