package service

import (
	"context"
	"errors"
	"strings"

	"github.com/legisearch/legisearch/internal/domain"
	"github.com/legisearch/legisearch/internal/index"
)

// stubEmbedder returns canned embeddings keyed by substring match, so
// tests control semantic similarity exactly.
type stubEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	err      error
}

func (s *stubEmbedder) GenerateEmbedding(_ context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	for key, vec := range s.vectors {
		if strings.Contains(strings.ToLower(text), strings.ToLower(key)) {
			return vec, nil
		}
	}
	if s.fallback != nil {
		return s.fallback, nil
	}
	return []float32{0, 0, 1}, nil
}

// scriptedLLM answers decomposition calls (no system prompt) and synthesis
// calls (system prompt set) from fixed scripts.
type scriptedLLM struct {
	decomposition  string
	answer         string
	failDecompose  bool
	failSynthesis  bool
	synthesisCalls int
}

func (s *scriptedLLM) Complete(_ context.Context, systemPrompt, _ string, _ float64, _ int) (string, error) {
	if systemPrompt == "" {
		if s.failDecompose {
			return "", errors.New("decomposition service unavailable")
		}
		return s.decomposition, nil
	}
	s.synthesisCalls++
	if s.failSynthesis {
		return "", errors.New("synthesis service unavailable")
	}
	return s.answer, nil
}

// memoryStore is an in-memory SnapshotStore.
type memoryStore struct {
	snap    *index.Snapshot
	saveErr error
}

func (m *memoryStore) Save(_ context.Context, snap *index.Snapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snap = snap
	return nil
}

func (m *memoryStore) Load(_ context.Context) (*index.Snapshot, error) {
	if m.snap == nil {
		return nil, domain.ErrSnapshotNotFound
	}
	return m.snap, nil
}

func legalChunk(position int, article, chapitre, text string) domain.Chunk {
	return domain.NewChunk("loi-2024", position, position*1000, text, domain.ChunkMetadata{
		Titre:    "TITRE I : Dispositions générales",
		Chapitre: chapitre,
		Article:  article,
		Level:    domain.LevelArticle,
		Page:     position + 1,
		Source:   "loi-2024.pdf",
	})
}

func publishedSnapshot(entries []index.Entry) *index.Handle {
	h := index.NewHandle()
	h.Publish(index.NewSnapshot(nil, entries, nil))
	return h
}
