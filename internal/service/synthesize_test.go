package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/legisearch/legisearch/internal/domain"
)

const structuredAnswer = `### En bref
Les extraits couvrent la protection des données et le droit d'auteur.

### Explication détaillée

#### Protection des données personnelles
Selon l'Article 12, le traitement des données personnelles exige un consentement. (Source : Article 12, page 1)

#### Droit d'auteur
D'après l'Article 45, les oeuvres sont protégées dès leur création. (Source : Article 45, page 2)

### Sources
- Article 12, page 1
- Article 45, page 2
`

func answerChunks() []domain.ScoredChunk {
	return []domain.ScoredChunk{
		{Chunk: legalChunk(0, "Article 12", "CHAPITRE II", "Le traitement des données personnelles est soumis au consentement."), Score: 0.92},
		{Chunk: legalChunk(1, "Article 45", "CHAPITRE IV", "Les oeuvres de l'esprit sont protégées dès leur création."), Score: 0.61},
	}
}

func TestSynthesize(t *testing.T) {
	llm := &scriptedLLM{answer: structuredAnswer}
	s := NewAnswerSynthesizer(llm, "gpt-4o-mini", 0.1, 2048, time.Minute)

	answer, err := s.Synthesize(context.Background(), question, answerChunks())

	require.NoError(t, err)
	assert.Equal(t, question, answer.Question)
	assert.Equal(t, structuredAnswer, answer.Text)
	assert.Equal(t, "gpt-4o-mini", answer.Model)

	require.Len(t, answer.Sections, 2)
	assert.Equal(t, "Protection des données personnelles", answer.Sections[0].Theme)
	assert.Equal(t, []string{"loi-2024:0"}, answer.Sections[0].ChunkIDs)
	assert.Equal(t, "Droit d'auteur", answer.Sections[1].Theme)
	assert.Equal(t, []string{"loi-2024:1"}, answer.Sections[1].ChunkIDs)

	require.Len(t, answer.Sources, 2)
	assert.Equal(t, "loi-2024:0", answer.Sources[0].ChunkID)
	assert.Equal(t, "Article 12", answer.Sources[0].Article)
	assert.InDelta(t, 0.92, answer.Sources[0].Relevance, 1e-9)
}

func TestSynthesize_TruncatesLongExcerpts(t *testing.T) {
	llm := &scriptedLLM{answer: "réponse"}
	s := NewAnswerSynthesizer(llm, "gpt-4o-mini", 0.1, 2048, time.Minute)
	long := strings.Repeat("données ", 100)
	chunks := []domain.ScoredChunk{{Chunk: legalChunk(0, "Article 1", "CHAPITRE I", long), Score: 0.5}}

	answer, err := s.Synthesize(context.Background(), question, chunks)

	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	assert.True(t, strings.HasSuffix(answer.Sources[0].Excerpt, "..."))
	assert.LessOrEqual(t, len([]rune(answer.Sources[0].Excerpt)), sourceExcerptMaxChars+3)
}

func TestSynthesize_UnstructuredAnswerHasNoSections(t *testing.T) {
	llm := &scriptedLLM{answer: "Je ne trouve pas d'information précise sur ce point dans les documents fournis."}
	s := NewAnswerSynthesizer(llm, "gpt-4o-mini", 0.1, 2048, time.Minute)

	answer, err := s.Synthesize(context.Background(), question, answerChunks())

	require.NoError(t, err)
	assert.Empty(t, answer.Sections)
	assert.NotEmpty(t, answer.Text)
}

func TestSynthesize_RetriesOnceBeforeFailing(t *testing.T) {
	llm := &flakyLLM{failures: 1, answer: structuredAnswer}
	s := NewAnswerSynthesizer(llm, "gpt-4o-mini", 0.1, 2048, time.Minute)

	answer, err := s.Synthesize(context.Background(), question, answerChunks())

	require.NoError(t, err)
	assert.Equal(t, 2, llm.calls)
	assert.NotNil(t, answer)
}

func TestSynthesize_SurfacesGenerationError(t *testing.T) {
	llm := &flakyLLM{failures: 10}
	s := NewAnswerSynthesizer(llm, "gpt-4o-mini", 0.1, 2048, time.Minute)

	_, err := s.Synthesize(context.Background(), question, answerChunks())

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeGeneration, domainErr.Code)
	assert.Equal(t, 2, llm.calls)
}

func TestSynthesize_EmptyCompletion(t *testing.T) {
	llm := &scriptedLLM{answer: "   \n"}
	s := NewAnswerSynthesizer(llm, "gpt-4o-mini", 0.1, 2048, time.Minute)

	_, err := s.Synthesize(context.Background(), question, answerChunks())

	assert.ErrorIs(t, err, domain.ErrEmptyCompletion)
}

func TestSynthesize_Timeout(t *testing.T) {
	s := NewAnswerSynthesizer(&blockingLLM{}, "gpt-4o-mini", 0.1, 2048, 10*time.Millisecond)

	_, err := s.Synthesize(context.Background(), question, answerChunks())

	require.Error(t, err)
	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeGeneration, domainErr.Code)
}

func TestBuildContext_LabelsEachExtract(t *testing.T) {
	context := buildContext(answerChunks())

	assert.Contains(t, context, "--- EXTRAIT 1 (Pertinence: 92%) [Article 12 | CHAPITRE II | page 1] ---")
	assert.Contains(t, context, "--- EXTRAIT 2 (Pertinence: 61%) [Article 45 | CHAPITRE IV | page 2] ---")
	assert.Contains(t, context, "Le traitement des données personnelles")
}

// flakyLLM fails its first N synthesis calls.
type flakyLLM struct {
	failures int
	answer   string
	calls    int
}

func (f *flakyLLM) Complete(_ context.Context, _, _ string, _ float64, _ int) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("transient failure")
	}
	return f.answer, nil
}
