package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/legisearch/legisearch/internal/domain"
)

const synthesisSystemPrompt = `Tu es un assistant juridique pédagogue. Ton rôle est d'aider les gens à comprendre des textes de loi et documents juridiques.

## Tes règles absolues :

1. **Base-toi UNIQUEMENT sur les extraits fournis.** Ne réponds JAMAIS avec des connaissances extérieures.
2. **Si tu ne trouves pas la réponse dans les extraits**, dis clairement : "Je ne trouve pas d'information précise sur ce point dans les documents fournis."
3. **Cite toujours tes sources** en mentionnant l'article, la section et la page. Format : (Source : [article/section], page [X])
4. **Explique simplement** : Imagine que tu parles à quelqu'un qui n'a aucune connaissance juridique.
5. **Couvre TOUS les aspects pertinents** : analyse CHAQUE extrait fourni, identifie les différents thèmes qu'ils couvrent et organise ta réponse par thème.
6. **Réponds toujours en français.**

## Format de réponse :

### En bref
[Résumé listant TOUS les aspects/thèmes pertinents trouvés dans les extraits]

### Explication détaillée

#### [Thème 1]
[Explication du premier aspect avec sources]

#### [Thème 2]
[Explication du deuxième aspect avec sources]

### Sources
[Liste complète des articles/sections cités avec numéros de page]
`

const (
	sourceExcerptMaxChars = 300
	synthesisMaxAttempts  = 2
)

// AnswerSynthesizer sends the final candidate pool plus the original
// question to the generation service and parses the reply into themed
// sections with citations. It is the only pipeline stage whose failure is
// surfaced to the caller as an error.
type AnswerSynthesizer struct {
	llm         CompletionClient
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

// NewAnswerSynthesizer creates a new AnswerSynthesizer instance
func NewAnswerSynthesizer(llm CompletionClient, model string, temperature float64, maxTokens int, timeout time.Duration) *AnswerSynthesizer {
	return &AnswerSynthesizer{
		llm:         llm,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     timeout,
	}
}

// Synthesize generates a structured, cited answer from the retrieved
// chunks. The generation call is retried once before the error is surfaced.
func (s *AnswerSynthesizer) Synthesize(ctx context.Context, question string, chunks []domain.ScoredChunk) (*domain.Answer, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	userPrompt := buildUserPrompt(question, buildContext(chunks))

	var text string
	var err error
	for attempt := 0; attempt < synthesisMaxAttempts; attempt++ {
		text, err = s.llm.Complete(ctx, synthesisSystemPrompt, userPrompt, s.temperature, s.maxTokens)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeGeneration, "answer synthesis timed out", err)
		}
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeGeneration, "answer synthesis failed", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyCompletion
	}

	return &domain.Answer{
		Question: question,
		Text:     text,
		Sections: parseSections(text, chunks),
		Sources:  formatSources(chunks),
		Model:    s.model,
	}, nil
}

// buildContext labels each chunk so the model can cite it back.
func buildContext(chunks []domain.ScoredChunk) string {
	var b strings.Builder
	for i, sc := range chunks {
		meta := sc.Chunk.Metadata
		var parts []string
		if meta.Article != "" {
			parts = append(parts, meta.Article)
		}
		if meta.Chapitre != "" {
			parts = append(parts, meta.Chapitre)
		}
		if meta.Page > 0 {
			parts = append(parts, fmt.Sprintf("page %d", meta.Page))
		}
		label := "Non spécifié"
		if len(parts) > 0 {
			label = strings.Join(parts, " | ")
		}
		fmt.Fprintf(&b, "--- EXTRAIT %d (Pertinence: %.0f%%) [%s] ---\n%s\n\n", i+1, sc.Score*100, label, sc.Chunk.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildUserPrompt(question, context string) string {
	return fmt.Sprintf(
		"Voici les extraits pertinents des documents juridiques :\n\n%s\n\n---\n\n"+
			"Question de l'utilisateur : %s\n\n"+
			"IMPORTANT : Analyse TOUS les extraits ci-dessus. Identifie chaque thème/aspect "+
			"juridique distinct qu'ils couvrent et organise ta réponse par thème. "+
			"Ne te limite pas à un seul article. Si l'information n'est pas dans les extraits, dis-le clairement.",
		context, question,
	)
}

// parseSections splits the generated text on fourth-level headings, the
// per-theme format the system prompt requests, and attaches the chunk ids
// whose article labels appear in each section's text.
func parseSections(text string, chunks []domain.ScoredChunk) []domain.AnswerSection {
	var sections []domain.AnswerSection
	var current *domain.AnswerSection

	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.TrimSpace(current.Text)
		current.ChunkIDs = citedChunkIDs(current.Text, chunks)
		sections = append(sections, *current)
		current = nil
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "####") && !strings.HasPrefix(trimmed, "#####") {
			flush()
			theme := strings.TrimSpace(strings.TrimPrefix(trimmed, "####"))
			current = &domain.AnswerSection{Theme: theme}
			continue
		}
		if strings.HasPrefix(trimmed, "### ") {
			// A new top-level block ends the current theme.
			flush()
			continue
		}
		if current != nil {
			current.Text += line + "\n"
		}
	}
	flush()
	return sections
}

func citedChunkIDs(sectionText string, chunks []domain.ScoredChunk) []string {
	lower := strings.ToLower(sectionText)
	var ids []string
	for _, sc := range chunks {
		article := strings.TrimSpace(sc.Chunk.Metadata.Article)
		if article == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(article)) {
			ids = append(ids, sc.Chunk.ID)
		}
	}
	return ids
}

func formatSources(chunks []domain.ScoredChunk) []domain.AnswerSource {
	sources := make([]domain.AnswerSource, 0, len(chunks))
	for _, sc := range chunks {
		meta := sc.Chunk.Metadata
		excerpt := sc.Chunk.Text
		if len([]rune(excerpt)) > sourceExcerptMaxChars {
			excerpt = string([]rune(excerpt)[:sourceExcerptMaxChars]) + "..."
		}
		sources = append(sources, domain.AnswerSource{
			ChunkID:   sc.Chunk.ID,
			Excerpt:   excerpt,
			Article:   meta.Article,
			Chapitre:  meta.Chapitre,
			Section:   meta.Section,
			Page:      meta.Page,
			Source:    meta.Source,
			Relevance: sc.Score,
		})
	}
	return sources
}
