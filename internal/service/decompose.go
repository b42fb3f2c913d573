package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
)

const decompositionPrompt = `Tu es un assistant qui décompose des questions juridiques en sous-requêtes.

Étant donné la question suivante, génère exactement %d sous-requêtes de recherche qui couvrent des ASPECTS DIFFÉRENTS de la question.
Chaque sous-requête doit cibler un angle juridique distinct (ex: droit pénal, protection des données, propriété intellectuelle, responsabilité civile, etc.).

Réponds UNIQUEMENT avec un JSON valide, rien d'autre. Format :
["sous-requête 1", "sous-requête 2", "sous-requête 3"]

Question : %s
`

const (
	decomposeTemperature = 0.3
	decomposeMaxTokens   = 256
)

// The model may wrap the JSON array in prose; pull out the first bracketed
// block before parsing.
var jsonArrayPattern = regexp.MustCompile(`(?s)\[.*?\]`)

// CompletionClient is the injected text-generation capability. Both query
// decomposition and answer synthesis go through it, so tests can substitute
// a deterministic stub.
type CompletionClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64, maxTokens int) (string, error)
}

// QueryDecomposer expands one question into angle-specific sub-queries.
type QueryDecomposer struct {
	llm     CompletionClient
	count   int
	timeout time.Duration
}

// NewQueryDecomposer creates a new QueryDecomposer instance
func NewQueryDecomposer(llm CompletionClient, count int, timeout time.Duration) *QueryDecomposer {
	return &QueryDecomposer{
		llm:     llm,
		count:   count,
		timeout: timeout,
	}
}

// Decompose returns the original question followed by up to count distinct
// sub-queries. Decomposition failure never propagates: when the generation
// call errors, times out, or returns nothing usable, the result degrades to
// the original question alone.
func (d *QueryDecomposer) Decompose(ctx context.Context, question string) []string {
	queries := []string{question}
	if d.llm == nil || d.count <= 0 {
		return queries
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(decompositionPrompt, d.count, question)
	content, err := d.llm.Complete(ctx, "", prompt, decomposeTemperature, decomposeMaxTokens)
	if err != nil {
		log.Printf("query decomposition failed, continuing with original question: %v", err)
		return queries
	}

	subQueries := parseSubQueries(content, d.count)
	if len(subQueries) == 0 {
		log.Printf("query decomposition returned no usable sub-queries, continuing with original question")
		return queries
	}

	seen := map[string]bool{normalizeQuery(question): true}
	for _, q := range subQueries {
		key := normalizeQuery(q)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		queries = append(queries, q)
	}
	return queries
}

func parseSubQueries(content string, count int) []string {
	match := jsonArrayPattern.FindString(content)
	if match == "" {
		return nil
	}

	var raw []string
	if err := json.Unmarshal([]byte(match), &raw); err != nil {
		return nil
	}

	out := make([]string, 0, count)
	for _, q := range raw {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		out = append(out, q)
		if len(out) >= count {
			break
		}
	}
	return out
}

// normalizeQuery collapses case and whitespace for string-level
// deduplication. Paraphrase-level duplicates pass through untouched.
func normalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}
