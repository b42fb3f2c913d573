package index

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// BM25 Okapi parameters.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// lexicalIndex holds the term-document statistics needed to rank every
// entry against a keyword query with BM25.
type lexicalIndex struct {
	termFreqs []map[string]int // per entry
	docLens   []int
	docFreq   map[string]int
	avgDocLen float64
}

func newLexicalIndex(entries []Entry) *lexicalIndex {
	l := &lexicalIndex{docFreq: make(map[string]int)}

	total := 0
	for _, e := range entries {
		tokens := Tokenize(e.Chunk.Text)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for term := range tf {
			l.docFreq[term]++
		}
		l.termFreqs = append(l.termFreqs, tf)
		l.docLens = append(l.docLens, len(tokens))
		total += len(tokens)
	}

	if len(entries) > 0 {
		l.avgDocLen = float64(total) / float64(len(entries))
	}
	return l
}

// search scores every entry against the query and returns up to k entry
// positions with positive BM25 scores, descending. Ties resolve to the
// earlier document position.
func (l *lexicalIndex) search(query string, k int) []scored {
	if len(l.termFreqs) == 0 || k <= 0 {
		return nil
	}
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	n := float64(len(l.termFreqs))
	var results []scored
	for i, tf := range l.termFreqs {
		score := 0.0
		for _, term := range tokens {
			freq := tf[term]
			if freq == 0 {
				continue
			}
			df := float64(l.docFreq[term])
			idf := math.Log(1 + (n-df+0.5)/(df+0.5))
			norm := 1 - bm25B + bm25B*float64(l.docLens[i])/l.avgDocLen
			score += idf * float64(freq) * (bm25K1 + 1) / (float64(freq) + bm25K1*norm)
		}
		if score > 0 {
			results = append(results, scored{entry: i, score: score})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].entry < results[j].entry
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Tokenize lowercases, strips punctuation and accents-agnostic word
// boundaries, and drops tokens shorter than three runes. Suits French
// legal prose where short function words carry no ranking signal.
func Tokenize(text string) []string {
	var tokens []string
	var current []rune

	flush := func() {
		if len(current) >= 3 {
			tokens = append(tokens, string(current))
		}
		current = current[:0]
	}

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			current = append(current, r)
			continue
		}
		flush()
	}
	flush()

	return tokens
}
