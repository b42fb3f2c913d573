// Package chunker splits extracted document text into bounded, overlapping
// segments. Legal structure markers (titres, chapitres, sections, articles)
// are preferred cut points; paragraph and sentence boundaries are the
// fallbacks when a structural unit is missing or too long.
package chunker

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/legisearch/legisearch/internal/domain"
)

// Config controls chunking.
type Config struct {
	MaxSize int
	Overlap int
	MinSize int
}

// DefaultConfig provides sane defaults for chunking.
func DefaultConfig() Config {
	return Config{
		MaxSize: 1500,
		Overlap: 200,
		MinSize: 100,
	}
}

// PageSeparator joins extracted pages into the full document text.
const PageSeparator = "\n\n"

// Structural chunks below this count mean the document carries no usable
// legal structure; chunking falls back to paragraphs.
const minStructuralChunks = 3

var structurePatterns = []struct {
	re    *regexp.Regexp
	level domain.StructureLevel
}{
	{regexp.MustCompile(`(?i)^TITRE\s+[IVXLCDM]+[\s:.\-]`), domain.LevelTitre},
	{regexp.MustCompile(`(?i)^CHAPITRE\s+[IVXLCDM\d]+[\s:.\-]`), domain.LevelChapitre},
	{regexp.MustCompile(`(?i)^Section\s+\d+[\s:.\-]`), domain.LevelSection},
	{regexp.MustCompile(`(?i)^Sous[- ]section\s+\d+[\s:.\-]`), domain.LevelSousSection},
	{regexp.MustCompile(`(?i)^Art(?:icle)?\.?\s*\d+[\s:.\-]`), domain.LevelArticle},
}

// segment is a contiguous rune span of the document text with the
// structural context in force at its start.
type segment struct {
	start int
	end   int
	meta  domain.ChunkMetadata
}

// ChunkDocument splits a document into ordered chunks. A document shorter
// than cfg.MaxSize yields exactly one chunk; an empty document yields none.
func ChunkDocument(doc *domain.Document, cfg Config) []domain.Chunk {
	if cfg.MaxSize <= 0 {
		cfg = DefaultConfig()
	}

	full, pageMap := joinPages(doc.Pages)
	runes := []rune(full)
	if len(strings.TrimSpace(full)) == 0 {
		return nil
	}

	source := doc.Source
	if len(pageMap) > 0 {
		source = pageMap[0].source
	}

	segments := splitByStructure(runes)
	if len(segments) < minStructuralChunks {
		segments = splitByParagraphs(runes, cfg)
	}
	segments = splitLongSegments(runes, segments, cfg)

	chunks := make([]domain.Chunk, 0, len(segments))
	for _, seg := range segments {
		text := string(runes[seg.start:seg.end])
		if strings.TrimSpace(text) == "" {
			continue
		}
		meta := seg.meta
		meta.Page = pageNumberAt(seg.start, pageMap)
		meta.Source = source
		chunks = append(chunks, domain.NewChunk(doc.ID, len(chunks), seg.start, text, meta))
	}

	return chunks
}

type pageMark struct {
	start  int
	number int
	source string
}

// joinPages concatenates page texts with PageSeparator and returns the
// joined text plus the rune offset of each page within it.
func joinPages(pages []domain.Page) (string, []pageMark) {
	var sb strings.Builder
	marks := make([]pageMark, 0, len(pages))
	offset := 0

	for i, p := range pages {
		if i > 0 {
			sb.WriteString(PageSeparator)
			offset += len([]rune(PageSeparator))
		}
		marks = append(marks, pageMark{start: offset, number: p.PageNumber, source: p.Source})
		sb.WriteString(p.Text)
		offset += len([]rune(p.Text))
	}

	return sb.String(), marks
}

func pageNumberAt(pos int, marks []pageMark) int {
	page := 1
	for _, m := range marks {
		if pos >= m.start {
			page = m.number
		} else {
			break
		}
	}
	return page
}

// splitByStructure cuts the text at every legal structure heading, keeping
// any preamble before the first heading as its own span. Hierarchy context
// (titre > chapitre > section) is tracked across cuts.
func splitByStructure(runes []rune) []segment {
	type delimiter struct {
		pos    int
		level  domain.StructureLevel
		header string
	}

	var delimiters []delimiter
	lineStart := 0
	for i := 0; i <= len(runes); i++ {
		if i < len(runes) && runes[i] != '\n' {
			continue
		}
		line := strings.TrimSpace(string(runes[lineStart:i]))
		for _, p := range structurePatterns {
			if p.re.MatchString(line) {
				delimiters = append(delimiters, delimiter{pos: lineStart, level: p.level, header: line})
				break
			}
		}
		lineStart = i + 1
	}

	if len(delimiters) == 0 {
		return nil
	}

	var segments []segment
	var meta domain.ChunkMetadata

	if delimiters[0].pos > 0 {
		segments = append(segments, segment{start: 0, end: delimiters[0].pos})
	}

	for i, d := range delimiters {
		switch d.level {
		case domain.LevelTitre:
			meta.Titre = d.header
			meta.Chapitre = ""
			meta.Section = ""
		case domain.LevelChapitre:
			meta.Chapitre = d.header
			meta.Section = ""
		case domain.LevelSection:
			meta.Section = d.header
		}

		end := len(runes)
		if i+1 < len(delimiters) {
			end = delimiters[i+1].pos
		}

		segMeta := meta
		segMeta.Level = d.level
		if d.level == domain.LevelArticle {
			segMeta.Article = d.header
		}
		segments = append(segments, segment{start: d.pos, end: end, meta: segMeta})
	}

	return segments
}

// splitByParagraphs cuts at blank lines, merging spans smaller than
// cfg.MinSize into their successor so no text is dropped.
func splitByParagraphs(runes []rune, cfg Config) []segment {
	var cuts []int
	blankStart := -1
	newlines := 0

	for i, r := range runes {
		if r == '\n' {
			if blankStart < 0 {
				blankStart = i
			}
			newlines++
			continue
		}
		if blankStart >= 0 && unicode.IsSpace(r) {
			continue
		}
		// A whitespace run containing at least two newlines separates
		// paragraphs.
		if blankStart >= 0 && newlines >= 2 {
			cuts = append(cuts, i)
		}
		blankStart = -1
		newlines = 0
	}

	bounds := append([]int{0}, cuts...)
	var segments []segment
	for i, start := range bounds {
		end := len(runes)
		if i+1 < len(bounds) {
			end = bounds[i+1]
		}
		meta := domain.ChunkMetadata{Level: domain.LevelParagraphe}
		if len(segments) > 0 && end-start < cfg.MinSize {
			prev := &segments[len(segments)-1]
			if end-prev.start <= cfg.MaxSize {
				prev.end = end
				continue
			}
		}
		segments = append(segments, segment{start: start, end: end, meta: meta})
	}

	return segments
}

// splitLongSegments enforces the size bound, cutting oversized spans at
// sentence or whitespace boundaries with the configured overlap carried
// between consecutive sub-spans.
func splitLongSegments(runes []rune, segments []segment, cfg Config) []segment {
	var out []segment
	for _, seg := range segments {
		if seg.end-seg.start <= cfg.MaxSize {
			out = append(out, seg)
			continue
		}

		start := seg.start
		for start < seg.end {
			end := start + cfg.MaxSize
			if end >= seg.end {
				out = append(out, segment{start: start, end: seg.end, meta: seg.meta})
				break
			}

			cut := findCut(runes, start, end, cfg.MinSize)
			out = append(out, segment{start: start, end: cut, meta: seg.meta})

			next := cut
			if cfg.Overlap > 0 && cut-start > cfg.Overlap {
				next = cut - cfg.Overlap
			}
			if next <= start {
				next = cut
			}
			start = next
		}
	}
	return out
}

// findCut scans back from end for a sentence boundary, then any
// whitespace, never cutting earlier than minSize runes into the window.
func findCut(runes []rune, start, end, minSize int) int {
	floor := start + minSize
	if floor > end {
		floor = start
	}

	for i := end; i > floor; i-- {
		if isSentenceBoundary(runes, i) {
			return i
		}
	}
	for i := end; i > floor; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}

func isSentenceBoundary(runes []rune, pos int) bool {
	if pos < 2 || pos >= len(runes) {
		return false
	}
	prev, cur := runes[pos-2], runes[pos-1]
	switch {
	case prev == '.' && (cur == ' ' || cur == '\n'):
		return true
	case prev == ';' && cur == '\n':
		return true
	case prev == '\n' && cur == '\n':
		return true
	}
	return false
}
