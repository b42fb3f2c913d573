// Package extract pulls plain text out of source PDFs, page by page,
// keeping line structure so downstream chunking can detect legal headings.
package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/legisearch/legisearch/internal/domain"
)

var (
	controlChars    = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	horizontalSpace = regexp.MustCompile(`[^\S\n]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
	lineEdges       = regexp.MustCompile(` *\n *`)
)

// Pages extracts text from a PDF, one Page per non-empty source page.
// Pages that fail to parse are reported as warnings and skipped; a PDF
// yielding no usable text at all is an ingestion error.
func Pages(data []byte, source string) ([]domain.Page, []string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, domain.NewDomainErrorWithCause(domain.ErrCodeIngestion, "failed to extract document text", err)
	}

	total := reader.NumPage()
	var pages []domain.Page
	var warnings []string

	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("page %d: %v", i, err))
			continue
		}

		text = CleanText(text)
		if text == "" {
			continue
		}

		pages = append(pages, domain.Page{
			Text:       text,
			PageNumber: i,
			TotalPages: total,
			Source:     source,
		})
	}

	if len(pages) == 0 {
		return nil, warnings, domain.ErrEmptyDocument
	}

	return pages, warnings, nil
}

// PagesFromText wraps already-extracted plain text as a single page.
// Empty text is an ingestion error.
func PagesFromText(text, source string) ([]domain.Page, error) {
	clean := CleanText(text)
	if clean == "" {
		return nil, domain.ErrEmptyDocument
	}
	return []domain.Page{{Text: clean, PageNumber: 1, TotalPages: 1, Source: source}}, nil
}

// CleanText normalizes extracted text: control characters are dropped,
// runs of horizontal whitespace collapse to one space, runs of blank
// lines collapse to one, and line edges are trimmed.
func CleanText(text string) string {
	text = controlChars.ReplaceAllString(text, "")
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = blankLines.ReplaceAllString(text, "\n\n")
	text = lineEdges.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}
