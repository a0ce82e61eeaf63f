// Package extract converts raw PDF bytes into an ordered sequence of pages.
package extract

import (
	"bytes"
	"context"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/sailor-labs/sailor/internal/domain"
)

// Page is one physical page of a document. Number is 1-based and contiguous;
// Text may be empty for pages with no extractable content (pure images).
type Page struct {
	Number int
	Text   string
}

// Extractor produces page text from PDF bytes. The markdown conversion
// service is the primary path; pages it cannot fill are recovered with
// direct plain-text extraction, and the whole document falls back to the
// native reader when the service is unavailable.
type Extractor struct {
	converter MarkdownConverter
}

func NewExtractor(converter MarkdownConverter) *Extractor {
	return &Extractor{converter: converter}
}

// ExtractPages returns the total page count and an ordered page list.
// Page numbering always matches the physical document; empty pages are
// preserved in the sequence.
func (e *Extractor) ExtractPages(ctx context.Context, filename string, data []byte) (int, []Page, error) {
	reader, readerErr := pdf.NewReader(bytes.NewReader(data), int64(len(data)))

	if e.converter != nil {
		result, err := e.converter.Convert(ctx, filename, data)
		if err == nil {
			pages := e.pagesFromConversion(result, reader)
			return len(pages), pages, nil
		}
		log.Printf("markdown conversion failed, falling back to native extraction: %v", err)
	}

	if readerErr != nil {
		return 0, nil, domain.NewProcessingError("cannot open PDF", readerErr)
	}

	pages := nativePages(reader)
	return len(pages), pages, nil
}

// pagesFromConversion maps converter output onto contiguous page numbers and
// recovers whitespace-only pages via the native reader when possible.
func (e *Extractor) pagesFromConversion(result *ConvertResult, reader *pdf.Reader) []Page {
	pages := make([]Page, 0, len(result.Pages))

	for i, converted := range result.Pages {
		num := converted.Page
		if num <= 0 {
			num = i + 1
		}

		text := converted.Markdown
		if strings.TrimSpace(text) == "" && reader != nil {
			recovered := nativePageText(reader, num)
			if recovered != "" {
				log.Printf("page %d: recovered %d chars via direct extraction (plain text, no markdown)", num, len(recovered))
				text = recovered
			} else {
				log.Printf("page %d: no extractable text found", num)
			}
		}

		pages = append(pages, Page{Number: num, Text: text})
	}

	return pages
}

// nativePages extracts plain text for every page of the document.
func nativePages(reader *pdf.Reader) []Page {
	total := reader.NumPage()
	pages := make([]Page, 0, total)

	for i := 1; i <= total; i++ {
		text := nativePageText(reader, i)
		if text == "" {
			log.Printf("page %d: no extractable text found", i)
		}
		pages = append(pages, Page{Number: i, Text: text})
	}

	return pages
}

// nativePageText extracts plain text for one page, returning "" on any
// failure so empty pages stay in the sequence.
func nativePageText(reader *pdf.Reader, pageNum int) string {
	if pageNum < 1 || pageNum > reader.NumPage() {
		return ""
	}

	page := reader.Page(pageNum)
	if page.V.IsNull() {
		return ""
	}

	text, err := page.GetPlainText(nil)
	if err != nil {
		log.Printf("page %d: direct extraction failed: %v", pageNum, err)
		return ""
	}

	return strings.TrimSpace(text)
}
