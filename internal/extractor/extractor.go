// Package extractor turns a PDF file into ordered, whitespace-normalized
// page texts. Extraction strategies are tried in order and the first one
// yielding any text wins; a file where every strategy fails contributes zero
// pages without failing the batch.
package extractor

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

// Page is one unit of extracted text. Number is 1-based; zero means the
// strategy could not attribute text to individual pages.
type Page struct {
	Number int
	Text   string
}

type strategy struct {
	name string
	fn   func(path string) ([]Page, error)
}

type Extractor struct {
	strategies []strategy
}

func New() *Extractor {
	return &Extractor{
		strategies: []strategy{
			{name: "per-page", fn: extractPerPage},
			{name: "whole-document", fn: extractWholeDocument},
		},
	}
}

// Extract runs the strategies in order and returns the pages of the first
// one that produced text. When all strategies fail, the collected failure
// reasons are joined into the returned error.
func (e *Extractor) Extract(path string) ([]Page, error) {
	var reasons []string
	for _, s := range e.strategies {
		pages, err := s.fn(path)
		if err != nil {
			reasons = append(reasons, fmt.Sprintf("%s: %v", s.name, err))
			log.Warn().Str("file", path).Str("strategy", s.name).Err(err).Msg("Extraction strategy failed")
			continue
		}
		if len(pages) > 0 {
			return pages, nil
		}
		reasons = append(reasons, fmt.Sprintf("%s: no text", s.name))
	}
	return nil, fmt.Errorf("all extraction strategies failed: %s", strings.Join(reasons, "; "))
}

func extractPerPage(path string) ([]Page, error) {
	f, reader, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []Page
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A bad page is skipped, not fatal for the file.
			log.Warn().Str("file", path).Int("page", i).Err(err).Msg("Failed to extract page")
			continue
		}
		cleaned := NormalizeWhitespace(text)
		if cleaned == "" {
			continue
		}
		pages = append(pages, Page{Number: i, Text: cleaned})
	}
	return pages, nil
}

func extractWholeDocument(path string) ([]Page, error) {
	f, reader, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := reader.GetPlainText()
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cleaned := NormalizeWhitespace(string(raw))
	if cleaned == "" {
		return nil, nil
	}
	return []Page{{Number: 0, Text: cleaned}}, nil
}

func openReader(path string) (*os.File, *pdf.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return f, reader, nil
}

// NormalizeWhitespace collapses every run of whitespace to a single space and
// trims the ends.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
