// Package splitter breaks extracted page texts into overlapping chunks
// bounded by a character budget. Splitting walks a priority list of
// separators from paragraph breaks down to single spaces, so chunk
// boundaries land on the coarsest separator that keeps chunks under budget.
package splitter

import (
	"strings"

	"github.com/rickettlayne/versebyverse-chatbot-version-1.0/internal/models"
)

// Separators in priority order. A span containing none of them is emitted as
// a single chunk even when it exceeds the budget; words are never cut.
var separators = []string{"\n\n", "\n", ". ", " "}

type Splitter struct {
	chunkSize    int
	chunkOverlap int
}

func New(chunkSize, chunkOverlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 2
	}
	return &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// SplitDocuments chunks every document, carrying its metadata onto each
// chunk. Documents without page attribution get the chunk sequence index as
// their page number.
func (s *Splitter) SplitDocuments(docs []models.Document) []models.Chunk {
	var chunks []models.Chunk
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			continue
		}
		for i, text := range s.SplitText(doc.Text) {
			page := doc.PageNumber
			if page == 0 {
				page = i + 1
			}
			chunks = append(chunks, models.Chunk{
				Text:       text,
				Filename:   doc.Filename,
				PageNumber: page,
				SourceURL:  doc.SourceURL,
			})
		}
	}
	return chunks
}

// SplitText splits one text into chunks of at most the configured size, with
// consecutive chunks overlapping by roughly the configured overlap.
func (s *Splitter) SplitText(text string) []string {
	return s.split(text, separators)
}

func (s *Splitter) split(text string, seps []string) []string {
	if len(text) <= s.chunkSize {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}

	sep, rest := pickSeparator(text, seps)
	if sep == "" {
		// No separator applies: emit the oversized span whole.
		return []string{strings.TrimSpace(text)}
	}

	// Separator stays attached to the preceding piece, so joining pieces
	// reconstructs the original text.
	pieces := strings.SplitAfter(text, sep)
	var out []string
	var pending []string
	for _, piece := range pieces {
		if len(piece) <= s.chunkSize {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			out = append(out, s.merge(pending)...)
			pending = nil
		}
		out = append(out, s.split(piece, rest)...)
	}
	if len(pending) > 0 {
		out = append(out, s.merge(pending)...)
	}
	return out
}

// pickSeparator returns the first separator present in text plus the finer
// separators after it, or "" when none applies.
func pickSeparator(text string, seps []string) (string, []string) {
	for i, sep := range seps {
		if strings.Contains(text, sep) {
			return sep, seps[i+1:]
		}
	}
	return "", nil
}

// merge packs separator-bounded pieces into chunks not exceeding the budget,
// sliding the window so consecutive chunks share a tail of roughly
// chunkOverlap characters.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var window []string
	total := 0

	flush := func() {
		if chunk := strings.TrimSpace(strings.Join(window, "")); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	for _, piece := range pieces {
		if total+len(piece) > s.chunkSize && total > 0 {
			flush()
			for len(window) > 0 && (total > s.chunkOverlap || total+len(piece) > s.chunkSize) {
				total -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += len(piece)
	}
	flush()
	return chunks
}
