package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Document is one extracted page of a source PDF, cleaned and ready for
// chunking. PageNumber is 1-based; a zero PageNumber means the extraction
// strategy could not attribute text to individual pages.
type Document struct {
	Text       string
	Filename   string
	PageNumber int
	SourceURL  string
}

// Chunk is the unit of embedding and retrieval.
type Chunk struct {
	Text       string
	Filename   string
	PageNumber int
	SourceURL  string
}

// ID derives a stable identity from the chunk's provenance and content, so
// re-ingesting the same PDF writes the same records instead of duplicates.
func (c Chunk) ID() string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", c.Filename, c.PageNumber, c.Text)))
	return hex.EncodeToString(h[:])
}

// Citation is the chunk's source reference as shown to the user.
func (c Chunk) Citation() string {
	return fmt.Sprintf("%s (p.%d)", c.Filename, c.PageNumber)
}

// Answer is the final response for one question.
type Answer struct {
	Body    string
	Sources []string
}
