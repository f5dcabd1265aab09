package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeWhitespace(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses runs", "Moses  parted\tthe\n\nRed   Sea.", "Moses parted the Red Sea."},
		{"trims ends", "  leading and trailing \n", "leading and trailing"},
		{"pure whitespace", " \n\t ", ""},
		{"empty", "", ""},
		{"already clean", "already clean", "already clean"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeWhitespace(tt.in))
		})
	}
}

func TestExtractMissingFileReportsEveryStrategy(t *testing.T) {
	e := New()
	_, err := e.Extract(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "per-page")
	assert.Contains(t, err.Error(), "whole-document")
}

func TestExtractRejectsNonPDFContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0o644))

	e := New()
	pages, err := e.Extract(path)
	assert.Error(t, err)
	assert.Empty(t, pages)
}
