// Package ingest drives the pipeline from seed URLs to a populated vector
// index, skipping stages whose output already exists.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/rickettlayne/versebyverse-chatbot-version-1.0/internal/extractor"
	"github.com/rickettlayne/versebyverse-chatbot-version-1.0/internal/manifest"
	"github.com/rickettlayne/versebyverse-chatbot-version-1.0/internal/models"
	"github.com/rickettlayne/versebyverse-chatbot-version-1.0/internal/splitter"
)

// State describes what work the pipeline still owes.
type State int

const (
	NeedDownload State = iota
	NeedProcessing
	NeedIndexing
	Ready
)

func (s State) String() string {
	switch s {
	case NeedDownload:
		return "need-download"
	case NeedProcessing:
		return "need-processing"
	case NeedIndexing:
		return "need-indexing"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

var (
	// ErrNoPDFs means the scrape produced nothing to ingest.
	ErrNoPDFs = errors.New("no PDFs available for ingestion")
	// ErrNoDocuments means extraction produced no text from any PDF.
	ErrNoDocuments = errors.New("no documents extracted from PDFs")
)

// Downloader is the scraping collaborator: seed URLs in, local PDF paths out.
type Downloader interface {
	Run(ctx context.Context, seedURLs []string) ([]string, error)
}

// Extractor converts one PDF into page texts.
type Extractor interface {
	Extract(path string) ([]extractor.Page, error)
}

// Indexer is the vector index surface the orchestrator drives.
type Indexer interface {
	Load() error
	Build(ctx context.Context, chunks []models.Chunk) error
}

type Orchestrator struct {
	pdfDir     string
	targetURLs []string
	downloader Downloader
	extractor  Extractor
	splitter   *splitter.Splitter
	indexer    Indexer
	manifest   *manifest.Store
}

func NewOrchestrator(pdfDir string, targetURLs []string, downloader Downloader, ex Extractor, sp *splitter.Splitter, indexer Indexer, m *manifest.Store) *Orchestrator {
	return &Orchestrator{
		pdfDir:     pdfDir,
		targetURLs: targetURLs,
		downloader: downloader,
		extractor:  ex,
		splitter:   sp,
		indexer:    indexer,
		manifest:   m,
	}
}

// Resolve decides the entry state. Forced re-scrape always restarts from
// download; otherwise local PDFs plus a loadable index mean no work at all.
func (o *Orchestrator) Resolve(force bool) State {
	if force {
		return NeedDownload
	}
	if len(listPDFs(o.pdfDir)) == 0 {
		return NeedDownload
	}
	if err := o.indexer.Load(); err != nil {
		return NeedProcessing
	}
	return Ready
}

// Run advances the pipeline to Ready. After a forced re-scrape every later
// stage re-runs; nothing from the previous index is reused.
func (o *Orchestrator) Run(ctx context.Context, force bool) error {
	state := o.Resolve(force)
	log.Info().Stringer("state", state).Bool("force", force).Msg("Starting ingestion")

	var files []string
	switch state {
	case Ready:
		log.Info().Msg("Valid vector index found, skipping ingestion")
		return nil
	case NeedDownload:
		downloaded, err := o.downloader.Run(ctx, o.targetURLs)
		if err != nil {
			return fmt.Errorf("scrape PDFs: %w", err)
		}
		files = downloaded
	case NeedProcessing:
		files = listPDFs(o.pdfDir)
	}
	if len(files) == 0 {
		return ErrNoPDFs
	}
	log.Info().Int("files", len(files)).Msg("Processing PDFs")

	docs, err := o.processFiles(files)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return ErrNoDocuments
	}

	chunks := o.splitter.SplitDocuments(docs)
	state = NeedIndexing
	log.Info().Stringer("state", state).Int("documents", len(docs)).Int("chunks", len(chunks)).Msg("Documents chunked, building index")

	if err := o.indexer.Build(ctx, chunks); err != nil {
		return fmt.Errorf("build vector index: %w", err)
	}
	return nil
}

// processFiles extracts every PDF into page documents, attaching the source
// URL recorded in the manifest. A file that fails extraction contributes
// zero pages and the batch continues.
func (o *Orchestrator) processFiles(files []string) ([]models.Document, error) {
	entries, err := o.manifest.Load()
	if err != nil {
		return nil, err
	}

	var docs []models.Document
	for _, path := range files {
		filename := filepath.Base(path)
		pages, err := o.extractor.Extract(path)
		if err != nil {
			log.Error().Err(err).Str("file", filename).Msg("Skipping unreadable PDF")
			continue
		}
		for _, page := range pages {
			docs = append(docs, models.Document{
				Text:       page.Text,
				Filename:   filename,
				PageNumber: page.Number,
				SourceURL:  entries[filename],
			})
		}
		log.Debug().Str("file", filename).Int("pages", len(pages)).Msg("Extracted PDF")
	}
	return docs, nil
}

func listPDFs(dir string) []string {
	items, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var files []string
	for _, item := range items {
		if item.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(item.Name()), ".pdf") {
			files = append(files, filepath.Join(dir, item.Name()))
		}
	}
	sort.Strings(files)
	return files
}
