// Package index owns the persisted vector store. It is the only component
// that touches the on-disk representation; everything else goes through
// Build, Add and Search.
package index

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"github.com/rickettlayne/versebyverse-chatbot-version-1.0/internal/embedding"
	"github.com/rickettlayne/versebyverse-chatbot-version-1.0/internal/models"
)

const collectionName = "bible_studies"

var (
	// ErrNotFound means no valid persisted index exists at the configured
	// location. It routes the orchestrator into re-processing, it is not
	// user-fatal.
	ErrNotFound = errors.New("vector index not found")
	// ErrNotLoaded is returned when Search or Add run against a store that
	// was neither built nor loaded.
	ErrNotLoaded = errors.New("vector index not loaded")
	// ErrInvalidK rejects non-positive fan-out values.
	ErrInvalidK = errors.New("k must be positive")
)

// Result is one retrieved embedding record, nearest first in a slice.
type Result struct {
	Text       string
	Filename   string
	PageNumber int
	SourceURL  string
	Similarity float32
}

// Citation renders the record's source reference.
func (r Result) Citation() string {
	return fmt.Sprintf("%s (p.%d)", r.Filename, r.PageNumber)
}

// Store wraps a persistent chromem collection. Single writer, multiple
// readers; readers must reopen to observe a concurrent build.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
	path       string
}

// NewStore opens the persistent database directory without touching any
// collection. Call Load to attach an existing index or Build to create one.
func NewStore(path string, embedder embeddings.Embedder) (*Store, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open vector database: %w", err)
	}
	return &Store{db: db, embedder: embedder, path: path}, nil
}

// embeddingFunc adapts the query embedder for chromem, keeping the metric
// identical between build and search.
func (s *Store) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}

// Load attaches the persisted collection. The check is on the collection
// itself, not on the directory: an existing but empty location still reports
// ErrNotFound.
func (s *Store) Load() error {
	collection := s.db.GetCollection(collectionName, s.embeddingFunc())
	if collection == nil || collection.Count() == 0 {
		return ErrNotFound
	}
	s.collection = collection
	log.Info().Int("records", collection.Count()).Str("path", s.path).Msg("Loaded vector index")
	return nil
}

// Loaded reports whether a collection is attached.
func (s *Store) Loaded() bool { return s.collection != nil }

// Count returns the number of persisted embedding records.
func (s *Store) Count() int {
	if s.collection == nil {
		return 0
	}
	return s.collection.Count()
}

// Build embeds every chunk and persists the records, replacing any existing
// collection. All embedding happens before the first write, so an embedding
// failure never leaves a partially built index behind.
func (s *Store) Build(ctx context.Context, chunks []models.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := embedding.EmbedTexts(ctx, s.embedder, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	if s.db.GetCollection(collectionName, s.embeddingFunc()) != nil {
		if err := s.db.DeleteCollection(collectionName); err != nil {
			return fmt.Errorf("drop stale collection: %w", err)
		}
	}
	collection, err := s.db.CreateCollection(collectionName, nil, s.embeddingFunc())
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	docs := toDocuments(chunks, vectors)
	if err := collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("persist embeddings: %w", err)
	}
	s.collection = collection
	log.Info().Int("records", collection.Count()).Str("path", s.path).Msg("Built vector index")
	return nil
}

// Add embeds and appends chunks to the loaded collection. Chunks whose ID is
// already present are skipped without re-embedding; identical input is a
// no-op, so re-ingesting a file is idempotent.
func (s *Store) Add(ctx context.Context, chunks []models.Chunk) error {
	if s.collection == nil {
		return ErrNotLoaded
	}

	seen := map[string]struct{}{}
	var fresh []models.Chunk
	for _, c := range chunks {
		id := c.ID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if _, err := s.collection.GetByID(ctx, id); err == nil {
			continue
		}
		fresh = append(fresh, c)
	}
	if len(fresh) == 0 {
		log.Debug().Msg("No new chunks to add")
		return nil
	}

	texts := make([]string, len(fresh))
	for i, c := range fresh {
		texts[i] = c.Text
	}
	vectors, err := embedding.EmbedTexts(ctx, s.embedder, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if err := s.collection.AddDocuments(ctx, toDocuments(fresh, vectors), runtime.NumCPU()); err != nil {
		return fmt.Errorf("persist embeddings: %w", err)
	}
	log.Info().Int("added", len(fresh)).Msg("Added chunks to vector index")
	return nil
}

// Search returns the k records nearest to the query, nearest first. An empty
// collection yields an empty result, not an error.
func (s *Store) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if s.collection == nil {
		return nil, ErrNotLoaded
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}

	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	found, err := s.collection.QueryWithOptions(ctx, chromem.QueryOptions{
		QueryEmbedding: vector,
		NResults:       k,
	})
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	results := make([]Result, 0, len(found))
	for _, r := range found {
		page, _ := strconv.Atoi(r.Metadata[models.MetaPageNumber])
		results = append(results, Result{
			Text:       r.Content,
			Filename:   r.Metadata[models.MetaFilename],
			PageNumber: page,
			SourceURL:  r.Metadata[models.MetaSourceURL],
			Similarity: r.Similarity,
		})
	}
	return results, nil
}

func toDocuments(chunks []models.Chunk, vectors [][]float32) []chromem.Document {
	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:        c.ID(),
			Content:   c.Text,
			Embedding: vectors[i],
			Metadata: map[string]string{
				models.MetaFilename:   c.Filename,
				models.MetaPageNumber: strconv.Itoa(c.PageNumber),
				models.MetaSourceURL:  c.SourceURL,
			},
		}
	}
	return docs
}
