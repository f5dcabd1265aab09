// Package embedding wraps the langchaingo OpenAI embedder used for both
// index builds and query-time search, so the same model and geometry apply
// end to end.
package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/sync/errgroup"
)

const (
	batchSize = 64
	// Bounded worker count for concurrent embedding batches.
	maxWorkers = 4
)

// NewEmbedder builds an embedder bound to one OpenAI embedding model.
func NewEmbedder(apiKey, model string) (*embeddings.EmbedderImpl, error) {
	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("init embedding client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm, embeddings.WithBatchSize(batchSize))
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	return embedder, nil
}

// EmbedTexts embeds every text, issuing batches concurrently up to the worker
// bound. Vectors come back in input order: vector i belongs to text i.
func EmbedTexts(ctx context.Context, embedder embeddings.Embedder, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for start := 0; start < len(texts); start += batchSize {
		start := start
		end := min(start+batchSize, len(texts))
		g.Go(func() error {
			batch, err := embedder.EmbedDocuments(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("embed batch starting at %d: %w", start, err)
			}
			if len(batch) != end-start {
				return fmt.Errorf("embed batch starting at %d: got %d vectors for %d texts", start, len(batch), end-start)
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
