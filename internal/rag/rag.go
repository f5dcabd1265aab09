// Package rag assembles grounded answers: retrieve context for a question,
// prompt the chat model against only that context, and attach a
// deterministic citation list.
package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/rickettlayne/versebyverse-chatbot-version-1.0/internal/index"
	"github.com/rickettlayne/versebyverse-chatbot-version-1.0/internal/models"
)

// Retriever yields the nearest chunks for a query, nearest first.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]index.Result, error)
}

// Generator runs one grounded completion.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

type RAG struct {
	retriever Retriever
	generator Generator
}

func New(retriever Retriever, generator Generator) *RAG {
	return &RAG{retriever: retriever, generator: generator}
}

// Answer resolves one question. With no retrieved context it returns the
// fixed refusal immediately; the model is not called in that case.
func (r *RAG) Answer(ctx context.Context, question string) (models.Answer, error) {
	results, err := r.retriever.Retrieve(ctx, question)
	if err != nil {
		return models.Answer{}, fmt.Errorf("retrieve context: %w", err)
	}
	if len(results) == 0 {
		log.Debug().Str("question", question).Msg("No context retrieved, refusing")
		return models.Answer{Body: models.RefusalAnswer}, nil
	}

	prompt := fmt.Sprintf(models.QuestionPromptTemplate, question, formatContext(results))
	body, err := r.generator.Generate(ctx, models.SystemPrompt, prompt)
	if err != nil {
		return models.Answer{}, err
	}

	return models.Answer{Body: body, Sources: collectSources(results)}, nil
}

// formatContext concatenates the retrieved chunks in retrieval order, each
// tagged with its provenance.
func formatContext(results []index.Result) string {
	entries := make([]string, len(results))
	for i, r := range results {
		entries[i] = fmt.Sprintf("[%s p.%d] %s", r.Filename, r.PageNumber, r.Text)
	}
	return strings.Join(entries, "\n\n")
}

// collectSources deduplicates citations and sorts them lexicographically so
// the source list is stable across runs regardless of retrieval order.
func collectSources(results []index.Result) []string {
	seen := map[string]struct{}{}
	var sources []string
	for _, r := range results {
		citation := r.Citation()
		if _, ok := seen[citation]; ok {
			continue
		}
		seen[citation] = struct{}{}
		sources = append(sources, citation)
	}
	sort.Strings(sources)
	return sources
}

// Format renders an answer for the terminal; refusals carry no source list.
func Format(a models.Answer) string {
	if len(a.Sources) == 0 {
		return a.Body
	}
	return fmt.Sprintf("%s\n\nSources: %s", a.Body, strings.Join(a.Sources, "; "))
}
