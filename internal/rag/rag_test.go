package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickettlayne/versebyverse-chatbot-version-1.0/internal/index"
	"github.com/rickettlayne/versebyverse-chatbot-version-1.0/internal/models"
)

type fakeRetriever struct {
	results []index.Result
	err     error
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string) ([]index.Result, error) {
	return f.results, f.err
}

type fakeGenerator struct {
	reply      string
	err        error
	calls      int
	lastSystem string
	lastPrompt string
}

func (f *fakeGenerator) Generate(_ context.Context, system, prompt string) (string, error) {
	f.calls++
	f.lastSystem = system
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func retrievedResults() []index.Result {
	return []index.Result{
		{Text: "Moses parted the Red Sea.", Filename: "exodus.pdf", PageNumber: 14},
		{Text: "The waters stood as a wall.", Filename: "exodus.pdf", PageNumber: 14},
		{Text: "Paul wrote letters to early churches.", Filename: "acts.pdf", PageNumber: 3},
	}
}

func TestAnswerRefusesWithoutContext(t *testing.T) {
	gen := &fakeGenerator{reply: "should never be used"}
	r := New(&fakeRetriever{}, gen)

	answer, err := r.Answer(context.Background(), "Who parted the Red Sea?")
	require.NoError(t, err)
	assert.Equal(t, models.RefusalAnswer, answer.Body)
	assert.Empty(t, answer.Sources)
	assert.Zero(t, gen.calls, "the model must not be called when retrieval is empty")
}

func TestAnswerBuildsTaggedContextInRetrievalOrder(t *testing.T) {
	gen := &fakeGenerator{reply: "Moses did."}
	r := New(&fakeRetriever{results: retrievedResults()}, gen)

	_, err := r.Answer(context.Background(), "Who parted the Red Sea?")
	require.NoError(t, err)
	require.Equal(t, 1, gen.calls)

	assert.Contains(t, gen.lastPrompt, "Question: Who parted the Red Sea?")
	first := "[exodus.pdf p.14] Moses parted the Red Sea."
	second := "[exodus.pdf p.14] The waters stood as a wall."
	third := "[acts.pdf p.3] Paul wrote letters to early churches."
	assert.Contains(t, gen.lastPrompt, first)
	assert.Contains(t, gen.lastPrompt, second)
	assert.Contains(t, gen.lastPrompt, third)
	assert.Less(t, strings.Index(gen.lastPrompt, first), strings.Index(gen.lastPrompt, second))
	assert.Less(t, strings.Index(gen.lastPrompt, second), strings.Index(gen.lastPrompt, third))
	assert.Contains(t, gen.lastSystem, models.RefusalAnswer)
}

func TestAnswerSourcesDeduplicatedAndSorted(t *testing.T) {
	gen := &fakeGenerator{reply: "Moses did."}
	r := New(&fakeRetriever{results: retrievedResults()}, gen)

	answer, err := r.Answer(context.Background(), "Who parted the Red Sea?")
	require.NoError(t, err)
	// Two chunks share (exodus.pdf, 14): one citation. Sorted
	// lexicographically, not by relevance.
	assert.Equal(t, []string{"acts.pdf (p.3)", "exodus.pdf (p.14)"}, answer.Sources)
	assert.Equal(t, "Moses did.", answer.Body)
}

func TestAnswerPropagatesGenerationError(t *testing.T) {
	genErr := errors.New("model unavailable")
	r := New(&fakeRetriever{results: retrievedResults()}, &fakeGenerator{err: genErr})

	_, err := r.Answer(context.Background(), "Who parted the Red Sea?")
	assert.ErrorIs(t, err, genErr)
}

func TestAnswerPropagatesRetrievalError(t *testing.T) {
	retErr := errors.New("store offline")
	gen := &fakeGenerator{}
	r := New(&fakeRetriever{err: retErr}, gen)

	_, err := r.Answer(context.Background(), "anything")
	assert.ErrorIs(t, err, retErr)
	assert.Zero(t, gen.calls)
}

func TestFormat(t *testing.T) {
	withSources := models.Answer{
		Body:    "Moses did.",
		Sources: []string{"acts.pdf (p.3)", "exodus.pdf (p.14)"},
	}
	assert.Equal(t, "Moses did.\n\nSources: acts.pdf (p.3); exodus.pdf (p.14)", Format(withSources))

	refusal := models.Answer{Body: models.RefusalAnswer}
	assert.Equal(t, models.RefusalAnswer, Format(refusal))
}
