package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rickettlayne/versebyverse-chatbot-version-1.0/internal/config"
	"github.com/rickettlayne/versebyverse-chatbot-version-1.0/internal/embedding"
	"github.com/rickettlayne/versebyverse-chatbot-version-1.0/internal/extractor"
	"github.com/rickettlayne/versebyverse-chatbot-version-1.0/internal/index"
	"github.com/rickettlayne/versebyverse-chatbot-version-1.0/internal/ingest"
	"github.com/rickettlayne/versebyverse-chatbot-version-1.0/internal/llm"
	"github.com/rickettlayne/versebyverse-chatbot-version-1.0/internal/manifest"
	"github.com/rickettlayne/versebyverse-chatbot-version-1.0/internal/rag"
	"github.com/rickettlayne/versebyverse-chatbot-version-1.0/internal/scraper"
	"github.com/rickettlayne/versebyverse-chatbot-version-1.0/internal/splitter"
)

const (
	configFilePath = "./configs/config.yaml"
	manifestName   = "manifest.json"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	rescrape := flag.Bool("rescrape", false, "Force re-scraping and re-indexing regardless of existing local state")
	query := flag.String("query", "", "Answer a single question and exit instead of starting the interactive loop")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load(configFilePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Configuration is incomplete")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	embedder, err := embedding.NewEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	store, err := index.NewStore(cfg.IndexDir, embedder)
	if err != nil {
		log.Fatal().Err(err).Msg("Error opening vector store")
	}

	manifestStore := manifest.NewStore(filepath.Join(cfg.PDFDir, manifestName))
	pdfScraper := scraper.New(cfg.PDFDir, manifestStore, scraper.Options{
		PageDelay:     time.Duration(cfg.PageDelayMS) * time.Millisecond,
		DownloadDelay: time.Duration(cfg.DownloadDelayMS) * time.Millisecond,
		Workers:       cfg.DownloadWorkers,
	})

	orchestrator := ingest.NewOrchestrator(
		cfg.PDFDir,
		cfg.TargetURLs,
		pdfScraper,
		extractor.New(),
		splitter.New(cfg.ChunkSize, cfg.ChunkOverlap),
		store,
		manifestStore,
	)
	if err := orchestrator.Run(ctx, *rescrape); err != nil {
		log.Fatal().Err(err).Msg("Ingestion failed")
	}
	if !store.Loaded() {
		if err := store.Load(); err != nil {
			log.Fatal().Err(err).Msg("Error loading vector index")
		}
	}

	chatClient, err := llm.NewClient(cfg.OpenAIAPIKey, cfg.ChatModel)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing chat model")
	}
	assistant := rag.New(index.NewRetriever(store, cfg.RetrievalK), chatClient)

	if *query != "" {
		answer, err := assistant.Answer(ctx, *query)
		if err != nil {
			log.Fatal().Err(err).Msg("Error answering question")
		}
		fmt.Println(rag.Format(answer))
		return
	}

	runInteractive(ctx, assistant, os.Stdin)
}

func runInteractive(ctx context.Context, assistant *rag.RAG, in io.Reader) {
	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()

	fmt.Println(boldGreen("Verse by Verse RAG Chatbot"))
	fmt.Println("Ask questions about the ingested Bible study materials.")
	fmt.Println("Type 'exit', 'quit' or 'q' to stop.")
	fmt.Println()

	// Reading in a goroutine keeps the prompt responsive to Ctrl-C: a
	// blocked stdin read would otherwise swallow the context cancellation.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Print(boldGreen("Your question: "))

		var line string
		var open bool
		select {
		case <-ctx.Done():
			fmt.Println("\nGoodbye!")
			return
		case line, open = <-lines:
			if !open {
				fmt.Println()
				return
			}
		}
		question := strings.TrimSpace(line)
		switch strings.ToLower(question) {
		case "exit", "quit", "q":
			fmt.Println("Goodbye!")
			return
		case "":
			continue
		}

		answer, err := assistant.Answer(ctx, question)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Println("\nGoodbye!")
				return
			}
			// A failed generation only loses this question.
			log.Error().Err(err).Msg("Error answering question")
			continue
		}
		fmt.Printf("%s%s\n\n", boldCyan("Answer: "), rag.Format(answer))
	}
}
