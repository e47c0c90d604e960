package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"dirqa/internal/chunker"
	"dirqa/internal/composer"
	"dirqa/internal/config"
	"dirqa/internal/domain"
	embopenai "dirqa/internal/embedding/openai"
	genopenai "dirqa/internal/generation/openai"
	"dirqa/internal/ingest"
	"dirqa/internal/retriever"
	"dirqa/internal/service"
	"dirqa/internal/tui"
	"dirqa/internal/vectorstore/memory"
	"dirqa/internal/vectorstore/sqlite"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, logPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/dirqa/config.yaml if not provided)")
	flag.StringVar(&logPath, "log", "", "Append query logs to this file (optional; logging is off without it)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	// The TUI owns the terminal, so slog output goes to a file or nowhere.
	logWriter := io.Writer(io.Discard)
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("failed to open log file: %v", err)
		}
		defer f.Close()
		logWriter = f
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Assemble components
	var emb domain.EmbeddingProvider
	switch cfg.Embedder.Type {
	case "openai", "":
		client, err := embopenai.NewClient(embopenai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
			BatchSize: cfg.Embedder.OpenAI.BatchSize,
		})
		if err != nil {
			log.Fatalf("embedder init failed: %v", err)
		}
		emb = client
	default:
		log.Fatalf("unknown embedder: %s", cfg.Embedder.Type)
	}

	var gen domain.GenerationProvider
	switch cfg.Generator.Type {
	case "openai", "":
		client, err := genopenai.NewClient(genopenai.Config{
			BaseURL:     cfg.Generator.OpenAI.BaseURL,
			APIKeyEnv:   cfg.Generator.OpenAI.APIKeyEnv,
			Model:       cfg.Generator.OpenAI.Model,
			Timeout:     time.Duration(cfg.Generator.OpenAI.TimeoutSecs) * time.Second,
			Temperature: cfg.Generator.OpenAI.Temperature,
			MaxTokens:   cfg.Generator.OpenAI.MaxTokens,
		})
		if err != nil {
			log.Fatalf("generator init failed: %v", err)
		}
		gen = client
	default:
		log.Fatalf("unknown generator: %s", cfg.Generator.Type)
	}

	ctx := context.Background()

	var store domain.VectorStore
	switch cfg.Store.Type {
	case "sqlite", "":
		st, err := sqlite.Open(cfg.Store.Path)
		if err != nil {
			log.Fatalf("failed to open index at %s: %v", cfg.Store.Path, err)
		}
		store = st
	case "memory":
		// Nothing persists for a memory store, so index on startup.
		st := memory.NewStore()
		if err := buildMemoryIndex(ctx, cfg, emb, st, logger); err != nil {
			log.Fatalf("failed to build index: %v", err)
		}
		store = st
	default:
		log.Fatalf("unknown store: %s", cfg.Store.Type)
	}
	defer store.Close()

	stats, err := store.Stats(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			log.Fatalf("no index at %s: run dirqa-index first", cfg.Store.Path)
		}
		log.Fatalf("failed to read index: %v", err)
	}
	docs, err := store.Documents(ctx)
	if err != nil {
		log.Fatalf("failed to list documents: %v", err)
	}

	ret := retriever.New(emb, store, retriever.Config{Adjacency: cfg.Retriever.Adjacency})
	comp := composer.New(gen, composer.Config{MaxContextChars: cfg.Composer.MaxContextChars})
	svc := service.New(ret, comp, store, service.Config{TopK: cfg.Retriever.TopK}, logger)

	summary := fmt.Sprintf("%d documents, %d chunks, embeddings by %s",
		len(stats.Documents), stats.TotalChunks, stats.EmbeddingModel)
	m := tui.New(svc, docs, summary)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}

func buildMemoryIndex(ctx context.Context, cfg *config.AppConfig, emb domain.EmbeddingProvider, store domain.VectorStore, logger *slog.Logger) error {
	ch, err := chunker.NewWindow(cfg.Chunker.MaxChunkSize, cfg.Chunker.Overlap)
	if err != nil {
		return err
	}
	sources := make([]ingest.Source, len(cfg.Documents))
	for i, d := range cfg.Documents {
		sources[i] = ingest.Source{Path: d.Path, Name: d.Name, Category: d.Category, ID: d.ID}
	}
	_, err = ingest.NewBuilder(ch, emb, store, logger).Build(ctx, sources, nil)
	return err
}
