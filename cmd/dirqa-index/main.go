package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"

	"dirqa/internal/chunker"
	"dirqa/internal/config"
	"dirqa/internal/domain"
	embopenai "dirqa/internal/embedding/openai"
	"dirqa/internal/ingest"
	"dirqa/internal/vectorstore/memory"
	"dirqa/internal/vectorstore/sqlite"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var initConfig, statsOnly bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/dirqa/config.yaml if not provided)")
	flag.BoolVar(&initConfig, "init-config", false, "Write a default config file and exit")
	flag.BoolVar(&statsOnly, "stats", false, "Print statistics for the existing index and exit")
	flag.Parse()

	if initConfig {
		path := cfgPath
		if path == "" {
			path = "dirqa.yaml"
		}
		if _, err := os.Stat(path); err == nil {
			log.Fatalf("refusing to overwrite existing config at %s", path)
		}
		if err := config.Save(path, config.Default()); err != nil {
			log.Fatalf("failed to write config: %v", err)
		}
		fmt.Printf("Wrote default config to %s. Add your documents under the documents: key.\n", path)
		return
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, cfgPath, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	var store domain.VectorStore
	switch cfg.Store.Type {
	case "sqlite", "":
		st, err := sqlite.Open(cfg.Store.Path)
		if err != nil {
			log.Fatalf("failed to open index at %s: %v", cfg.Store.Path, err)
		}
		store = st
	case "memory":
		store = memory.NewStore()
	default:
		log.Fatalf("unknown store: %s", cfg.Store.Type)
	}
	defer store.Close()

	ctx := context.Background()

	if statsOnly {
		printStats(ctx, store)
		return
	}

	if len(cfg.Documents) == 0 {
		log.Fatalf("no documents configured in %s: add entries under the documents: key", cfgPath)
	}

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

	ch, err := chunker.NewWindow(cfg.Chunker.MaxChunkSize, cfg.Chunker.Overlap)
	if err != nil {
		log.Fatalf("invalid chunker config: %v", err)
	}

	sources := make([]ingest.Source, len(cfg.Documents))
	for i, d := range cfg.Documents {
		sources[i] = ingest.Source{Path: d.Path, Name: d.Name, Category: d.Category, ID: d.ID}
	}

	green := color.New(color.FgGreen).SprintFunc()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	builder := ingest.NewBuilder(ch, emb, store, logger)

	fmt.Printf("Indexing %d documents into %s store...\n", len(sources), cfg.Store.Type)
	started := time.Now()
	stats, err := builder.Build(ctx, sources, func(p ingest.Progress) {
		fmt.Printf("  %s %s (%d chunks)\n", green("chunked"), p.Document.Name, p.Chunks)
	})
	if err != nil {
		log.Fatalf("indexing failed: %v", err)
	}
	fmt.Printf("%s in %s\n\n", green("Index built"), time.Since(started).Round(time.Millisecond))

	printReport(stats)
}

func printStats(ctx context.Context, store domain.VectorStore) {
	stats, err := store.Stats(ctx)
	if err != nil {
		log.Fatalf("failed to read index: %v", err)
	}
	printReport(stats)
}

func printReport(stats domain.IndexStats) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Println(bold("Index statistics"))
	fmt.Printf("  Documents:       %d\n", len(stats.Documents))
	fmt.Printf("  Chunks:          %d\n", stats.TotalChunks)
	fmt.Printf("  Embedding model: %s\n", stats.EmbeddingModel)
	if !stats.BuiltAt.IsZero() {
		fmt.Printf("  Built:           %s\n", stats.BuiltAt.Format(time.RFC3339))
	}
	if len(stats.Documents) > 0 {
		fmt.Println("  Per document:")
		for _, d := range stats.Documents {
			if d.Document.Category != "" {
				fmt.Printf("    %-40s %4d chunks  [%s]\n", d.Document.Name, d.Chunks, d.Document.Category)
			} else {
				fmt.Printf("    %-40s %4d chunks\n", d.Document.Name, d.Chunks)
			}
		}
	}
}
