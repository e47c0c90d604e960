package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"dirqa/internal/domain"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// EmbedderConfig selects and configures the embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// OpenAIGeneratorConfig holds configuration for the OpenAI-compatible
// chat model used to compose answers.
type OpenAIGeneratorConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// GeneratorConfig selects and configures the answer generator.
type GeneratorConfig struct {
	Type   string                 `yaml:"type"`
	OpenAI *OpenAIGeneratorConfig `yaml:"openai,omitempty"`
}

// ChunkerConfig configures how document text is split into chunks.
type ChunkerConfig struct {
	MaxChunkSize int `yaml:"max_chunk_size"`
	Overlap      int `yaml:"overlap"`
}

// StoreConfig selects and configures the vector store implementation.
type StoreConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path,omitempty"`
}

// RetrieverConfig configures retrieval depth and overlap dedup.
type RetrieverConfig struct {
	TopK      int `yaml:"top_k"`
	Adjacency int `yaml:"adjacency"`
}

// ComposerConfig configures answer composition.
type ComposerConfig struct {
	MaxContextChars int `yaml:"max_context_chars"`
}

// DocumentConfig names one source document for indexing. Path is
// required; ID and Name are derived from the filename when empty.
type DocumentConfig struct {
	Path     string `yaml:"path"`
	Name     string `yaml:"name,omitempty"`
	Category string `yaml:"category,omitempty"`
	ID       string `yaml:"id,omitempty"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Store     StoreConfig      `yaml:"store"`
	Embedder  EmbedderConfig   `yaml:"embedder"`
	Generator GeneratorConfig  `yaml:"generator"`
	Chunker   ChunkerConfig    `yaml:"chunker"`
	Retriever RetrieverConfig  `yaml:"retriever"`
	Composer  ComposerConfig   `yaml:"composer"`
	Documents []DocumentConfig `yaml:"documents"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./dirqa.yaml first, then ~/.config/dirqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/dirqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "dirqa.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "dirqa", "config.yaml"), nil
}

// Default returns the configuration used when no file is present:
// a local SQLite index and the OpenAI embedding and chat models.
func Default() *AppConfig {
	cfg := &AppConfig{
		Store:    StoreConfig{Type: "sqlite", Path: "dirqa.db"},
		Embedder: EmbedderConfig{Type: "openai"},
		Generator: GeneratorConfig{
			Type: "openai",
		},
		Chunker:   ChunkerConfig{MaxChunkSize: 500, Overlap: 100},
		Retriever: RetrieverConfig{TopK: 5, Adjacency: 1},
		Composer:  ComposerConfig{MaxContextChars: 6000},
	}
	applyConfigDefaults(cfg)
	return cfg
}

// Validate reports the first invalid setting as a configuration error.
// Component constructors re-check what concerns them; this catches
// mistakes before any file or network work starts.
func (c *AppConfig) Validate() error {
	switch c.Store.Type {
	case "sqlite":
		if c.Store.Path == "" {
			return fmt.Errorf("%w: sqlite store requires a path", domain.ErrConfiguration)
		}
	case "memory":
	default:
		return fmt.Errorf("%w: unknown store type %q", domain.ErrConfiguration, c.Store.Type)
	}
	if c.Embedder.Type != "openai" {
		return fmt.Errorf("%w: unknown embedder type %q", domain.ErrConfiguration, c.Embedder.Type)
	}
	if c.Embedder.OpenAI == nil {
		return fmt.Errorf("%w: openai embedder settings missing", domain.ErrConfiguration)
	}
	if c.Generator.Type != "openai" {
		return fmt.Errorf("%w: unknown generator type %q", domain.ErrConfiguration, c.Generator.Type)
	}
	if c.Generator.OpenAI == nil {
		return fmt.Errorf("%w: openai generator settings missing", domain.ErrConfiguration)
	}
	if c.Chunker.MaxChunkSize <= 0 {
		return fmt.Errorf("%w: max chunk size must be positive, got %d", domain.ErrConfiguration, c.Chunker.MaxChunkSize)
	}
	if c.Chunker.Overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", domain.ErrConfiguration, c.Chunker.Overlap)
	}
	if c.Chunker.Overlap >= c.Chunker.MaxChunkSize {
		return fmt.Errorf("%w: overlap %d must be smaller than max chunk size %d",
			domain.ErrConfiguration, c.Chunker.Overlap, c.Chunker.MaxChunkSize)
	}
	if c.Retriever.TopK < 1 {
		return fmt.Errorf("%w: top k must be at least 1, got %d", domain.ErrConfiguration, c.Retriever.TopK)
	}
	if c.Retriever.Adjacency < 0 {
		return fmt.Errorf("%w: adjacency must not be negative, got %d", domain.ErrConfiguration, c.Retriever.Adjacency)
	}
	if c.Composer.MaxContextChars <= 0 {
		return fmt.Errorf("%w: max context chars must be positive, got %d", domain.ErrConfiguration, c.Composer.MaxContextChars)
	}
	ids := make(map[string]struct{}, len(c.Documents))
	for i, d := range c.Documents {
		if d.Path == "" {
			return fmt.Errorf("%w: documents[%d] has no path", domain.ErrConfiguration, i)
		}
		if d.ID == "" {
			continue
		}
		if _, dup := ids[d.ID]; dup {
			return fmt.Errorf("%w: duplicate document id %q", domain.ErrConfiguration, d.ID)
		}
		ids[d.ID] = struct{}{}
	}
	return nil
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Store.Type == "" {
		cfg.Store.Type = "sqlite"
	}
	if cfg.Store.Type == "sqlite" && cfg.Store.Path == "" {
		cfg.Store.Path = "dirqa.db"
	}
	if cfg.Chunker.MaxChunkSize == 0 {
		cfg.Chunker.MaxChunkSize = 500
		// Only pair the default overlap with the default window size.
		// An explicit smaller window keeps whatever overlap was given.
		if cfg.Chunker.Overlap == 0 {
			cfg.Chunker.Overlap = 100
		}
	}
	if cfg.Retriever.TopK == 0 {
		cfg.Retriever.TopK = 5
	}
	if cfg.Retriever.Adjacency == 0 {
		cfg.Retriever.Adjacency = 1
	}
	if cfg.Composer.MaxContextChars == 0 {
		cfg.Composer.MaxContextChars = 6000
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 100
		}
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "openai"
	}
	if cfg.Generator.Type == "openai" {
		if cfg.Generator.OpenAI == nil {
			cfg.Generator.OpenAI = &OpenAIGeneratorConfig{}
		}
		if cfg.Generator.OpenAI.BaseURL == "" {
			cfg.Generator.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Generator.OpenAI.APIKeyEnv == "" {
			cfg.Generator.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Generator.OpenAI.Model == "" {
			cfg.Generator.OpenAI.Model = "gpt-4o-mini"
		}
		if cfg.Generator.OpenAI.TimeoutSecs == 0 {
			cfg.Generator.OpenAI.TimeoutSecs = 60
		}
		if cfg.Generator.OpenAI.Temperature == 0 {
			cfg.Generator.OpenAI.Temperature = 0.3
		}
		if cfg.Generator.OpenAI.MaxTokens == 0 {
			cfg.Generator.OpenAI.MaxTokens = 600
		}
	}
}
