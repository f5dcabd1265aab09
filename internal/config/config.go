package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is reported when OPENAI_API_KEY is absent from the
// environment. It is fatal at startup.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is not set; export it or add it to a .env file")

// Config holds all settings for one pipeline run. Static settings come from
// an optional YAML file; credentials and model/chunking settings can be
// overridden through the environment.
type Config struct {
	OpenAIAPIKey string `yaml:"-"`

	EmbeddingModel string `yaml:"embedding_model"`
	ChatModel      string `yaml:"chat_model"`
	ChunkSize      int    `yaml:"chunk_size"`
	ChunkOverlap   int    `yaml:"chunk_overlap"`
	RetrievalK     int    `yaml:"retrieval_k"`

	PDFDir   string `yaml:"pdf_dir"`
	IndexDir string `yaml:"index_dir"`

	TargetURLs []string `yaml:"target_urls"`

	PageDelayMS     int `yaml:"page_delay_ms"`
	DownloadDelayMS int `yaml:"download_delay_ms"`
	DownloadWorkers int `yaml:"download_workers"`
}

func defaultConfig() *Config {
	return &Config{
		EmbeddingModel: "text-embedding-3-small",
		ChatModel:      "gpt-4o-mini",
		ChunkSize:      1000,
		ChunkOverlap:   200,
		RetrievalK:     4,
		PDFDir:         "data/pdfs",
		IndexDir:       "data/vectorstore",
		TargetURLs: []string{
			"https://versebyverseministry.org/bible-studies/category/old-testament-books?category=old-testament-books",
			"https://versebyverseministry.org/bible-studies/category/new-testament-books?category=new-testament-books",
		},
		PageDelayMS:     1000,
		DownloadDelayMS: 500,
		DownloadWorkers: 3,
	}
}

// Load reads the config file at path, falling back to defaults when the file
// is absent, then applies environment overrides. A .env file in the working
// directory is honored.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults stand
	default:
		return nil, err
	}

	_ = godotenv.Load()
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.EmbeddingModel = v
	}
	if v := os.Getenv("CHAT_MODEL"); v != "" {
		cfg.ChatModel = v
	}
	if v := os.Getenv("CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.ChunkSize = n
		}
	}
	if v := os.Getenv("CHUNK_OVERLAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.ChunkOverlap = n
		}
	}
}

// Validate checks settings whose absence must stop the process before any
// work is attempted.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}
