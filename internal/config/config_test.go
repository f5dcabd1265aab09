package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OPENAI_API_KEY", "EMBEDDING_MODEL", "CHAT_MODEL", "CHUNK_SIZE", "CHUNK_OVERLAP"} {
		t.Setenv(key, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 4, cfg.RetrievalK)
	assert.Equal(t, "data/pdfs", cfg.PDFDir)
	assert.Equal(t, "data/vectorstore", cfg.IndexDir)
	assert.Len(t, cfg.TargetURLs, 2)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `chunk_size: 500
chunk_overlap: 50
retrieval_k: 8
pdf_dir: /tmp/studies
target_urls:
  - https://example.com/studies
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
	assert.Equal(t, 8, cfg.RetrievalK)
	assert.Equal(t, "/tmp/studies", cfg.PDFDir)
	assert.Equal(t, []string{"https://example.com/studies"}, cfg.TargetURLs)
	// Keys the file omits keep their defaults.
	assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
}

func TestLoadMalformedFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunk_size: [not a number"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("EMBEDDING_MODEL", "text-embedding-3-large")
	t.Setenv("CHAT_MODEL", "gpt-4o")
	t.Setenv("CHUNK_SIZE", "750")
	t.Setenv("CHUNK_OVERLAP", "100")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, "text-embedding-3-large", cfg.EmbeddingModel)
	assert.Equal(t, "gpt-4o", cfg.ChatModel)
	assert.Equal(t, 750, cfg.ChunkSize)
	assert.Equal(t, 100, cfg.ChunkOverlap)
}

func TestEnvIgnoresInvalidNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHUNK_SIZE", "zero")
	t.Setenv("CHUNK_OVERLAP", "-5")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
}

func TestValidateRequiresAPIKey(t *testing.T) {
	cfg := defaultConfig()
	assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)

	cfg.OpenAIAPIKey = "sk-test"
	assert.NoError(t, cfg.Validate())
}
