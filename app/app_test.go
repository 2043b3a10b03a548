package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehtasarang17/dockguard-ai/chunkindex"
	"github.com/mehtasarang17/dockguard-ai/config"
	"github.com/mehtasarang17/dockguard-ai/embedding"
	"github.com/mehtasarang17/dockguard-ai/repository"
)

func TestOpenChunkStore(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		store, closeFn, err := OpenChunkStore(&config.Config{VectorStore: config.VectorStoreMemory}, nil)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &chunkindex.MemoryStore{}, store)
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "chunks.db")
		store, closeFn, err := OpenChunkStore(&config.Config{VectorStore: config.VectorStoreSQLite, SQLitePath: path}, nil)
		require.NoError(t, err)
		defer closeFn()

		sqlite, ok := store.(*repository.SQLiteChunkStore)
		require.True(t, ok)
		assert.Equal(t, path, sqlite.Path())
	})

	t.Run("postgres without a pool", func(t *testing.T) {
		_, _, err := OpenChunkStore(&config.Config{VectorStore: config.VectorStorePostgres}, nil)
		assert.Error(t, err)
	})

	t.Run("unknown", func(t *testing.T) {
		_, _, err := OpenChunkStore(&config.Config{VectorStore: "redis"}, nil)
		assert.Error(t, err)
	})
}

func TestNewEmbedder(t *testing.T) {
	base := config.Config{
		OpenAIAPIKey:        "sk-test",
		OllamaBaseURL:       "http://localhost:11434/",
		EmbeddingDimensions: embedding.DefaultDimensions,
	}

	for _, provider := range []string{config.EmbeddingOpenAI, config.EmbeddingOllama} {
		t.Run(provider, func(t *testing.T) {
			cfg := base
			cfg.EmbeddingProvider = provider
			e, err := NewEmbedder(&cfg, nil)
			require.NoError(t, err)
			assert.IsType(t, &embedding.OpenAIEmbedder{}, e)
		})
	}

	t.Run("gemini needs a client", func(t *testing.T) {
		cfg := base
		cfg.EmbeddingProvider = config.EmbeddingGemini
		_, err := NewEmbedder(&cfg, nil)
		assert.ErrorContains(t, err, "GEMINI_API_KEY")
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := base
		cfg.EmbeddingProvider = "cohere"
		_, err := NewEmbedder(&cfg, nil)
		assert.Error(t, err)
	})
}
