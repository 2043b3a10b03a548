package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mehtasarang17/dockguard-ai/llm"
)

var configEnv = []string{
	"PORT", "DATABASE_URL", "VECTOR_STORE", "SQLITE_PATH", "LLM_PROVIDER",
	"AWS_REGION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_SESSION_TOKEN", "AWS_BEARER_TOKEN_BEDROCK",
	"BEDROCK_MODEL_ID", "BEDROCK_MODEL_ID_FAST", "OLLAMA_BASE_URL", "OLLAMA_MODEL", "OLLAMA_MODEL_FAST",
	"GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_MODEL_FAST",
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL", "OPENAI_MODEL_FAST",
	"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_DIMENSIONS",
	"LLM_TIMEOUT", "LLM_RATE_LIMIT", "MAX_CONTENT_LENGTH", "FRAMEWORKS_FILE",
}

// clearEnv blanks every variable FromEnv reads
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnv {
		t.Setenv(k, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, VectorStorePostgres, cfg.VectorStore)
	assert.Equal(t, llm.ProviderBedrock, cfg.LLMProvider)
	assert.Equal(t, "apac.amazon.nova-lite-v1:0", cfg.BedrockFastModel)
	assert.Equal(t, "mistral:7b", cfg.OllamaModel)
	assert.Equal(t, 768, cfg.EmbeddingDimensions)
	assert.Equal(t, 120*time.Second, cfg.LLMTimeout)
	assert.Zero(t, cfg.LLMRateLimit)
	assert.Equal(t, int64(16<<20), cfg.MaxContentLength)
	assert.Equal(t, EmbeddingGemini, cfg.EmbeddingProvider)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "Ollama")
	t.Setenv("VECTOR_STORE", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/x.db")
	t.Setenv("LLM_TIMEOUT", "45")
	t.Setenv("LLM_RATE_LIMIT", "2.5")
	t.Setenv("MAX_CONTENT_LENGTH", "1024")
	t.Setenv("AWS_BEARER_TOKEN_BEDROCK", "bearer")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, llm.ProviderOllama, cfg.LLMProvider)
	assert.Equal(t, VectorStoreSQLite, cfg.VectorStore)
	assert.Equal(t, "/tmp/x.db", cfg.SQLitePath)
	assert.Equal(t, 45*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 2.5, cfg.LLMRateLimit)
	assert.Equal(t, int64(1024), cfg.MaxContentLength)
	assert.Equal(t, EmbeddingOllama, cfg.EmbeddingProvider)

	p := cfg.Providers()
	assert.Equal(t, llm.ProviderOllama, p.DefaultProvider)
	assert.Equal(t, "bearer", p.Bedrock.BearerToken)
	assert.Equal(t, 45*time.Second, p.Bedrock.Timeout)
	assert.Equal(t, 2.5, p.RateLimit)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"provider", "LLM_PROVIDER", "watson"},
		{"vector store", "VECTOR_STORE", "redis"},
		{"embedding provider", "EMBEDDING_PROVIDER", "cohere"},
		{"dimensions", "EMBEDDING_DIMENSIONS", "many"},
		{"zero dimensions", "EMBEDDING_DIMENSIONS", "0"},
		{"timeout", "LLM_TIMEOUT", "soon"},
		{"rate", "LLM_RATE_LIMIT", "-1"},
		{"content length", "MAX_CONTENT_LENGTH", "big"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestGetDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_TIMEOUT", "1m30s")
	d, err := getDuration("LLM_TIMEOUT", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
}
