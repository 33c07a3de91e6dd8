package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/earningsrag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, ProviderOllama, cfg.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434", cfg.ChatHost)
	assert.Equal(t, "all-minilm", cfg.EmbeddingModel)
	assert.Equal(t, "llama3", cfg.ChatModel)
	assert.Equal(t, 384, cfg.EmbeddingDimensions)
	assert.Equal(t, 0.2, cfg.Temperature)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080"))

		assert.Equal(t, "http://custom:8080", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080", cfg.ChatHost)
	})

	t.Run("with separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080"),
			WithChatHost("http://chat:9090"),
		)

		assert.Equal(t, "http://embed:8080", cfg.EmbeddingHost)
		assert.Equal(t, "http://chat:9090", cfg.ChatHost)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithProvider(ProviderOpenAI),
			WithAPIKey("sk-test"),
			WithEmbeddingModel("text-embedding-3-small"),
			WithChatModel("gpt-4o-mini"),
			WithEmbeddingDimensions(1536),
			WithTemperature(0.5),
			WithTimeout(5*time.Second),
		)

		assert.Equal(t, ProviderOpenAI, cfg.Provider)
		assert.Equal(t, "sk-test", cfg.APIKey)
		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
		assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
		assert.Equal(t, 1536, cfg.EmbeddingDimensions)
		assert.Equal(t, 0.5, cfg.Temperature)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		host     string
		expected string
	}{
		{"openai already has /v1", ProviderOpenAI, "https://api.openai.com/v1", "https://api.openai.com/v1"},
		{"openai missing /v1", ProviderOpenAI, "http://localhost:11434", "http://localhost:11434/v1"},
		{"openai trailing slash", ProviderOpenAI, "http://localhost:11434/", "http://localhost:11434/v1"},
		{"openai empty host", ProviderOpenAI, "", ""},
		{"ollama trailing slash", ProviderOllama, "http://localhost:11434/", "http://localhost:11434"},
		{"provider case", " OpenAI ", "http://vllm:8000", "http://vllm:8000/v1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Provider: tt.provider, EmbeddingHost: tt.host, ChatHost: tt.host}

			cfg.Normalize()

			assert.Equal(t, tt.expected, cfg.EmbeddingHost)
			assert.Equal(t, tt.expected, cfg.ChatHost)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing embedding host", func(c *Config) { c.EmbeddingHost = "" }, "EmbeddingHost"},
		{"missing chat host", func(c *Config) { c.ChatHost = "" }, "ChatHost"},
		{"missing embedding model", func(c *Config) { c.EmbeddingModel = "" }, "EmbeddingModel"},
		{"missing chat model", func(c *Config) { c.ChatModel = "" }, "ChatModel"},
		{"zero dimensions", func(c *Config) { c.EmbeddingDimensions = 0 }, "EmbeddingDimensions"},
		{"temperature too high", func(c *Config) { c.Temperature = 3 }, "Temperature"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "Timeout"},
		{"unknown provider", func(c *Config) { c.Provider = "bard" }, "unknown provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Equal(t, core.ClassConfiguration, core.Classify(err))
		})
	}

	t.Run("local provider needs no hosts", func(t *testing.T) {
		cfg := &Config{Provider: ProviderLocal, EmbeddingDimensions: 384, Timeout: time.Second}
		assert.NoError(t, cfg.Validate())
	})
}

func TestUpstreamError(t *testing.T) {
	assert.NoError(t, UpstreamError("embed", nil))

	err := UpstreamError("embed", errors.New("connection refused"))
	assert.ErrorIs(t, err, ErrUpstream)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, core.ClassUpstream, core.Classify(err))

	err = UpstreamError("chat", fmt.Errorf("post: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, ErrUpstream)

	wrapped := UpstreamError("outer", err)
	assert.Equal(t, err, wrapped, "already classified errors are passed through")
}

func TestCheckEmbeddings(t *testing.T) {
	assert.NoError(t, CheckEmbeddings([][]float32{{1, 2}, {3, 4}}, 2, 2))
	assert.NoError(t, CheckEmbeddings([][]float32{{1, 2, 3}}, 1, 0))
	assert.ErrorIs(t, CheckEmbeddings([][]float32{{1, 2}}, 2, 2), ErrDimensionMismatch)
	assert.ErrorIs(t, CheckEmbeddings([][]float32{{1, 2, 3}}, 1, 2), ErrDimensionMismatch)
}

func TestOrganizations(t *testing.T) {
	got := Organizations([]Entity{
		{Text: "Apple", Label: LabelOrganization},
		{Text: "Tim Cook", Label: LabelPerson},
		{Text: "Apple", Label: LabelOrganization},
	})
	assert.Equal(t, []string{"Apple", "Apple"}, got)
}
